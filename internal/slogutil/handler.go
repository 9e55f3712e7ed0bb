// Package slogutil provides the slog handler and logger constructors used by cedx.
package slogutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// timeFormat keeps milliseconds so diagnostic lines of one export stay ordered.
const timeFormat = "2006-01-02T15:04:05.000Z07:00"

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 256)
		return &b
	},
}

// Handler writes records as one line each:
//
//	TIMESTAMP [level] Message | key=value key=value
//
// Group attributes are flattened to dotted keys. Floats are written in plain
// decimal notation so projected coordinates keep every digit.
type Handler struct {
	w     io.Writer
	level slog.Leveler
	// preformatted holds the attributes added with WithAttrs, already rendered.
	preformatted []byte
	// qualifier is the dotted group prefix for keys, with a trailing dot.
	qualifier string
	mu        *sync.Mutex
}

// NewHandler creates a new line handler.
func NewHandler(w io.Writer, opts *slog.HandlerOptions) *Handler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &Handler{w: w, level: level, mu: &sync.Mutex{}}
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes the record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	bp := bufPool.Get().(*[]byte)
	buf := (*bp)[:0]
	defer func() {
		*bp = buf
		bufPool.Put(bp)
	}()

	if !r.Time.IsZero() {
		buf = r.Time.UTC().AppendFormat(buf, timeFormat)
		buf = append(buf, ' ')
	}
	buf = append(buf, '[')
	buf = append(buf, levelName(r.Level)...)
	buf = append(buf, "] "...)
	buf = append(buf, r.Message...)

	attrs := h.preformatted
	if r.NumAttrs() > 0 {
		var rendered []byte
		r.Attrs(func(a slog.Attr) bool {
			rendered = appendAttr(rendered, h.qualifier, a)
			return true
		})
		attrs = append(attrs[:len(attrs):len(attrs)], rendered...)
	}
	if len(attrs) > 0 {
		buf = append(buf, " |"...)
		buf = append(buf, attrs...)
	}
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

// WithAttrs returns a handler that writes attrs on every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	h2.preformatted = append([]byte(nil), h.preformatted...)
	for _, a := range attrs {
		h2.preformatted = appendAttr(h2.preformatted, h.qualifier, a)
	}
	return &h2
}

// WithGroup returns a handler that qualifies later keys with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.qualifier = h.qualifier + name + "."
	return &h2
}

// appendAttr renders a as " key=value", flattening groups.
func appendAttr(buf []byte, qualifier string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			qualifier += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			buf = appendAttr(buf, qualifier, ga)
		}
		return buf
	}
	if a.Key == "" {
		return buf
	}
	buf = append(buf, ' ')
	buf = append(buf, qualifier...)
	buf = append(buf, a.Key...)
	buf = append(buf, '=')
	return appendValue(buf, a.Value)
}

func appendValue(buf []byte, v slog.Value) []byte {
	switch v.Kind() {
	case slog.KindString:
		return appendString(buf, v.String())
	case slog.KindInt64:
		return strconv.AppendInt(buf, v.Int64(), 10)
	case slog.KindUint64:
		return strconv.AppendUint(buf, v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.AppendFloat(buf, v.Float64(), 'f', -1, 64)
	case slog.KindBool:
		return strconv.AppendBool(buf, v.Bool())
	case slog.KindDuration:
		return append(buf, v.Duration().String()...)
	case slog.KindTime:
		return v.Time().AppendFormat(buf, time.RFC3339)
	default:
		return appendString(buf, fmt.Sprint(v.Any()))
	}
}

// appendString quotes s when it would otherwise break key=value parsing.
func appendString(buf []byte, s string) []byte {
	if s == "" || strings.ContainsAny(s, " =\"\t\n") {
		return strconv.AppendQuote(buf, s)
	}
	return append(buf, s...)
}

func levelName(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "debug"
	case level < slog.LevelWarn:
		return "info"
	case level < slog.LevelError:
		return "warn"
	default:
		return "error"
	}
}
