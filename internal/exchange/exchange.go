// Package exchange writes and reads package dumps: indented JSON, optionally
// zstd-compressed. Dumps are for inspection and verification.
package exchange

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"cedx/internal/errors"
	"cedx/internal/export"
	"cedx/internal/version"
)

// CompressedExt marks zstd-compressed dumps.
const CompressedExt = ".zst"

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Write encodes pkg to w, compressing when compress is set.
func Write(w io.Writer, pkg *export.Package, compress bool) error {
	if !compress {
		return encode(w, pkg)
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	if err := encode(enc, pkg); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func encode(w io.Writer, pkg *export.Package) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pkg); err != nil {
		return fmt.Errorf("encoding package: %w", err)
	}
	return nil
}

// Read decodes a dump, detecting compression from the stream itself.
func Read(r io.Reader) (*export.Package, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(zstdMagic))

	var src io.Reader = br
	if bytes.Equal(head, zstdMagic) {
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, errors.New(errors.PackageInvalid, "opening zstd stream", err)
		}
		defer dec.Close()
		src = dec
	}

	var pkg export.Package
	if err := json.NewDecoder(src).Decode(&pkg); err != nil {
		return nil, errors.New(errors.PackageInvalid, "decoding package", err)
	}
	if pkg.Format > version.PackageFormat {
		return nil, errors.Newf(errors.PackageInvalid,
			"package format %d is newer than this build supports (%d)", pkg.Format, version.PackageFormat)
	}
	return &pkg, nil
}

// WriteFile writes pkg to path, compressing when path ends in .zst.
// The file is replaced atomically.
func WriteFile(path string, pkg *export.Package) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".cedx-dump-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := Write(tmp, pkg, IsCompressed(path)); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadFile reads a dump written by WriteFile.
func ReadFile(path string) (*export.Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Read(f)
}

// IsCompressed reports whether path names a compressed dump.
func IsCompressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), CompressedExt)
}
