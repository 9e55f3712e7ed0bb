package idalloc

import (
	stderrors "errors"
	"math"
	"testing"

	"cedx/internal/errors"
)

func TestSequence_Monotonic(t *testing.T) {
	seq, err := NewSequence(1, 100)
	if err != nil {
		t.Fatal(err)
	}

	var prev uint32
	for i := 0; i < 50; i++ {
		id, err := seq.Allocate()
		if err != nil {
			t.Fatalf("Allocate() #%d error = %v", i, err)
		}
		if id <= prev {
			t.Fatalf("Allocate() = %d after %d, want strictly increasing", id, prev)
		}
		prev = id
	}
	if seq.Issued() != 50 {
		t.Errorf("Issued() = %d, want 50", seq.Issued())
	}
	if seq.Remaining() != 50 {
		t.Errorf("Remaining() = %d, want 50", seq.Remaining())
	}
}

func TestSequence_Exhausted(t *testing.T) {
	tests := []struct {
		name        string
		first, last uint32
		want        int
	}{
		{"small range", 5, 7, 3},
		{"single id", 9, 9, 1},
		{"top of range", math.MaxUint32 - 1, math.MaxUint32, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := NewSequence(tt.first, tt.last)
			if err != nil {
				t.Fatal(err)
			}
			for i := 0; i < tt.want; i++ {
				if _, err := seq.Allocate(); err != nil {
					t.Fatalf("Allocate() #%d error = %v", i, err)
				}
			}
			_, err = seq.Allocate()
			if !errors.HasCode(err, errors.AllocationExhausted) {
				t.Errorf("Allocate() past the end error = %v, want ALLOCATION_EXHAUSTED", err)
			}
			if seq.Remaining() != 0 {
				t.Errorf("Remaining() = %d, want 0", seq.Remaining())
			}
		})
	}
}

func TestNewSequence_Invalid(t *testing.T) {
	if _, err := NewSequence(0, 10); !errors.HasCode(err, errors.ConfigInvalid) {
		t.Errorf("NewSequence(0, 10) error = %v, want CONFIG_INVALID", err)
	}
	if _, err := NewSequence(10, 9); !errors.HasCode(err, errors.AllocationExhausted) {
		t.Errorf("NewSequence(10, 9) error = %v, want ALLOCATION_EXHAUSTED", err)
	}
}

func TestSessionFactory(t *testing.T) {
	factory := SessionFactory(1000)

	for i := 0; i < 2; i++ {
		alloc, err := factory("parcel")
		if err != nil {
			t.Fatal(err)
		}
		id, _ := alloc.Allocate()
		if id != 1000 {
			t.Errorf("export %d first id = %d, want 1000", i, id)
		}
	}
}

func TestContinueFactory(t *testing.T) {
	history := map[string]uint32{"parcel": 41, "worn": math.MaxUint32}
	highest := func(doc string) (uint32, error) {
		if doc == "broken" {
			return 0, stderrors.New("database is locked")
		}
		return history[doc], nil
	}
	factory := ContinueFactory(10, highest)

	tests := []struct {
		doc     string
		want    uint32
		wantErr bool
	}{
		{"parcel", 42, false},
		{"fresh", 10, false},
		{"worn", 0, true},
		{"broken", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.doc, func(t *testing.T) {
			alloc, err := factory(tt.doc)
			if (err != nil) != tt.wantErr {
				t.Fatalf("factory(%q) error = %v, wantErr %v", tt.doc, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			id, err := alloc.Allocate()
			if err != nil {
				t.Fatal(err)
			}
			if id != tt.want {
				t.Errorf("first id = %d, want %d", id, tt.want)
			}
		})
	}
}
