package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewCedxError(t *testing.T) {
	cause := errors.New("underlying error")
	fixes := []FixAction{{Type: RunCommand, Command: "cedx documents"}}

	err := NewCedxError(DocumentNotFound, "document 'parcel-7' not found", cause, fixes)

	if err.Code != DocumentNotFound {
		t.Errorf("Code = %v, want %v", err.Code, DocumentNotFound)
	}
	if err.Message != "document 'parcel-7' not found" {
		t.Errorf("Message = %q", err.Message)
	}
	if len(err.SuggestedFixes) != 1 {
		t.Errorf("len(SuggestedFixes) = %d, want 1", len(err.SuggestedFixes))
	}
}

func TestCedxError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      DataIntegrity,
			message:   "point 12 references location 40",
			cause:     errors.New("location is superseded"),
			wantParts: []string{"DATA_INTEGRITY", "point 12 references location 40", "location is superseded"},
		},
		{
			name:      "without cause",
			code:      AllocationExhausted,
			message:   "no ids left",
			wantParts: []string{"ALLOCATION_EXHAUSTED", "no ids left"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewCedxError(tt.code, tt.message, tt.cause, nil).Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, missing %q", got, part)
				}
			}
		})
	}
}

func TestCedxError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := New(InternalError, "write failed", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
}

func TestCodeOf(t *testing.T) {
	base := Newf(DataIntegrity, "line %d has no end location", 9)
	wrapped := fmt.Errorf("export parcel-7: %w", base)

	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"direct", base, DataIntegrity},
		{"wrapped", wrapped, DataIntegrity},
		{"plain", errors.New("nope"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}

	if !HasCode(wrapped, DataIntegrity) {
		t.Error("HasCode(wrapped, DataIntegrity) = false")
	}
	if HasCode(nil, DataIntegrity) {
		t.Error("HasCode(nil) = true")
	}
}

func TestIsFatal(t *testing.T) {
	if IsFatal(nil) {
		t.Error("nil is not fatal")
	}
	if IsFatal(New(LoggingUnavailable, "cannot open log", nil)) {
		t.Error("logging errors are not fatal")
	}
	if !IsFatal(New(AllocationExhausted, "no ids", nil)) {
		t.Error("allocation errors are fatal")
	}
	if !IsFatal(errors.New("unknown")) {
		t.Error("untyped errors are fatal")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(DataIntegrity, "bad ref", nil).WithDetails(map[string]interface{}{"entity": "point:3"})
	if err.Details == nil {
		t.Fatal("Details not set")
	}
	if len(err.SuggestedFixes) == 0 {
		t.Error("New should attach default fixes for DataIntegrity")
	}
}

func TestGetSuggestedFixes(t *testing.T) {
	if fixes := GetSuggestedFixes(DocumentNotFound); len(fixes) != 2 {
		t.Errorf("len(fixes) = %d, want 2", len(fixes))
	}
	if fixes := GetSuggestedFixes(InternalError); fixes != nil {
		t.Errorf("InternalError should have no fixes, got %v", fixes)
	}
}
