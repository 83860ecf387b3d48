package peersdat

import (
	"errors"
	"testing"
)

func TestErrorKindStringer(t *testing.T) {
	tests := []struct {
		in   ErrorKind
		want string
	}{
		{ErrTooShort, "ErrTooShort"},
		{ErrUnrecognizedMagic, "ErrUnrecognizedMagic"},
		{ErrTruncatedRecord, "ErrTruncatedRecord"},
		{ErrChecksumMismatch, "ErrChecksumMismatch"},
		{ErrBadBuffer, "ErrBadBuffer"},
	}
	for i, test := range tests {
		if got := test.in.Error(); got != test.want {
			t.Errorf("#%d: got %q, want %q", i, got, test.want)
		}
	}
}

func TestErrorKindIsAs(t *testing.T) {
	err := makeError(ErrTruncatedRecord, "record 3 truncated")
	if !errors.Is(err, ErrTruncatedRecord) {
		t.Fatalf("errors.Is(%v, ErrTruncatedRecord) = false", err)
	}
	if errors.Is(err, ErrTooShort) {
		t.Fatalf("errors.Is(%v, ErrTooShort) = true", err)
	}
	var kind ErrorKind
	if !errors.As(err, &kind) || kind != ErrTruncatedRecord {
		t.Fatalf("errors.As kind = %v", kind)
	}
	var e Error
	if !errors.As(err, &e) || e.Description != "record 3 truncated" {
		t.Fatalf("errors.As description = %q", e.Description)
	}
	if err.Error() != "record 3 truncated" {
		t.Fatalf("Error() = %q", err.Error())
	}
}
