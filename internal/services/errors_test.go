package services

import (
	"errors"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	cases := []struct {
		marker error
		code   Code
	}{
		{ErrValidation, CodeValidation},
		{ErrTransient, CodeTransient},
		{ErrFatal, CodeFatal},
		{ErrStuck, CodeStuck},
	}
	for _, tc := range cases {
		err := Wrap(tc.marker, "stage", "op", "message", nil)
		if !errors.Is(err, tc.marker) {
			t.Errorf("Wrap(%v) lost its marker", tc.marker)
		}
		if got := Classify(err); got != tc.code {
			t.Errorf("Classify(%v) = %s, want %s", tc.marker, got, tc.code)
		}
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "stage", "op", "message", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("err = %v", err)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(ErrTransient, "upload", "put", "writing clip", cause)
	if !errors.Is(err, cause) {
		t.Fatal("cause not preserved")
	}
}

func TestClassifyUnmarkedErrorIsTransient(t *testing.T) {
	if got := Classify(errors.New("something odd")); got != CodeTransient {
		t.Fatalf("Classify = %s", got)
	}
}

func TestRetryableOnlyForTransient(t *testing.T) {
	if !Retryable(Wrap(ErrTransient, "s", "o", "m", nil)) {
		t.Error("transient not retryable")
	}
	for _, marker := range []error{ErrValidation, ErrFatal, ErrStuck} {
		if Retryable(Wrap(marker, "s", "o", "m", nil)) {
			t.Errorf("%v reported retryable", marker)
		}
	}
}

func TestUserMessageStripsSentinelPrefix(t *testing.T) {
	err := Wrap(ErrFatal, "compose", "concat", "unsupported pixel format", nil)
	want := "compose: concat: unsupported pixel format"
	if got := UserMessage(err); got != want {
		t.Fatalf("UserMessage = %q, want %q", got, want)
	}
	if UserMessage(nil) != "" {
		t.Fatal("nil error produced a message")
	}
}
