package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"vidqueue/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "mux", "ffmpeg", "failed", base)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"mux", "ffmpeg", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestFailureKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrConfiguration, "encode video", "", "encoder missing", nil), "configuration"},
		{services.Wrap(services.ErrInterrupted, "encode video", "", "stopped", nil), "interrupted"},
		{context.Canceled, "interrupted"},
		{services.Wrap(services.ErrNotFound, "extract audio", "", "source gone", nil), "not_found"},
		{errors.New("exit status 1"), "external_tool"},
	}
	for _, tc := range tests {
		if got := services.FailureKind(tc.err); got != tc.want {
			t.Fatalf("FailureKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
