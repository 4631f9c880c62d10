package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}

	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h, ok := newFanoutHandler(nil, inner, nil).(*slog.JSONHandler); !ok || h != inner {
		t.Fatal("expected the single live handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsEachLevel(t *testing.T) {
	var runLog, terminal bytes.Buffer
	h := newFanoutHandler(
		slog.NewJSONHandler(&runLog, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&terminal, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	logger := slog.New(h)

	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug enabled through the run log handler")
	}
	if h.Enabled(context.Background(), slog.LevelDebug-4) {
		t.Fatal("expected levels below every handler to be disabled")
	}

	logger.Debug("probe finished")
	logger.Warn("step failed")

	if !strings.Contains(runLog.String(), "probe finished") || !strings.Contains(runLog.String(), "step failed") {
		t.Fatalf("run log missing records: %s", runLog.String())
	}
	if strings.Contains(terminal.String(), "probe finished") || !strings.Contains(terminal.String(), "step failed") {
		t.Fatalf("terminal should only hold the warning: %s", terminal.String())
	}
}

func TestFanoutHandlerPropagatesAttrsAndGroups(t *testing.T) {
	var a, b bytes.Buffer
	logger := slog.New(newFanoutHandler(
		slog.NewJSONHandler(&a, nil),
		slog.NewJSONHandler(&b, nil),
	)).With(slog.String(FieldComponent, "queue")).WithGroup("step")

	logger.Info("started", slog.String("label", "mux"))

	for name, out := range map[string]string{"first": a.String(), "second": b.String()} {
		if !strings.Contains(out, `"component":"queue"`) || !strings.Contains(out, `"step":{"label":"mux"}`) {
			t.Fatalf("%s handler missing attrs: %s", name, out)
		}
	}
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errTest }

var errTest = errors.New("write failed")

func TestFanoutHandlerKeepsWritingAfterFailure(t *testing.T) {
	var buf bytes.Buffer
	h := newFanoutHandler(
		failingHandler{slog.NewJSONHandler(&bytes.Buffer{}, nil)},
		slog.NewJSONHandler(&buf, nil),
	)
	err := h.Handle(context.Background(), slog.NewRecord(time.Time{}, slog.LevelInfo, "hello", 0))
	if !errors.Is(err, errTest) {
		t.Fatalf("expected first handler error, got %v", err)
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Fatal("expected second handler to receive the record")
	}
}
