package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func quietSpinner(ctx context.Context, msg string) *Spinner {
	s := newSpinnerWithContext(ctx, msg)
	s.w = io.Discard
	return s
}

func TestSpinnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopped := quietSpinner(ctx, "Searching")
	stopped.Start()
	stopped.Stop()
	if stopped.Cancelled() {
		t.Error("Cancelled() = true after Stop, want false")
	}

	s := quietSpinner(ctx, "Searching")
	s.Start()
	cancel()
	s.Stop()
	if !s.Cancelled() {
		t.Error("Cancelled() = false after parent cancel, want true")
	}
}

func TestSpinnerDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	s := quietSpinner(ctx, "Searching")
	s.Start()
	<-ctx.Done()
	s.Stop()
	if !s.Cancelled() {
		t.Error("Cancelled() = false after deadline, want true")
	}
}

func TestSpinnerStop(t *testing.T) {
	tests := []struct {
		name string
		stop func(*Spinner)
	}{
		{"repeated", func(s *Spinner) { s.Stop(); s.Stop() }},
		{"success", func(s *Spinner) { s.StopWithSuccess("Learned DAG") }},
		{"error", func(s *Spinner) { s.StopWithError("Search failed") }},
	}
	old := uiOut
	uiOut = io.Discard
	defer func() { uiOut = old }()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := quietSpinner(context.Background(), "Searching")
			s.Start()
			tt.stop(s)
		})
	}
}

func TestSpinnerSetMessage(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner("Searching")
	s.w = &buf
	s.Start()
	s.SetMessage("Searching · score -1234.5678")
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if got := s.Message(); got != "Searching · score -1234.5678" {
		t.Errorf("Message() = %q", got)
	}
	if !strings.Contains(buf.String(), "score -1234.5678") {
		t.Errorf("spinner output = %q, want the new message", buf.String())
	}
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	s := quietSpinner(context.Background(), "never started")
	s.Stop()
}
