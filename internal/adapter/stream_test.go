package adapter

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"claude-router/internal/anthropic"
	"claude-router/internal/upstream"
)

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func passEvent(_ context.Context, ev upstream.Event) ([]anthropic.Frame, error) {
	return []anthropic.Frame{{Event: ev.Type}}, nil
}

func TestFrameStreamDeliversAndFinalizes(t *testing.T) {
	body := &closeTracker{Reader: strings.NewReader(
		"event: one\ndata: {}\n\n" +
			"event: two\ndata: {}\n\n")}

	finalize := func() []anthropic.Frame {
		return []anthropic.Frame{{Event: "closing"}}
	}

	var events []string
	for frame, err := range FrameStream(context.Background(), body, passEvent, finalize) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		events = append(events, frame.Event)
	}

	want := []string{"one", "two", "closing"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events = %v, want %v", events, want)
		}
	}
	if !body.closed {
		t.Error("body not closed after iteration")
	}
}

func TestFrameStreamFatalErrorAfterFrames(t *testing.T) {
	body := &closeTracker{Reader: strings.NewReader("event: bad\ndata: {}\n\n")}

	fatal := errors.New("translation failed")
	translate := func(_ context.Context, ev upstream.Event) ([]anthropic.Frame, error) {
		return []anthropic.Frame{{Event: ev.Type}}, fatal
	}

	var events []string
	var gotErr error
	for frame, err := range FrameStream(context.Background(), body, translate, func() []anthropic.Frame { return nil }) {
		if err != nil {
			gotErr = err
			continue
		}
		events = append(events, frame.Event)
	}

	if len(events) != 1 || events[0] != "bad" {
		t.Errorf("events = %v, want frames before the error", events)
	}
	if !errors.Is(gotErr, fatal) {
		t.Errorf("error = %v, want %v", gotErr, fatal)
	}
}

func TestFrameStreamClosesBodyOnEarlyBreak(t *testing.T) {
	body := &closeTracker{Reader: strings.NewReader(
		"event: one\ndata: {}\n\n" +
			"event: two\ndata: {}\n\n")}

	for range FrameStream(context.Background(), body, passEvent, func() []anthropic.Frame { return nil }) {
		break
	}
	if !body.closed {
		t.Error("body not closed after early break")
	}
}

func TestFrameStreamStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	body := &closeTracker{Reader: strings.NewReader("event: one\ndata: {}\n\n")}
	count := 0
	for range FrameStream(ctx, body, passEvent, func() []anthropic.Frame { return nil }) {
		count++
	}
	if count != 0 {
		t.Errorf("yielded %d frames on canceled context", count)
	}
}
