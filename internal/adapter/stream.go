package adapter

import (
	"context"
	"errors"
	"io"
	"iter"

	"claude-router/internal/anthropic"
	"claude-router/internal/upstream"
)

// FrameStream pumps upstream SSE events through a dialect translator and
// yields Messages API frames. The loop is pull-based: each event is read,
// translated and yielded before the next read, so frames reach the client as
// the upstream produces them. The body is closed when the iterator finishes
// or its consumer stops early.
//
// translate returns frames and optionally a fatal error; frames produced
// alongside an error are still delivered before the error terminates the
// stream. finalize produces closing frames for upstreams that end without a
// terminal event.
func FrameStream(
	ctx context.Context,
	body io.ReadCloser,
	translate func(context.Context, upstream.Event) ([]anthropic.Frame, error),
	finalize func() []anthropic.Frame,
) iter.Seq2[anthropic.Frame, error] {
	reader := upstream.NewSSEReader(body)
	return func(yield func(anthropic.Frame, error) bool) {
		defer body.Close()
		for {
			if ctx.Err() != nil {
				return
			}
			ev, err := reader.Next()
			if err != nil {
				if errors.Is(err, io.EOF) {
					for _, frame := range finalize() {
						if !yield(frame, nil) {
							return
						}
					}
					return
				}
				yield(anthropic.Frame{}, err)
				return
			}
			frames, terr := translate(ctx, ev)
			for _, frame := range frames {
				if !yield(frame, nil) {
					return
				}
			}
			if terr != nil {
				yield(anthropic.Frame{}, terr)
				return
			}
		}
	}
}
