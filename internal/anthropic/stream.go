package anthropic

import "fmt"

// StreamProtocolError reports an upstream event sequence that cannot be
// translated without corrupting the client-visible stream. It aborts the
// stream; recoverable oddities are logged and skipped by the caller instead.
type StreamProtocolError struct {
	Reason string
}

// Compile-time check to ensure StreamProtocolError implements error
var _ error = (*StreamProtocolError)(nil)

// Error implements the error interface.
func (e *StreamProtocolError) Error() string {
	return "stream protocol violation: " + e.Reason
}

type blockKind int

const (
	blockNone blockKind = iota
	blockText
	blockToolUse
	blockThinking
	blockOther
)

// StreamState is the emitter side of the streaming translation. Dialect
// translators feed it logical output (text, tool calls, thinking) and it
// produces well-formed Messages API frames, maintaining the protocol
// invariants: at most one content block open at any moment, block indices
// strictly increasing and advanced only when a block opens.
//
// A StreamState serves exactly one request and is not safe for concurrent use.
type StreamState struct {
	messageStarted bool
	finished       bool
	nextIndex      int
	openIndex      int
	openKind       blockKind
}

// NewStreamState returns a fresh state machine for one streamed response.
func NewStreamState() *StreamState {
	return &StreamState{openKind: blockNone}
}

// Started reports whether the message_start frame has been emitted.
func (s *StreamState) Started() bool {
	return s.messageStarted
}

// StartMessage emits the opening message_start frame. Subsequent calls are
// no-ops so translators can call it defensively on their first event.
func (s *StreamState) StartMessage(id, model string) []Frame {
	if s.messageStarted {
		return nil
	}
	s.messageStarted = true
	return []Frame{{
		Event: EventMessageStart,
		Data: MessageStartEvent{
			Type:    EventMessageStart,
			Message: NewMessagesResponse(id, model),
		},
	}}
}

// Text appends a text delta, opening a text block first if one is not the
// currently open block.
func (s *StreamState) Text(text string) []Frame {
	frames := s.ensureOpen(blockText, StartBlock{ContentBlock{Type: ContentTypeText}})
	return append(frames, Frame{
		Event: EventContentBlockDelta,
		Data: ContentBlockDeltaEvent{
			Type:  EventContentBlockDelta,
			Index: s.openIndex,
			Delta: Delta{Type: DeltaTypeText, Text: text},
		},
	})
}

// StartThinking opens a thinking block carrying the reasoning round-trip
// credentials. Only the start frame can carry them, so translators must call
// this before the first thinking delta of a reasoning item.
func (s *StreamState) StartThinking(extractedID, encryptedContent string) []Frame {
	return s.open(blockThinking, StartBlock{ContentBlock{
		Type:                      ContentTypeThinking,
		ExtractedID:               extractedID,
		ExtractedEncryptedContent: encryptedContent,
	}})
}

// Thinking appends a thinking delta, opening a bare thinking block if needed.
func (s *StreamState) Thinking(text string) []Frame {
	frames := s.ensureOpen(blockThinking, StartBlock{ContentBlock{Type: ContentTypeThinking}})
	return append(frames, Frame{
		Event: EventContentBlockDelta,
		Data: ContentBlockDeltaEvent{
			Type:  EventContentBlockDelta,
			Index: s.openIndex,
			Delta: Delta{Type: DeltaTypeThinking, Thinking: text},
		},
	})
}

// Signature appends a signature delta to the open thinking block.
func (s *StreamState) Signature(sig string) []Frame {
	frames := s.ensureOpen(blockThinking, StartBlock{ContentBlock{Type: ContentTypeThinking}})
	return append(frames, Frame{
		Event: EventContentBlockDelta,
		Data: ContentBlockDeltaEvent{
			Type:  EventContentBlockDelta,
			Index: s.openIndex,
			Delta: Delta{Type: DeltaTypeSignature, Signature: sig},
		},
	})
}

// StartToolUse opens a tool_use block for the given call.
func (s *StreamState) StartToolUse(id, name string) []Frame {
	return s.open(blockToolUse, StartBlock{ContentBlock{
		Type: ContentTypeToolUse,
		ID:   id,
		Name: name,
	}})
}

// ToolArgs appends an input_json_delta to the open tool_use block.
func (s *StreamState) ToolArgs(partial string) ([]Frame, error) {
	if s.openKind != blockToolUse {
		return nil, &StreamProtocolError{Reason: fmt.Sprintf("tool argument delta without an open tool_use block (open kind %d)", s.openKind)}
	}
	return []Frame{{
		Event: EventContentBlockDelta,
		Data: ContentBlockDeltaEvent{
			Type:  EventContentBlockDelta,
			Index: s.openIndex,
			Delta: Delta{Type: DeltaTypeInputJSON, PartialJSON: partial},
		},
	}}, nil
}

// WholeBlock emits a complete content block as an immediately closed
// start/stop pair. Used for server tool use and web search result blocks that
// arrive fully formed.
func (s *StreamState) WholeBlock(block ContentBlock) []Frame {
	frames := s.open(blockOther, StartBlock{block})
	return append(frames, s.CloseBlock()...)
}

// CloseBlock closes the open content block, if any.
func (s *StreamState) CloseBlock() []Frame {
	if s.openKind == blockNone {
		return nil
	}
	frame := Frame{
		Event: EventContentBlockStop,
		Data:  ContentBlockStopEvent{Type: EventContentBlockStop, Index: s.openIndex},
	}
	s.openKind = blockNone
	return []Frame{frame}
}

// Finish closes any open block and emits the terminal message_delta and
// message_stop frames. Subsequent calls are no-ops.
func (s *StreamState) Finish(stopReason string, outputTokens int) []Frame {
	if s.finished {
		return nil
	}
	s.finished = true
	frames := s.CloseBlock()
	frames = append(frames,
		Frame{
			Event: EventMessageDelta,
			Data: MessageDeltaEvent{
				Type:  EventMessageDelta,
				Delta: MessageDeltaBody{StopReason: &stopReason},
				Usage: MessageDeltaUsage{OutputTokens: outputTokens},
			},
		},
		Frame{
			Event: EventMessageStop,
			Data:  MessageStopEvent{Type: EventMessageStop},
		},
	)
	return frames
}

// Finished reports whether the terminal frames have been emitted.
func (s *StreamState) Finished() bool {
	return s.finished
}

// ensureOpen opens a block of the wanted kind unless it is already the open one.
func (s *StreamState) ensureOpen(kind blockKind, start StartBlock) []Frame {
	if s.openKind == kind {
		return nil
	}
	return s.open(kind, start)
}

// open closes the current block and opens a new one at the next index.
func (s *StreamState) open(kind blockKind, start StartBlock) []Frame {
	frames := s.CloseBlock()
	s.openIndex = s.nextIndex
	s.nextIndex++
	s.openKind = kind
	frames = append(frames, Frame{
		Event: EventContentBlockStart,
		Data: ContentBlockStartEvent{
			Type:         EventContentBlockStart,
			Index:        s.openIndex,
			ContentBlock: start,
		},
	})
	return frames
}
