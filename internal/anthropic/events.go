package anthropic

import "encoding/json"

// Stream event names. Every SSE frame carries one of these as its event line
// and a payload whose "type" field repeats the name.
const (
	EventMessageStart      = "message_start"
	EventContentBlockStart = "content_block_start"
	EventContentBlockDelta = "content_block_delta"
	EventContentBlockStop  = "content_block_stop"
	EventMessageDelta      = "message_delta"
	EventMessageStop       = "message_stop"
	EventError             = "error"
)

// Frame is a single named SSE frame ready for the wire.
type Frame struct {
	Event string
	Data  any
}

// MessageStartEvent opens a streamed message with its response envelope.
type MessageStartEvent struct {
	Type    string            `json:"type"`
	Message *MessagesResponse `json:"message"`
}

// StartBlock is the content block skeleton sent in content_block_start frames.
// Custom marshaling keeps the accumulator fields present even when empty,
// which clients rely on to initialize their buffers.
type StartBlock struct {
	ContentBlock
}

// MarshalJSON emits the per-type start skeleton.
func (b StartBlock) MarshalJSON() ([]byte, error) {
	switch b.Type {
	case ContentTypeText:
		return json.Marshal(struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{b.Type, b.Text})
	case ContentTypeToolUse:
		input := b.Input
		if input == nil {
			input = json.RawMessage("{}")
		}
		return json.Marshal(struct {
			Type  string          `json:"type"`
			ID    string          `json:"id"`
			Name  string          `json:"name"`
			Input json.RawMessage `json:"input"`
		}{b.Type, b.ID, b.Name, input})
	case ContentTypeThinking:
		// The start frame is the only place custom fields can ride along,
		// so the reasoning round-trip credentials are attached here.
		return json.Marshal(struct {
			Type                      string `json:"type"`
			Thinking                  string `json:"thinking"`
			ExtractedID               string `json:"extracted_openai_rs_id,omitempty"`
			ExtractedEncryptedContent string `json:"extracted_openai_rs_encrypted_content,omitempty"`
		}{b.Type, b.Thinking, b.ExtractedID, b.ExtractedEncryptedContent})
	default:
		return json.Marshal(b.ContentBlock)
	}
}

// ContentBlockStartEvent opens content block Index.
type ContentBlockStartEvent struct {
	Type         string     `json:"type"`
	Index        int        `json:"index"`
	ContentBlock StartBlock `json:"content_block"`
}

// Delta type discriminators.
const (
	DeltaTypeText      = "text_delta"
	DeltaTypeInputJSON = "input_json_delta"
	DeltaTypeThinking  = "thinking_delta"
	DeltaTypeSignature = "signature_delta"
)

// Delta is the union of content block delta kinds.
type Delta struct {
	Type        string
	Text        string
	PartialJSON string
	Thinking    string
	Signature   string
}

// MarshalJSON always includes the payload field of the active delta kind, even
// when empty, matching the wire protocol.
func (d Delta) MarshalJSON() ([]byte, error) {
	switch d.Type {
	case DeltaTypeInputJSON:
		return json.Marshal(struct {
			Type        string `json:"type"`
			PartialJSON string `json:"partial_json"`
		}{d.Type, d.PartialJSON})
	case DeltaTypeThinking:
		return json.Marshal(struct {
			Type     string `json:"type"`
			Thinking string `json:"thinking"`
		}{d.Type, d.Thinking})
	case DeltaTypeSignature:
		return json.Marshal(struct {
			Type      string `json:"type"`
			Signature string `json:"signature"`
		}{d.Type, d.Signature})
	default:
		return json.Marshal(struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{DeltaTypeText, d.Text})
	}
}

// ContentBlockDeltaEvent appends content to the open block at Index.
type ContentBlockDeltaEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Delta Delta  `json:"delta"`
}

// ContentBlockStopEvent closes the block at Index.
type ContentBlockStopEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// MessageDeltaBody carries the terminal stop metadata.
type MessageDeltaBody struct {
	StopReason   *string `json:"stop_reason"`
	StopSequence *string `json:"stop_sequence"`
}

// MessageDeltaUsage carries final output token accounting.
type MessageDeltaUsage struct {
	OutputTokens int `json:"output_tokens"`
}

// MessageDeltaEvent is the penultimate frame with stop reason and usage.
type MessageDeltaEvent struct {
	Type  string            `json:"type"`
	Delta MessageDeltaBody  `json:"delta"`
	Usage MessageDeltaUsage `json:"usage"`
}

// MessageStopEvent terminates the stream.
type MessageStopEvent struct {
	Type string `json:"type"`
}

// ErrorFrame builds an in-stream error frame.
func ErrorFrame(errType, message string) Frame {
	return Frame{Event: EventError, Data: NewError(errType, message)}
}
