// Package openairesponses translates between the Messages API and the OpenAI
// Responses dialect.
package openairesponses

import "encoding/json"

// Input item and content part type discriminators.
const (
	itemMessage            = "message"
	itemFunctionCall       = "function_call"
	itemFunctionCallOutput = "function_call_output"
	itemReasoning          = "reasoning"
	itemWebSearchCall      = "web_search_call"

	partInputText  = "input_text"
	partOutputText = "output_text"
	partInputImage = "input_image"
)

// Request is the outbound Responses API request body.
type Request struct {
	Model           string           `json:"model"`
	Instructions    string           `json:"instructions,omitempty"`
	Input           []InputItem      `json:"input"`
	Tools           []Tool           `json:"tools,omitempty"`
	ToolChoice      json.RawMessage  `json:"tool_choice,omitempty"`
	Temperature     *float64         `json:"temperature,omitempty"`
	TopP            *float64         `json:"top_p,omitempty"`
	MaxOutputTokens *int             `json:"max_output_tokens,omitempty"`
	Reasoning       *ReasoningConfig `json:"reasoning,omitempty"`
	Include         []string         `json:"include,omitempty"`
	Stream          bool             `json:"stream,omitempty"`
}

// InputItem is the flat union of Responses input item kinds.
type InputItem struct {
	Type string `json:"type"`

	// message
	Role    string        `json:"role,omitempty"`
	Content []ContentPart `json:"content,omitempty"`

	// function_call
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	CallID    string `json:"call_id,omitempty"`

	// function_call_output
	Output string `json:"output,omitempty"`
	Status string `json:"status,omitempty"`

	// reasoning round trip
	ID               string          `json:"id,omitempty"`
	EncryptedContent string          `json:"encrypted_content,omitempty"`
	Summary          json.RawMessage `json:"summary,omitempty"`
}

// ContentPart is one part of a message input item.
type ContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Tool is a Responses function tool declaration; the schema sits flat on the
// tool, unlike the Chat Completions nesting.
type Tool struct {
	Type        string         `json:"type"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ReasoningConfig requests reasoning at a given effort; Summary "auto" asks
// the backend to stream reasoning summaries.
type ReasoningConfig struct {
	Effort  string `json:"effort,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// Response is the non-streaming Responses API response body.
type Response struct {
	ID                string             `json:"id"`
	Model             string             `json:"model"`
	Status            string             `json:"status"`
	Output            []OutputItem       `json:"output"`
	Usage             *Usage             `json:"usage"`
	IncompleteDetails *IncompleteDetails `json:"incomplete_details"`
	Error             *ResponseError     `json:"error"`
}

// IncompleteDetails explains an incomplete response status.
type IncompleteDetails struct {
	Reason string `json:"reason"`
}

// ResponseError is the upstream failure detail of a failed response.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OutputItem is the flat union of Responses output item kinds.
type OutputItem struct {
	Type             string          `json:"type"`
	ID               string          `json:"id,omitempty"`
	Status           string          `json:"status,omitempty"`
	Role             string          `json:"role,omitempty"`
	Content          []OutputContent `json:"content,omitempty"`
	Summary          []SummaryText   `json:"summary,omitempty"`
	EncryptedContent string          `json:"encrypted_content,omitempty"`
	Name             string          `json:"name,omitempty"`
	Arguments        string          `json:"arguments,omitempty"`
	CallID           string          `json:"call_id,omitempty"`
}

// OutputContent is one content part of a message output item.
type OutputContent struct {
	Type        string       `json:"type"`
	Text        string       `json:"text,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Annotation is a citation attached to output text.
type Annotation struct {
	Type       string `json:"type"`
	URL        string `json:"url,omitempty"`
	Title      string `json:"title,omitempty"`
	StartIndex int    `json:"start_index,omitempty"`
	EndIndex   int    `json:"end_index,omitempty"`
}

// SummaryText is one reasoning summary segment.
type SummaryText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Usage is the Responses API token accounting.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// streamEvent is the envelope of Responses SSE events; fields are populated
// per event type.
type streamEvent struct {
	Type        string      `json:"type"`
	Response    *Response   `json:"response,omitempty"`
	Item        *OutputItem `json:"item,omitempty"`
	ItemID      string      `json:"item_id,omitempty"`
	OutputIndex int         `json:"output_index,omitempty"`
	Delta       string      `json:"delta,omitempty"`
	Text        string      `json:"text,omitempty"`
	Arguments   string      `json:"arguments,omitempty"`
	Annotation  *Annotation `json:"annotation,omitempty"`
}
