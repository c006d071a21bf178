package openairesponses

import (
	"strings"
	"testing"

	"claude-router/internal/anthropic"
)

func TestToMessagesResponseOrderedBlocks(t *testing.T) {
	resp := &Response{
		ID:     "resp_1",
		Status: "completed",
		Output: []OutputItem{
			{
				Type:             itemReasoning,
				ID:               "rs_1",
				EncryptedContent: "enc",
				Summary: []SummaryText{
					{Type: "summary_text", Text: "first"},
					{Type: "summary_text", Text: "second"},
				},
			},
			{
				Type: itemMessage,
				ID:   "msg_1",
				Role: "assistant",
				Content: []OutputContent{
					{Type: partOutputText, Text: "the answer"},
				},
			},
			{
				Type:      itemFunctionCall,
				ID:        "fc_1",
				CallID:    "call_1",
				Name:      "get_weather",
				Arguments: `{"city":"NY"}`,
			},
		},
		Usage: &Usage{InputTokens: 30, OutputTokens: 11},
	}

	out := toMessagesResponse(resp, "gpt-5")
	if len(out.Content) != 3 {
		t.Fatalf("content = %+v", out.Content)
	}

	thinking := out.Content[0]
	if thinking.Type != anthropic.ContentTypeThinking || thinking.Thinking != "first\nsecond" {
		t.Errorf("thinking block = %+v", thinking)
	}
	if thinking.ExtractedID != "rs_1" || thinking.ExtractedEncryptedContent != "enc" {
		t.Errorf("credentials = (%q, %q)", thinking.ExtractedID, thinking.ExtractedEncryptedContent)
	}

	if out.Content[1].Text != "the answer" {
		t.Errorf("text block = %+v", out.Content[1])
	}
	tool := out.Content[2]
	if tool.ID != "call_1" || string(tool.Input) != `{"city":"NY"}` {
		t.Errorf("tool block = %+v", tool)
	}

	if *out.StopReason != anthropic.StopReasonToolUse {
		t.Errorf("stop_reason = %q", *out.StopReason)
	}
	if out.Usage.InputTokens != 30 || out.Usage.OutputTokens != 11 || out.Usage.TotalTokens != 41 {
		t.Errorf("usage = %+v, want total computed from input and output", out.Usage)
	}
}

func TestToMessagesResponseUsageTotalPassedThrough(t *testing.T) {
	resp := &Response{
		ID:     "resp_3",
		Status: "completed",
		Usage:  &Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 40},
	}

	out := toMessagesResponse(resp, "gpt-5")
	if out.Usage.TotalTokens != 40 {
		t.Errorf("total_tokens = %d, want the upstream value kept", out.Usage.TotalTokens)
	}
}

func TestToMessagesResponseToolCallIDFallback(t *testing.T) {
	resp := &Response{
		ID:     "resp_4",
		Status: "completed",
		Output: []OutputItem{{
			Type:      itemFunctionCall,
			ID:        "fc_1",
			Name:      "get_weather",
			Arguments: `{}`,
		}},
	}

	out := toMessagesResponse(resp, "gpt-5")
	if len(out.Content) != 1 {
		t.Fatalf("content = %+v", out.Content)
	}
	tool := out.Content[0]
	if tool.ID == "" || !strings.HasPrefix(tool.ID, "call_") {
		t.Errorf("tool id = %q, want generated call_ id", tool.ID)
	}
}

func TestStopReasonFor(t *testing.T) {
	tests := []struct {
		name string
		resp *Response
		want string
	}{
		{"completed", &Response{Status: "completed"}, anthropic.StopReasonEndTurn},
		{
			"incomplete max tokens",
			&Response{Status: "incomplete", IncompleteDetails: &IncompleteDetails{Reason: "max_output_tokens"}},
			anthropic.StopReasonMaxTokens,
		},
		{
			"incomplete content filter",
			&Response{Status: "incomplete", IncompleteDetails: &IncompleteDetails{Reason: "content_filter"}},
			anthropic.StopReasonStopSequence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stopReasonFor(tt.resp); got != tt.want {
				t.Errorf("stopReasonFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWebSearchBlocks(t *testing.T) {
	blocks := webSearchBlocks("msg_1", Annotation{Type: "url_citation", URL: "https://example.com", Title: "Example"})
	if len(blocks) != 2 {
		t.Fatalf("blocks = %+v", blocks)
	}
	if blocks[0].ID != "srvtoolu_msg_1" || blocks[0].Name != "web_search" {
		t.Errorf("server tool block = %+v", blocks[0])
	}
	if blocks[1].ToolUseID != blocks[0].ID {
		t.Errorf("result not linked: %q vs %q", blocks[1].ToolUseID, blocks[0].ID)
	}
	if !strings.Contains(string(blocks[1].Content), `"url":"https://example.com"`) {
		t.Errorf("result content = %s", blocks[1].Content)
	}

	if got := webSearchBlocks("msg_1", Annotation{Type: "file_citation"}); got != nil {
		t.Errorf("non-url annotation produced %+v", got)
	}
}

func TestToMessagesResponseCitationsInline(t *testing.T) {
	resp := &Response{
		ID:     "resp_2",
		Status: "completed",
		Output: []OutputItem{{
			Type: itemMessage,
			ID:   "msg_1",
			Content: []OutputContent{{
				Type: partOutputText,
				Text: "see the docs",
				Annotations: []Annotation{
					{Type: "url_citation", URL: "https://docs.example.com", Title: "Docs"},
				},
			}},
		}},
	}

	out := toMessagesResponse(resp, "gpt-5")
	if len(out.Content) != 3 {
		t.Fatalf("content = %+v", out.Content)
	}
	types := []string{out.Content[0].Type, out.Content[1].Type, out.Content[2].Type}
	want := []string{anthropic.ContentTypeText, anthropic.ContentTypeServerToolUse, anthropic.ContentTypeWebSearchToolResult}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("block types = %v, want %v", types, want)
		}
	}
}
