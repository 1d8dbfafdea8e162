// Package model defines the language-model contract used by simulation and
// authoring sessions, and the concrete providers behind it.
package model

import (
	"context"
	"encoding/json"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

const (
	BlockText    = "text"
	BlockToolUse = "tool_use"
)

type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

type CompletionRequest struct {
	Model        string
	Messages     []Message
	Tools        []ToolDefinition
	MaxTokens    int
	Temperature  float64
	SystemPrompt string
}

type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ContentBlock is either a text fragment or a tool invocation the model
// requested. Tool invocations carry their arguments as raw JSON.
type ContentBlock struct {
	Type  string
	Text  string
	ID    string
	Name  string
	Input json.RawMessage
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type CompletionResponse struct {
	Content    string
	Blocks     []ContentBlock
	Usage      Usage
	Model      string
	StopReason string
}

// ToolCalls returns the tool_use blocks in the order the model emitted them.
func (r CompletionResponse) ToolCalls() []ContentBlock {
	calls := make([]ContentBlock, 0, len(r.Blocks))
	for _, block := range r.Blocks {
		if block.Type == BlockToolUse {
			calls = append(calls, block)
		}
	}
	return calls
}

type Usage struct {
	InputTokens  int64
	OutputTokens int64
}
