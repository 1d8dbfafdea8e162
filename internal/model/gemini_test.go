package model

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"
)

type fakeGeminiModels struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
}

func (f *fakeGeminiModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func newFakeGemini(t *testing.T, fake *fakeGeminiModels) *GeminiProvider {
	t.Helper()
	provider, err := NewGeminiProvider(context.Background(), "", WithGeminiModels(fake))
	if err != nil {
		t.Fatalf("new gemini provider: %v", err)
	}
	return provider
}

func TestNewGeminiProviderRequiresAPIKey(t *testing.T) {
	if _, err := NewGeminiProvider(context.Background(), "  "); err == nil {
		t.Fatalf("expected api key error")
	}
}

func TestGeminiCompleteText(t *testing.T) {
	fake := &fakeGeminiModels{resp: &genai.GenerateContentResponse{
		ModelVersion: "gemini-2.5-flash-001",
		Candidates: []*genai.Candidate{{
			FinishReason: genai.FinishReasonStop,
			Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{
				{Text: "thinking", Thought: true},
				{Text: "My bill went up "},
				{Text: "again."},
			}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 40, CandidatesTokenCount: 7},
	}}
	provider := newFakeGemini(t, fake)

	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Model:        "gemini-2.5-flash",
		MaxTokens:    512,
		Temperature:  0.7,
		SystemPrompt: "You are the customer.",
		Messages: []Message{
			{Role: RoleAssistant, Content: "Hi there!"},
			{Role: RoleUser, Content: "What brings you in?"},
		},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if fake.model != "gemini-2.5-flash" {
		t.Fatalf("unexpected model: %s", fake.model)
	}
	if len(fake.contents) != 2 || fake.contents[0].Role != genai.RoleModel || fake.contents[1].Role != genai.RoleUser {
		t.Fatalf("unexpected contents: %+v", fake.contents)
	}
	if fake.config.SystemInstruction == nil || fake.config.SystemInstruction.Parts[0].Text != "You are the customer." {
		t.Fatalf("expected system instruction")
	}
	if fake.config.MaxOutputTokens != 512 {
		t.Fatalf("unexpected max output tokens: %d", fake.config.MaxOutputTokens)
	}
	if fake.config.Tools != nil {
		t.Fatalf("expected no tools")
	}
	if resp.Content != "My bill went up again." {
		t.Fatalf("unexpected content: %q", resp.Content)
	}
	if resp.Model != "gemini-2.5-flash-001" {
		t.Fatalf("unexpected model version: %s", resp.Model)
	}
	if resp.Usage.InputTokens != 40 || resp.Usage.OutputTokens != 7 {
		t.Fatalf("unexpected usage: %+v", resp.Usage)
	}
	if resp.StopReason != string(genai.FinishReasonStop) {
		t.Fatalf("unexpected stop reason: %s", resp.StopReason)
	}
}

func TestGeminiCompleteFunctionCalls(t *testing.T) {
	fake := &fakeGeminiModels{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{FunctionCall: &genai.FunctionCall{Name: "clearGrid"}},
				{FunctionCall: &genai.FunctionCall{ID: "fc-2", Name: "addLine", Args: map[string]any{"ratePlan": "Go5G", "mrc": "Included"}}},
			}},
		}},
	}}
	provider := newFakeGemini(t, fake)

	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Model:    "gemini-2.5-flash",
		Messages: []Message{{Role: RoleUser, Content: "Set up two lines"}},
		Tools: []ToolDefinition{
			{Name: "clearGrid", Description: "Remove every line."},
			{Name: "addLine", Description: "Append a line.", InputSchema: json.RawMessage(`{"type":"object","properties":{"ratePlan":{"type":"string"}}}`)},
		},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if len(fake.config.Tools) != 1 || len(fake.config.Tools[0].FunctionDeclarations) != 2 {
		t.Fatalf("expected two function declarations")
	}
	schema, ok := fake.config.Tools[0].FunctionDeclarations[1].ParametersJsonSchema.(map[string]any)
	if !ok || schema["type"] != "object" {
		t.Fatalf("unexpected schema: %#v", fake.config.Tools[0].FunctionDeclarations[1].ParametersJsonSchema)
	}
	if fake.config.ToolConfig == nil || fake.config.ToolConfig.FunctionCallingConfig.Mode != genai.FunctionCallingConfigModeAuto {
		t.Fatalf("expected auto function calling")
	}

	calls := resp.ToolCalls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if calls[0].ID != "call_0" || string(calls[0].Input) != `{}` {
		t.Fatalf("unexpected first call: %+v", calls[0])
	}
	var args map[string]any
	if err := json.Unmarshal(calls[1].Input, &args); err != nil {
		t.Fatalf("decode args: %v", err)
	}
	if calls[1].ID != "fc-2" || args["mrc"] != "Included" {
		t.Fatalf("unexpected second call: %+v", calls[1])
	}
}

func TestGeminiEmptyReplyIsNotAnError(t *testing.T) {
	fake := &fakeGeminiModels{resp: &genai.GenerateContentResponse{
		ModelVersion:  "gemini-2.5-flash-001",
		Candidates:    []*genai.Candidate{{Content: &genai.Content{}, FinishReason: genai.FinishReasonStop}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 7},
	}}
	provider := newFakeGemini(t, fake)

	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Model:    "gemini-2.5-flash",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Content != "" || len(resp.ToolCalls()) != 0 {
		t.Fatalf("expected an empty reply, got %+v", resp)
	}
	if resp.Model != "gemini-2.5-flash-001" || resp.Usage.InputTokens != 7 {
		t.Fatalf("expected model and usage to survive, got %+v", resp)
	}
}

func TestGeminiCompleteErrors(t *testing.T) {
	fake := &fakeGeminiModels{err: errors.New("quota exceeded")}
	provider := newFakeGemini(t, fake)
	req := CompletionRequest{Model: "gemini-2.5-flash", Messages: []Message{{Role: RoleUser, Content: "hi"}}}

	if _, err := provider.Complete(context.Background(), req); err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected wrapped api error, got %v", err)
	}

	fake.err = nil
	fake.resp = &genai.GenerateContentResponse{}
	if _, err := provider.Complete(context.Background(), req); err == nil {
		t.Fatalf("expected empty candidates error")
	}

	if _, err := provider.Complete(context.Background(), CompletionRequest{Model: "m"}); err == nil {
		t.Fatalf("expected missing messages error")
	}
}
