package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiModels is the slice of the genai Models service the provider uses.
type GeminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content,
		config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiOption func(*GeminiProvider)

// GeminiProvider adapts the Gemini API to Provider.
type GeminiProvider struct {
	models GeminiModels
}

// WithGeminiModels replaces the genai client, typically with a fake in tests.
func WithGeminiModels(models GeminiModels) GeminiOption {
	return func(p *GeminiProvider) {
		if models != nil {
			p.models = models
		}
	}
}

func NewGeminiProvider(ctx context.Context, apiKey string, opts ...GeminiOption) (*GeminiProvider, error) {
	provider := &GeminiProvider{}
	for _, opt := range opts {
		if opt != nil {
			opt(provider)
		}
	}
	if provider.models != nil {
		return provider, nil
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	provider.models = client.Models
	return provider, nil
}

var _ Provider = (*GeminiProvider)(nil)

func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if p == nil || p.models == nil {
		return CompletionResponse{}, errors.New("gemini client is not configured")
	}
	if strings.TrimSpace(req.Model) == "" {
		return CompletionResponse{}, errors.New("model is required")
	}

	contents, err := buildGeminiContents(req.Messages)
	if err != nil {
		return CompletionResponse{}, err
	}
	if len(contents) == 0 {
		return CompletionResponse{}, errors.New("at least one message is required")
	}

	config, err := buildGeminiConfig(req)
	if err != nil {
		return CompletionResponse{}, err
	}

	resp, err := p.models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("call gemini api: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return CompletionResponse{}, errors.New("gemini response contained no candidates")
	}

	blocks, stopReason := parseGeminiCandidate(resp.Candidates[0])
	// A reply with neither text nor tool calls is valid; the session appends
	// nothing for it.
	content := blocksText(blocks)

	modelName := resp.ModelVersion
	if modelName == "" {
		modelName = req.Model
	}

	out := CompletionResponse{
		Content:    content,
		Blocks:     blocks,
		Model:      modelName,
		StopReason: stopReason,
	}
	if usage := resp.UsageMetadata; usage != nil {
		out.Usage = Usage{
			InputTokens:  int64(usage.PromptTokenCount),
			OutputTokens: int64(usage.CandidatesTokenCount),
		}
	}
	return out, nil
}

func buildGeminiContents(messages []Message) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, message := range messages {
		var role genai.Role
		switch strings.ToLower(strings.TrimSpace(string(message.Role))) {
		case string(RoleUser):
			role = genai.RoleUser
		case string(RoleAssistant):
			role = genai.RoleModel
		case string(RoleSystem):
			// Gemini only accepts system text through SystemInstruction.
			continue
		default:
			return nil, fmt.Errorf("unsupported message role: %s", message.Role)
		}
		if strings.TrimSpace(message.Content) == "" {
			continue
		}
		contents = append(contents, genai.NewContentFromText(message.Content, role))
	}
	return contents, nil
}

func buildGeminiConfig(req CompletionRequest) (*genai.GenerateContentConfig, error) {
	config := &genai.GenerateContentConfig{}
	if system := geminiSystemText(req); system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if len(req.Tools) == 0 {
		return config, nil
	}

	declarations := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
	for _, tool := range req.Tools {
		var schema any
		if err := json.Unmarshal(cloneRawMessageOrObject(tool.InputSchema), &schema); err != nil {
			return nil, fmt.Errorf("decode schema for tool %s: %w", tool.Name, err)
		}
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:                 tool.Name,
			Description:          tool.Description,
			ParametersJsonSchema: schema,
		})
	}
	config.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}
	config.ToolConfig = &genai.ToolConfig{
		FunctionCallingConfig: &genai.FunctionCallingConfig{
			Mode: genai.FunctionCallingConfigModeAuto,
		},
	}
	return config, nil
}

func geminiSystemText(req CompletionRequest) string {
	parts := make([]string, 0, 2)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		parts = append(parts, req.SystemPrompt)
	}
	for _, message := range req.Messages {
		if message.Role == RoleSystem && strings.TrimSpace(message.Content) != "" {
			parts = append(parts, message.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

func parseGeminiCandidate(candidate *genai.Candidate) ([]ContentBlock, string) {
	if candidate == nil {
		return nil, ""
	}
	stopReason := string(candidate.FinishReason)
	if candidate.Content == nil {
		return nil, stopReason
	}

	blocks := make([]ContentBlock, 0, len(candidate.Content.Parts))
	for i, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if part.Text != "" {
			blocks = append(blocks, ContentBlock{Type: BlockText, Text: part.Text})
		}
		if call := part.FunctionCall; call != nil {
			args, err := json.Marshal(call.Args)
			if err != nil || call.Args == nil {
				args = json.RawMessage(`{}`)
			}
			id := call.ID
			if id == "" {
				id = fmt.Sprintf("call_%d", i)
			}
			blocks = append(blocks, ContentBlock{
				Type:  BlockToolUse,
				ID:    id,
				Name:  call.Name,
				Input: args,
			})
		}
	}
	return blocks, stopReason
}
