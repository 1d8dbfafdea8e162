package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1/"

type OpenAIOption func(*OpenAIProvider)

// OpenAIProvider calls the chat-completions API through the official SDK, so
// it also serves any compatible server set through WithOpenAIBaseURL.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	extra      []option.RequestOption
	client     openai.Client
}

func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	p := &OpenAIProvider{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    defaultOpenAIBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(p.apiKey),
		option.WithBaseURL(p.baseURL),
		option.WithHTTPClient(p.httpClient),
	}
	clientOpts = append(clientOpts, p.extra...)
	p.client = openai.NewClient(clientOpts...)
	return p
}

// WithOpenAIBaseURL points the provider at a compatible server. The SDK
// appends "chat/completions", so a full endpoint URL is cut back to its base.
func WithOpenAIBaseURL(baseURL string) OpenAIOption {
	return func(p *OpenAIProvider) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed == "" {
			return
		}
		trimmed = strings.TrimSuffix(strings.TrimSuffix(trimmed, "/"), "/chat/completions")
		p.baseURL = trimmed + "/"
	}
}

func WithOpenAIHTTPClient(client *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithOpenAIRequestOptions passes extra SDK options, such as a retry limit,
// to every request.
func WithOpenAIRequestOptions(opts ...option.RequestOption) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.extra = append(p.extra, opts...)
	}
}

// OpenAIError is a non-2xx reply from the API.
type OpenAIError struct {
	Status  int
	Type    string
	Message string
}

func (e *OpenAIError) Error() string {
	if e.Status == http.StatusTooManyRequests {
		return "openai rate limited: " + e.Message
	}
	return fmt.Sprintf("openai api status %d: %s", e.Status, e.Message)
}

// Retryable reports whether the same request may succeed later.
func (e *OpenAIError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

var _ Provider = (*OpenAIProvider)(nil)

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if p.apiKey == "" {
		return CompletionResponse{}, errors.New("openai api key is required")
	}
	params, err := newChatParams(req)
	if err != nil {
		return CompletionResponse{}, err
	}
	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return CompletionResponse{}, openAIError(err)
	}
	return toCompletion(completion, req.Model)
}

// newChatParams validates req and lays it out as one system message followed
// by the conversation. Grid commands often come several to a reply, so
// parallel tool calls are enabled whenever tools are offered.
func newChatParams(req CompletionRequest) (openai.ChatCompletionNewParams, error) {
	if strings.TrimSpace(req.Model) == "" {
		return openai.ChatCompletionNewParams{}, errors.New("model is required")
	}
	if req.MaxTokens <= 0 {
		return openai.ChatCompletionNewParams{}, errors.New("max tokens must be greater than zero")
	}

	params := openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(req.Model),
		MaxCompletionTokens: openai.Int(int64(req.MaxTokens)),
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(req.SystemPrompt))
	}
	for _, m := range req.Messages {
		switch Role(strings.ToLower(strings.TrimSpace(string(m.Role)))) {
		case RoleUser:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		case RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		case RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		default:
			return openai.ChatCompletionNewParams{}, fmt.Errorf("unsupported message role: %s", m.Role)
		}
	}
	if len(req.Messages) == 0 {
		return openai.ChatCompletionNewParams{}, errors.New("at least one message is required")
	}

	if len(req.Tools) > 0 {
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("auto")}
		params.ParallelToolCalls = openai.Bool(true)
		for _, tool := range req.Tools {
			var parameters shared.FunctionParameters
			if err := json.Unmarshal(cloneRawMessageOrObject(tool.InputSchema), &parameters); err != nil {
				return openai.ChatCompletionNewParams{}, fmt.Errorf("tool %s schema: %w", tool.Name, err)
			}
			params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
				Function: openai.FunctionDefinitionParam{
					Name:        tool.Name,
					Description: openai.String(tool.Description),
					Parameters:  parameters,
				},
			})
		}
	}
	return params, nil
}

// toCompletion maps the first choice onto content blocks. A reply with
// neither text nor tool calls is returned as is; the session appends nothing
// for it.
func toCompletion(completion *openai.ChatCompletion, requested string) (CompletionResponse, error) {
	if completion == nil || len(completion.Choices) == 0 {
		return CompletionResponse{}, errors.New("openai response contained no choices")
	}
	choice := completion.Choices[0]

	var blocks []ContentBlock
	switch msg := choice.Message; {
	case msg.Content != "":
		blocks = append(blocks, ContentBlock{Type: BlockText, Text: msg.Content})
	case msg.Refusal != "":
		blocks = append(blocks, ContentBlock{Type: BlockText, Text: msg.Refusal})
	}
	for _, call := range choice.Message.ToolCalls {
		blocks = append(blocks, ContentBlock{
			Type:  BlockToolUse,
			ID:    call.ID,
			Name:  call.Function.Name,
			Input: argumentsJSON(call.Function.Arguments),
		})
	}

	modelName := completion.Model
	if modelName == "" {
		modelName = requested
	}
	return CompletionResponse{
		Content: blocksText(blocks),
		Blocks:  blocks,
		Usage: Usage{
			InputTokens:  completion.Usage.PromptTokens,
			OutputTokens: completion.Usage.CompletionTokens,
		},
		Model:      modelName,
		StopReason: choice.FinishReason,
	}, nil
}

// argumentsJSON turns the string-encoded arguments into raw JSON. Invalid
// JSON is kept as a JSON string so the grid decoder rejects it.
func argumentsJSON(arguments string) json.RawMessage {
	trimmed := strings.TrimSpace(arguments)
	if trimmed == "" {
		return json.RawMessage(`{}`)
	}
	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	encoded, err := json.Marshal(trimmed)
	if err != nil {
		return json.RawMessage(`""`)
	}
	return encoded
}

// openAIError converts SDK API errors into OpenAIError. Transport and
// context errors are wrapped unchanged.
func openAIError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("call openai api: %w", err)
	}
	out := &OpenAIError{Status: apiErr.StatusCode, Type: apiErr.Type, Message: strings.TrimSpace(apiErr.Message)}
	if out.Message == "" {
		var envelope struct {
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal([]byte(apiErr.RawJSON()), &envelope) == nil {
			out.Type = envelope.Error.Type
			out.Message = strings.TrimSpace(envelope.Error.Message)
		}
	}
	if out.Message == "" {
		out.Message = http.StatusText(out.Status)
	}
	return out
}
