package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct{}

func (s *stubProvider) Complete(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
	return CompletionResponse{Content: "ok"}, nil
}

func TestRegistryBuildForwardsKey(t *testing.T) {
	registry := NewRegistry()
	expected := &stubProvider{}
	var seenKey string
	registry.Register(" Gemini ", func(_ context.Context, apiKey string) (Provider, error) {
		seenKey = apiKey
		return expected, nil
	})

	provider, err := registry.Build(context.Background(), "GEMINI", "secret-key")
	require.NoError(t, err)
	assert.Same(t, expected, provider)
	assert.Equal(t, "secret-key", seenKey)
}

func TestRegistryBuildUnknown(t *testing.T) {
	registry := NewRegistry()
	registry.Register("openai", func(context.Context, string) (Provider, error) { return &stubProvider{}, nil })
	registry.Register("gemini", func(context.Context, string) (Provider, error) { return &stubProvider{}, nil })

	_, err := registry.Build(context.Background(), "claude", "key")
	require.ErrorIs(t, err, ErrUnknownProvider)
	assert.Contains(t, err.Error(), "known: gemini, openai")

	var nilRegistry *Registry
	_, err = nilRegistry.Build(context.Background(), "gemini", "key")
	require.ErrorIs(t, err, ErrUnknownProvider)
}

func TestRegistryBuildFactoryFailure(t *testing.T) {
	registry := NewRegistry()
	boom := errors.New("bad key")
	registry.Register("gemini", func(context.Context, string) (Provider, error) { return nil, boom })
	registry.Register("openai", func(context.Context, string) (Provider, error) { return nil, nil })

	_, err := registry.Build(context.Background(), "gemini", "key")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "build gemini provider")

	_, err = registry.Build(context.Background(), "openai", "key")
	require.Error(t, err)
}

func TestRegistryIgnoresInvalidRegistrations(t *testing.T) {
	registry := NewRegistry()
	registry.Register("", func(context.Context, string) (Provider, error) { return &stubProvider{}, nil })
	registry.Register("openai", nil)
	assert.Empty(t, registry.Names())
}

func TestCompletionResponseToolCalls(t *testing.T) {
	resp := CompletionResponse{Blocks: []ContentBlock{
		{Type: BlockText, Text: "hi"},
		{Type: BlockToolUse, Name: "addLine"},
		{Type: BlockToolUse, Name: "clearGrid"},
	}}
	calls := resp.ToolCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "addLine", calls[0].Name)
	assert.Equal(t, "clearGrid", calls[1].Name)
}
