package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobilepro.local/hunt-gateway/internal/config"
	"mobilepro.local/hunt-gateway/internal/model"
	"mobilepro.local/hunt-gateway/internal/store"
)

// isolate points the CLI at a fresh sqlite file and keeps it away from any
// config file on the machine.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv(config.EnvConfigFile, "")
	t.Setenv(config.EnvDBDriver, "sqlite")
	t.Setenv(config.EnvDBDSN, filepath.Join(dir, "hunt.db"))
	t.Setenv(config.EnvGeminiAPIKey, "")
	t.Setenv(config.EnvOpenAIAPIKey, "")
	t.Setenv(config.EnvProvider, "")
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "export", "import", "seed", "scenarios"} {
		assert.Contains(t, names, want)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	isolate(t)
	out, err := run(t, "", "seed")
	require.NoError(t, err)
	assert.Equal(t, "seeded\n", out)

	out, err = run(t, "", "seed")
	require.NoError(t, err)
	assert.Equal(t, "already initialized\n", out)
}

func TestScenariosListsBuiltins(t *testing.T) {
	isolate(t)
	out, err := run(t, "", "scenarios")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "h2")
	assert.Contains(t, out, "138.00")
}

func TestExportImportRoundTrip(t *testing.T) {
	dir := isolate(t)
	_, err := run(t, "", "seed")
	require.NoError(t, err)

	exportPath := filepath.Join(dir, "export.json")
	_, err = run(t, "", "export", "-o", exportPath)
	require.NoError(t, err)

	raw, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	var doc store.Document
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Len(t, doc.Districts, 3)
	assert.NotEmpty(t, doc.Questions)

	_, err = run(t, `{"questions": []}`, "import", "-")
	require.NoError(t, err)

	out, err := run(t, "", "export")
	require.NoError(t, err)
	var after store.Document
	require.NoError(t, json.Unmarshal([]byte(out), &after))
	assert.Empty(t, after.Questions)
	assert.Len(t, after.Districts, 3)
}

func TestImportRejectsMissingFile(t *testing.T) {
	dir := isolate(t)
	_, err := run(t, "", "import", filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestServeValidatesConfig(t *testing.T) {
	isolate(t)
	_, err := run(t, "", "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvGeminiAPIKey)
}

func TestNewProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Provider = config.ProviderOpenAI
	cfg.OpenAIAPIKey = "sk-test"
	p, err := newProvider(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &model.OpenAIProvider{}, p)

	cfg.Provider = "claude"
	_, err = newProvider(context.Background(), cfg)
	require.ErrorIs(t, err, model.ErrUnknownProvider)

	cfg.Provider = config.ProviderGemini
	cfg.GeminiAPIKey = " "
	_, err = newProvider(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini api key is required")
}

func TestWebhookSubscriberName(t *testing.T) {
	assert.Equal(t, "hooks.example.com", webhookSubscriberName(0, "https://hooks.example.com/hunt"))
	assert.Equal(t, "webhook-2", webhookSubscriberName(1, "not a url"))
}

func TestWebhookOptions(t *testing.T) {
	cfg := config.Default()
	opts, err := webhookOptions(cfg)
	require.NoError(t, err)
	assert.Empty(t, opts)

	cfg.WebhookEvents = []string{"transcript.submitted"}
	cfg.WebhookToken = "reports-token"
	opts, err = webhookOptions(cfg)
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	cfg.WebhookEvents = []string{"hunt.finished"}
	_, err = webhookOptions(cfg)
	require.ErrorContains(t, err, config.EnvWebhookEvents)
}
