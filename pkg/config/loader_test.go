package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "repoai.yaml"), []byte(content), 0o644))
	return dir
}

func TestInitializeDefaultsOnly(t *testing.T) {
	// Missing repoai.yaml means all defaults.
	cfg, err := Initialize(context.Background(), t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.System.HTTPPort)
	assert.Equal(t, "cloned_repos", cfg.System.CloneDir)
	assert.Equal(t, 4, cfg.Pipeline.BatchSize)
	assert.True(t, cfg.Pipeline.AutoFix)
	assert.Equal(t, time.Hour, cfg.Pipeline.ConfirmationTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Pipeline.CloneTimeout)

	for _, role := range AllRoles {
		route, err := cfg.Routes.Get(role)
		require.NoError(t, err, "role %s", role)
		assert.NotEmpty(t, route.Models, "role %s", role)
	}
}

func TestInitializeUserOverrides(t *testing.T) {
	dir := writeConfig(t, `
system:
  http_port: 9090
pipeline:
  batch_size: 2
models:
  coder:
    models: ["my-model-a", "my-model-b"]
    max_tokens: 32768
git:
  author_name: Refactor Bot
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.System.HTTPPort)
	assert.Equal(t, 2, cfg.Pipeline.BatchSize)
	assert.Equal(t, "Refactor Bot", cfg.Git.AuthorName)
	assert.Equal(t, "repoai@noreply.local", cfg.Git.AuthorEmail)

	route, err := cfg.Routes.Get(RoleCoder)
	require.NoError(t, err)
	assert.Equal(t, []string{"my-model-a", "my-model-b"}, route.Models)
	assert.Equal(t, 32768, route.MaxTokens)
	// Unset defaults survive the merge.
	assert.Equal(t, 0.1, route.Temperature)
}

func TestInitializeEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "8181")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("MODEL_ROUTE_CODER", "override-1,override-2")

	cfg, err := Initialize(context.Background(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8181, cfg.System.HTTPPort)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.System.CORSAllowedOrigins)

	route, err := cfg.Routes.Get(RoleCoder)
	require.NoError(t, err)
	assert.Equal(t, []string{"override-1", "override-2"}, route.Models)
}

func TestInitializeEnvExpansionInYAML(t *testing.T) {
	t.Setenv("TEST_PORT", "7070")
	dir := writeConfig(t, "system:\n  http_port: {{.TEST_PORT}}\n")

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.System.HTTPPort)
}

func TestInitializeRejectsInvalidYAML(t *testing.T) {
	dir := writeConfig(t, "system: [not: a: map\n")

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestInitializeRejectsEmptyModelRoute(t *testing.T) {
	dir := writeConfig(t, `
models:
  weird_role:
    models: []
`)

	_, err := Initialize(context.Background(), dir)
	// Unknown roles are carried but empty lists on required roles fail;
	// an extra role with no models is simply unused.
	require.NoError(t, err)

	t.Setenv("HTTP_PORT", "0")
	_, err = Initialize(context.Background(), dir)
	require.NoError(t, err, "invalid HTTP_PORT is ignored with a warning")
}

func TestProviderAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	p := ProviderConfig{APIKeyEnv: "ANTHROPIC_API_KEY"}
	assert.Equal(t, "sk-test", p.APIKey())
	assert.Empty(t, ProviderConfig{}.APIKey())
}
