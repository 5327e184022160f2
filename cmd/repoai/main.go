// RepoAI server — accepts natural-language refactoring requests over
// HTTP and drives each one through plan, transform, validate, narrate
// and push.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/repoai/pkg/api"
	"github.com/codeready-toolchain/repoai/pkg/config"
	"github.com/codeready-toolchain/repoai/pkg/events"
	"github.com/codeready-toolchain/repoai/pkg/gitops"
	"github.com/codeready-toolchain/repoai/pkg/llm"
	"github.com/codeready-toolchain/repoai/pkg/pipeline"
	"github.com/codeready-toolchain/repoai/pkg/session"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	providers, err := buildProviders(cfg)
	if err != nil {
		slog.Error("Failed to initialize LLM providers", "error", err)
		os.Exit(1)
	}
	router := llm.NewRouter(cfg.Routes, providers)

	git := gitops.NewClient(gitops.Options{
		CloneDir:     cfg.System.CloneDir,
		TokenEnv:     cfg.Git.TokenEnv,
		AuthorName:   cfg.Git.AuthorName,
		AuthorEmail:  cfg.Git.AuthorEmail,
		CloneTimeout: cfg.Pipeline.CloneTimeout,
		PushTimeout:  cfg.Pipeline.PushTimeout,
	})

	controller := pipeline.NewController(router, git, cfg.Pipeline)
	server := api.NewServer(session.NewManager(), events.NewRegistry(), controller, cfg.System)

	slog.Info("Starting RepoAI",
		"http_port", cfg.System.HTTPPort,
		"clone_dir", cfg.System.CloneDir,
		"git_credentials", git.HasCredentials())

	if err := server.Run(ctx); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}

// buildProviders instantiates every provider that has credentials.
// The router falls back across models, so a single provider is enough
// to start.
func buildProviders(cfg *config.Config) (map[string]llm.Provider, error) {
	providers := make(map[string]llm.Provider)

	if key := cfg.Provider("anthropic").APIKey(); key != "" {
		p, err := llm.NewAnthropicProvider(key)
		if err != nil {
			return nil, err
		}
		providers["anthropic"] = p
	}
	if key := cfg.Provider("openai").APIKey(); key != "" {
		p, err := llm.NewOpenAIProvider(key)
		if err != nil {
			return nil, err
		}
		providers["openai"] = p
	}
	if len(providers) == 0 {
		slog.Warn("No LLM provider credentials found; only conversational replies will work")
	}
	return providers, nil
}
