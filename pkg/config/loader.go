package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// RepoAIYAMLConfig represents the complete repoai.yaml file structure.
// Every section is optional; built-in defaults fill the gaps.
type RepoAIYAMLConfig struct {
	System    *SystemConfig             `yaml:"system"`
	Git       *GitConfig                `yaml:"git"`
	Pipeline  *PipelineConfig           `yaml:"pipeline"`
	Models    map[Role]ModelRoute       `yaml:"models"`
	Providers map[string]ProviderConfig `yaml:"providers"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load repoai.yaml from configDir (missing file means all defaults)
//  2. Expand environment variables
//  3. Merge user-defined values over built-in defaults
//  4. Apply env overrides (HTTP_PORT, CORS_ALLOWED_ORIGINS, MODEL_ROUTE_*)
//  5. Validate all configuration
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	userCfg, err := loadRepoAIYAML(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg, err := resolve(configDir, userCfg)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyRouteOverrides(cfg.Routes)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("Configuration initialized successfully",
		"http_port", cfg.System.HTTPPort,
		"roles", len(cfg.Routes.Roles()),
		"providers", len(cfg.Providers))

	return cfg, nil
}

func loadRepoAIYAML(configDir string) (*RepoAIYAMLConfig, error) {
	var config RepoAIYAMLConfig
	path := filepath.Join(configDir, "repoai.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file: run entirely on defaults.
			return &config, nil
		}
		return nil, NewLoadError("repoai.yaml", err)
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, NewLoadError("repoai.yaml", fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	return &config, nil
}

// resolve merges user YAML over the built-in defaults.
func resolve(configDir string, userCfg *RepoAIYAMLConfig) (*Config, error) {
	system := DefaultSystemConfig()
	if userCfg.System != nil {
		if err := mergo.Merge(&system, userCfg.System, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge system config: %w", err)
		}
	}

	pipeline := DefaultPipelineConfig()
	if userCfg.Pipeline != nil {
		if err := mergo.Merge(&pipeline, userCfg.Pipeline, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge pipeline config: %w", err)
		}
	}

	git := GitConfig{
		TokenEnv:    "GITHUB_TOKEN",
		AuthorName:  "RepoAI",
		AuthorEmail: "repoai@noreply.local",
	}
	if userCfg.Git != nil {
		if err := mergo.Merge(&git, userCfg.Git, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge git config: %w", err)
		}
	}

	routes := DefaultRoutes()
	for role, route := range userCfg.Models {
		base, ok := routes[role]
		if !ok {
			routes[role] = route
			continue
		}
		if len(route.Models) > 0 {
			base.Models = route.Models
		}
		if route.Temperature != 0 {
			base.Temperature = route.Temperature
		}
		if route.MaxTokens != 0 {
			base.MaxTokens = route.MaxTokens
		}
		routes[role] = base
	}

	providers := DefaultProviders()
	for name, p := range userCfg.Providers {
		providers[name] = p
	}

	return &Config{
		configDir: configDir,
		System:    system,
		Git:       git,
		Pipeline:  pipeline,
		Providers: providers,
		Routes:    NewModelRouteRegistry(routes),
	}, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.System.HTTPPort = port
		} else {
			slog.Warn("Invalid HTTP_PORT, keeping configured value", "value", v)
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.System.CORSAllowedOrigins = origins
	}
}

func validate(cfg *Config) error {
	if cfg.System.HTTPPort <= 0 || cfg.System.HTTPPort > 65535 {
		return &ValidationError{Component: "system", Field: "http_port", Err: ErrInvalidValue}
	}
	if cfg.System.CloneDir == "" {
		return &ValidationError{Component: "system", Field: "clone_dir", Err: ErrMissingRequiredField}
	}
	if cfg.Pipeline.BatchSize == 0 {
		return &ValidationError{Component: "pipeline", Field: "batch_size", Err: ErrInvalidValue}
	}
	for _, role := range AllRoles {
		route, err := cfg.Routes.Get(role)
		if err != nil {
			return &ValidationError{Component: "models", Field: string(role), Err: ErrRoleNotFound}
		}
		if len(route.Models) == 0 {
			return &ValidationError{Component: "models", Field: string(role), Err: ErrNoModels}
		}
	}
	return nil
}
