package config

import "time"

// DefaultSystemConfig returns the built-in system settings.
func DefaultSystemConfig() SystemConfig {
	return SystemConfig{
		HTTPPort: 8080,
		CloneDir: "cloned_repos",
	}
}

// DefaultPipelineConfig returns the built-in pipeline tunables.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		BatchSize:           4,
		AutoFix:             true,
		ConfirmationTimeout: time.Hour,
		CloneTimeout:        5 * time.Minute,
		PushTimeout:         5 * time.Minute,
		MaxOutputBytes:      64 * 1024,
		TargetedContextSize: 16 * 1024,
	}
}

// DefaultRoutes returns the built-in model routes per role. YAML and
// env overrides replace these lists wholesale.
func DefaultRoutes() map[Role]ModelRoute {
	return map[Role]ModelRoute{
		RoleIntake: {
			Models:      []string{"claude-sonnet-4-5", "gpt-4o"},
			Temperature: 0.1,
			MaxTokens:   4096,
			JSONMode:    true,
		},
		RolePlanner: {
			Models:      []string{"claude-sonnet-4-5", "gpt-4o"},
			Temperature: 0.2,
			MaxTokens:   8192,
			JSONMode:    true,
		},
		RoleCoder: {
			Models:      []string{"claude-sonnet-4-5", "gpt-4o"},
			Temperature: 0.1,
			MaxTokens:   16384,
			JSONMode:    true,
		},
		RolePRNarrator: {
			Models:      []string{"claude-haiku-4-5", "gpt-4o-mini"},
			Temperature: 0.4,
			MaxTokens:   4096,
			JSONMode:    true,
		},
		RoleOrchestrator: {
			Models:      []string{"claude-haiku-4-5", "gpt-4o-mini"},
			Temperature: 0.0,
			MaxTokens:   1024,
			JSONMode:    true,
		},
		RoleEmbedding: {
			Models:    []string{"text-embedding-3-small"},
			MaxTokens: 0,
		},
	}
}

// DefaultProviders returns the built-in provider credential bindings.
func DefaultProviders() map[string]ProviderConfig {
	return map[string]ProviderConfig{
		"anthropic": {APIKeyEnv: "ANTHROPIC_API_KEY"},
		"openai":    {APIKeyEnv: "OPENAI_API_KEY"},
	}
}
