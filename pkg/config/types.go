package config

import "time"

// Config is the fully resolved service configuration.
type Config struct {
	configDir string

	System    SystemConfig
	Git       GitConfig
	Pipeline  PipelineConfig
	Providers map[string]ProviderConfig

	Routes *ModelRouteRegistry
}

// SystemConfig groups system-wide infrastructure settings.
type SystemConfig struct {
	HTTPPort           int      `yaml:"http_port"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins,omitempty"`
	CloneDir           string   `yaml:"clone_dir"`
}

// GitConfig holds git collaborator settings. The token env variable is
// resolved lazily so tests can set credentials per-case.
type GitConfig struct {
	TokenEnv    string `yaml:"token_env,omitempty"`
	AuthorName  string `yaml:"author_name,omitempty"`
	AuthorEmail string `yaml:"author_email,omitempty"`
}

// PipelineConfig holds the pipeline controller's tunables.
type PipelineConfig struct {
	BatchSize           int           `yaml:"batch_size"`
	AutoFix             bool          `yaml:"auto_fix"`
	ConfirmationTimeout time.Duration `yaml:"confirmation_timeout"`
	CloneTimeout        time.Duration `yaml:"clone_timeout"`
	PushTimeout         time.Duration `yaml:"push_timeout"`
	MaxOutputBytes      int           `yaml:"max_output_bytes"`
	TargetedContextSize int           `yaml:"targeted_context_size"`
}

// ConfigDir returns the directory the configuration was loaded from.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// Provider returns the named provider config, or a zero value.
func (c *Config) Provider(name string) ProviderConfig {
	return c.Providers[name]
}
