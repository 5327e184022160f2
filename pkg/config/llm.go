package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Role is a logical LLM role used by the model router.
type Role string

const (
	RoleIntake       Role = "intake"
	RolePlanner      Role = "planner"
	RoleCoder        Role = "coder"
	RolePRNarrator   Role = "pr_narrator"
	RoleOrchestrator Role = "orchestrator"
	RoleEmbedding    Role = "embedding"
)

// AllRoles lists every role a route must exist for.
var AllRoles = []Role{RoleIntake, RolePlanner, RoleCoder, RolePRNarrator, RoleOrchestrator, RoleEmbedding}

// ModelRoute maps a role to an ordered model list with per-role defaults.
// The first model is preferred; later entries are fallbacks.
type ModelRoute struct {
	Models      []string `yaml:"models"`
	Temperature float64  `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
	JSONMode    bool     `yaml:"json_mode"`
}

// ProviderConfig holds per-provider credentials configuration.
type ProviderConfig struct {
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
}

// APIKey resolves the provider's API key from the environment.
func (p ProviderConfig) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}

// ModelRouteRegistry provides role lookup over the configured routes.
type ModelRouteRegistry struct {
	mu     sync.RWMutex
	routes map[Role]ModelRoute
}

// NewModelRouteRegistry creates a registry from the given routes.
func NewModelRouteRegistry(routes map[Role]ModelRoute) *ModelRouteRegistry {
	if routes == nil {
		routes = make(map[Role]ModelRoute)
	}
	return &ModelRouteRegistry{routes: routes}
}

// Get returns the route for a role.
func (r *ModelRouteRegistry) Get(role Role) (ModelRoute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	route, ok := r.routes[role]
	if !ok {
		return ModelRoute{}, fmt.Errorf("%w: %s", ErrRoleNotFound, role)
	}
	return route, nil
}

// Set replaces the route for a role.
func (r *ModelRouteRegistry) Set(role Role, route ModelRoute) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[role] = route
}

// Roles returns the configured roles.
func (r *ModelRouteRegistry) Roles() []Role {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roles := make([]Role, 0, len(r.routes))
	for role := range r.routes {
		roles = append(roles, role)
	}
	return roles
}

// roleOverrideEnv maps each role to its CSV override variable.
var roleOverrideEnv = map[Role]string{
	RoleIntake:       "MODEL_ROUTE_INTAKE",
	RolePlanner:      "MODEL_ROUTE_PLANNER",
	RoleCoder:        "MODEL_ROUTE_CODER",
	RolePRNarrator:   "MODEL_ROUTE_PR",
	RoleOrchestrator: "MODEL_ROUTE_ORCHESTRATOR",
	RoleEmbedding:    "EMBEDDING_MODEL",
}

// applyRouteOverrides replaces each route's model list with the CSV value
// of its override variable, when set. Per-role defaults (temperature,
// token budget) are kept.
func applyRouteOverrides(registry *ModelRouteRegistry) {
	for role, envVar := range roleOverrideEnv {
		raw := os.Getenv(envVar)
		if raw == "" {
			continue
		}
		var models []string
		for _, m := range strings.Split(raw, ",") {
			if m = strings.TrimSpace(m); m != "" {
				models = append(models, m)
			}
		}
		if len(models) == 0 {
			continue
		}
		route, err := registry.Get(role)
		if err != nil {
			route = ModelRoute{Temperature: 0.2, MaxTokens: 4096}
		}
		route.Models = models
		registry.Set(role, route)
	}
}
