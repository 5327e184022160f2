// Package agent binds prompts, side-effect-free tools, and structured
// LLM output into the five pipeline agents: Intake, Planner,
// Transformer, Validator, and Narrator. Each runner is a thin wrapper
// around the role router; everything deterministic happens host-side.
package agent

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/repoai/pkg/models"
)

// GenerateJobID returns a fresh job identifier.
func GenerateJobID() string {
	short := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("job_%d_%s", time.Now().UnixMilli(), short)
}

var javaPackageRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)*$`)

// ValidPackageName reports whether name is a legal module or package
// name for the given source language. Only Java grammar is enforced;
// unknown languages accept any non-empty name.
func ValidPackageName(language, name string) bool {
	if name == "" {
		return false
	}
	if strings.EqualFold(language, "java") {
		return javaPackageRe.MatchString(name)
	}
	return true
}

// intentGlobHints maps intent keywords to the file globs they usually
// touch.
var intentGlobHints = []struct {
	keywords []string
	globs    []string
}{
	{[]string{"test", "junit", "coverage"}, []string{"src/test/java/**/*.java"}},
	{[]string{"controller", "endpoint", "rest", "api"}, []string{"src/main/java/**/*Controller.java"}},
	{[]string{"service", "business"}, []string{"src/main/java/**/*Service*.java"}},
	{[]string{"repository", "dao", "persistence"}, []string{"src/main/java/**/*Repository*.java", "src/main/java/**/*Dao*.java"}},
	{[]string{"config", "configuration", "properties"}, []string{"src/main/java/**/*Config*.java", "src/main/resources/**"}},
	{[]string{"entity", "model", "dto"}, []string{"src/main/java/**/*Entity*.java", "src/main/java/**/model/**/*.java"}},
	{[]string{"dependency", "pom", "gradle", "build"}, []string{"pom.xml", "build.gradle", "build.gradle.kts"}},
}

// SuggestGlobs proposes target file globs from intent keywords. Falls
// back to all main sources when nothing matches.
func SuggestGlobs(intent string) []string {
	lower := strings.ToLower(intent)
	seen := make(map[string]bool)
	var out []string
	for _, hint := range intentGlobHints {
		for _, kw := range hint.keywords {
			if strings.Contains(lower, kw) {
				for _, g := range hint.globs {
					if !seen[g] {
						seen[g] = true
						out = append(out, g)
					}
				}
				break
			}
		}
	}
	if len(out) == 0 {
		out = []string{"src/main/java/**/*.java"}
	}
	return out
}

// StandardExclusions returns the glob set virtually every Java job
// should skip.
func StandardExclusions() []string {
	return []string{
		"**/target/**",
		"**/build/**",
		"**/generated/**",
		"**/node_modules/**",
		"**/.git/**",
		"**/*.class",
	}
}

// actionEstimates carries per-action duration and base risk used when
// the model leaves them unset.
var actionEstimates = map[string]struct {
	minutes int
	risk    int
}{
	"create_interface":    {10, 2},
	"create_class":        {15, 3},
	"implement_interface": {20, 4},
	"extract_method":      {15, 3},
	"extract_interface":   {20, 4},
	"rename":              {10, 3},
	"move_class":          {15, 4},
	"inline":              {10, 3},
	"add_annotation":      {5, 1},
	"remove_annotation":   {5, 2},
	"add_dependency":      {5, 2},
	"remove_dependency":   {10, 5},
	"modify_method":       {20, 5},
	"delete_class":        {10, 6},
	"update_tests":        {20, 3},
	"introduce_pattern":   {30, 6},
}

// EstimateMinutes returns the expected duration for an action.
func EstimateMinutes(action string) int {
	if e, ok := actionEstimates[action]; ok {
		return e.minutes
	}
	return 15
}

// EstimateRisk computes a step's risk level from its action and flags,
// clamped to the 0..10 scale.
func EstimateRisk(action string, touchesPublicAPI, touchesTests bool) int {
	risk := 5
	if e, ok := actionEstimates[action]; ok {
		risk = e.risk
	}
	if touchesPublicAPI {
		risk += 3
	}
	if touchesTests {
		risk += 1
	}
	if risk > 10 {
		risk = 10
	}
	return risk
}

// producesFor maps consumer actions to the producer actions they
// implicitly depend on when targets overlap.
var producesFor = map[string][]string{
	"implement_interface": {"create_interface", "extract_interface"},
	"update_tests":        {"modify_method", "create_class", "implement_interface", "rename"},
	"add_annotation":      {"create_class"},
	"modify_method":       {"create_class"},
}

// SuggestStepDependencies fills in missing dependencies from action
// semantics: a step depends on every earlier step whose action produces
// what this step consumes and whose targets overlap. Explicit
// dependencies from the model are preserved.
func SuggestStepDependencies(steps []models.PlanStep) []models.PlanStep {
	out := make([]models.PlanStep, len(steps))
	copy(out, steps)

	for i := range out {
		producers, ok := producesFor[out[i].Action]
		if !ok {
			continue
		}
		deps := make(map[int]bool, len(out[i].Dependencies))
		for _, d := range out[i].Dependencies {
			deps[d] = true
		}
		for j := 0; j < i; j++ {
			if !actionIn(out[j].Action, producers) {
				continue
			}
			if targetsOverlap(out[i], out[j]) && !deps[out[j].StepNumber] {
				deps[out[j].StepNumber] = true
				out[i].Dependencies = append(out[i].Dependencies, out[j].StepNumber)
			}
		}
		sort.Ints(out[i].Dependencies)
	}
	return out
}

func actionIn(action string, set []string) bool {
	for _, a := range set {
		if a == action {
			return true
		}
	}
	return false
}

func targetsOverlap(a, b models.PlanStep) bool {
	names := make(map[string]bool)
	for _, f := range b.TargetFiles {
		names[baseName(f)] = true
	}
	for _, c := range b.TargetClasses {
		names[c] = true
	}
	for _, f := range a.TargetFiles {
		if names[baseName(f)] {
			return true
		}
	}
	for _, c := range a.TargetClasses {
		if names[c] {
			return true
		}
		// implement_interface targets often name the interface the
		// producer step created.
		for n := range names {
			if strings.Contains(n, c) || strings.Contains(c, strings.TrimSuffix(n, ".java")) {
				return true
			}
		}
	}
	return false
}

func baseName(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// MitigationStrategies proposes mitigations for a risk assessment.
func MitigationStrategies(overallRisk string, breakingChanges, compilationRisk bool) []string {
	var out []string
	if compilationRisk {
		out = append(out, "Compile after each batch of changes and stop on the first failure")
	}
	if breakingChanges {
		out = append(out, "Keep deprecated delegating signatures for one release before removal")
		out = append(out, "Update all call sites and tests in the same change set")
	}
	if overallRisk == "high" || overallRisk == "critical" {
		out = append(out, "Create a backup snapshot before applying any change")
		out = append(out, "Run the full test suite before pushing")
	}
	if len(out) == 0 {
		out = append(out, "Run the existing test suite to confirm behavior is unchanged")
	}
	return out
}
