package agent

import (
	"fmt"
	"strings"

	"github.com/codeready-toolchain/repoai/pkg/javasrc"
	"github.com/codeready-toolchain/repoai/pkg/models"
)

// System prompts are static per agent; user prompts are composed from
// pipeline state by the builders below.

const intakeSystemPrompt = `You are the intake analyst of an automated Java refactoring service.
Read the user's request and produce a precise job specification: the intent as a
short snake_case identifier, the scope (target file globs, target packages,
source language, build system, exclusions), explicit requirements, and
constraints the transformation must respect. Put any metadata about the code
itself under "code_context". Be conservative: only include scope the user asked
for or that is clearly implied.`

const plannerSystemPrompt = `You are the planning agent of an automated Java refactoring service.
Given a job specification and the parsed structure of the relevant source
files, produce an ordered refactoring plan. Steps are numbered densely from 1.
Each step has one action verb (create_interface, implement_interface,
create_class, extract_method, rename, move_class, add_annotation,
add_dependency, modify_method, delete_class, update_tests, ...), its target
files and classes, a description, the earlier steps it depends on, a risk level
from 0 to 10, and an estimated duration in minutes. Order steps so that
producers come before consumers. Include a risk assessment covering overall
risk, breaking changes, compilation risk, affected modules, and mitigations.`

// TransformerSystemPrompt steers the streamed transformation calls
// issued by the stream adapter.
const TransformerSystemPrompt = `You are the code transformation agent of an automated Java refactoring
service. For each plan step you receive, output the complete resulting file
contents as change objects: file_path (repository-relative), change_type
(created, modified or deleted), modified_content holding the ENTIRE new file,
and the semantic lists of imports, methods and annotations you added. Never
output fragments or placeholder comments; every file must compile. Respect the
constraints in the job specification.`

const validatorSystemPrompt = `You are the validation agent of an automated Java refactoring service.
You receive the applied changes, factual compiler and test runner summaries,
and static analysis findings. Judge whether the change set is safe to push.
Produce per-check results, security vulnerabilities with severity, confidence
metrics between 0 and 1 (code_safety, test_coverage, overall_change), and
concrete recommendations. Never claim compilation succeeded when the compiler
summary says otherwise.`

const narratorSystemPrompt = `You write pull request descriptions for an automated Java refactoring
service. Given the change set and its validation outcome, produce a concise PR:
an imperative title under 72 characters, a summary of what changed and why,
per-file descriptions grouped by category (features, refactoring, tests,
configuration, docs), breaking changes with a migration guide when any exist,
and testing notes grounded in the validation results.`

// buildIntakeUser renders the intake user prompt.
func buildIntakeUser(userPrompt, codeContext string) string {
	var b strings.Builder
	b.WriteString("## User request\n\n")
	b.WriteString(userPrompt)
	if codeContext != "" {
		b.WriteString("\n\n## Code context\n\n")
		b.WriteString(codeContext)
	}
	return b.String()
}

// buildPlannerUser renders the planner user prompt from the job spec
// and the analyzed structures of in-scope files.
func buildPlannerUser(spec models.JobSpec, structures map[string]*javasrc.Structure) string {
	var b strings.Builder
	b.WriteString("## Job specification\n\n")
	fmt.Fprintf(&b, "Intent: %s\n", spec.Intent)
	if len(spec.Requirements) > 0 {
		b.WriteString("Requirements:\n")
		for _, r := range spec.Requirements {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	if len(spec.Constraints) > 0 {
		b.WriteString("Constraints:\n")
		for _, c := range spec.Constraints {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	if len(spec.Scope.TargetFiles) > 0 {
		fmt.Fprintf(&b, "Scope globs: %s\n", strings.Join(spec.Scope.TargetFiles, ", "))
	}

	if len(structures) > 0 {
		b.WriteString("\n## Repository structure\n")
		for path, s := range structures {
			fmt.Fprintf(&b, "\n### %s\n", path)
			fmt.Fprintf(&b, "%s %s (package %s)\n", s.Kind, s.Name, s.Package)
			if s.Extends != "" {
				fmt.Fprintf(&b, "extends %s\n", s.Extends)
			}
			if len(s.Implements) > 0 {
				fmt.Fprintf(&b, "implements %s\n", strings.Join(s.Implements, ", "))
			}
			for _, m := range s.Methods {
				fmt.Fprintf(&b, "- %s\n", m.Signature())
			}
		}
	}
	return b.String()
}

// stepDelimiter separates per-step templates inside one batched
// transformer prompt.
const stepDelimiter = "\n\n=====\n\n"

// BuildStepPrompt renders a single plan step for the transformer.
func BuildStepPrompt(step models.PlanStep, fileContexts map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Step %d: %s\n\n", step.StepNumber, step.Action)
	b.WriteString(step.Description)
	b.WriteString("\n")
	if len(step.TargetClasses) > 0 {
		fmt.Fprintf(&b, "Target classes: %s\n", strings.Join(step.TargetClasses, ", "))
	}
	for _, path := range step.TargetFiles {
		if content, ok := fileContexts[path]; ok {
			fmt.Fprintf(&b, "\n### Current content of %s\n```java\n%s\n```\n", path, content)
		} else {
			fmt.Fprintf(&b, "\nTarget file (does not exist yet): %s\n", path)
		}
	}
	return b.String()
}

// BuildBatchPrompt concatenates step prompts for one streamed call.
func BuildBatchPrompt(spec models.JobSpec, steps []models.PlanStep, fileContexts map[string]string) string {
	parts := make([]string, 0, len(steps)+1)

	var header strings.Builder
	fmt.Fprintf(&header, "Job intent: %s\n", spec.Intent)
	if len(spec.Constraints) > 0 {
		fmt.Fprintf(&header, "Constraints: %s\n", strings.Join(spec.Constraints, "; "))
	}
	header.WriteString("Apply the following plan steps and emit one change object per touched file.")
	parts = append(parts, header.String())

	for _, step := range steps {
		parts = append(parts, BuildStepPrompt(step, fileContexts))
	}
	return strings.Join(parts, stepDelimiter)
}

// buildValidatorUser renders the validator user prompt embedding the
// factual build summaries and static findings.
func buildValidatorUser(changes models.CodeChanges, compileSummary, testSummary string, checks []models.ValidationCheck, coverage float64) string {
	var b strings.Builder
	b.WriteString("## Applied changes\n\n")
	for _, c := range changes.Changes {
		fmt.Fprintf(&b, "- %s (%s, +%d/-%d)\n", c.FilePath, c.ChangeType, c.LinesAdded, c.LinesRemoved)
	}

	b.WriteString("\n## Compiler result (factual)\n\n")
	b.WriteString(compileSummary)
	if testSummary != "" {
		b.WriteString("\n\n## Test result (factual)\n\n")
		b.WriteString(testSummary)
	}

	b.WriteString("\n\n## Static analysis findings\n\n")
	for _, check := range checks {
		status := "passed"
		if !check.Passed {
			status = fmt.Sprintf("%d issues", len(check.Issues))
		}
		fmt.Fprintf(&b, "- %s: %s\n", check.Name, status)
		for _, issue := range check.Issues {
			fmt.Fprintf(&b, "  - %s\n", issue)
		}
	}
	fmt.Fprintf(&b, "\nEstimated test coverage: %.2f\n", coverage)
	return b.String()
}

// buildNarratorUser renders the narrator user prompt.
func buildNarratorUser(changes models.CodeChanges, validation models.ValidationResult, categories map[string]string) string {
	var b strings.Builder
	b.WriteString("## Change set\n\n")
	for _, c := range changes.Changes {
		fmt.Fprintf(&b, "- %s (%s, category %s, +%d/-%d)\n",
			c.FilePath, c.ChangeType, categories[c.FilePath], c.LinesAdded, c.LinesRemoved)
		if len(c.MethodsAdded) > 0 {
			fmt.Fprintf(&b, "  methods added: %s\n", strings.Join(c.MethodsAdded, ", "))
		}
		if len(c.ImportsAdded) > 0 {
			fmt.Fprintf(&b, "  imports added: %s\n", strings.Join(c.ImportsAdded, ", "))
		}
	}

	b.WriteString("\n## Validation outcome\n\n")
	fmt.Fprintf(&b, "Passed: %t, compilation: %t, coverage: %.2f\n",
		validation.Passed, validation.CompilationPassed, validation.TestCoverage)
	if validation.JUnitTestResults != nil {
		t := validation.JUnitTestResults
		fmt.Fprintf(&b, "Tests: %d run, %d passed, %d failed, %d skipped\n", t.Run, t.Passed, t.Failed, t.Skipped)
	}
	for _, r := range validation.Recommendations {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	return b.String()
}
