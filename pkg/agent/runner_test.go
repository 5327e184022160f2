package agent

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/repoai/pkg/config"
	"github.com/codeready-toolchain/repoai/pkg/llm"
	"github.com/codeready-toolchain/repoai/pkg/models"
)

// fakeCaller returns a canned JSON document per role.
type fakeCaller struct {
	responses map[config.Role]string
	errs      map[config.Role]error
	lastUser  string
}

func (f *fakeCaller) CompleteText(ctx context.Context, role config.Role, system, user string, opts *llm.CallOptions) (string, llm.CallMeta, error) {
	f.lastUser = user
	if err := f.errs[role]; err != nil {
		return "", llm.CallMeta{}, err
	}
	return f.responses[role], llm.CallMeta{Model: "fake"}, nil
}

func (f *fakeCaller) CompleteJSON(ctx context.Context, role config.Role, system, user string, schema *jsonschema.Schema, out any) (llm.CallMeta, error) {
	f.lastUser = user
	if err := f.errs[role]; err != nil {
		return llm.CallMeta{}, err
	}
	if err := json.Unmarshal([]byte(f.responses[role]), out); err != nil {
		return llm.CallMeta{}, err
	}
	return llm.CallMeta{Model: "fake"}, nil
}

func (f *fakeCaller) StreamText(ctx context.Context, role config.Role, system, user string, opts *llm.CallOptions, onDelta func(string)) (string, llm.CallMeta, error) {
	text, meta, err := f.CompleteText(ctx, role, system, user, opts)
	if err == nil && onDelta != nil {
		onDelta(text)
	}
	return text, meta, err
}

func (f *fakeCaller) StreamJSON(ctx context.Context, role config.Role, system, user string, opts *llm.CallOptions, onSnapshot func(json.RawMessage)) (json.RawMessage, llm.CallMeta, error) {
	f.lastUser = user
	if err := f.errs[role]; err != nil {
		return nil, llm.CallMeta{}, err
	}
	raw := json.RawMessage(f.responses[role])
	if onSnapshot != nil {
		onSnapshot(raw)
	}
	return raw, llm.CallMeta{Model: "fake"}, nil
}

func TestIntakeFillsDefaults(t *testing.T) {
	caller := &fakeCaller{responses: map[config.Role]string{
		config.RoleIntake: `{
			"intent": "add_unit_tests",
			"scope": {},
			"requirements": ["cover UserService"],
			"code_context": {"framework": "spring-boot"}
		}`,
	}}

	spec, err := NewIntake(caller).Run(context.Background(), "add tests for UserService", "")
	require.NoError(t, err)

	assert.NotEmpty(t, spec.JobID)
	assert.Equal(t, "java", spec.Scope.SourceLanguage)
	assert.Contains(t, spec.Scope.TargetFiles, "src/test/java/**/*.java")
	assert.Contains(t, spec.Scope.Excludes, "**/target/**")
	assert.Equal(t, "spring-boot", spec.CodeContext["framework"])
}

func TestIntakeRejectsInvalidModuleName(t *testing.T) {
	caller := &fakeCaller{responses: map[config.Role]string{
		config.RoleIntake: `{
			"intent": "x",
			"scope": {"target_modules": ["Not.A.Package"]},
			"requirements": []
		}`,
	}}
	_, err := NewIntake(caller).Run(context.Background(), "x", "")
	assert.ErrorContains(t, err, "invalid target module")
}

func TestIntakeSurfacesRouterError(t *testing.T) {
	caller := &fakeCaller{errs: map[config.Role]error{config.RoleIntake: errors.New("route exhausted")}}
	_, err := NewIntake(caller).Run(context.Background(), "x", "")
	assert.ErrorContains(t, err, "intake agent")
}

func plannerRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "src", "main", "java", "com", "example")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "UserService.java"), []byte(`package com.example;
public class UserService {
    public void create() {}
}`), 0o644))
	return root
}

func TestPlannerNormalizesPlan(t *testing.T) {
	caller := &fakeCaller{responses: map[config.Role]string{
		config.RolePlanner: `{
			"steps": [
				{"step_number": 10, "action": "create_interface", "target_classes": ["UserOperations"], "description": "extract interface"},
				{"step_number": 20, "action": "implement_interface", "target_classes": ["UserOperations"], "description": "implement it", "dependencies": [10]}
			],
			"risk_assessment": {"breaking_changes": false, "compilation_risk": true}
		}`,
	}}

	spec := models.JobSpec{JobID: "job_1", Intent: "extract_interface"}
	plan, err := NewPlanner(caller).Run(context.Background(), spec, plannerRepo(t))
	require.NoError(t, err)

	require.NoError(t, plan.Validate())
	assert.Equal(t, "job_1", plan.JobID)
	assert.NotEmpty(t, plan.PlanID)
	assert.Equal(t, 1, plan.Steps[0].StepNumber, "sparse numbering is made dense")
	assert.Equal(t, []int{1}, plan.Steps[1].Dependencies, "dependency renumbered")
	assert.Equal(t, 10, plan.Steps[0].EstimatedMinutes, "defaulted from action")
	assert.NotZero(t, plan.EstimatedDuration)
	assert.NotEmpty(t, plan.RiskAssessment.OverallRisk)
	assert.NotEmpty(t, plan.RiskAssessment.MitigationStrategies)
}

func TestPlannerEmbedsStructures(t *testing.T) {
	caller := &fakeCaller{responses: map[config.Role]string{
		config.RolePlanner: `{
			"steps": [{"step_number": 1, "action": "rename", "description": "d"}],
			"risk_assessment": {}
		}`,
	}}
	spec := models.JobSpec{JobID: "j", Intent: "rename"}
	_, err := NewPlanner(caller).Run(context.Background(), spec, plannerRepo(t))
	require.NoError(t, err)

	assert.Contains(t, caller.lastUser, "UserService")
	assert.Contains(t, caller.lastUser, "create()")
}

func TestValidatorMergesStaticChecksAndNormalizes(t *testing.T) {
	caller := &fakeCaller{responses: map[config.Role]string{
		config.RoleCoder: `{
			"passed": true,
			"compilation_passed": false,
			"checks": [{"name": "llm_review", "passed": true}],
			"recommendations": ["looks fine"]
		}`,
	}}

	changes := models.CodeChanges{PlanID: "plan_1"}
	changes.Append(models.CodeChange{
		FilePath:        "src/main/java/Hash.java",
		ChangeType:      models.ChangeCreated,
		ModifiedContent: `public class Hash { byte[] d(byte[] b) throws Exception { return MessageDigest.getInstance("MD5").digest(b); } }`,
	})

	result, err := NewValidator(caller).Run(context.Background(), changes, "BUILD FAILURE", "")
	require.NoError(t, err)

	assert.Equal(t, "plan_1", result.PlanID)
	assert.False(t, result.Passed, "compilation failure forces passed=false")

	names := make(map[string]bool)
	for _, c := range result.Checks {
		names[c.Name] = true
	}
	assert.True(t, names["weak_crypto"], "static scanner findings present")
	assert.True(t, names["llm_review"], "model's own checks preserved")
}

func TestNarratorAnnotates(t *testing.T) {
	caller := &fakeCaller{responses: map[config.Role]string{
		config.RolePRNarrator: `{
			"title": "Extract UserOperations interface",
			"summary": "Decouples callers from the concrete service.",
			"file_descriptions": [
				{"file_path": "src/main/java/com/example/UserService.java", "category": "features", "description": "implements new interface"}
			]
		}`,
	}}

	changes := models.CodeChanges{PlanID: "plan_1"}
	changes.Append(models.CodeChange{FilePath: "src/main/java/com/example/UserService.java", ChangeType: models.ChangeModified, LinesAdded: 4, LinesRemoved: 1})
	changes.Append(models.CodeChange{FilePath: "src/test/java/com/example/UserServiceTest.java", ChangeType: models.ChangeModified, LinesAdded: 2})
	changes.Append(models.CodeChange{FilePath: "src/main/java/com/example/Legacy.java", ChangeType: models.ChangeDeleted})

	desc, err := NewNarrator(caller).Run(context.Background(), changes, models.ValidationResult{Passed: true})
	require.NoError(t, err)

	assert.Equal(t, "plan_1", desc.PlanID)
	require.Len(t, desc.FileDescriptions, 3, "undescribed files filled in")

	byPath := make(map[string]models.FileDescription)
	for _, fd := range desc.FileDescriptions {
		byPath[fd.FilePath] = fd
	}
	assert.Equal(t, "refactoring", byPath["src/main/java/com/example/UserService.java"].Category,
		"host categorization overrides the model")
	assert.Equal(t, "tests", byPath["src/test/java/com/example/UserServiceTest.java"].Category)
	require.NotEmpty(t, desc.BreakingChanges)
	assert.Contains(t, desc.BreakingChanges[0], "Legacy.java")
}

func TestFixerUsesGuidanceOrHints(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "A.java"), []byte("public class A {}\n"), 0o644))

	caller := &fakeCaller{responses: map[config.Role]string{
		config.RoleCoder: `{
			"changes": [{"file_path": "src/A.java", "change_type": "modified",
				"original_content": "public class A {}\n",
				"modified_content": "public class A { void fix() {} }\n"}]
		}`,
	}}

	changes := models.CodeChanges{}
	changes.Append(models.CodeChange{FilePath: "src/A.java", ChangeType: models.ChangeModified})
	validation := models.ValidationResult{
		Checks: []models.ValidationCheck{{
			Name: "compilation", Passed: false,
			CompilationErrors: []models.CompilationError{{File: "src/A.java", Line: 1, Message: "cannot find symbol"}},
		}},
	}

	fixes, err := NewFixer(caller).Run(context.Background(), root, changes, validation, "")
	require.NoError(t, err)

	require.Len(t, fixes, 1)
	assert.NotEmpty(t, fixes[0].Diff, "fixes are finalized")
	assert.Contains(t, caller.lastUser, "Missing symbols", "pattern hint derived from digest")
	assert.Contains(t, caller.lastUser, "public class A {}", "flagged file content embedded")

	// Explicit guidance suppresses pattern hints.
	_, err = NewFixer(caller).Run(context.Background(), root, changes, validation, "only fix the import")
	require.NoError(t, err)
	assert.Contains(t, caller.lastUser, "only fix the import")
	assert.NotContains(t, caller.lastUser, "Missing symbols")
}
