package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeChangesRecount(t *testing.T) {
	changes := CodeChanges{PlanID: "plan-1"}
	changes.Append(CodeChange{FilePath: "src/A.java", ChangeType: ChangeCreated, LinesAdded: 10})
	changes.Append(CodeChange{FilePath: "src/B.java", ChangeType: ChangeModified, LinesAdded: 4, LinesRemoved: 2})
	changes.Append(CodeChange{FilePath: "src/C.java", ChangeType: ChangeDeleted, LinesRemoved: 30})

	assert.Equal(t, 1, changes.FilesCreated)
	assert.Equal(t, 1, changes.FilesModified)
	assert.Equal(t, 1, changes.FilesDeleted)
	assert.Equal(t, 14, changes.TotalAdded)
	assert.Equal(t, 32, changes.TotalRemoved)
	assert.Equal(t, []string{"src/A.java", "src/B.java", "src/C.java"}, changes.Paths())
}

func TestValidationResultNormalize(t *testing.T) {
	result := ValidationResult{
		PlanID:            "plan-1",
		Passed:            true,
		CompilationPassed: false,
		TestCoverage:      1.4,
	}
	result.Normalize()

	assert.False(t, result.Passed, "failed compile must fail the result")
	assert.Equal(t, 1.0, result.TestCoverage)
	assert.NotNil(t, result.Checks)
	assert.NotNil(t, result.SecurityVulnerabilities)
	assert.NotNil(t, result.Recommendations)
}

func TestValidationResultErrorDigest(t *testing.T) {
	result := ValidationResult{
		Checks: []ValidationCheck{
			{Name: "compilation", Passed: false, CompilationErrors: []CompilationError{
				{File: "src/A.java", Line: 12, Message: "cannot find symbol Service"},
			}},
			{Name: "naming", Passed: true, Issues: []string{"ignored"}},
			{Name: "style", Passed: false, Issues: []string{"method too long"}},
		},
		TestFailures: []TestFailure{
			{Class: "UserServiceTest", Method: "testGet", Message: "expected 200"},
		},
	}

	digest := result.ErrorDigest()
	assert.Equal(t, []string{
		"compilation: src/A.java: cannot find symbol Service",
		"style: method too long",
		"test UserServiceTest.testGet: expected 200",
	}, digest)
}
