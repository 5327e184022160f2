package models

// CompilationError is one structured error parsed from build output.
type CompilationError struct {
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Message string `json:"message"`
}

// ValidationCheck is one named check inside a ValidationResult.
type ValidationCheck struct {
	Name              string             `json:"name"`
	Passed            bool               `json:"passed"`
	Issues            []string           `json:"issues"`
	CompilationErrors []CompilationError `json:"compilation_errors,omitempty"`
}

// TestTotals carries the factual outcome of a test run.
type TestTotals struct {
	Run     int `json:"run"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// TestFailure identifies one failing test.
type TestFailure struct {
	Class     string `json:"class"`
	Method    string `json:"method"`
	Message   string `json:"message"`
	ErrorType string `json:"error_type,omitempty"`
}

// SecurityVulnerability is a finding from the static security scanners.
type SecurityVulnerability struct {
	Severity    string `json:"severity"`
	Category    string `json:"category"`
	File        string `json:"file,omitempty"`
	Line        int    `json:"line,omitempty"`
	Description string `json:"description"`
}

// ConfidenceMetrics carries the Validator's self-reported confidence.
type ConfidenceMetrics struct {
	CodeSafety    float64 `json:"code_safety"`
	TestCoverage  float64 `json:"test_coverage"`
	OverallChange float64 `json:"overall_change"`
}

// ValidationResult is the Validator agent's verdict, annotated with the
// factual build results. Every contract field is always populated; zero
// values stand in for absent data.
type ValidationResult struct {
	PlanID                  string                  `json:"plan_id"`
	Passed                  bool                    `json:"passed"`
	CompilationPassed       bool                    `json:"compilation_passed"`
	Checks                  []ValidationCheck       `json:"checks"`
	TestCoverage            float64                 `json:"test_coverage"`
	JUnitTestResults        *TestTotals             `json:"junit_test_results,omitempty"`
	TestFailures            []TestFailure           `json:"test_failures,omitempty"`
	SecurityVulnerabilities []SecurityVulnerability `json:"security_vulnerabilities"`
	Confidence              ConfidenceMetrics       `json:"confidence"`
	Recommendations         []string                `json:"recommendations"`
}

// Normalize enforces result invariants after LLM output and build
// annotation are merged: a failed compile always fails the result, nil
// slices become empty, and coverage is clamped to [0,1].
func (v *ValidationResult) Normalize() {
	if !v.CompilationPassed {
		v.Passed = false
	}
	if v.TestCoverage < 0 {
		v.TestCoverage = 0
	}
	if v.TestCoverage > 1 {
		v.TestCoverage = 1
	}
	if v.Checks == nil {
		v.Checks = []ValidationCheck{}
	}
	if v.SecurityVulnerabilities == nil {
		v.SecurityVulnerabilities = []SecurityVulnerability{}
	}
	if v.Recommendations == nil {
		v.Recommendations = []string{}
	}
}

// ErrorDigest flattens the failed checks into short strings for retry
// prompts and progress events.
func (v *ValidationResult) ErrorDigest() []string {
	var digest []string
	for _, check := range v.Checks {
		if check.Passed {
			continue
		}
		for _, e := range check.CompilationErrors {
			if e.File != "" {
				digest = append(digest, check.Name+": "+e.File+": "+e.Message)
			} else {
				digest = append(digest, check.Name+": "+e.Message)
			}
		}
		for _, issue := range check.Issues {
			digest = append(digest, check.Name+": "+issue)
		}
	}
	for _, f := range v.TestFailures {
		digest = append(digest, "test "+f.Class+"."+f.Method+": "+f.Message)
	}
	return digest
}
