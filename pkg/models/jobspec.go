package models

// JobScope narrows a refactoring job to part of the repository.
type JobScope struct {
	TargetFiles    []string `json:"target_files,omitempty"`
	TargetModules  []string `json:"target_modules,omitempty"`
	SourceLanguage string   `json:"source_language,omitempty"`
	BuildSystem    string   `json:"build_system,omitempty"`
	Excludes       []string `json:"excludes,omitempty"`
}

// JobSpec is the Intake agent's structured reading of the user prompt.
// It is immutable once produced; retries regenerate it with appended
// synthetic requirements rather than editing in place.
type JobSpec struct {
	JobID        string   `json:"job_id"`
	Intent       string   `json:"intent"`
	Scope        JobScope `json:"scope"`
	Requirements []string `json:"requirements"`
	Constraints  []string `json:"constraints,omitempty"`

	// CodeContext is the single home for intake metadata about the
	// analyzed code (key classes, frameworks detected, entry points).
	CodeContext map[string]any `json:"code_context,omitempty"`
}

// WithRequirements returns a copy of the spec with extra requirements
// appended. The receiver is left untouched.
func (j JobSpec) WithRequirements(extra ...string) JobSpec {
	out := j
	out.Requirements = make([]string, 0, len(j.Requirements)+len(extra))
	out.Requirements = append(out.Requirements, j.Requirements...)
	out.Requirements = append(out.Requirements, extra...)
	return out
}
