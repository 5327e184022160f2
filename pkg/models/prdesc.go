package models

import (
	"fmt"
	"strings"
)

// FileDescription summarizes the change to one file for the PR body.
type FileDescription struct {
	FilePath    string `json:"file_path"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// PRDescription is the Narrator agent's pull-request write-up.
type PRDescription struct {
	PlanID          string            `json:"plan_id"`
	Title           string            `json:"title"`
	Summary         string            `json:"summary"`
	FileDescriptions []FileDescription `json:"file_descriptions,omitempty"`
	BreakingChanges []string          `json:"breaking_changes,omitempty"`
	MigrationGuide  string            `json:"migration_guide,omitempty"`
	TestingNotes    string            `json:"testing_notes,omitempty"`
}

// Markdown renders the description as a pull-request body.
func (p *PRDescription) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n", p.Title, p.Summary)
	if len(p.FileDescriptions) > 0 {
		b.WriteString("\n## Changes\n\n")
		for _, fd := range p.FileDescriptions {
			if fd.Category != "" {
				fmt.Fprintf(&b, "- `%s` (%s): %s\n", fd.FilePath, fd.Category, fd.Description)
			} else {
				fmt.Fprintf(&b, "- `%s`: %s\n", fd.FilePath, fd.Description)
			}
		}
	}
	if len(p.BreakingChanges) > 0 {
		b.WriteString("\n## Breaking Changes\n\n")
		for _, bc := range p.BreakingChanges {
			fmt.Fprintf(&b, "- %s\n", bc)
		}
	}
	if p.MigrationGuide != "" {
		fmt.Fprintf(&b, "\n## Migration Guide\n\n%s\n", p.MigrationGuide)
	}
	if p.TestingNotes != "" {
		fmt.Fprintf(&b, "\n## Testing\n\n%s\n", p.TestingNotes)
	}
	return b.String()
}
