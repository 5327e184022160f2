package models

// ChangeType describes what a CodeChange does to its target file.
type ChangeType string

const (
	ChangeCreated  ChangeType = "created"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
)

// CodeChange is one per-file edit produced by the Transformer agent.
// FilePath is repository-relative; absolute paths and ".." segments are
// rejected before application.
type CodeChange struct {
	FilePath         string     `json:"file_path"`
	ChangeType       ChangeType `json:"change_type"`
	OriginalContent  string     `json:"original_content,omitempty"`
	ModifiedContent  string     `json:"modified_content,omitempty"`
	Diff             string     `json:"diff,omitempty"`
	LinesAdded       int        `json:"lines_added"`
	LinesRemoved     int        `json:"lines_removed"`
	ImportsAdded     []string   `json:"imports_added,omitempty"`
	MethodsAdded     []string   `json:"methods_added,omitempty"`
	AnnotationsAdded []string   `json:"annotations_added,omitempty"`
}

// CodeChanges aggregates the Transformer's output for one plan.
type CodeChanges struct {
	PlanID        string       `json:"plan_id"`
	Changes       []CodeChange `json:"changes"`
	FilesCreated  int          `json:"files_created"`
	FilesModified int          `json:"files_modified"`
	FilesDeleted  int          `json:"files_deleted"`
	TotalAdded    int          `json:"total_lines_added"`
	TotalRemoved  int          `json:"total_lines_removed"`

	// FailedChanges counts changes rejected before application, such as
	// unsafe paths. They never enter the Changes list.
	FailedChanges int `json:"failed_changes,omitempty"`
}

// Append adds a change and keeps the aggregate counters in sync.
func (c *CodeChanges) Append(change CodeChange) {
	c.Changes = append(c.Changes, change)
	c.Recount()
}

// Recount recomputes the aggregate counters from the change list. The
// counters must always equal the reduction of the list.
func (c *CodeChanges) Recount() {
	c.FilesCreated, c.FilesModified, c.FilesDeleted = 0, 0, 0
	c.TotalAdded, c.TotalRemoved = 0, 0
	for _, ch := range c.Changes {
		switch ch.ChangeType {
		case ChangeCreated:
			c.FilesCreated++
		case ChangeModified:
			c.FilesModified++
		case ChangeDeleted:
			c.FilesDeleted++
		}
		c.TotalAdded += ch.LinesAdded
		c.TotalRemoved += ch.LinesRemoved
	}
}

// Paths returns the file paths of all changes, in order.
func (c *CodeChanges) Paths() []string {
	paths := make([]string, len(c.Changes))
	for i, ch := range c.Changes {
		paths[i] = ch.FilePath
	}
	return paths
}
