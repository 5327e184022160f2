package agent

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/codeready-toolchain/repoai/pkg/models"
)

// ComputeDiff renders a unified diff between the original and modified
// content of a change.
func ComputeDiff(path, original, modified string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(modified),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}

// CountDiffLines counts added and removed lines in a unified diff,
// skipping the file headers.
func CountDiffLines(diff string) (added, removed int) {
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}
	return added, removed
}

// FinalizeChange fills a change's derived fields: the diff when absent,
// then the line counters, falling back to non-blank content counting
// when the diff yields nothing.
func FinalizeChange(change *models.CodeChange) error {
	if change.ChangeType == models.ChangeDeleted {
		change.ModifiedContent = ""
		if change.Diff == "" && change.OriginalContent != "" {
			diff, err := ComputeDiff(change.FilePath, change.OriginalContent, "")
			if err != nil {
				return err
			}
			change.Diff = diff
		}
	} else if change.Diff == "" {
		diff, err := ComputeDiff(change.FilePath, change.OriginalContent, change.ModifiedContent)
		if err != nil {
			return err
		}
		change.Diff = diff
	}

	change.LinesAdded, change.LinesRemoved = CountDiffLines(change.Diff)
	if change.LinesAdded == 0 && change.LinesRemoved == 0 {
		switch change.ChangeType {
		case models.ChangeCreated:
			change.LinesAdded = countNonBlank(change.ModifiedContent)
		case models.ChangeModified:
			change.LinesAdded = countNonBlank(change.ModifiedContent)
			change.LinesRemoved = countNonBlank(change.OriginalContent)
		case models.ChangeDeleted:
			change.LinesRemoved = countNonBlank(change.OriginalContent)
		}
	}
	return nil
}

func countNonBlank(content string) int {
	n := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
