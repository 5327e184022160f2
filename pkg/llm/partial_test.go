package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"fenced json", "Here you go:\n```json\n{\"a\": 1}\n```\nDone.", `{"a": 1}`},
		{"plain fence", "```\n[1, 2]\n```", `[1, 2]`},
		{"prose around object", `Sure! {"a": {"b": 2}} hope that helps`, `{"a": {"b": 2}}`},
		{"array", `[{"x": 1}]`, `[{"x": 1}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.input))
		})
	}
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		wantOK   bool
		check    func(t *testing.T, repaired []byte)
	}{
		{
			name:     "already valid",
			fragment: `{"changes": []}`,
			wantOK:   true,
		},
		{
			name:     "unterminated object",
			fragment: `{"plan_id": "p1", "changes": [{"file_path": "A.java"}`,
			wantOK:   true,
			check: func(t *testing.T, repaired []byte) {
				var doc struct {
					PlanID  string `json:"plan_id"`
					Changes []map[string]any
				}
				require.NoError(t, json.Unmarshal(repaired, &doc))
				assert.Equal(t, "p1", doc.PlanID)
				assert.Len(t, doc.Changes, 1)
			},
		},
		{
			name:     "cut inside string value",
			fragment: `{"changes": [{"file_path": "src/main/ja`,
			wantOK:   true,
			check: func(t *testing.T, repaired []byte) {
				// The partial element is dropped, the scopes are closed.
				var doc map[string]any
				require.NoError(t, json.Unmarshal(repaired, &doc))
			},
		},
		{
			name:     "dangling key without value",
			fragment: `{"file_path": "A.java", "change_type"`,
			wantOK:   true,
			check: func(t *testing.T, repaired []byte) {
				var doc map[string]any
				require.NoError(t, json.Unmarshal(repaired, &doc))
				assert.Equal(t, "A.java", doc["file_path"])
				assert.NotContains(t, doc, "change_type")
			},
		},
		{
			name:     "trailing comma",
			fragment: `{"a": 1, "b": 2,`,
			wantOK:   true,
			check: func(t *testing.T, repaired []byte) {
				var doc map[string]any
				require.NoError(t, json.Unmarshal(repaired, &doc))
				assert.Len(t, doc, 2)
			},
		},
		{
			name:     "no json at all",
			fragment: "thinking about it",
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repaired, ok := RepairJSON(tt.fragment)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.True(t, json.Valid(repaired), "repaired output must be valid JSON: %s", repaired)
				if tt.check != nil {
					tt.check(t, repaired)
				}
			}
		})
	}
}

func TestRepairJSONGrowingStream(t *testing.T) {
	// Every prefix of a realistic streamed document either repairs to
	// valid JSON or is reported unrecoverable, never garbage.
	full := `{"plan_id": "p1", "changes": [{"file_path": "src/A.java", "change_type": "modified", "lines_added": 12}, {"file_path": "src/B.java", "change_type": "created"}]}`
	for i := 1; i <= len(full); i++ {
		repaired, ok := RepairJSON(full[:i])
		if ok {
			assert.True(t, json.Valid(repaired), "prefix %d", i)
		}
	}
	repaired, ok := RepairJSON(full)
	require.True(t, ok)
	assert.JSONEq(t, full, string(repaired))
}
