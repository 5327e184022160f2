package models

import "strings"

// DecisionAction is the orchestrator's chosen course of action.
type DecisionAction string

const (
	ActionApprove  DecisionAction = "approve"
	ActionModify   DecisionAction = "modify"
	ActionRetry    DecisionAction = "retry"
	ActionSkip     DecisionAction = "skip"
	ActionAbort    DecisionAction = "abort"
	ActionCancel   DecisionAction = "cancel"
	ActionClarify  DecisionAction = "clarify"
	ActionEscalate DecisionAction = "escalate"
)

// OrchestratorDecision is the Decision Engine's structured output.
// Modifications is free text; for push confirmations it may embed
// "branch:" and "commit_message:" key-lines.
type OrchestratorDecision struct {
	Action                      DecisionAction `json:"action"`
	Reasoning                   string         `json:"reasoning"`
	Confidence                  float64        `json:"confidence"`
	Modifications               string         `json:"modifications,omitempty"`
	NextStep                    string         `json:"next_step,omitempty"`
	EstimatedSuccessProbability float64        `json:"estimated_success_probability,omitempty"`
}

// BranchOverride extracts a branch name from the modifications text.
// The key-line form ("branch: feature/x") wins; the legacy phrase
// "push to branch <name>" is the fallback.
func (d *OrchestratorDecision) BranchOverride() string {
	if v := keyLine(d.Modifications, "branch:"); v != "" {
		return v
	}
	lower := strings.ToLower(d.Modifications)
	if idx := strings.Index(lower, "push to branch "); idx >= 0 {
		rest := d.Modifications[idx+len("push to branch "):]
		if fields := strings.Fields(rest); len(fields) > 0 {
			return strings.Trim(fields[0], `"'.,`)
		}
	}
	return ""
}

// CommitMessageOverride extracts a commit message from the
// modifications text, key-line form only.
func (d *OrchestratorDecision) CommitMessageOverride() string {
	return keyLine(d.Modifications, "commit_message:")
}

func keyLine(text, prefix string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if rest, ok := cutPrefixFold(trimmed, prefix); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return "", false
}
