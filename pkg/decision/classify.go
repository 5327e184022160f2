package decision

import (
	"context"
	"regexp"
	"strings"

	"github.com/codeready-toolchain/repoai/pkg/config"
	"github.com/codeready-toolchain/repoai/pkg/llm"
)

// Classification is the pre-flight verdict on an incoming prompt.
// Reply is only set for conversational input.
type Classification struct {
	IsRequest bool
	Reply     string
}

// refactorVocabulary is the closed set of tokens that mark a prompt as
// a refactoring request regardless of its length or shape.
var refactorVocabulary = map[string]bool{
	"refactor": true, "refactoring": true, "rename": true, "extract": true,
	"interface": true, "class": true, "method": true, "package": true,
	"test": true, "tests": true, "annotation": true, "annotate": true,
	"dependency": true, "dependencies": true, "inject": true, "implement": true,
	"convert": true, "migrate": true, "upgrade": true, "split": true,
	"move": true, "remove": true, "replace": true, "fix": true,
	"cache": true, "caching": true, "redis": true, "spring": true,
	"java": true, "maven": true, "gradle": true, "code": true,
}

var (
	greetingRe   = regexp.MustCompile(`(?i)^\s*(hi|hiya|hello|hey|yo|howdy|greetings|good\s+(morning|afternoon|evening))\b`)
	capabilityRe = regexp.MustCompile(`(?i)(what\s+can\s+you\s+do|who\s+are\s+you|what\s+are\s+you|how\s+do\s+you\s+work|help\s*$|thank(s|\s+you)|appreciate)`)
)

var classifySchema = llm.MustCompileSchema("classify.json", []byte(`{
	"type": "object",
	"properties": {
		"is_refactor_request": {"type": "boolean"},
		"reply": {"type": "string"}
	},
	"required": ["is_refactor_request"]
}`))

const (
	greetingReply   = "Hello! Describe the Java refactoring you need (for example \"extract an interface from UserService\") and I will plan and apply it."
	capabilityReply = "I refactor Java codebases: extracting interfaces, renaming, adding tests or dependencies, applying Spring conventions. Describe the change and the repository and I will take it from there."
)

// ClassifyInput decides whether text starts a pipeline or is mere
// conversation. The regex fast path handles the common cases; the LLM
// is consulted only for short ambiguous input. Long text is always a
// request.
func (e *Engine) ClassifyInput(ctx context.Context, text string) Classification {
	words := strings.Fields(text)
	if containsRefactorVocabulary(words) {
		return Classification{IsRequest: true}
	}
	if greetingRe.MatchString(text) && len(words) < 5 {
		return Classification{Reply: greetingReply}
	}
	if capabilityRe.MatchString(text) && len(words) < 15 {
		return Classification{Reply: capabilityReply}
	}
	if len(words) >= 10 {
		return Classification{IsRequest: true}
	}

	var out struct {
		IsRefactorRequest bool   `json:"is_refactor_request"`
		Reply             string `json:"reply"`
	}
	_, err := e.caller.CompleteJSON(ctx, config.RoleOrchestrator, orchestratorSystemPrompt, buildClassifyUser(text), classifySchema, &out)
	if err != nil {
		// When in doubt, run the pipeline; intake will make sense of it.
		e.logger.Warn("Classification call failed, treating as request", "error", err)
		return Classification{IsRequest: true}
	}
	if out.IsRefactorRequest {
		return Classification{IsRequest: true}
	}
	reply := out.Reply
	if reply == "" {
		reply = capabilityReply
	}
	return Classification{Reply: reply}
}

func containsRefactorVocabulary(words []string) bool {
	for _, w := range words {
		if refactorVocabulary[strings.Trim(strings.ToLower(w), `.,!?:;"'()`)] {
			return true
		}
	}
	return false
}
