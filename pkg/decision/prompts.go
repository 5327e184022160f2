package decision

import (
	"fmt"
	"strings"
)

const orchestratorSystemPrompt = `You are the orchestrator of an automated Java refactoring service. You
interpret user replies and pick the pipeline's next action. Always respond with
a single JSON object: action, reasoning, confidence between 0 and 1, and
optional modifications, next_step and estimated_success_probability fields.
Be decisive; use low confidence only when the user's intent is genuinely
unclear.`

func buildPlanUser(userReply, planSummary string) string {
	var b strings.Builder
	b.WriteString("The user was shown this refactoring plan and replied.\n\n")
	b.WriteString("## Plan\n\n")
	b.WriteString(planSummary)
	b.WriteString("\n\n## User reply\n\n")
	b.WriteString(userReply)
	b.WriteString("\n\nChoose action \"approve\", \"modify\", \"abort\" or \"clarify\". ")
	b.WriteString("For \"modify\", put the user's concrete change instructions in \"modifications\".")
	return b.String()
}

func buildPushUser(userReply, pushSummary string) string {
	var b strings.Builder
	b.WriteString("The refactoring is validated and ready to push. The user replied.\n\n")
	b.WriteString("## Push summary\n\n")
	b.WriteString(pushSummary)
	b.WriteString("\n\n## User reply\n\n")
	b.WriteString(userReply)
	b.WriteString("\n\nChoose action \"approve\", \"cancel\" or \"clarify\". ")
	b.WriteString("If the user names a branch or commit message, put them in \"modifications\" ")
	b.WriteString("as \"branch: <name>\" and \"commit_message: <text>\" lines.")
	return b.String()
}

func buildModeUser(userReply string) string {
	var b strings.Builder
	b.WriteString("The user chooses how thoroughly to validate the applied changes.\n\n")
	b.WriteString("## User reply\n\n")
	b.WriteString(userReply)
	b.WriteString("\n\nSet action to \"approve\" and \"modifications\" to exactly one of ")
	b.WriteString("\"full\", \"compile_only\" or \"skip\".")
	return b.String()
}

func buildRetryUser(errorDigest string, attempt, maxRetries int, history []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Validation failed on attempt %d of %d.\n\n", attempt, maxRetries)
	b.WriteString("## Error digest\n\n")
	b.WriteString(errorDigest)
	if len(history) > 0 {
		b.WriteString("\n\n## Previous attempts\n\n")
		for i, h := range history {
			fmt.Fprintf(&b, "%d. %s\n", i+1, h)
		}
	}
	b.WriteString("\nChoose action \"retry\" (targeted fix, describe it in \"modifications\"), ")
	b.WriteString("\"modify\" (replan with changed requirements in \"modifications\"), ")
	b.WriteString("\"abort\", or \"escalate\" (flag for human review). ")
	b.WriteString("Explain your analysis in \"reasoning\" before the choice.")
	return b.String()
}

func buildClassifyUser(text string) string {
	return fmt.Sprintf("Is the following message a request to refactor code, or just conversation?\n\n%q\n\n"+
		"Respond with is_refactor_request and, when it is conversation, a short friendly reply.", text)
}
