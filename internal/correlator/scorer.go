package correlator

import (
	"strings"
	"time"

	"github.com/flowtrace/flowtrace/internal/domain"
)

// Confidence weights. Tuned heuristics, not a probability model;
// changing any weight changes which candidates cross the acceptance
// threshold.
const (
	// acceptThreshold is strict: a candidate needs confidence above,
	// not at, this value.
	acceptThreshold = 0.5

	webhookBaseScore = 0.3

	webhookTimestampExact = 0.3 // within 500ms of the HTTP call
	webhookTimestampClose = 0.2 // within 2s
	webhookTimestampNear  = 0.1 // within 5s

	webhookUserIDScore        = 0.3
	webhookChatIDScore        = 0.2
	webhookCorrelationIDScore = 0.5
	webhookResponseIDScore    = 0.1

	subworkflowTimestampClose = 0.3 // within 2s of the parent execution start
	subworkflowTimestampNear  = 0.2 // within 5s
	subworkflowUserIDScore    = 0.4
	subworkflowChatIDScore    = 0.3
)

// scoreWebhookCorrelation rates a candidate reached through a webhook
// call. The caller has already matched the call URL to the candidate's
// workflow, which is what the base score stands for. Timestamp proximity
// is measured against the HTTP call itself, not the parent execution
// start. Returns the clamped confidence and a "+"-joined label of the
// signals that contributed, in evaluation order.
func scoreWebhookCorrelation(candidate domain.Execution, parentCtx UserContext, call HTTPCall) (float64, string) {
	candidateCtx := ExtractUserContext(candidate)

	score := webhookBaseScore
	methods := []string{"webhook_url"}

	switch delta := absDuration(candidate.StartedAt.Sub(call.Timestamp)); {
	case delta < 500*time.Millisecond:
		score += webhookTimestampExact
		methods = append(methods, "timestamp_exact")
	case delta < 2*time.Second:
		score += webhookTimestampClose
		methods = append(methods, "timestamp_close")
	case delta < 5*time.Second:
		score += webhookTimestampNear
		methods = append(methods, "timestamp_near")
	}

	if parentCtx.UserID != "" && parentCtx.UserID == candidateCtx.UserID {
		score += webhookUserIDScore
		methods = append(methods, "user_id")
	}

	if parentCtx.ChatID != "" && parentCtx.ChatID == candidateCtx.ChatID {
		score += webhookChatIDScore
		methods = append(methods, "chat_id")
	}

	if parentCtx.CorrelationID != "" && parentCtx.CorrelationID == candidateCtx.CorrelationID {
		score += webhookCorrelationIDScore
		methods = append(methods, "correlation_id")
	}

	if sharedResponseIDPrefix(parentCtx.ResponseID, candidateCtx.ResponseID) {
		score += webhookResponseIDScore
		methods = append(methods, "response_id")
	}

	if score > 1.0 {
		score = 1.0
	}

	return score, strings.Join(methods, "+")
}

// scoreSubworkflowCorrelation rates a candidate whose workflow carries a
// sub-workflow trigger, independent of any webhook match. Timestamp
// proximity is measured against the parent execution start, and the
// correlation and response id signals deliberately do not participate.
// The returned score is unclamped; the search compares it against the
// threshold before clamping.
func scoreSubworkflowCorrelation(parent, candidate domain.Execution, parentCtx UserContext) (float64, string) {
	candidateCtx := ExtractUserContext(candidate)

	score := 0.0
	methods := []string{"subworkflow"}

	switch delta := absDuration(candidate.StartedAt.Sub(parent.StartedAt)); {
	case delta < 2*time.Second:
		score += subworkflowTimestampClose
		methods = append(methods, "timestamp_close")
	case delta < 5*time.Second:
		score += subworkflowTimestampNear
		methods = append(methods, "timestamp_near")
	}

	if parentCtx.UserID != "" && parentCtx.UserID == candidateCtx.UserID {
		score += subworkflowUserIDScore
		methods = append(methods, "user_id")
	}

	if parentCtx.ChatID != "" && parentCtx.ChatID == candidateCtx.ChatID {
		score += subworkflowChatIDScore
		methods = append(methods, "chat_id")
	}

	return score, strings.Join(methods, "+")
}

// sharedResponseIDPrefix reports whether two response ids share their
// first two "-"-delimited segments, e.g. "RESP-agent-001" and
// "RESP-agent-042". A namespacing convention, weaker than equality.
func sharedResponseIDPrefix(a, b string) bool {
	if a == "" || b == "" {
		return false
	}

	segmentsA := strings.SplitN(a, "-", 3)
	segmentsB := strings.SplitN(b, "-", 3)
	if len(segmentsA) < 2 || len(segmentsB) < 2 {
		return false
	}

	return segmentsA[0] == segmentsB[0] && segmentsA[1] == segmentsB[1]
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}

	return d
}
