package correlator

import (
	"fmt"
	"sort"
	"time"

	"github.com/flowtrace/flowtrace/internal/domain"
)

// HTTPCall is an outbound HTTP request observed in an execution's run
// data. It is reconstructed from node output rather than node
// configuration: parameter templates are unresolved at this point, so
// the output is the only record of what was actually called.
type HTTPCall struct {
	NodeName     string
	URL          string
	Method       string
	Timestamp    time.Time
	ResponseData map[string]any
}

// UserContext carries contextual identifiers found in an execution's
// node payloads. Used only as scorer input within a single search.
type UserContext struct {
	UserID        string
	ChatID        string
	CorrelationID string
	ResponseID    string
}

// ExtractHTTPCalls scans every node invocation's first output item for a
// url or requestUrl field and emits a call record for each hit. Node
// names are visited in sorted order so extraction order is stable.
func ExtractHTTPCalls(execution domain.Execution) []HTTPCall {
	var calls []HTTPCall

	for _, nodeName := range sortedNodeNames(execution.RunData) {
		for _, run := range execution.RunData[nodeName] {
			item, ok := run.Data.FirstItem()
			if !ok || item.JSON == nil {
				continue
			}

			callURL := stringField(item.JSON, "url")
			if callURL == "" {
				callURL = stringField(item.JSON, "requestUrl")
			}

			if callURL == "" {
				continue
			}

			method := stringField(item.JSON, "method")
			if method == "" {
				method = "GET"
			}

			calls = append(calls, HTTPCall{
				NodeName:     nodeName,
				URL:          callURL,
				Method:       method,
				Timestamp:    run.StartedAt,
				ResponseData: item.JSON,
			})
		}
	}

	return calls
}

// ExtractUserContext collects user_id, chat_id, correlation_id and
// response_id from node payloads, reading the top-level payload first and
// then a nested body object, which overwrites whatever the top level
// supplied. Scanning stops as soon as a user id or chat id is known, so a
// correlation id or response id that only appears on a later node is
// missed. Kept for compatibility with how existing confidence scores were
// tuned; see the package tests pinning this behavior.
func ExtractUserContext(execution domain.Execution) UserContext {
	var userCtx UserContext

	for _, nodeName := range sortedNodeNames(execution.RunData) {
		for _, run := range execution.RunData[nodeName] {
			item, ok := run.Data.FirstItem()
			if !ok || item.JSON == nil {
				continue
			}

			userCtx.readFields(item.JSON)

			if body, ok := item.JSON["body"].(map[string]any); ok {
				userCtx.readFields(body)
			}

			if userCtx.UserID != "" || userCtx.ChatID != "" {
				return userCtx
			}
		}
	}

	return userCtx
}

func (u *UserContext) readFields(payload map[string]any) {
	if v := stringField(payload, "user_id"); v != "" {
		u.UserID = v
	}

	if v := stringField(payload, "chat_id"); v != "" {
		u.ChatID = v
	}

	if v := stringField(payload, "correlation_id"); v != "" {
		u.CorrelationID = v
	}

	if v := stringField(payload, "response_id"); v != "" {
		u.ResponseID = v
	}
}

func sortedNodeNames(runData map[string][]domain.NodeRun) []string {
	names := make([]string, 0, len(runData))
	for name := range runData {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// stringField reads a payload field as a string, stringifying JSON
// numbers so numeric ids compare like their textual form.
func stringField(payload map[string]any, key string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}

		return fmt.Sprintf("%v", v)
	case int, int64, bool:
		return fmt.Sprintf("%v", v)
	default:
		return ""
	}
}
