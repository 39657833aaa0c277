package correlator

import (
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/flowtrace/flowtrace/internal/domain"
)

// WebhookMapping ties a declared webhook path to the workflow that owns
// it. Paths are not unique across workflows; the first match wins.
type WebhookMapping struct {
	Path         string
	WorkflowID   string
	WorkflowName string
}

// webhookIndex answers "which workflow owns this webhook path?". A value
// of this type is always fully built; construction happens once per
// correlator session and the index never changes afterwards.
type webhookIndex struct {
	mappings []WebhookMapping
}

func buildWebhookIndex(workflows []domain.Workflow) *webhookIndex {
	index := &webhookIndex{}

	for _, workflow := range workflows {
		for _, path := range workflow.WebhookPaths() {
			index.mappings = append(index.mappings, WebhookMapping{
				Path:         path,
				WorkflowID:   workflow.ID,
				WorkflowName: workflow.Name,
			})
		}
	}

	log.Debug().Int("mappings", len(index.mappings)).Msg("Built webhook index")

	return index
}

// Find resolves a webhook call target to its owning workflow. The input
// may be a full URL or a bare path. Matching is symmetric substring
// containment, which tolerates prefix/suffix variation between how paths
// are declared and how they show up in call logs. A miss is a normal
// negative result, not an error.
func (idx *webhookIndex) Find(urlOrPath string) (WebhookMapping, bool) {
	input := normalizeWebhookPath(urlOrPath)
	if input == "" {
		return WebhookMapping{}, false
	}

	for _, mapping := range idx.mappings {
		path := strings.TrimPrefix(mapping.Path, "/")
		if path == "" {
			continue
		}

		if strings.Contains(input, path) || strings.Contains(path, input) {
			return mapping, true
		}
	}

	return WebhookMapping{}, false
}

// normalizeWebhookPath reduces a URL or path to the bare webhook path:
// the URL's path component with the platform's "/webhook" mount segment
// and any leading slash removed. Idempotent.
func normalizeWebhookPath(urlOrPath string) string {
	path := urlOrPath
	if parsed, err := url.Parse(urlOrPath); err == nil && parsed.Path != "" {
		path = parsed.Path
	}

	path = strings.TrimPrefix(path, "/webhook")
	path = strings.TrimPrefix(path, "/")

	return path
}
