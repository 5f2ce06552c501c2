package sync

import "github.com/unihook/unihook/internal/core"

// Node type identifiers for the three recognized trigger node types. Any
// other node type is treated as a non-trigger and ignored (spec.md §6).
const (
	NodeTypeSlackTrigger  = "n8n-nodes-base.slackTrigger"
	NodeTypeJiraTrigger   = "n8n-nodes-base.jiraTrigger"
	NodeTypeGitHubTrigger = "n8n-nodes-base.githubTrigger"
)

// ExtractSlack builds a SlackTrigger descriptor from a slackTrigger node,
// per spec.md §4.2. ok is false if the node lacks a webhook id.
func ExtractSlack(workflowID string, n core.HostNode) (core.SlackTrigger, bool) {
	if n.WebhookID == "" {
		return core.SlackTrigger{}, false
	}
	return core.SlackTrigger{
		WebhookID:           n.WebhookID,
		WorkflowID:          workflowID,
		EventTypes:          asStringSlice(n.Parameters["events"]),
		Channels:            asStringSlice(n.Parameters["channels"]),
		WatchWholeWorkspace: asBool(n.Parameters["watchWholeWorkspace"]),
	}, true
}

// ExtractJira builds a JiraTrigger descriptor from a jiraTrigger node. If
// the node selects "any" event, event_types becomes ["*"] per spec.md
// §4.2.
func ExtractJira(workflowID string, n core.HostNode) (core.JiraTrigger, bool) {
	if n.WebhookID == "" {
		return core.JiraTrigger{}, false
	}
	events := asStringSlice(n.Parameters["events"])
	if asBool(n.Parameters["anyEvent"]) || len(events) == 0 {
		events = []string{core.WildcardEvent}
	}
	return core.JiraTrigger{
		WebhookID:  n.WebhookID,
		WorkflowID: workflowID,
		EventTypes: events,
	}, true
}

// ExtractGitHub builds a GitHubTrigger descriptor from a githubTrigger
// node, plus the staticData-captured fallback secret if present.
func ExtractGitHub(workflowID string, n core.HostNode) (desc core.GitHubTrigger, fallbackSecret []byte, ok bool) {
	if n.WebhookID == "" {
		return core.GitHubTrigger{}, nil, false
	}
	desc = core.GitHubTrigger{
		WebhookID:  n.WebhookID,
		WorkflowID: workflowID,
		Owner:      asString(n.Parameters["owner"]),
		Repository: asString(n.Parameters["repository"]),
		EventTypes: asStringSlice(n.Parameters["events"]),
	}
	if s := asString(n.StaticData["webhookSecret"]); s != "" {
		fallbackSecret = []byte(s)
	}
	return desc, fallbackSecret, true
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
