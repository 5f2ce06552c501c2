// Package match implements the per-provider facet-matching rules from
// spec.md §4.3: reduce an inbound event to a small tuple of facets and test
// it against every descriptor of that provider. A match is a conjunction
// over facets; each facet matches exactly, wildcards, or honors a scope
// flag.
package match

import (
	"strings"

	"github.com/unihook/unihook/internal/core"
)

// SlackEvent is the facet tuple extracted from an inbound Slack event.
type SlackEvent struct {
	Type    string
	Channel string // empty for workspace-level events
}

// Slack reports whether descriptor d matches event e.
func Slack(d core.SlackTrigger, e SlackEvent) bool {
	if !core.HasEventType(d.EventTypes, e.Type) {
		return false
	}
	if d.WatchWholeWorkspace {
		return true
	}
	return contains(d.Channels, e.Channel)
}

// JiraEvent is the facet extracted from an inbound Jira webhook.
type JiraEvent struct {
	EventType string
}

// Jira reports whether descriptor d matches event e.
func Jira(d core.JiraTrigger, e JiraEvent) bool {
	return core.HasEventType(d.EventTypes, e.EventType)
}

// GitHubEvent is the facet tuple extracted from an inbound GitHub webhook.
type GitHubEvent struct {
	Type       string
	Owner      string
	Repository string
}

// GitHub reports whether descriptor d matches event e. Owner and
// repository comparisons are case-insensitive via strings.EqualFold, which
// uses Unicode case folding; for ASCII names this is the same as comparing
// ASCII-lowercased values (spec.md §3).
func GitHub(d core.GitHubTrigger, e GitHubEvent) bool {
	if !core.HasEventType(d.EventTypes, e.Type) {
		return false
	}
	return strings.EqualFold(d.Owner, e.Owner) && strings.EqualFold(d.Repository, e.Repository)
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
