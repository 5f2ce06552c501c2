package match

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unihook/unihook/internal/core"
)

func TestSlackChannelScopedMatch(t *testing.T) {
	scoped := core.SlackTrigger{EventTypes: []string{"message"}, Channels: []string{"C1"}}
	workspace := core.SlackTrigger{EventTypes: []string{"message"}, WatchWholeWorkspace: true}
	event := SlackEvent{Type: "message", Channel: "C1"}

	require.True(t, Slack(scoped, event))
	require.True(t, Slack(workspace, event))
	require.False(t, Slack(scoped, SlackEvent{Type: "message", Channel: "C2"}))
	require.False(t, Slack(scoped, SlackEvent{Type: "reaction_added", Channel: "C1"}))
}

func TestSlackWildcardEventType(t *testing.T) {
	d := core.SlackTrigger{EventTypes: []string{"*"}, WatchWholeWorkspace: true}
	require.True(t, Slack(d, SlackEvent{Type: "anything", Channel: "C9"}))
}

func TestJiraWildcard(t *testing.T) {
	d := core.JiraTrigger{EventTypes: []string{"*"}}
	require.True(t, Jira(d, JiraEvent{EventType: "comment_updated"}))

	scoped := core.JiraTrigger{EventTypes: []string{"issue_created"}}
	require.False(t, Jira(scoped, JiraEvent{EventType: "comment_updated"}))
}

func TestGitHubCaseInsensitiveOwnerRepo(t *testing.T) {
	d := core.GitHubTrigger{Owner: "Foo", Repository: "Bar", EventTypes: []string{"push"}}
	require.True(t, GitHub(d, GitHubEvent{Type: "push", Owner: "FOO", Repository: "bar"}))
	require.False(t, GitHub(d, GitHubEvent{Type: "push", Owner: "Other", Repository: "bar"}))
	require.False(t, GitHub(d, GitHubEvent{Type: "pull_request", Owner: "Foo", Repository: "Bar"}))
}

func TestGitHubWildcardEventType(t *testing.T) {
	d := core.GitHubTrigger{Owner: "Foo", Repository: "Bar", EventTypes: []string{"*"}}
	require.True(t, GitHub(d, GitHubEvent{Type: "deployment_status", Owner: "foo", Repository: "bar"}))
}
