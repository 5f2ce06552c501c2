package sync

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unihook/unihook/internal/core"
)

func TestExtractSlackReadsParametersAndStaticFields(t *testing.T) {
	n := core.HostNode{
		Type:      NodeTypeSlackTrigger,
		WebhookID: "W1",
		Parameters: map[string]any{
			"events":              []any{"message", "app_mention"},
			"channels":            []any{"C1", "C2"},
			"watchWholeWorkspace": false,
		},
	}
	d, ok := ExtractSlack("wf1", n)
	require.True(t, ok)
	require.Equal(t, core.SlackTrigger{
		WebhookID:  "W1",
		WorkflowID: "wf1",
		EventTypes: []string{"message", "app_mention"},
		Channels:   []string{"C1", "C2"},
	}, d)
}

func TestExtractSlackWithoutWebhookIDIsSkipped(t *testing.T) {
	_, ok := ExtractSlack("wf1", core.HostNode{Type: NodeTypeSlackTrigger})
	require.False(t, ok)
}

func TestExtractJiraDefaultsToWildcardOnAnyEvent(t *testing.T) {
	n := core.HostNode{
		Type:       NodeTypeJiraTrigger,
		WebhookID:  "W2",
		Parameters: map[string]any{"anyEvent": true},
	}
	d, ok := ExtractJira("wf2", n)
	require.True(t, ok)
	require.Equal(t, []string{core.WildcardEvent}, d.EventTypes)
}

func TestExtractJiraUsesExplicitEvents(t *testing.T) {
	n := core.HostNode{
		Type:       NodeTypeJiraTrigger,
		WebhookID:  "W2",
		Parameters: map[string]any{"events": []any{"comment_created"}},
	}
	d, ok := ExtractJira("wf2", n)
	require.True(t, ok)
	require.Equal(t, []string{"comment_created"}, d.EventTypes)
}

func TestExtractGitHubCapturesFallbackSecretFromStaticData(t *testing.T) {
	n := core.HostNode{
		Type:      NodeTypeGitHubTrigger,
		WebhookID: "W3",
		Parameters: map[string]any{
			"owner":      "Foo",
			"repository": "Bar",
			"events":     []any{"push"},
		},
		StaticData: map[string]any{"webhookSecret": "captured"},
	}
	d, secret, ok := ExtractGitHub("wf3", n)
	require.True(t, ok)
	require.Equal(t, "Foo", d.Owner)
	require.Equal(t, "Bar", d.Repository)
	require.Equal(t, []byte("captured"), secret)
}

func TestExtractGitHubNoStaticDataYieldsNilFallback(t *testing.T) {
	n := core.HostNode{
		Type:       NodeTypeGitHubTrigger,
		WebhookID:  "W3",
		Parameters: map[string]any{"owner": "Foo", "repository": "Bar"},
	}
	_, secret, ok := ExtractGitHub("wf3", n)
	require.True(t, ok)
	require.Nil(t, secret)
}

