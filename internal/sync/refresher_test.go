package sync

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/unihook/unihook/internal/core"
	"github.com/unihook/unihook/internal/storage"
)

type fakeHost struct {
	workflows []core.HostWorkflow
	err       error
}

func (f *fakeHost) ListActiveWorkflows(ctx context.Context) ([]core.HostWorkflow, error) {
	return f.workflows, f.err
}

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "unihook-test.sqlite")
	s, err := storage.Open(path, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func workflowFixture() core.HostWorkflow {
	return core.HostWorkflow{
		ID:     "wf1",
		Active: true,
		Nodes: []core.HostNode{
			{
				Type:       NodeTypeSlackTrigger,
				WebhookID:  "S1",
				Parameters: map[string]any{"events": []any{"message"}, "channels": []any{"C1"}},
			},
			{
				Type:       NodeTypeGitHubTrigger,
				WebhookID:  "G1",
				Parameters: map[string]any{"owner": "Foo", "repository": "Bar", "events": []any{"push"}},
				StaticData: map[string]any{"webhookSecret": "fallback"},
			},
			{Type: "n8n-nodes-base.httpRequest", WebhookID: "X1"},
		},
	}
}

func TestRunOncePersistsExtractedDescriptors(t *testing.T) {
	store := openTestStore(t)
	r := &Refresher{Host: &fakeHost{workflows: []core.HostWorkflow{workflowFixture()}}, Store: store, Log: zerolog.Nop()}

	require.NoError(t, r.RunOnce(t.Context()))

	slack, err := store.QuerySlackTriggers(t.Context())
	require.NoError(t, err)
	require.Len(t, slack, 1)
	require.Equal(t, "S1", slack[0].WebhookID)

	github, err := store.QueryGitHubTriggers(t.Context())
	require.NoError(t, err)
	require.Len(t, github, 1)
	require.Equal(t, []byte("fallback"), github[0].Secret)
}

func TestRunOnceFallbackSecretNeverClobbersAuthoritative(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.UpsertWebhookSecret(t.Context(), "G1", core.ProviderGitHub, []byte("authoritative")))

	r := &Refresher{Host: &fakeHost{workflows: []core.HostWorkflow{workflowFixture()}}, Store: store, Log: zerolog.Nop()}
	require.NoError(t, r.RunOnce(t.Context()))

	github, err := store.QueryGitHubTriggers(t.Context())
	require.NoError(t, err)
	require.Len(t, github, 1)
	require.Equal(t, []byte("authoritative"), github[0].Secret)
}

func TestRunOnceHostFailureLeavesPreviousSnapshot(t *testing.T) {
	store := openTestStore(t)
	r := &Refresher{Host: &fakeHost{workflows: []core.HostWorkflow{workflowFixture()}}, Store: store, Log: zerolog.Nop()}
	require.NoError(t, r.RunOnce(t.Context()))

	failing := &Refresher{Host: &fakeHost{err: errors.New("host unreachable")}, Store: store, Log: zerolog.Nop()}
	require.Error(t, failing.RunOnce(t.Context()))

	slack, err := store.QuerySlackTriggers(t.Context())
	require.NoError(t, err)
	require.Len(t, slack, 1, "previous snapshot must survive a failed pass")
}

func TestRunOnceIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	r := &Refresher{Host: &fakeHost{workflows: []core.HostWorkflow{workflowFixture()}}, Store: store, Log: zerolog.Nop()}
	require.NoError(t, r.RunOnce(t.Context()))
	require.NoError(t, r.RunOnce(t.Context()))

	slack, err := store.QuerySlackTriggers(t.Context())
	require.NoError(t, err)
	require.Len(t, slack, 1)
}
