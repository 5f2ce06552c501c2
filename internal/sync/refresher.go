// Package sync implements the periodic control loop described in spec.md
// §4.2: pull active workflows from the host, extract per-provider trigger
// descriptors from their nodes, and replace each provider's snapshot in
// the persistent store.
package sync

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/unihook/unihook/internal/core"
	"github.com/unihook/unihook/internal/hostapi"
	"github.com/unihook/unihook/internal/storage"
)

// HostClient is the subset of hostapi.Client that Refresher depends on,
// narrowed for testability.
type HostClient interface {
	ListActiveWorkflows(ctx context.Context) ([]core.HostWorkflow, error)
}

var _ HostClient = (*hostapi.Client)(nil)

// Refresher runs the sync pass on a fixed cadence. It is a single
// long-lived loop: passes never overlap, because the next tick is not read
// until the current pass's RunOnce call returns (spec.md §5).
type Refresher struct {
	Host     HostClient
	Store    *storage.Store
	Interval time.Duration
	Log      zerolog.Logger
}

// RunOnce performs one sync pass: list active workflows, extract
// descriptors from their nodes, group by provider, and atomically replace
// each provider's snapshot. On host-API failure the pass is abandoned and
// the previous snapshot remains in effect — callers decide whether that is
// fatal (it never is, per spec.md §4.2).
func (r *Refresher) RunOnce(ctx context.Context) error {
	workflows, err := r.Host.ListActiveWorkflows(ctx)
	if err != nil {
		return err
	}

	var slackTriggers []core.SlackTrigger
	var jiraTriggers []core.JiraTrigger
	var githubTriggers []core.GitHubTrigger
	type githubFallback struct {
		webhookID string
		secret    []byte
	}
	var githubFallbacks []githubFallback

	for _, wf := range workflows {
		for _, node := range wf.Nodes {
			switch node.Type {
			case NodeTypeSlackTrigger:
				if d, ok := ExtractSlack(wf.ID, node); ok {
					slackTriggers = append(slackTriggers, d)
				}
			case NodeTypeJiraTrigger:
				if d, ok := ExtractJira(wf.ID, node); ok {
					jiraTriggers = append(jiraTriggers, d)
				}
			case NodeTypeGitHubTrigger:
				if d, secret, ok := ExtractGitHub(wf.ID, node); ok {
					githubTriggers = append(githubTriggers, d)
					if secret != nil {
						githubFallbacks = append(githubFallbacks, githubFallback{webhookID: d.WebhookID, secret: secret})
					}
				}
			}
		}
	}

	if err := r.Store.SyncSlackTriggers(ctx, slackTriggers); err != nil {
		return err
	}
	if err := r.Store.SyncJiraTriggers(ctx, jiraTriggers); err != nil {
		return err
	}
	if err := r.Store.SyncGitHubTriggers(ctx, githubTriggers); err != nil {
		return err
	}
	for _, fb := range githubFallbacks {
		if err := r.Store.UpsertWebhookSecretFallback(ctx, fb.webhookID, core.ProviderGitHub, fb.secret); err != nil {
			return err
		}
	}

	r.Log.Info().
		Int("slack_triggers", len(slackTriggers)).
		Int("jira_triggers", len(jiraTriggers)).
		Int("github_triggers", len(githubTriggers)).
		Msg("sync pass complete")
	return nil
}

// Loop runs RunOnce every Interval until ctx is canceled. It does not run
// an initial pass — callers should invoke RunOnce synchronously once at
// startup (spec.md §4.2) before starting Loop in the background.
func (r *Refresher) Loop(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				r.Log.Error().Err(err).Msg("sync pass failed, previous snapshot remains in effect")
			}
		}
	}
}
