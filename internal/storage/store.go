// Package storage is unihook's persistent state store: an embedded
// single-writer SQLite database holding trigger descriptors and captured
// webhook secrets. Trigger tables are replaced atomically per provider per
// sync pass; the webhook-secret table is a monotonic store updated by
// mock registrations and sync fallback.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/unihook/unihook/internal/core"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// ErrNotFound is returned by single-row lookups when no row matches.
var ErrNotFound = errors.New("storage: not found")

// Store is the embedded relational store described in spec.md §4.1. A
// single *sql.DB handle backs it; modernc.org/sqlite serializes writers
// internally, and the mutex here only protects the short window between
// issuing a statement and it returning — it is not a substitute for
// transactional atomicity, which the Sync* methods rely on instead.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	log zerolog.Logger
}

// Open opens (creating if necessary) the SQLite database at path and runs
// any pending migrations. path may be ":memory:", in which case an
// ephemeral file-backed database is used instead of a literal in-process
// SQLite memory database, so the same WAL-mode connection string works
// uniformly.
func Open(path string, log zerolog.Logger) (*Store, error) {
	if path == ":memory:" {
		path = filepath.Join(os.TempDir(), fmt.Sprintf("unihook-%d.sqlite", time.Now().UnixNano()))
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_busy_timeout=5000&_journal_mode=WAL&_sync=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, log: log}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations(version TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("storage: create migrations table: %w", err)
	}

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("storage: read embedded migrations: %w", err)
	}

	for _, e := range entries {
		v := e.Name()
		var count int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version=?;`, v).Scan(&count); err != nil {
			return fmt.Errorf("storage: check migration %s: %w", v, err)
		}
		if count > 0 {
			continue
		}
		body, err := migrationFS.ReadFile("migrations/" + v)
		if err != nil {
			return fmt.Errorf("storage: read migration %s: %w", v, err)
		}
		if _, err := s.db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("storage: apply migration %s: %w", v, err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations(version) VALUES(?);`, v); err != nil {
			return fmt.Errorf("storage: record migration %s: %w", v, err)
		}
		s.log.Info().Str("migration", v).Msg("applied schema migration")
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SyncSlackTriggers atomically replaces every slack_triggers row. Readers
// see either the full previous snapshot or the full new one, never a
// partial state, because the delete and inserts share one transaction.
func (s *Store) SyncSlackTriggers(ctx context.Context, triggers []core.SlackTrigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin slack sync: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM slack_triggers;`); err != nil {
		return fmt.Errorf("storage: clear slack_triggers: %w", err)
	}
	for _, t := range triggers {
		eventTypes, _ := json.Marshal(t.EventTypes)
		channels, _ := json.Marshal(t.Channels)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO slack_triggers(webhook_id, workflow_id, event_types, channels, watch_whole_workspace) VALUES (?,?,?,?,?);`,
			t.WebhookID, t.WorkflowID, string(eventTypes), string(channels), boolToInt(t.WatchWholeWorkspace)); err != nil {
			return fmt.Errorf("storage: insert slack trigger %s: %w", t.WebhookID, err)
		}
	}
	return tx.Commit()
}

// QuerySlackTriggers returns a snapshot of every slack trigger descriptor.
func (s *Store) QuerySlackTriggers(ctx context.Context) ([]core.SlackTrigger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT webhook_id, workflow_id, event_types, channels, watch_whole_workspace FROM slack_triggers;`)
	if err != nil {
		return nil, fmt.Errorf("storage: query slack triggers: %w", err)
	}
	defer rows.Close()

	var out []core.SlackTrigger
	for rows.Next() {
		var t core.SlackTrigger
		var eventTypesJSON, channelsJSON string
		var watchWhole int
		if err := rows.Scan(&t.WebhookID, &t.WorkflowID, &eventTypesJSON, &channelsJSON, &watchWhole); err != nil {
			return nil, fmt.Errorf("storage: scan slack trigger: %w", err)
		}
		_ = json.Unmarshal([]byte(eventTypesJSON), &t.EventTypes)
		_ = json.Unmarshal([]byte(channelsJSON), &t.Channels)
		t.WatchWholeWorkspace = watchWhole != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

// SyncJiraTriggers atomically replaces every jira_triggers row.
func (s *Store) SyncJiraTriggers(ctx context.Context, triggers []core.JiraTrigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin jira sync: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM jira_triggers;`); err != nil {
		return fmt.Errorf("storage: clear jira_triggers: %w", err)
	}
	for _, t := range triggers {
		eventTypes, _ := json.Marshal(t.EventTypes)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO jira_triggers(webhook_id, workflow_id, event_types) VALUES (?,?,?);`,
			t.WebhookID, t.WorkflowID, string(eventTypes)); err != nil {
			return fmt.Errorf("storage: insert jira trigger %s: %w", t.WebhookID, err)
		}
	}
	return tx.Commit()
}

// QueryJiraTriggers returns a snapshot of every jira trigger descriptor.
func (s *Store) QueryJiraTriggers(ctx context.Context) ([]core.JiraTrigger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT webhook_id, workflow_id, event_types FROM jira_triggers;`)
	if err != nil {
		return nil, fmt.Errorf("storage: query jira triggers: %w", err)
	}
	defer rows.Close()

	var out []core.JiraTrigger
	for rows.Next() {
		var t core.JiraTrigger
		var eventTypesJSON string
		if err := rows.Scan(&t.WebhookID, &t.WorkflowID, &eventTypesJSON); err != nil {
			return nil, fmt.Errorf("storage: scan jira trigger: %w", err)
		}
		_ = json.Unmarshal([]byte(eventTypesJSON), &t.EventTypes)
		out = append(out, t)
	}
	return out, rows.Err()
}

// SyncGitHubTriggers atomically replaces every github_triggers row.
// Descriptors are stored in their original case; comparisons at routing
// time lowercase both sides (spec.md §3).
func (s *Store) SyncGitHubTriggers(ctx context.Context, triggers []core.GitHubTrigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin github sync: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM github_triggers;`); err != nil {
		return fmt.Errorf("storage: clear github_triggers: %w", err)
	}
	for _, t := range triggers {
		eventTypes, _ := json.Marshal(t.EventTypes)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO github_triggers(webhook_id, workflow_id, owner, repository, event_types) VALUES (?,?,?,?,?);`,
			t.WebhookID, t.WorkflowID, t.Owner, t.Repository, string(eventTypes)); err != nil {
			return fmt.Errorf("storage: insert github trigger %s: %w", t.WebhookID, err)
		}
	}
	return tx.Commit()
}

// QueryGitHubTriggers returns a snapshot of every github trigger
// descriptor, LEFT JOINed with webhook_secrets on (webhook_id, 'github')
// so each descriptor carries its HMAC secret (or nil) without a second
// round-trip (spec.md §4.1).
func (s *Store) QueryGitHubTriggers(ctx context.Context) ([]core.GitHubTrigger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT g.webhook_id, g.workflow_id, g.owner, g.repository, g.event_types, s.secret
		FROM github_triggers g
		LEFT JOIN webhook_secrets s ON s.webhook_id = g.webhook_id AND s.provider = 'github';`)
	if err != nil {
		return nil, fmt.Errorf("storage: query github triggers: %w", err)
	}
	defer rows.Close()

	var out []core.GitHubTrigger
	for rows.Next() {
		var t core.GitHubTrigger
		var eventTypesJSON string
		var secret []byte
		if err := rows.Scan(&t.WebhookID, &t.WorkflowID, &t.Owner, &t.Repository, &eventTypesJSON, &secret); err != nil {
			return nil, fmt.Errorf("storage: scan github trigger: %w", err)
		}
		_ = json.Unmarshal([]byte(eventTypesJSON), &t.EventTypes)
		t.Secret = secret
		if t.Secret == nil {
			s.log.Warn().Str("webhook_id", t.WebhookID).Msg("github trigger has no captured secret")
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpsertWebhookSecret authoritatively sets the secret for (webhookID,
// provider), overwriting any prior value. This is the path used by the
// GitHub mock hook-registration endpoint (spec.md §4.4).
func (s *Store) UpsertWebhookSecret(ctx context.Context, webhookID string, provider core.Provider, secret []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO webhook_secrets(webhook_id, provider, secret, created_at) VALUES (?,?,?,?)
		 ON CONFLICT(webhook_id, provider) DO UPDATE SET secret=excluded.secret;`,
		webhookID, string(provider), secret, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("storage: upsert webhook secret: %w", err)
	}
	return nil
}

// UpsertWebhookSecretFallback writes secret for (webhookID, provider) only
// if no row exists yet. It never clobbers a secret captured authoritatively
// by UpsertWebhookSecret (spec.md §3, "fallback non-clobber").
func (s *Store) UpsertWebhookSecretFallback(ctx context.Context, webhookID string, provider core.Provider, secret []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO webhook_secrets(webhook_id, provider, secret, created_at) VALUES (?,?,?,?)
		 ON CONFLICT(webhook_id, provider) DO NOTHING;`,
		webhookID, string(provider), secret, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("storage: fallback upsert webhook secret: %w", err)
	}
	return nil
}

// DeleteWebhookSecret removes the captured secret for (webhookID,
// provider). The mock delete-hook endpoint deletes by database id instead,
// via DeleteWebhookSecretByDBID.
func (s *Store) DeleteWebhookSecret(ctx context.Context, webhookID string, provider core.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM webhook_secrets WHERE webhook_id=? AND provider=?;`, webhookID, string(provider))
	if err != nil {
		return fmt.Errorf("storage: delete webhook secret: %w", err)
	}
	return nil
}

// WebhookSecretRecord looks up the full secret record for (webhookID,
// provider), including its database-generated id. The GitHub mock's
// hook-creation endpoint uses this to echo the id it must hand back to the
// host (spec.md §4.4).
func (s *Store) WebhookSecretRecord(ctx context.Context, webhookID string, provider core.Provider) (core.WebhookSecret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rec core.WebhookSecret
	var p string
	err := s.db.QueryRowContext(ctx, `SELECT id, webhook_id, provider, secret, created_at FROM webhook_secrets WHERE webhook_id=? AND provider=?;`, webhookID, string(provider)).
		Scan(&rec.ID, &rec.WebhookID, &p, &rec.Secret, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.WebhookSecret{}, ErrNotFound
	}
	if err != nil {
		return core.WebhookSecret{}, fmt.Errorf("storage: lookup webhook secret: %w", err)
	}
	rec.Provider = core.Provider(p)
	return rec, nil
}

// WebhookSecretByDBID looks up a secret row, including its webhook id, by
// its database-generated id. The GitHub mock's
// DELETE /repos/{owner}/{repo}/hooks/{id} endpoint, which only receives the
// db id, does not look the row up; it calls DeleteWebhookSecretByDBID.
func (s *Store) WebhookSecretByDBID(ctx context.Context, id int64) (core.WebhookSecret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rec core.WebhookSecret
	var provider string
	err := s.db.QueryRowContext(ctx, `SELECT id, webhook_id, provider, secret, created_at FROM webhook_secrets WHERE id=?;`, id).
		Scan(&rec.ID, &rec.WebhookID, &provider, &rec.Secret, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.WebhookSecret{}, ErrNotFound
	}
	if err != nil {
		return core.WebhookSecret{}, fmt.Errorf("storage: lookup webhook secret by id: %w", err)
	}
	rec.Provider = core.Provider(provider)
	return rec, nil
}

// DeleteWebhookSecretByDBID removes a secret row by its database id. Called
// by the GitHub mock's delete-hook endpoint.
func (s *Store) DeleteWebhookSecretByDBID(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM webhook_secrets WHERE id=?;`, id)
	if err != nil {
		return fmt.Errorf("storage: delete webhook secret by id: %w", err)
	}
	return nil
}

// Counts is the health-endpoint payload described in spec.md §4.5, plus
// the github_secrets_stored addition from SPEC_FULL.md.
type Counts struct {
	SlackTriggersLoaded  int
	JiraTriggersLoaded   int
	GitHubTriggersLoaded int
	GitHubSecretsStored  int
}

// Counts reports row counts for the health endpoint.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c Counts
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM slack_triggers;`).Scan(&c.SlackTriggersLoaded); err != nil {
		return Counts{}, fmt.Errorf("storage: count slack triggers: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jira_triggers;`).Scan(&c.JiraTriggersLoaded); err != nil {
		return Counts{}, fmt.Errorf("storage: count jira triggers: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM github_triggers;`).Scan(&c.GitHubTriggersLoaded); err != nil {
		return Counts{}, fmt.Errorf("storage: count github triggers: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM webhook_secrets WHERE provider='github';`).Scan(&c.GitHubSecretsStored); err != nil {
		return Counts{}, fmt.Errorf("storage: count github secrets: %w", err)
	}
	return c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
