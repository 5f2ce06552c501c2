package api

import (
	"net/http"

	"github.com/unihook/unihook/internal/storage"
)

// Health implements GET /health (spec.md §4.5).
type Health struct {
	Store *storage.Store
}

func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Store.Counts(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":                 "ok",
		"slack_triggers_loaded":  counts.SlackTriggersLoaded,
		"jira_triggers_loaded":   counts.JiraTriggersLoaded,
		"github_triggers_loaded": counts.GitHubTriggersLoaded,
		"github_secrets_stored":  counts.GitHubSecretsStored,
	})
}
