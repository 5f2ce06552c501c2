// Package mock implements the provider-API mock surface from spec.md §4.4:
// the subset of GitHub and Jira REST endpoints the host calls while
// registering webhooks, with GitHub's registration endpoint doubling as
// the secret-capture path that later lets fan-out re-sign forwarded
// payloads.
package mock

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/unihook/unihook/internal/core"
	"github.com/unihook/unihook/internal/storage"
)

// GitHub serves the impersonated GitHub webhook-management endpoints.
type GitHub struct {
	Store *storage.Store
	Log   zerolog.Logger
}

// Routes mounts the GitHub mock surface onto r.
func (g *GitHub) Routes(r chi.Router) {
	r.Get("/user", g.user)
	r.Get("/repos/{owner}/{repo}/hooks", g.listHooks)
	r.Post("/repos/{owner}/{repo}/hooks", g.createHook)
	r.Delete("/repos/{owner}/{repo}/hooks/{id}", g.deleteHook)
}

func (g *GitHub) user(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"login": "noop", "id": 1})
}

func (g *GitHub) listHooks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []any{})
}

type createHookRequest struct {
	Name   string   `json:"name"`
	Events []string `json:"events"`
	Active bool     `json:"active"`
	Config struct {
		URL         string `json:"url"`
		ContentType string `json:"content_type"`
		Secret      string `json:"secret"`
	} `json:"config"`
}

// createHook extracts the webhook id from the host-supplied config.url (its
// second-to-last path segment) and stores the secret authoritatively, so
// fan-out can re-sign forwards for this webhook id from then on (spec.md
// §4.4, §8 "Secret authority").
func (g *GitHub) createHook(w http.ResponseWriter, r *http.Request) {
	var in createHookRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "malformed hook body", http.StatusBadRequest)
		return
	}
	webhookID := webhookIDFromURL(in.Config.URL)
	if webhookID == "" {
		http.Error(w, "cannot derive webhook id from config.url", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if err := g.Store.UpsertWebhookSecret(ctx, webhookID, core.ProviderGitHub, []byte(in.Config.Secret)); err != nil {
		g.Log.Error().Err(err).Msg("mock github: store hook secret")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	rec, err := g.Store.WebhookSecretRecord(ctx, webhookID, core.ProviderGitHub)
	if err != nil {
		g.Log.Error().Err(err).Msg("mock github: read back hook secret")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         rec.ID,
		"url":        in.Config.URL,
		"active":     in.Active,
		"events":     in.Events,
		"created_at": time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"url":          in.Config.URL,
			"content_type": in.Config.ContentType,
		},
	})
}

func (g *GitHub) deleteHook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid hook id", http.StatusBadRequest)
		return
	}
	if err := g.Store.DeleteWebhookSecretByDBID(r.Context(), id); err != nil {
		g.Log.Error().Err(err).Msg("mock github: delete hook")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// webhookIDFromURL returns the last path segment of a host webhook URL
// after trimming any trailing slash, e.g. "https://host/webhook/W" -> "W"
// (spec.md §3, §8 "Mock capture round-trip"). A trailing slash in
// config.url would otherwise leave an empty final segment, which is the
// scenario spec.md's "second-to-last segment" wording describes.
func webhookIDFromURL(rawURL string) string {
	parts := strings.Split(strings.TrimRight(rawURL, "/"), "/")
	if len(parts) < 1 || parts[len(parts)-1] == "" {
		return ""
	}
	return parts[len(parts)-1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
