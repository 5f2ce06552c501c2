// Package api composes the router's HTTP surface: inbound provider
// webhooks, the GitHub/Jira mock endpoints, and the health check, on a chi
// router (spec.md §4, §6).
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/unihook/unihook/internal/fanout"
	"github.com/unihook/unihook/internal/match"
	"github.com/unihook/unihook/internal/storage"
)

// Inbound handles the three provider-facing event routes: match descriptors
// loaded from the store against the inbound event's facets, then fan out
// concurrently to every match. Responses are sent as soon as dispatch is
// scheduled — fan-out completion is never awaited (spec.md §4.3.4, §9).
type Inbound struct {
	Store        *storage.Store
	Fanout       *fanout.Dispatcher
	GitHubSecret []byte // nil disables inbound GitHub signature verification
	Log          zerolog.Logger
}

type slackPayload struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Event     struct {
		Type    string `json:"type"`
		Channel string `json:"channel"`
	} `json:"event"`
}

// SlackEvents implements POST /slack/events (spec.md §4.3.1).
func (h *Inbound) SlackEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "cannot read body", http.StatusBadRequest)
		return
	}

	var payload slackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "malformed json", http.StatusBadRequest)
		return
	}

	if payload.Type == "url_verification" {
		writeJSON(w, http.StatusOK, map[string]string{"challenge": payload.Challenge})
		return
	}

	descriptors, err := h.Store.QuerySlackTriggers(r.Context())
	if err != nil {
		h.Log.Error().Err(err).Msg("query slack triggers")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	event := match.SlackEvent{Type: payload.Event.Type, Channel: payload.Event.Channel}
	for _, d := range descriptors {
		if match.Slack(d, event) {
			go h.forwardSlack(d.WebhookID, body)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (h *Inbound) forwardSlack(webhookID string, body []byte) {
	if err := h.Fanout.ForwardSlack(context.Background(), webhookID, body); err != nil {
		h.Log.Warn().Err(err).Str("webhook_id", webhookID).Msg("slack forward failed")
	}
}

type jiraPayload struct {
	WebhookEvent string `json:"webhookEvent"`
}

// JiraEvents implements POST /jira/events (spec.md §4.3.2).
func (h *Inbound) JiraEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "cannot read body", http.StatusBadRequest)
		return
	}

	var payload jiraPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "malformed json", http.StatusBadRequest)
		return
	}

	descriptors, err := h.Store.QueryJiraTriggers(r.Context())
	if err != nil {
		h.Log.Error().Err(err).Msg("query jira triggers")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	rawQuery := r.URL.RawQuery
	event := match.JiraEvent{EventType: payload.WebhookEvent}
	for _, d := range descriptors {
		if match.Jira(d, event) {
			go h.forwardJira(d.WebhookID, rawQuery, body)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (h *Inbound) forwardJira(webhookID, rawQuery string, body []byte) {
	if err := h.Fanout.ForwardJira(context.Background(), webhookID, rawQuery, body); err != nil {
		h.Log.Warn().Err(err).Str("webhook_id", webhookID).Msg("jira forward failed")
	}
}

type githubPayload struct {
	Repository struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
}

// GitHubEvents implements POST /github/events (spec.md §4.3.3).
func (h *Inbound) GitHubEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "cannot read body", http.StatusBadRequest)
		return
	}

	eventType := r.Header.Get("X-GitHub-Event")
	if eventType == "" {
		http.Error(w, "missing X-GitHub-Event header", http.StatusBadRequest)
		return
	}

	if h.GitHubSecret != nil {
		provided := r.Header.Get("X-Hub-Signature-256")
		if !fanout.VerifySignature(h.GitHubSecret, provided, body) {
			h.Log.Warn().Msg("github inbound signature mismatch")
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	if eventType == "ping" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "pong"})
		return
	}

	var payload githubPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "malformed json", http.StatusBadRequest)
		return
	}

	descriptors, err := h.Store.QueryGitHubTriggers(r.Context())
	if err != nil {
		h.Log.Error().Err(err).Msg("query github triggers")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	delivery := r.Header.Get("X-GitHub-Delivery")
	event := match.GitHubEvent{
		Type:       eventType,
		Owner:      payload.Repository.Owner.Login,
		Repository: payload.Repository.Name,
	}
	for _, d := range descriptors {
		if match.GitHub(d, event) {
			go h.forwardGitHub(fanout.GitHubForward{
				WebhookID: d.WebhookID,
				EventType: eventType,
				Delivery:  delivery,
				Body:      body,
				Secret:    d.Secret,
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (h *Inbound) forwardGitHub(f fanout.GitHubForward) {
	if err := h.Fanout.ForwardGitHub(context.Background(), f); err != nil {
		h.Log.Warn().Err(err).Str("webhook_id", f.WebhookID).Msg("github forward failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
