package mock

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Jira serves the impersonated Jira webhook-management endpoints. Unlike
// GitHub, Jira webhook registration carries no secret to capture (spec.md
// §4.4), so Jira needs no storage dependency at all.
type Jira struct {
	BaseURL string
	Log     zerolog.Logger

	nextID atomic.Int64
}

// Routes mounts the Jira mock surface onto r.
func (j *Jira) Routes(r chi.Router) {
	r.Get("/rest/api/2/myself", j.myself)
	r.Get("/rest/webhooks/1.0/webhook", j.listWebhooks)
	r.Post("/rest/webhooks/1.0/webhook", j.createWebhook)
	r.Delete("/rest/webhooks/1.0/webhook/{id}", j.deleteWebhook)
}

func (j *Jira) myself(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"accountId": "noop"})
}

func (j *Jira) listWebhooks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []any{})
}

func (j *Jira) createWebhook(w http.ResponseWriter, r *http.Request) {
	id := j.nextID.Add(1)
	writeJSON(w, http.StatusCreated, map[string]any{
		"self": fmt.Sprintf("%s/rest/webhooks/1.0/webhook/%d", j.BaseURL, id),
	})
}

func (j *Jira) deleteWebhook(w http.ResponseWriter, r *http.Request) {
	_ = chi.URLParam(r, "id")
	w.WriteHeader(http.StatusNoContent)
}
