// Package fanout forwards matched inbound events to host webhook URLs,
// including GitHub HMAC re-signing and Jira query-string passthrough
// (spec.md §4.3.4). Each exported Forward* method makes one outbound call;
// callers run them concurrently, one goroutine per matched descriptor, and
// do not block the inbound response on their completion (spec.md §9).
package fanout

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Dispatcher builds host webhook URLs and posts forwarded payloads to them
// over a single shared *http.Client with connection pooling, matching the
// outbound-client shape of the teacher's TriggerDispatcher.
type Dispatcher struct {
	HostBase      string
	WebhookPrefix string
	HTTP          *http.Client
	Log           zerolog.Logger
}

// New builds a Dispatcher with a seconds-scale timeout client.
func New(hostBase, webhookPrefix string, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		HostBase:      hostBase,
		WebhookPrefix: webhookPrefix,
		HTTP:          &http.Client{Timeout: 10 * time.Second},
		Log:           log,
	}
}

func (d *Dispatcher) webhookURL(webhookID string) string {
	return fmt.Sprintf("%s/%s/%s", d.HostBase, d.WebhookPrefix, webhookID)
}

// ForwardSlack posts the full, unmodified inbound Slack event body to the
// host webhook for webhookID.
func (d *Dispatcher) ForwardSlack(ctx context.Context, webhookID string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL(webhookID), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("fanout: build slack forward request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return d.do(req, webhookID)
}

// ForwardJira posts the inbound Jira webhook body to the host webhook for
// webhookID, appending rawQuery (the full original inbound query string)
// unchanged so the host's optional query-authentication credential
// round-trips (spec.md §4.3.2).
func (d *Dispatcher) ForwardJira(ctx context.Context, webhookID, rawQuery string, body []byte) error {
	url := d.webhookURL(webhookID)
	if rawQuery != "" {
		url += "?" + rawQuery
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("fanout: build jira forward request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return d.do(req, webhookID)
}

// GitHubForward carries the inbound headers and body needed to re-sign and
// forward one GitHub webhook delivery.
type GitHubForward struct {
	WebhookID string
	EventType string
	Delivery  string // X-GitHub-Delivery from the inbound request, may be empty
	Body      []byte
	Secret    []byte // nil if no secret has been captured for this webhook id
}

// ForwardGitHub re-signs and forwards one GitHub delivery (spec.md
// §4.3.3). When f.Secret is nil, it forwards without a signature header —
// the host will likely reject it, but that is a host-side 401, not an
// error at the router level (spec.md §7).
func (d *Dispatcher) ForwardGitHub(ctx context.Context, f GitHubForward) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL(f.WebhookID), bytes.NewReader(f.Body))
	if err != nil {
		return fmt.Errorf("fanout: build github forward request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", f.EventType)

	delivery := f.Delivery
	if delivery == "" {
		delivery = uuid.NewString()
	}
	req.Header.Set("X-GitHub-Delivery", delivery)

	if f.Secret != nil {
		req.Header.Set("X-Hub-Signature-256", ComputeSignature(f.Secret, f.Body))
	} else {
		d.Log.Warn().Str("webhook_id", f.WebhookID).Msg("forwarding github event without a signature: no secret captured")
	}

	return d.do(req, f.WebhookID)
}

func (d *Dispatcher) do(req *http.Request, webhookID string) error {
	resp, err := d.HTTP.Do(req)
	if err != nil {
		d.Log.Warn().Err(err).Str("webhook_id", webhookID).Msg("forward failed")
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		err := fmt.Errorf("fanout: host webhook %s responded with status %d", webhookID, resp.StatusCode)
		d.Log.Warn().Err(err).Msg("forward rejected")
		return err
	}
	return nil
}

// ComputeSignature computes the GitHub-style "sha256=<hex>" HMAC-SHA256
// signature of body using secret.
func ComputeSignature(secret, body []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write(body)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}

// VerifySignature reports whether provided (the raw "sha256=<hex>" header
// value) is the correct HMAC-SHA256 signature of body under secret, using a
// constant-time comparison.
func VerifySignature(secret []byte, provided string, body []byte) bool {
	if provided == "" {
		return false
	}
	expected := ComputeSignature(secret, body)
	return hmac.Equal([]byte(expected), []byte(provided))
}
