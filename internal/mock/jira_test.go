package mock

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestCreateWebhookReturnsIncrementingSelfURL(t *testing.T) {
	j := &Jira{BaseURL: "https://router.example", Log: zerolog.Nop()}
	r := chi.NewRouter()
	j.Routes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp1, err := http.Post(srv.URL+"/rest/webhooks/1.0/webhook", "application/json", nil)
	require.NoError(t, err)
	defer resp1.Body.Close()
	require.Equal(t, http.StatusCreated, resp1.StatusCode)
	var out1 struct {
		Self string `json:"self"`
	}
	require.NoError(t, json.NewDecoder(resp1.Body).Decode(&out1))
	require.Equal(t, "https://router.example/rest/webhooks/1.0/webhook/1", out1.Self)

	resp2, err := http.Post(srv.URL+"/rest/webhooks/1.0/webhook", "application/json", nil)
	require.NoError(t, err)
	defer resp2.Body.Close()
	var out2 struct {
		Self string `json:"self"`
	}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&out2))
	require.Equal(t, "https://router.example/rest/webhooks/1.0/webhook/2", out2.Self)
}

func TestDeleteWebhookNoContent(t *testing.T) {
	j := &Jira{BaseURL: "https://router.example", Log: zerolog.Nop()}
	r := chi.NewRouter()
	j.Routes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/rest/webhooks/1.0/webhook/1", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}
