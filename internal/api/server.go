package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/unihook/unihook/internal/mock"
)

// NewRouter composes the full HTTP surface: inbound provider routes, the
// GitHub/Jira mock surface, and health, per spec.md §2's route table. Mock
// routes are mounted outside any inbound-signature middleware — they are
// semantically outbound calls from the host, not events from a provider
// (spec.md §4.4).
func NewRouter(inbound *Inbound, health *Health, github *mock.GitHub, jira *mock.Jira, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/health", health.ServeHTTP)

	r.Post("/slack/events", inbound.SlackEvents)
	r.Post("/jira/events", inbound.JiraEvents)
	r.Post("/github/events", inbound.GitHubEvents)

	github.Routes(r)
	jira.Routes(r)

	return r
}

// requestLogger logs one structured line per request at debug level,
// matching the teacher's preference for low-noise request logging over
// chi's default text logger.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}
}
