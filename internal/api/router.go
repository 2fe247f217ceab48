// Package api wires the backend function handlers into an http.Handler.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/wallet-dashboard/internal/api/handlers"
	"github.com/dvloznov/wallet-dashboard/internal/api/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prefix is where the backend functions are mounted.
const Prefix = "/functions"

// Handlers groups the endpoint handlers.
type Handlers struct {
	History *handlers.HistoryHandler
	Exports *handlers.ExportsHandler
	Jobs    *handlers.JobsHandler
}

// Options configures the middleware chain.
type Options struct {
	APIKey  string
	Limiter *rate.Limiter
}

// NewRouter registers every route and wraps the mux in the middleware chain.
func NewRouter(h Handlers, opts Options, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	route(mux, "/save-transaction-history", http.MethodPost, h.History.Save)
	route(mux, "/get-transaction-history", http.MethodGet, h.History.Get)
	route(mux, "/tables/transaction_history", http.MethodGet, h.History.Table)
	route(mux, "/clear-transfer-search-history", http.MethodPost, h.History.Clear)
	route(mux, "/preview-delete-history", http.MethodGet, h.History.Preview)

	mux.HandleFunc(Prefix+"/exports", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Exports.List(w, r)
		case http.MethodPost:
			h.Exports.Create(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	route(mux, "/jobs", http.MethodGet, h.Jobs.ListJobs)
	mux.HandleFunc(Prefix+"/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, Prefix+"/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		h.Jobs.GetJob(w, r, jobID)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(
					middleware.RateLimit(opts.Limiter, log)(
						middleware.APIKeyAuth(opts.APIKey)(mux),
					),
				),
			),
		),
	)
}

func route(mux *http.ServeMux, path, method string, fn http.HandlerFunc) {
	mux.HandleFunc(Prefix+path, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		fn(w, r)
	})
}
