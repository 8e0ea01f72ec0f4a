// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api exposes the article resource over HTTP: search-and-acquire,
// raw and full retrieval, and deletion, each behind a role check.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pdiddy/bibmine/internal/acquire"
	"github.com/pdiddy/bibmine/internal/auth"
	"github.com/pdiddy/bibmine/pkg/types"
)

// AcquiredHeader reports how many articles a search persisted.
const AcquiredHeader = "X-Articles-Acquired"

// Acquirer persists the articles a search query discovers.
type Acquirer interface {
	PersistArticles(ctx context.Context, query string) (acquire.Summary, error)
}

// Retriever loads articles in their two representations.
type Retriever interface {
	GetArticleXML(ctx context.Context, aid string) ([]byte, error)
	GetArticleFull(ctx context.Context, aid string) (*types.FullArticle, error)
}

// Store is the part of the article store the resource touches directly.
type Store interface {
	Delete(ctx context.Context, aid string) (bool, error)
	Ping(ctx context.Context) error
}

// Deps are the collaborators the resource delegates to.
type Deps struct {
	Acquirer  Acquirer
	Retriever Retriever
	Store     Store
	Guard     *auth.Guard
	Logger    *slog.Logger
}

type handler struct {
	Deps
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewHandler returns the resource's routes wrapped in request ID, access
// log and OpenTelemetry middleware.
func NewHandler(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &handler{Deps: deps, logger: logger.With(slog.String("component", "api"))}

	mux := http.NewServeMux()
	mux.Handle("GET /articles", h.guard(auth.OpSearch, h.handleSearch))
	mux.Handle("GET /articles/{aid}", h.guard(auth.OpRaw, h.handleRaw))
	mux.Handle("GET /articles/full/{aid}", h.guard(auth.OpFull, h.handleFull))
	mux.Handle("DELETE /articles/{aid}", h.guard(auth.OpDelete, h.handleDelete))
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("/", h.handleUnmatched)
	h.mux = mux

	var root http.Handler = withAccessLog(h.logger, mux)
	root = withRequestID(root)
	return otelhttp.NewHandler(root, "bibmine",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// routedMethods are the methods any route is registered for.
var routedMethods = []string{http.MethodGet, http.MethodDelete}

// handleUnmatched answers requests no route claims, keeping 404 and 405 in
// the JSON error envelope.
func (h *handler) handleUnmatched(w http.ResponseWriter, r *http.Request) {
	var allowed []string
	for _, method := range routedMethods {
		alt := r.Clone(r.Context())
		alt.Method = method
		if _, pattern := h.mux.Handler(alt); pattern != "/" {
			allowed = append(allowed, method)
		}
	}
	if len(allowed) == 0 {
		h.writeEnvelope(w, r, http.StatusNotFound, CodeNotFound, "no route for "+r.URL.Path)
		return
	}
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	h.writeEnvelope(w, r, http.StatusMethodNotAllowed, CodeMethodNotAllowed, r.Method+" not allowed on "+r.URL.Path)
}

func (h *handler) guard(op string, fn http.HandlerFunc) http.Handler {
	return h.Guard.Require(op, fn, h.writeError)
}

// handleSearch runs one acquisition for the query parameter. The response
// body is empty; the number of persisted articles is reported in a header.
func (h *handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		h.writeError(w, r, &types.ValidationError{Field: "query", Reason: "must not be empty"})
		return
	}

	summary, err := h.Acquirer.PersistArticles(r.Context(), query)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set(AcquiredHeader, strconv.Itoa(summary.Persisted))
	w.WriteHeader(http.StatusOK)
}

func (h *handler) handleRaw(w http.ResponseWriter, r *http.Request) {
	raw, err := h.Retriever.GetArticleXML(r.Context(), r.PathValue("aid"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(raw)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(raw); err != nil {
		h.logger.WarnContext(r.Context(), "writing raw article", slog.Any("error", err))
	}
}

func (h *handler) handleFull(w http.ResponseWriter, r *http.Request) {
	full, err := h.Retriever.GetArticleFull(r.Context(), r.PathValue("aid"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, full)
}

// handleDelete removes the article. Deleting an absent article succeeds.
func (h *handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	aid := r.PathValue("aid")
	existed, err := h.Store.Delete(r.Context(), aid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !existed {
		h.logger.DebugContext(r.Context(), "delete of absent article", slog.String("aid", aid))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "health check failed", slog.Any("error", err))
		h.writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
