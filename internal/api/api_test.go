// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bibmine/internal/acquire"
	"github.com/pdiddy/bibmine/internal/atom"
	"github.com/pdiddy/bibmine/internal/auth"
	"github.com/pdiddy/bibmine/internal/retrieve"
	"github.com/pdiddy/bibmine/internal/search"
	"github.com/pdiddy/bibmine/internal/store"
	"github.com/pdiddy/bibmine/pkg/types"
)

const (
	userToken  = "user-secret"
	guestToken = "guest-secret"
)

// --- test doubles ---

type recordingBackend struct {
	name    string
	mu      sync.Mutex
	queries []string
	records []types.Article
	err     error
}

func (b *recordingBackend) Name() string {
	if b.name == "" {
		return "arxiv"
	}
	return b.name
}

func (b *recordingBackend) Search(_ context.Context, query string, _ types.SearchConfig) ([]types.Article, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queries = append(b.queries, query)
	return b.records, b.err
}

func (b *recordingBackend) calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.queries...)
}

type stubAcquirer struct {
	calls int
	err   error
}

func (s *stubAcquirer) PersistArticles(_ context.Context, query string) (acquire.Summary, error) {
	s.calls++
	return acquire.Summary{Query: query}, s.err
}

type stubRetriever struct{ err error }

func (s stubRetriever) GetArticleXML(context.Context, string) ([]byte, error) {
	return nil, s.err
}

func (s stubRetriever) GetArticleFull(context.Context, string) (*types.FullArticle, error) {
	return nil, s.err
}

type stubStore struct {
	deleteErr error
	pingErr   error
}

func (s stubStore) Delete(context.Context, string) (bool, error) { return false, s.deleteErr }
func (s stubStore) Ping(context.Context) error                 { return s.pingErr }

// --- fixtures ---

func arxivRecord(t *testing.T, id, title string) types.Article {
	t.Helper()
	raw, err := atom.Marshal(&atom.Entry{
		ID:        "http://arxiv.org/abs/" + id + "v1",
		Title:     title,
		Summary:   "Message passing on graphs.",
		Published: "2023-01-17T18:58:04Z",
		Authors:   []atom.Author{{Name: "Ada Lovelace"}},
		Links: []atom.Link{
			{Href: "http://arxiv.org/abs/" + id + "v1", Rel: "alternate", Type: "text/html"},
			{Href: "http://arxiv.org/pdf/" + id + "v1", Rel: "related", Title: "pdf"},
		},
	})
	require.NoError(t, err)
	return types.Article{ID: id, Source: "arxiv", Title: title, RawXML: raw}
}

func testGuard(t *testing.T) *auth.Guard {
	t.Helper()
	a, err := auth.NewAuthenticator([]types.TokenConfig{
		{Token: userToken, Subject: "alice", Roles: []string{"user"}},
		{Token: guestToken, Subject: "mallory", Roles: []string{"guest"}},
	})
	require.NoError(t, err)
	return auth.NewGuard(a, auth.DefaultPolicy())
}

type stack struct {
	server  *httptest.Server
	backend *recordingBackend
	store   *store.Store
}

// newStack wires the real acquirer, retriever and store behind the handler.
func newStack(t *testing.T, records ...types.Article) *stack {
	t.Helper()
	return newMultiStack(t, &recordingBackend{records: records})
}

// newMultiStack is newStack with several backends; the first is recorded.
func newMultiStack(t *testing.T, backends ...*recordingBackend) *stack {
	t.Helper()
	s, err := store.Open(types.StoreConfig{Path: filepath.Join(t.TempDir(), "bibmine.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	list := make([]search.Backend, 0, len(backends))
	for _, b := range backends {
		list = append(list, b)
	}
	acq, err := acquire.New(list, s, types.SearchConfig{MaxResults: 10}, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(NewHandler(Deps{
		Acquirer:  acq,
		Retriever: retrieve.New(s, nil),
		Store:     s,
		Guard:     testGuard(t),
	}))
	t.Cleanup(srv.Close)
	return &stack{server: srv, backend: backends[0], store: s}
}

func newStubServer(t *testing.T, deps Deps) *httptest.Server {
	t.Helper()
	if deps.Acquirer == nil {
		deps.Acquirer = &stubAcquirer{}
	}
	if deps.Retriever == nil {
		deps.Retriever = stubRetriever{}
	}
	if deps.Store == nil {
		deps.Store = stubStore{}
	}
	deps.Guard = testGuard(t)
	srv := httptest.NewServer(NewHandler(deps))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, rawURL, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, rawURL, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func decodeError(t *testing.T, resp *http.Response) ErrorDetail {
	t.Helper()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var body ErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Error
}

func searchURL(base, query string) string {
	return base + "/articles?query=" + url.QueryEscape(query)
}

// --- search-and-acquire ---

func TestSearchAcquiresOnce(t *testing.T) {
	st := newStack(t, arxivRecord(t, "2301.07041", "Graph Networks"), arxivRecord(t, "A123", "Attention"))

	resp := do(t, http.MethodGet, searchURL(st.server.URL, "graph neural networks"), userToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, readBody(t, resp))
	assert.Equal(t, "2", resp.Header.Get(AcquiredHeader))

	assert.Equal(t, []string{"graph neural networks"}, st.backend.calls())
	n, err := st.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	st := newStack(t, arxivRecord(t, "A123", "Attention"))

	for _, target := range []string{"/articles", "/articles?query=", "/articles?query=%20%20"} {
		resp := do(t, http.MethodGet, st.server.URL+target, userToken)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, target)
		detail := decodeError(t, resp)
		assert.Equal(t, CodeValidation, detail.Code, target)
		assert.Contains(t, detail.Message, "query", target)
	}
	assert.Empty(t, st.backend.calls())
}

func TestSearchBackendFailure(t *testing.T) {
	st := newStack(t)
	st.backend.err = errors.New("upstream exploded")

	resp := do(t, http.MethodGet, searchURL(st.server.URL, "graph neural networks"), userToken)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	detail := decodeError(t, resp)
	assert.Equal(t, CodeAcquisition, detail.Code)
	assert.Equal(t, "acquisition failed during search", detail.Message)
	assert.NotContains(t, detail.Message, "upstream exploded")
}

func TestSearchCountsSharedIDsOnce(t *testing.T) {
	arxiv := &recordingBackend{records: []types.Article{arxivRecord(t, "2301.07041", "Graph Networks")}}
	s2 := &recordingBackend{name: "semantic_scholar", records: []types.Article{{
		ID:     "2301.07041",
		Source: "semantic_scholar",
		Title:  "Graph Networks",
		RawXML: []byte(`<entry xmlns="http://www.w3.org/2005/Atom"><id>urn:bibmine:article:2301.07041</id></entry>`),
	}}}
	st := newMultiStack(t, arxiv, s2)

	resp := do(t, http.MethodGet, searchURL(st.server.URL, "graph neural networks"), userToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get(AcquiredHeader))

	resp = do(t, http.MethodGet, st.server.URL+"/articles/full/2301.07041", userToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var full types.FullArticle
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&full))
	assert.Equal(t, "arxiv", full.Source)
	assert.Equal(t, "Message passing on graphs.", full.Abstract)
}

// --- fetch raw / full ---

func TestFetchRawAndFull(t *testing.T) {
	st := newStack(t, arxivRecord(t, "A123", "Attention Is All You Need"))
	do(t, http.MethodGet, searchURL(st.server.URL, "attention"), userToken)

	resp := do(t, http.MethodGet, st.server.URL+"/articles/A123", userToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/xml; charset=utf-8", resp.Header.Get("Content-Type"))
	raw := readBody(t, resp)
	assert.Contains(t, raw, "A123")
	assert.Contains(t, raw, "<entry")

	resp = do(t, http.MethodGet, st.server.URL+"/articles/full/A123", userToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var full types.FullArticle
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&full))
	assert.Equal(t, "A123", full.ID)
	assert.Equal(t, "Attention Is All You Need", full.Title)
	assert.Equal(t, "arxiv", full.Source)
	require.Len(t, full.Authors, 1)
	assert.Equal(t, "Ada Lovelace", full.Authors[0].Name)
	assert.Equal(t, "http://arxiv.org/pdf/A123v1", full.Links.PDF)
}

func TestFetchMissing(t *testing.T) {
	st := newStack(t)

	for _, target := range []string{"/articles/missing", "/articles/full/missing"} {
		resp := do(t, http.MethodGet, st.server.URL+target, userToken)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, target)
		detail := decodeError(t, resp)
		assert.Equal(t, CodeNotFound, detail.Code, target)
		assert.Contains(t, detail.Message, "missing", target)
	}
}

// --- delete ---

func TestDeleteThenFetch(t *testing.T) {
	st := newStack(t, arxivRecord(t, "A123", "Attention"))
	do(t, http.MethodGet, searchURL(st.server.URL, "attention"), userToken)

	resp := do(t, http.MethodDelete, st.server.URL+"/articles/A123", userToken)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, readBody(t, resp))

	resp = do(t, http.MethodGet, st.server.URL+"/articles/A123", userToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodDelete, st.server.URL+"/articles/A123", userToken)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

// --- authorization ---

func TestAuthorization(t *testing.T) {
	st := newStack(t, arxivRecord(t, "A123", "Attention"))

	targets := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/articles?query=attention"},
		{http.MethodGet, "/articles/A123"},
		{http.MethodGet, "/articles/full/A123"},
		{http.MethodDelete, "/articles/A123"},
	}
	for _, tt := range targets {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := do(t, tt.method, st.server.URL+tt.path, "")
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, `Bearer realm="bibmine"`, resp.Header.Get("WWW-Authenticate"))
			assert.Equal(t, CodeUnauthorized, decodeError(t, resp).Code)

			resp = do(t, tt.method, st.server.URL+tt.path, "not-a-token")
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			resp = do(t, tt.method, st.server.URL+tt.path, guestToken)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			detail := decodeError(t, resp)
			assert.Equal(t, CodeForbidden, detail.Code)
			assert.Contains(t, detail.Message, "user")
		})
	}
	assert.Empty(t, st.backend.calls())
}

// --- error mapping ---

func TestUnclassifiedErrorsAreInternal(t *testing.T) {
	srv := newStubServer(t, Deps{
		Retriever: stubRetriever{err: errors.New("disk on fire")},
		Store:     stubStore{deleteErr: errors.New("disk on fire")},
	})

	for _, tt := range []struct{ method, path string }{
		{http.MethodGet, "/articles/A123"},
		{http.MethodGet, "/articles/full/A123"},
		{http.MethodDelete, "/articles/A123"},
	} {
		resp := do(t, tt.method, srv.URL+tt.path, userToken)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, tt.path)
		detail := decodeError(t, resp)
		assert.Equal(t, CodeInternal, detail.Code, tt.path)
		assert.NotContains(t, detail.Message, "disk on fire", tt.path)
	}
}

func TestPersistFailureIsAcquisitionError(t *testing.T) {
	acq := &stubAcquirer{err: &types.AcquisitionError{Query: "q", Stage: "persist", Err: errors.New("locked")}}
	srv := newStubServer(t, Deps{Acquirer: acq})

	resp := do(t, http.MethodGet, searchURL(srv.URL, "q"), userToken)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	detail := decodeError(t, resp)
	assert.Equal(t, CodeAcquisition, detail.Code)
	assert.Equal(t, "acquisition failed during persist", detail.Message)
	assert.Equal(t, 1, acq.calls)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &types.ValidationError{Field: "aid", Reason: "must not be empty"}, http.StatusBadRequest, CodeValidation},
		{"unauthenticated", &types.AuthorizationError{Unauthenticated: true}, http.StatusUnauthorized, CodeUnauthorized},
		{"forbidden", &types.AuthorizationError{Role: "user"}, http.StatusForbidden, CodeForbidden},
		{"not found", &types.NotFoundError{ID: "x"}, http.StatusNotFound, CodeNotFound},
		{"wrapped not found", errors.Join(errors.New("ctx"), &types.NotFoundError{ID: "x"}), http.StatusNotFound, CodeNotFound},
		{"acquisition", &types.AcquisitionError{Stage: "search"}, http.StatusInternalServerError, CodeAcquisition},
		{"other", io.ErrUnexpectedEOF, http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, _ := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

// --- request ID and health ---

func TestRequestID(t *testing.T) {
	srv := newStubServer(t, Deps{Retriever: stubRetriever{err: &types.NotFoundError{ID: "x"}}})

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/articles/x", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+userToken)
	req.Header.Set(RequestIDHeader, "req-42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "req-42", resp.Header.Get(RequestIDHeader))
	assert.Equal(t, "req-42", decodeError(t, resp).RequestID)

	resp = do(t, http.MethodGet, srv.URL+"/articles/x", userToken)
	generated := resp.Header.Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, decodeError(t, resp).RequestID)
}

func TestValidRequestID(t *testing.T) {
	assert.True(t, validRequestID("abc-123"))
	assert.False(t, validRequestID(""))
	assert.False(t, validRequestID("has space"))
	assert.False(t, validRequestID(strings.Repeat("a", maxRequestIDLen+1)))
}

func TestHealth(t *testing.T) {
	srv := newStubServer(t, Deps{})
	resp := do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, readBody(t, resp))

	srv = newStubServer(t, Deps{Store: stubStore{pingErr: errors.New("closed")}})
	resp = do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestUnmatchedRoutesUseEnvelope(t *testing.T) {
	srv := newStubServer(t, Deps{})

	tests := []struct {
		method string
		path   string
		status int
		code   string
		allow  string
	}{
		{http.MethodPost, "/articles/A123", http.StatusMethodNotAllowed, CodeMethodNotAllowed, "GET, DELETE"},
		{http.MethodPut, "/articles/x", http.StatusMethodNotAllowed, CodeMethodNotAllowed, "GET, DELETE"},
		{http.MethodDelete, "/articles", http.StatusMethodNotAllowed, CodeMethodNotAllowed, "GET"},
		{http.MethodPost, "/healthz", http.StatusMethodNotAllowed, CodeMethodNotAllowed, "GET"},
		{http.MethodGet, "/nope", http.StatusNotFound, CodeNotFound, ""},
		{http.MethodGet, "/articles/hep-th/9901001", http.StatusNotFound, CodeNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			require.NoError(t, err)
			req.Header.Set(RequestIDHeader, "req-7")
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.allow, resp.Header.Get("Allow"))
			detail := decodeError(t, resp)
			assert.Equal(t, tt.code, detail.Code)
			assert.Equal(t, "req-7", detail.RequestID)
		})
	}
}

func TestOldStyleArxivIDIsPercentEncoded(t *testing.T) {
	st := newStack(t, arxivRecord(t, "hep-th/9901001", "Large N Limits"))
	do(t, http.MethodGet, searchURL(st.server.URL, "large n"), userToken)

	resp := do(t, http.MethodGet, st.server.URL+"/articles/"+url.PathEscape("hep-th/9901001"), userToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "hep-th/9901001")

	resp = do(t, http.MethodGet, st.server.URL+"/articles/full/hep-th%2F9901001", userToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var full types.FullArticle
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&full))
	assert.Equal(t, "hep-th/9901001", full.ID)
	assert.Equal(t, "arxiv", full.IdentifierType)

	resp = do(t, http.MethodDelete, st.server.URL+"/articles/hep-th%2F9901001", userToken)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, err := st.store.Get(context.Background(), "hep-th/9901001")
	var nf *types.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

// --- server lifecycle ---

func TestServerRunAndShutdown(t *testing.T) {
	srv := NewServer(types.ServerConfig{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second},
		NewHandler(Deps{Store: stubStore{}, Guard: testGuard(t)}), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	require.Eventually(t, func() bool {
		if srv.Addr() == "127.0.0.1:0" {
			return false
		}
		resp, err := http.Get("http://" + srv.Addr() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServerRunReturnsServeFailure(t *testing.T) {
	srv := NewServer(types.ServerConfig{Addr: "127.0.0.1:0"}, http.NotFoundHandler(), nil)

	done := make(chan error, 1)
	go func() { done <- srv.Run(context.Background()) }()

	require.Eventually(t, func() bool { return srv.Addr() != "127.0.0.1:0" }, 2*time.Second, 10*time.Millisecond)

	srv.mu.Lock()
	require.NoError(t, srv.listener.Close())
	srv.mu.Unlock()

	select {
	case err := <-done:
		assert.ErrorContains(t, err, "serving on")
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after the listener failed")
	}
}

func TestNewServerDefaults(t *testing.T) {
	srv := NewServer(types.ServerConfig{}, http.NotFoundHandler(), nil)
	assert.Equal(t, defaultAddr, srv.Addr())
	assert.Equal(t, defaultShutdownTimeout, srv.shutdownTimeout)
	assert.Equal(t, defaultReadHeaderTimeout, srv.server.ReadHeaderTimeout)
}
