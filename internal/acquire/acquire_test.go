// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bibmine/internal/search"
	"github.com/pdiddy/bibmine/internal/store"
	"github.com/pdiddy/bibmine/pkg/types"
)

// --- test doubles ---

type fakeBackend struct {
	name    string
	records []types.Article
	err     error
	calls   atomic.Int32
	queries []string
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Search(_ context.Context, query string, _ types.SearchConfig) ([]types.Article, error) {
	f.calls.Add(1)
	f.queries = append(f.queries, query)
	return f.records, f.err
}

type failingWriter struct{ err error }

func (w failingWriter) Upsert(context.Context, []types.Article) error { return w.err }

func record(id, source string) types.Article {
	return types.Article{
		ID:     id,
		Source: source,
		Title:  "Article " + id,
		RawXML: []byte(`<entry xmlns="http://www.w3.org/2005/Atom"><id>urn:bibmine:article:` + id + `</id></entry>`),
	}
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(types.StoreConfig{Path: filepath.Join(t.TempDir(), "bibmine.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newAcquirer(t *testing.T, w Writer, backends ...search.Backend) *Acquirer {
	t.Helper()
	a, err := New(backends, w, types.SearchConfig{MaxResults: 10}, nil)
	require.NoError(t, err)
	return a
}

// --- PersistArticles ---

func TestPersistArticlesStoresEveryRecord(t *testing.T) {
	s := testStore(t)
	arxiv := &fakeBackend{name: "arxiv", records: []types.Article{record("A123", "arxiv"), record("2301.07041", "arxiv")}}
	openalex := &fakeBackend{name: "openalex", records: []types.Article{record("W42", "openalex")}}
	a := newAcquirer(t, s, arxiv, openalex)

	ctx := context.Background()
	summary, err := a.PersistArticles(ctx, "graph neural networks")
	require.NoError(t, err)

	assert.Equal(t, "graph neural networks", summary.Query)
	assert.Equal(t, 3, summary.Persisted)
	assert.Equal(t, map[string]int{"arxiv": 2, "openalex": 1}, summary.BySource)
	assert.Equal(t, []string{"A123", "2301.07041", "W42"}, summary.IDs)
	assert.Equal(t, []string{"arxiv", "openalex"}, summary.Sources())
	assert.Equal(t, []string{"graph neural networks"}, arxiv.queries)

	for _, id := range summary.IDs {
		got, err := s.Get(ctx, id)
		require.NoError(t, err, id)
		assert.Contains(t, string(got.RawXML), id)
	}
}

func TestPersistArticlesTrimsQuery(t *testing.T) {
	b := &fakeBackend{name: "arxiv"}
	a := newAcquirer(t, testStore(t), b)

	summary, err := a.PersistArticles(context.Background(), "  transformers \n")
	require.NoError(t, err)
	assert.Equal(t, "transformers", summary.Query)
	assert.Equal(t, 0, summary.Persisted)
	assert.Equal(t, []string{"transformers"}, b.queries)
}

func TestPersistArticlesEmptyQuery(t *testing.T) {
	for _, q := range []string{"", "   ", "\t\n"} {
		b := &fakeBackend{name: "arxiv", records: []types.Article{record("A1", "arxiv")}}
		s := testStore(t)
		a := newAcquirer(t, s, b)

		_, err := a.PersistArticles(context.Background(), q)

		var ve *types.ValidationError
		require.True(t, errors.As(err, &ve), "query %q", q)
		assert.Equal(t, "query", ve.Field)
		assert.Equal(t, int32(0), b.calls.Load(), "no backend is contacted")

		n, err := s.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	}
}

func TestPersistArticlesBackendFailureWritesNothing(t *testing.T) {
	s := testStore(t)
	ok := &fakeBackend{name: "arxiv", records: []types.Article{record("A1", "arxiv")}}
	broken := &fakeBackend{name: "openalex", err: errors.New("HTTP 503")}
	a := newAcquirer(t, s, ok, broken)

	_, err := a.PersistArticles(context.Background(), "attention")

	var ae *types.AcquisitionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "search", ae.Stage)
	assert.Equal(t, "attention", ae.Query)
	assert.ErrorContains(t, ae.Err, "openalex: HTTP 503")

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPersistArticlesStoreFailure(t *testing.T) {
	cause := errors.New("database is locked")
	b := &fakeBackend{name: "arxiv", records: []types.Article{record("A1", "arxiv")}}
	a := newAcquirer(t, failingWriter{err: cause}, b)

	_, err := a.PersistArticles(context.Background(), "attention")

	var ae *types.AcquisitionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "persist", ae.Stage)
	assert.ErrorIs(t, err, cause)
}

func TestPersistArticlesNoBackends(t *testing.T) {
	a := newAcquirer(t, testStore(t))

	_, err := a.PersistArticles(context.Background(), "attention")

	var ae *types.AcquisitionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "search", ae.Stage)
}

func TestPersistArticlesRepeatUpserts(t *testing.T) {
	s := testStore(t)
	b := &fakeBackend{name: "arxiv", records: []types.Article{record("A123", "arxiv")}}
	a := newAcquirer(t, s, b)
	ctx := context.Background()

	_, err := a.PersistArticles(ctx, "graph neural networks")
	require.NoError(t, err)
	_, err = a.PersistArticles(ctx, "graph neural networks")
	require.NoError(t, err)

	assert.Equal(t, int32(2), b.calls.Load())
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPersistArticlesCollapsesSharedIDs(t *testing.T) {
	verbatim := types.Article{
		ID:     "2301.07041",
		Source: "arxiv",
		Title:  "Graph Networks",
		RawXML: []byte(`<entry xmlns="http://www.w3.org/2005/Atom" xmlns:arxiv="http://arxiv.org/schemas/atom"><id>http://arxiv.org/abs/2301.07041v1</id><arxiv:comment>12 pages</arxiv:comment></entry>`),
	}
	normalised := record("2301.07041", "semantic_scholar")

	tests := []struct {
		name  string
		order []string
	}{
		{"arxiv first", []string{"arxiv", "semantic_scholar"}},
		{"arxiv last", []string{"semantic_scholar", "arxiv"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testStore(t)
			byName := map[string]*fakeBackend{
				"arxiv":            {name: "arxiv", records: []types.Article{verbatim}},
				"semantic_scholar": {name: "semantic_scholar", records: []types.Article{normalised, record("W7", "semantic_scholar")}},
			}
			var backends []search.Backend
			for _, name := range tt.order {
				backends = append(backends, byName[name])
			}
			a := newAcquirer(t, s, backends...)
			ctx := context.Background()

			summary, err := a.PersistArticles(ctx, "graph neural networks")
			require.NoError(t, err)

			assert.Equal(t, 2, summary.Persisted)
			assert.ElementsMatch(t, []string{"2301.07041", "W7"}, summary.IDs)
			assert.Equal(t, map[string]int{"arxiv": 1, "semantic_scholar": 1}, summary.BySource)

			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			got, err := s.Get(ctx, "2301.07041")
			require.NoError(t, err)
			assert.Equal(t, "arxiv", got.Source)
			assert.Equal(t, verbatim.RawXML, got.RawXML)
			assert.Contains(t, string(got.RawXML), "<arxiv:comment>12 pages</arxiv:comment>")
		})
	}
}

func TestDedupeKeepsFirstNonArxiv(t *testing.T) {
	out := dedupe([]types.Article{
		record("W1", "openalex"),
		record("W1", "semantic_scholar"),
		record("A1", "openalex"),
	})
	require.Len(t, out, 2)
	assert.Equal(t, "openalex", out[0].Source)
	assert.Equal(t, "A1", out[1].ID)
}
