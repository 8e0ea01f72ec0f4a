// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/bibmine/internal/atom"
	"github.com/pdiddy/bibmine/internal/httputil"
	"github.com/pdiddy/bibmine/internal/ident"
	"github.com/pdiddy/bibmine/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// arxivMaxResults is arXiv's per-request ceiling.
const arxivMaxResults = 2000

// arxivFieldPrefixes are arXiv search fields a query term may already carry.
var arxivFieldPrefixes = []string{"ti:", "au:", "abs:", "co:", "jr:", "cat:", "rn:", "id:", "all:"}

// ArxivBackend queries the arXiv API. Entries are persisted exactly as the
// feed returned them.
type ArxivBackend struct {
	Client *httputil.Client
}

// Name returns the backend identifier.
func (b *ArxivBackend) Name() string { return BackendArxiv }

// Search queries the arXiv API and returns one article per feed entry.
func (b *ArxivBackend) Search(ctx context.Context, query string, cfg types.SearchConfig) ([]types.Article, error) {
	q := buildArxivQuery(query)
	if q == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}

	reqURL := fmt.Sprintf("%s?search_query=%s&start=0&max_results=%d&sortBy=relevance&sortOrder=descending",
		arxivAPIBase, q, maxResults(cfg, arxivMaxResults))

	resp, err := b.Client.Get(ctx, reqURL, "application/atom+xml")
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	var articles []types.Article
	for _, entry := range feed.Entries {
		aid := ident.ArxivIDFromURL(entry.ID)
		if aid == "" {
			// arXiv reports query errors as a single entry with an /api/errors id.
			if strings.Contains(entry.ID, "/api/errors") {
				return nil, fmt.Errorf("arXiv rejected query: %s", atom.CollapseSpace(entry.Summary))
			}
			continue
		}
		articles = append(articles, types.Article{
			ID:     aid,
			Source: BackendArxiv,
			Title:  atom.CollapseSpace(entry.Title),
			RawXML: atom.Wrap(entry.Inner),
		})
	}
	return articles, nil
}

// buildArxivQuery constructs the search_query parameter. Bare terms are
// searched across all fields and ANDed; terms already carrying an arXiv field
// prefix (e.g. "au:hinton") are kept as given.
func buildArxivQuery(q string) string {
	var parts []string
	for _, term := range strings.Fields(q) {
		if hasArxivPrefix(term) {
			parts = append(parts, url.QueryEscape(term))
			continue
		}
		parts = append(parts, "all:"+url.QueryEscape(term))
	}
	return strings.Join(parts, "+AND+")
}

func hasArxivPrefix(term string) bool {
	lower := strings.ToLower(term)
	for _, p := range arxivFieldPrefixes {
		if strings.HasPrefix(lower, p) && len(term) > len(p) {
			return true
		}
	}
	return false
}

// arXiv Atom feed XML structures. Inner keeps each entry's raw markup.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID      string `xml:"id"`
	Title   string `xml:"title"`
	Summary string `xml:"summary"`
	Inner   []byte `xml:",innerxml"`
}
