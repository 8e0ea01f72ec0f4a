// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/bibmine/internal/atom"
	"github.com/pdiddy/bibmine/internal/httputil"
	"github.com/pdiddy/bibmine/internal/ident"
	"github.com/pdiddy/bibmine/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const (
	semanticFields     = "title,abstract,authors,externalIds,year,publicationDate,venue,url,openAccessPdf,fieldsOfStudy"
	semanticMaxResults = 100
)

// SemanticScholarBackend queries the Semantic Scholar API and normalises
// papers into Atom entries.
type SemanticScholarBackend struct {
	Client *httputil.Client
	APIKey string
}

// Name returns the backend identifier.
func (b *SemanticScholarBackend) Name() string { return BackendSemanticScholar }

// Search queries the Semantic Scholar API and returns one article per paper.
func (b *SemanticScholarBackend) Search(ctx context.Context, query string, cfg types.SearchConfig) ([]types.Article, error) {
	q := strings.Join(strings.Fields(query), " ")
	if q == "" {
		return nil, fmt.Errorf("empty Semantic Scholar query")
	}

	params := url.Values{
		"query":  {q},
		"limit":  {strconv.Itoa(maxResults(cfg, semanticMaxResults))},
		"fields": {semanticFields},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, semanticAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", b.Client.UserAgent)
	req.Header.Set("Accept", "application/json")
	if b.APIKey != "" {
		req.Header.Set("x-api-key", b.APIKey)
	}

	resp, err := b.Client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	var articles []types.Article
	for _, paper := range sr.Data {
		aid, entryID := semanticArticleID(paper)
		if aid == "" {
			continue
		}
		raw, err := atom.Marshal(semanticEntry(entryID, paper))
		if err != nil {
			return nil, fmt.Errorf("normalising Semantic Scholar paper %s: %w", paper.PaperID, err)
		}
		articles = append(articles, types.Article{
			ID:     aid,
			Source: BackendSemanticScholar,
			Title:  atom.CollapseSpace(paper.Title),
			RawXML: raw,
		})
	}
	return articles, nil
}

// semanticArticleID prefers the arXiv ID so the record upserts onto the
// same article an arXiv search would find, then the DOI, then the paperId.
// It also returns the Atom id for the normalised entry.
func semanticArticleID(paper semanticPaper) (aid, entryID string) {
	switch {
	case paper.ExternalIDs.ArXiv != "":
		aid = ident.StripVersion(paper.ExternalIDs.ArXiv)
		return aid, ident.AbstractURL(ident.TypeArxiv, aid)
	case paper.ExternalIDs.DOI != "":
		aid = ident.Slug(ident.TypeDOI, paper.ExternalIDs.DOI)
	default:
		aid = paper.PaperID
	}
	if aid == "" {
		return "", ""
	}
	return aid, URN(aid)
}

func semanticEntry(entryID string, paper semanticPaper) *atom.Entry {
	e := &atom.Entry{
		ID:         entryID,
		Title:      paper.Title,
		Summary:    paper.Abstract,
		Published:  paper.PublicationDate,
		DOI:        ident.BareDOI(paper.ExternalIDs.DOI),
		JournalRef: paper.Venue,
	}
	if e.Published == "" && paper.Year > 0 {
		e.Published = fmt.Sprintf("%04d-01-01", paper.Year)
	}
	for _, a := range paper.Authors {
		if a.Name != "" {
			e.Authors = append(e.Authors, atom.Author{Name: a.Name})
		}
	}
	if paper.URL != "" {
		e.Links = append(e.Links, atom.Link{Href: paper.URL, Rel: "alternate", Type: "text/html"})
	}
	if paper.OpenAccessPDF != nil && paper.OpenAccessPDF.URL != "" {
		e.Links = append(e.Links, atom.Link{Href: paper.OpenAccessPDF.URL, Rel: "related", Type: "application/pdf", Title: "pdf"})
	}
	if e.DOI != "" {
		e.Links = append(e.Links, atom.Link{Href: ident.DOIURL(e.DOI), Rel: "related", Title: "doi"})
	}
	for i, field := range paper.FieldsOfStudy {
		c := atom.Category{Term: field, Scheme: "https://www.semanticscholar.org/fields-of-study"}
		if i == 0 {
			primary := c
			e.PrimaryCategory = &primary
		}
		e.Categories = append(e.Categories, c)
	}
	return e
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID         string              `json:"paperId"`
	Title           string              `json:"title"`
	Abstract        string              `json:"abstract"`
	Year            int                 `json:"year"`
	PublicationDate string              `json:"publicationDate"`
	Venue           string              `json:"venue"`
	URL             string              `json:"url"`
	Authors         []semanticAuthor    `json:"authors"`
	ExternalIDs     semanticExternalIDs `json:"externalIds"`
	OpenAccessPDF   *semanticPDF        `json:"openAccessPdf"`
	FieldsOfStudy   []string            `json:"fieldsOfStudy"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}

type semanticPDF struct {
	URL string `json:"url"`
}
