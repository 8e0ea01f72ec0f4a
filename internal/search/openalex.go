// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/bibmine/internal/atom"
	"github.com/pdiddy/bibmine/internal/httputil"
	"github.com/pdiddy/bibmine/internal/ident"
	"github.com/pdiddy/bibmine/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

const openAlexMaxResults = 200

// OpenAlexBackend queries the OpenAlex API and normalises works into Atom
// entries.
type OpenAlexBackend struct {
	Client *httputil.Client
	// Email is sent as mailto parameter for polite pool access.
	Email string
}

// Name returns the backend identifier.
func (b *OpenAlexBackend) Name() string { return BackendOpenAlex }

// Search queries the OpenAlex API and returns one article per work.
func (b *OpenAlexBackend) Search(ctx context.Context, query string, cfg types.SearchConfig) ([]types.Article, error) {
	searchText := strings.Join(strings.Fields(query), " ")
	if searchText == "" {
		return nil, fmt.Errorf("empty OpenAlex query")
	}

	params := url.Values{
		"search":   {searchText},
		"per_page": {strconv.Itoa(maxResults(cfg, openAlexMaxResults))},
		"page":     {"1"},
	}
	if b.Email != "" {
		params.Set("mailto", b.Email)
	}

	resp, err := b.Client.Get(ctx, openAlexSearchBase+"?"+params.Encode(), "application/json")
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	var articles []types.Article
	for _, work := range oar.Results {
		aid := openAlexArticleID(work)
		if aid == "" {
			continue
		}
		raw, err := atom.Marshal(openAlexEntry(aid, work))
		if err != nil {
			return nil, fmt.Errorf("normalising OpenAlex work %s: %w", work.ID, err)
		}
		articles = append(articles, types.Article{
			ID:     aid,
			Source: BackendOpenAlex,
			Title:  atom.CollapseSpace(work.Title),
			RawXML: raw,
		})
	}
	return articles, nil
}

// openAlexArticleID prefers the DOI, since OpenAlex is DOI-centric, and
// falls back to the work key.
func openAlexArticleID(work openAlexWork) string {
	if doi := ident.BareDOI(work.DOI); doi != "" {
		return ident.Slug(ident.TypeDOI, doi)
	}
	if work.ID != "" {
		return ident.Slug(ident.TypeOpenAlex, work.ID)
	}
	return ""
}

func openAlexEntry(aid string, work openAlexWork) *atom.Entry {
	e := &atom.Entry{
		ID:        URN(aid),
		Title:     work.Title,
		Summary:   reconstructAbstract(work.AbstractInvertedIndex),
		Published: work.PublicationDate,
		Updated:   work.UpdatedDate,
		DOI:       ident.BareDOI(work.DOI),
	}
	if e.Published == "" && work.PublicationYear > 0 {
		e.Published = fmt.Sprintf("%04d-01-01", work.PublicationYear)
	}

	for _, authorship := range work.Authorships {
		if authorship.Author.DisplayName == "" {
			continue
		}
		a := atom.Author{Name: authorship.Author.DisplayName}
		if len(authorship.Institutions) > 0 {
			a.Affiliation = authorship.Institutions[0].DisplayName
		}
		e.Authors = append(e.Authors, a)
	}

	if work.ID != "" {
		e.Links = append(e.Links, atom.Link{Href: work.ID, Rel: "alternate", Type: "text/html"})
	}
	if work.OpenAccess.OAURL != "" {
		e.Links = append(e.Links, atom.Link{Href: work.OpenAccess.OAURL, Rel: "related", Type: "application/pdf", Title: "pdf"})
	}
	if e.DOI != "" {
		e.Links = append(e.Links, atom.Link{Href: ident.DOIURL(e.DOI), Rel: "related", Title: "doi"})
	}

	if work.PrimaryTopic != nil && work.PrimaryTopic.DisplayName != "" {
		e.PrimaryCategory = &atom.Category{Term: work.PrimaryTopic.DisplayName, Scheme: "https://openalex.org/topics"}
	}
	for _, c := range work.Concepts {
		e.Categories = append(e.Categories, atom.Category{Term: c.DisplayName, Scheme: "https://openalex.org/concepts"})
	}
	if work.PrimaryLocation != nil && work.PrimaryLocation.Source != nil {
		e.JournalRef = work.PrimaryLocation.Source.DisplayName
	}
	return e
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to a list of positions
// where that word appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationDate       string               `json:"publication_date"`
	PublicationYear       int                  `json:"publication_year"`
	UpdatedDate           string               `json:"updated_date"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	OpenAccess            openAlexOpenAccess   `json:"open_access"`
	PrimaryLocation       *openAlexLocation    `json:"primary_location"`
	PrimaryTopic          *openAlexNamed       `json:"primary_topic"`
	Concepts              []openAlexNamed      `json:"concepts"`
}

type openAlexAuthorship struct {
	Author       openAlexNamed   `json:"author"`
	Institutions []openAlexNamed `json:"institutions"`
}

type openAlexNamed struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type openAlexLocation struct {
	LandingPageURL string         `json:"landing_page_url"`
	Source         *openAlexNamed `json:"source"`
}

type openAlexOpenAccess struct {
	IsOA  bool   `json:"is_oa"`
	OAURL string `json:"oa_url"`
}
