// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieve loads persisted articles and projects them into the raw
// Atom representation or the enriched full representation.
package retrieve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pdiddy/bibmine/internal/atom"
	"github.com/pdiddy/bibmine/internal/ident"
	"github.com/pdiddy/bibmine/pkg/types"
)

// Reader loads one persisted article. It returns *types.NotFoundError when
// the ID does not resolve.
type Reader interface {
	Get(ctx context.Context, id string) (*types.Article, error)
}

// Retriever serves article reads from a Reader.
type Retriever struct {
	store  Reader
	logger *slog.Logger
}

// New builds a Retriever. A nil logger discards log output.
func New(store Reader, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Retriever{store: store, logger: logger}
}

// GetArticleXML returns the stored Atom entry for aid byte for byte.
func (r *Retriever) GetArticleXML(ctx context.Context, aid string) ([]byte, error) {
	a, err := r.load(ctx, aid)
	if err != nil {
		return nil, err
	}
	return a.RawXML, nil
}

// GetArticleFull returns the enriched representation of aid, derived from
// its stored Atom entry.
func (r *Retriever) GetArticleFull(ctx context.Context, aid string) (*types.FullArticle, error) {
	a, err := r.load(ctx, aid)
	if err != nil {
		return nil, err
	}
	full, err := Project(a)
	if err != nil {
		r.logger.ErrorContext(ctx, "stored article is unreadable",
			slog.String("aid", aid),
			slog.Any("error", err),
		)
		return nil, err
	}
	return full, nil
}

func (r *Retriever) load(ctx context.Context, aid string) (*types.Article, error) {
	if strings.TrimSpace(aid) == "" {
		return nil, &types.ValidationError{Field: "aid", Reason: "must not be empty"}
	}
	return r.store.Get(ctx, aid)
}

// Project parses a's raw Atom entry into a FullArticle.
func Project(a *types.Article) (*types.FullArticle, error) {
	entry, err := atom.Parse(a.RawXML)
	if err != nil {
		return nil, fmt.Errorf("projecting article %s: %w", a.ID, err)
	}

	idType, normalized := ident.Classify(a.ID)
	full := &types.FullArticle{
		ID:             a.ID,
		Source:         a.Source,
		IdentifierType: idType.String(),
		Title:          atom.CollapseSpace(entry.Title),
		Abstract:       atom.CollapseSpace(entry.Summary),
		Authors:        make([]types.Author, 0, len(entry.Authors)),
		DOI:            strings.TrimSpace(entry.DOI),
		JournalRef:     atom.CollapseSpace(entry.JournalRef),
		Comment:        atom.CollapseSpace(entry.Comment),
		AcquiredAt:     a.AcquiredAt,
		UpdatedAt:      a.UpdatedAt,
	}
	if full.Title == "" {
		full.Title = a.Title
	}

	for _, au := range entry.Authors {
		full.Authors = append(full.Authors, types.Author{
			Name:        atom.CollapseSpace(au.Name),
			Affiliation: atom.CollapseSpace(au.Affiliation),
		})
	}
	if t, ok := entry.PublishedTime(); ok {
		full.Published = &t
	}
	if t, ok := entry.UpdatedTime(); ok {
		full.Updated = &t
	}

	if entry.PrimaryCategory != nil {
		full.PrimaryCategory = entry.PrimaryCategory.Term
	}
	for _, c := range entry.Categories {
		if c.Term != "" {
			full.Categories = append(full.Categories, c.Term)
		}
	}

	full.Links = types.ArticleLinks{
		Abstract: firstNonEmpty(entry.Link("alternate", ""), ident.AbstractURL(idType, normalized)),
		PDF:      firstNonEmpty(entry.Link("related", "pdf"), ident.PDFURL(idType, normalized)),
		DOI:      firstNonEmpty(entry.Link("related", "doi"), ident.DOIURL(full.DOI)),
	}
	full.Citation = toCSLItem(full)
	return full, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
