// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for bibmine: persisted
// articles, their enriched projection, configuration, and the error taxonomy
// surfaced by the article resource.
package types

import "time"

// Article is the persisted record for one bibliographic item. The raw Atom
// entry is the source of truth; every other representation is derived from it.
type Article struct {
	// ID is the opaque article identifier (aid), e.g. "1706.03762".
	ID string `json:"id" yaml:"id"`

	// Source names the search backend that discovered the article.
	Source string `json:"source" yaml:"source"`

	// Title is copied out of RawXML for listings.
	Title string `json:"title" yaml:"title"`

	// RawXML is the Atom <entry> element as acquired.
	RawXML []byte `json:"-" yaml:"-"`

	// AcquiredAt is when the article was first persisted.
	AcquiredAt time.Time `json:"acquired_at" yaml:"acquired_at"`

	// UpdatedAt is when the article was last refreshed by an acquisition.
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Author is a person credited on an article.
type Author struct {
	Name        string `json:"name" yaml:"name"`
	Affiliation string `json:"affiliation,omitempty" yaml:"affiliation,omitempty"`
}

// ArticleLinks holds resolvable locations for an article.
type ArticleLinks struct {
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	PDF      string `json:"pdf,omitempty" yaml:"pdf,omitempty"`
	DOI      string `json:"doi,omitempty" yaml:"doi,omitempty"`
}

// FullArticle is the enriched representation returned to callers. It is
// projected from Article.RawXML on every read and never stored.
type FullArticle struct {
	ID              string       `json:"id" yaml:"id"`
	Source          string       `json:"source" yaml:"source"`
	IdentifierType  string       `json:"identifier_type" yaml:"identifier_type"`
	Title           string       `json:"title" yaml:"title"`
	Abstract        string       `json:"abstract" yaml:"abstract"`
	Authors         []Author     `json:"authors" yaml:"authors"`
	Published       *time.Time   `json:"published,omitempty" yaml:"published,omitempty"`
	Updated         *time.Time   `json:"updated,omitempty" yaml:"updated,omitempty"`
	PrimaryCategory string       `json:"primary_category,omitempty" yaml:"primary_category,omitempty"`
	Categories      []string     `json:"categories,omitempty" yaml:"categories,omitempty"`
	DOI             string       `json:"doi,omitempty" yaml:"doi,omitempty"`
	JournalRef      string       `json:"journal_ref,omitempty" yaml:"journal_ref,omitempty"`
	Comment         string       `json:"comment,omitempty" yaml:"comment,omitempty"`
	Links           ArticleLinks `json:"links" yaml:"links"`
	Citation        CSLItem      `json:"citation" yaml:"citation"`
	AcquiredAt      time.Time    `json:"acquired_at" yaml:"acquired_at"`
	UpdatedAt       time.Time    `json:"updated_at" yaml:"updated_at"`
}

// CSLItem represents a bibliographic entry in CSL (Citation Style Language)
// format so citations are consumable by Pandoc and reference managers.
type CSLItem struct {
	ID             string    `json:"id" yaml:"id"`
	Type           string    `json:"type" yaml:"type"`
	Title          string    `json:"title" yaml:"title"`
	Author         []CSLName `json:"author,omitempty" yaml:"author,omitempty"`
	Abstract       string    `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Issued         *CSLDate  `json:"issued,omitempty" yaml:"issued,omitempty"`
	DOI            string    `json:"DOI,omitempty" yaml:"DOI,omitempty"`
	URL            string    `json:"URL,omitempty" yaml:"URL,omitempty"`
	ContainerTitle string    `json:"container-title,omitempty" yaml:"container-title,omitempty"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family  string `json:"family,omitempty" yaml:"family,omitempty"`
	Given   string `json:"given,omitempty" yaml:"given,omitempty"`
	Literal string `json:"literal,omitempty" yaml:"literal,omitempty"`
}

// CSLDate represents a date in CSL format using date-parts.
type CSLDate struct {
	DateParts [][]int `json:"date-parts" yaml:"date-parts"`
}
