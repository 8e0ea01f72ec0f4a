// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ident classifies bibliographic identifiers and derives article IDs
// and resolvable URLs from them.
package ident

import (
	"regexp"
	"strconv"
	"strings"
)

// Type classifies an identifier.
type Type int

const (
	TypeUnknown Type = iota
	TypeArxiv
	TypeDOI
	TypeOpenAlex
	TypeSemanticScholar
)

func (t Type) String() string {
	switch t {
	case TypeArxiv:
		return "arxiv"
	case TypeDOI:
		return "doi"
	case TypeOpenAlex:
		return "openalex"
	case TypeSemanticScholar:
		return "semantic_scholar"
	default:
		return "unknown"
	}
}

// Base URLs for link resolution. Declared as vars so tests can substitute
// httptest servers.
var (
	arxivAbsBase = "https://arxiv.org/abs/"
	arxivPDFBase = "https://arxiv.org/pdf/"
	doiBase      = "https://doi.org/"
	openAlexBase = "https://openalex.org/"
)

// arxivPattern matches arXiv IDs: "2301.07041", "arXiv:2301.07041", "2301.07041v2",
// and pre-2007 IDs such as "hep-th/9901001" or "math.GT/0309136".
var arxivPattern = regexp.MustCompile(`^(?:arXiv:)?((?:\d{4}\.\d{4,5}|[a-z][a-z-]*(?:\.[A-Z]{2})?/\d{7})(?:v\d+)?)$`)

// doiPattern matches DOIs: "10.1145/1234567.1234568".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/[^\s]+$`)

// doiSlugPattern matches DOIs after Slug replaced the separator.
var doiSlugPattern = regexp.MustCompile(`^10\.\d{4,9}-[^\s]+$`)

// openAlexPattern matches OpenAlex work keys: "W2741809807".
var openAlexPattern = regexp.MustCompile(`^W\d+$`)

// s2Pattern matches Semantic Scholar paper IDs (40 hex characters).
var s2Pattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// Classify determines the identifier type and returns the normalized form.
// For arXiv, it strips the optional "arXiv:" prefix. DOI slugs produced by
// Slug classify as DOIs.
func Classify(identifier string) (Type, string) {
	identifier = strings.TrimSpace(identifier)

	if m := arxivPattern.FindStringSubmatch(identifier); m != nil {
		return TypeArxiv, m[1]
	}
	if doiPattern.MatchString(identifier) || doiSlugPattern.MatchString(identifier) {
		return TypeDOI, identifier
	}
	if openAlexPattern.MatchString(identifier) {
		return TypeOpenAlex, identifier
	}
	if s2Pattern.MatchString(identifier) {
		return TypeSemanticScholar, identifier
	}
	return TypeUnknown, identifier
}

// Slug returns the article ID for the identifier. DOIs lose their slash;
// pre-2007 arXiv IDs keep theirs, so HTTP callers percent-encode it as %2F.
func Slug(t Type, normalized string) string {
	switch t {
	case TypeArxiv:
		return StripVersion(normalized)
	case TypeDOI:
		return strings.NewReplacer("/", "-", ":", "-").Replace(strings.ToLower(normalized))
	case TypeOpenAlex:
		return strings.TrimPrefix(normalized, openAlexBase)
	default:
		return normalized
	}
}

// StripVersion removes an arXiv version suffix ("2301.07041v2" → "2301.07041").
func StripVersion(id string) string {
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			return id[:vIdx]
		}
	}
	return id
}

// ArxivIDFromURL pulls the versionless arXiv ID from an Atom <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func ArxivIDFromURL(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	return StripVersion(idURL[idx+len(prefix):])
}

// AbstractURL returns the landing page for an identifier, or "".
func AbstractURL(t Type, normalized string) string {
	switch t {
	case TypeArxiv:
		return arxivAbsBase + normalized
	case TypeOpenAlex:
		return openAlexBase + normalized
	default:
		return ""
	}
}

// PDFURL returns the PDF location for an identifier, or "" when the
// identifier has no stable PDF endpoint.
func PDFURL(t Type, normalized string) string {
	if t == TypeArxiv {
		return arxivPDFBase + normalized
	}
	return ""
}

// DOIURL returns the doi.org resolver URL for a bare DOI.
func DOIURL(doi string) string {
	if doi == "" {
		return ""
	}
	return doiBase + doi
}

// BareDOI strips resolver prefixes from a DOI ("https://doi.org/10.1/x" → "10.1/x").
func BareDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "http://dx.doi.org/", "doi:"} {
		doi = strings.TrimPrefix(doi, prefix)
	}
	return doi
}
