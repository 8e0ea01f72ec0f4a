// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package atom models the Atom <entry> element bibmine stores as an
// article's raw representation. arXiv entries are stored as received; JSON
// sources are normalised into the same shape so one parser serves every
// record.
package atom

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

const (
	// NS is the Atom namespace.
	NS = "http://www.w3.org/2005/Atom"

	// ArxivNS is the namespace of arXiv's Atom extensions.
	ArxivNS = "http://arxiv.org/schemas/atom"
)

// Entry is one Atom entry with the arXiv extension elements.
type Entry struct {
	XMLName         xml.Name   `xml:"http://www.w3.org/2005/Atom entry"`
	ID              string     `xml:"id"`
	Title           string     `xml:"title"`
	Summary         string     `xml:"summary,omitempty"`
	Published       string     `xml:"published,omitempty"`
	Updated         string     `xml:"updated,omitempty"`
	Authors         []Author   `xml:"author"`
	Links           []Link     `xml:"link"`
	Categories      []Category `xml:"category"`
	PrimaryCategory *Category  `xml:"http://arxiv.org/schemas/atom primary_category,omitempty"`
	DOI             string     `xml:"http://arxiv.org/schemas/atom doi,omitempty"`
	JournalRef      string     `xml:"http://arxiv.org/schemas/atom journal_ref,omitempty"`
	Comment         string     `xml:"http://arxiv.org/schemas/atom comment,omitempty"`
}

// Author is an Atom author with the arXiv affiliation extension.
type Author struct {
	Name        string `xml:"name"`
	Affiliation string `xml:"http://arxiv.org/schemas/atom affiliation,omitempty"`
}

// Link is an Atom link.
type Link struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr,omitempty"`
	Type  string `xml:"type,attr,omitempty"`
	Title string `xml:"title,attr,omitempty"`
}

// Category is an Atom category.
type Category struct {
	Term   string `xml:"term,attr"`
	Scheme string `xml:"scheme,attr,omitempty"`
}

// Parse decodes a single Atom entry.
func Parse(data []byte) (*Entry, error) {
	var e Entry
	if err := xml.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parsing atom entry: %w", err)
	}
	return &e, nil
}

// Marshal encodes e as a standalone, indented Atom entry.
func Marshal(e *Entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(e); err != nil {
		return nil, fmt.Errorf("encoding atom entry: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Wrap turns the inner XML of an <entry> cut out of a feed into a standalone
// document, redeclaring the namespaces the feed element carried.
func Wrap(inner []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(inner) + 128)
	buf.WriteString(xml.Header)
	fmt.Fprintf(&buf, `<entry xmlns="%s" xmlns:arxiv="%s">`, NS, ArxivNS)
	buf.Write(inner)
	buf.WriteString("</entry>\n")
	return buf.Bytes()
}

// Link returns the href of the first link matching rel and, if set, title.
func (e *Entry) Link(rel, title string) string {
	for _, l := range e.Links {
		if l.Rel != rel {
			continue
		}
		if title != "" && l.Title != title {
			continue
		}
		return l.Href
	}
	return ""
}

// PublishedTime parses Published as RFC 3339 or a bare date.
func (e *Entry) PublishedTime() (time.Time, bool) {
	return parseTime(e.Published)
}

// UpdatedTime parses Updated as RFC 3339 or a bare date.
func (e *Entry) UpdatedTime() (time.Time, bool) {
	return parseTime(e.Updated)
}

// FormatTime renders t the way arXiv does, or "" for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	for _, layout := range []string{"2006-01-02T15:04:05.999999999", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CollapseSpace trims s and folds internal runs of whitespace, which arXiv
// titles and summaries carry from line wrapping.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
