// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import (
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bibmine/pkg/types"
)

// FormatCSL writes citations as a CSL-YAML list to w, the form Pandoc reads
// as a bibliography.
func FormatCSL(items []types.CSLItem, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

// toCSLItem builds the citation for a projected article. Articles with a
// journal reference cite as journal articles, everything else as preprints.
func toCSLItem(a *types.FullArticle) types.CSLItem {
	item := types.CSLItem{
		ID:             a.ID,
		Type:           "article",
		Title:          a.Title,
		Abstract:       a.Abstract,
		DOI:            a.DOI,
		URL:            a.Links.Abstract,
		ContainerTitle: a.JournalRef,
	}
	if a.JournalRef != "" {
		item.Type = "article-journal"
	}

	for _, au := range a.Authors {
		if name := parseAuthorName(au.Name); name != (types.CSLName{}) {
			item.Author = append(item.Author, name)
		}
	}

	if a.Published != nil && !a.Published.IsZero() {
		d := a.Published.UTC()
		item.Issued = &types.CSLDate{
			DateParts: [][]int{{d.Year(), int(d.Month()), d.Day()}},
		}
	}
	return item
}

// parseAuthorName splits a full name string into CSL family/given parts.
// It splits on the last space: everything before is given, the last token
// is family. Single-token names use the literal field.
func parseAuthorName(name string) types.CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return types.CSLName{Literal: name}
	}
	return types.CSLName{
		Given:  name[:idx],
		Family: name[idx+1:],
	}
}
