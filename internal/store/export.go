// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.yaml.in/yaml/v3"
)

// ExportEntry is one stored article in the YAML export, including its raw
// Atom entry.
type ExportEntry struct {
	ID         string    `json:"id" yaml:"id"`
	Source     string    `json:"source" yaml:"source"`
	Title      string    `json:"title" yaml:"title"`
	AcquiredAt time.Time `json:"acquired_at" yaml:"acquired_at"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"updated_at"`
	RawXML     string    `json:"raw_xml" yaml:"raw_xml"`
}

// ExportYAML writes every stored article, ordered by ID, as a YAML list to w.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer) (int, error) {
	entries, err := s.exportEntries(ctx)
	if err != nil {
		return 0, err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(entries); err != nil {
		return 0, fmt.Errorf("marshaling YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("flushing YAML: %w", err)
	}
	return len(entries), nil
}

func (s *Store) exportEntries(ctx context.Context) ([]ExportEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, title, raw_xml, acquired_at, updated_at FROM articles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	defer rows.Close()

	entries := []ExportEntry{}
	for rows.Next() {
		a, err := scanArticle(rows.Scan, true)
		if err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		entries = append(entries, ExportEntry{
			ID:         a.ID,
			Source:     a.Source,
			Title:      a.Title,
			AcquiredAt: a.AcquiredAt,
			UpdatedAt:  a.UpdatedAt,
			RawXML:     string(a.RawXML),
		})
	}
	return entries, rows.Err()
}
