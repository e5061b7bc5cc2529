// Package gallery provides browsing helpers over stored metadata
// records: label filtering and listing order.
package gallery

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kozaktomas/photo-ingest/internal/store"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "pláž" -> "plaz").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeLabel normalizes a label for comparison (lowercase, no
// diacritics, trimmed).
func NormalizeLabel(label string) string {
	return strings.ToLower(RemoveDiacritics(strings.TrimSpace(label)))
}

// FilterByLabel returns the records carrying the given label. Matching
// is case- and diacritic-insensitive; an empty query returns everything.
func FilterByLabel(records []*store.Record, label string) []*store.Record {
	query := NormalizeLabel(label)
	if query == "" {
		return records
	}

	filtered := make([]*store.Record, 0, len(records))
	for _, record := range records {
		for _, l := range record.Labels {
			if NormalizeLabel(l) == query {
				filtered = append(filtered, record)
				break
			}
		}
	}
	return filtered
}

// SortByUploadTime orders records newest first, with the id as a
// tiebreaker so the order is stable across calls.
func SortByUploadTime(records []*store.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Metadata.UploadedAt.Equal(records[j].Metadata.UploadedAt) {
			return records[i].Metadata.UploadedAt.After(records[j].Metadata.UploadedAt)
		}
		return records[i].ID < records[j].ID
	})
}

// Labels returns the distinct labels across all records, sorted
// alphabetically, for filter pickers.
func Labels(records []*store.Record) []string {
	seen := make(map[string]string)
	for _, record := range records {
		for _, label := range record.Labels {
			key := NormalizeLabel(label)
			if _, ok := seen[key]; !ok {
				seen[key] = label
			}
		}
	}

	labels := make([]string, 0, len(seen))
	for _, label := range seen {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
