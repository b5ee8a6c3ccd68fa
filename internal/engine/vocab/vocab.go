// Package vocab builds the known-morph lookup table from an AnkiMorphs
// CSV export. The table maps lemma+inflection keys to morph records and is
// always replaced wholesale, never patched row by row.
package vocab

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// MorphRecord is one vocabulary unit from the CSV export.
// Pointer fields are nil when the column is absent or unparsable.
type MorphRecord struct {
	Lemma              string `json:"lemma"`
	Inflection         string `json:"inflection"`
	Occurrence         *int   `json:"occurrence,omitempty"`
	LemmaPriority      *int   `json:"lemma_priority,omitempty"`
	InflectionPriority *int   `json:"inflection_priority,omitempty"`
	Interval           *int   `json:"interval,omitempty"`
	LemmaInterval      *int   `json:"lemma_interval,omitempty"`
	InflectionInterval *int   `json:"inflection_interval,omitempty"`
}

// Key is the exact concatenation of lemma and inflection, no normalization.
// AnkiMorphs uses the same key format, so scores stay comparable.
func (m MorphRecord) Key() string { return m.Lemma + m.Inflection }

// Table is the known-morph lookup, keyed by MorphRecord.Key().
type Table struct {
	morphs map[string]MorphRecord
}

// Len returns the number of distinct lemma+inflection keys.
func (t *Table) Len() int { return len(t.morphs) }

// Contains reports whether the exact lemma+inflection key is known.
func (t *Table) Contains(key string) bool {
	_, ok := t.morphs[key]
	return ok
}

// Lookup returns the record for a lemma+inflection key.
func (t *Table) Lookup(key string) (MorphRecord, bool) {
	m, ok := t.morphs[key]
	return m, ok
}

// Records returns all records. Order is unspecified.
func (t *Table) Records() []MorphRecord {
	out := make([]MorphRecord, 0, len(t.morphs))
	for _, m := range t.morphs {
		out = append(out, m)
	}
	return out
}

// FormatError reports CSV input that cannot produce a table at all:
// too few lines, a header without the lemma column, or zero valid rows.
// Individual bad rows are skipped with a warning instead.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string { return "vocab: " + e.Reason }

// Semantic columns recognized in the header.
const (
	colLemma = iota
	colInflection
	colOccurrence
	colLemmaPriority
	colInflectionPriority
	colInterval
	colLemmaInterval
	colInflectionInterval
)

// headerAliases maps lowercased header cells to semantic columns.
// AnkiMorphs renamed several columns across releases; all spellings are accepted.
var headerAliases = map[string]int{
	"morph-lemma":                          colLemma,
	"morph_lemma":                          colLemma,
	"lemma":                                colLemma,
	"morph-inflection":                     colInflection,
	"morph_inflection":                     colInflection,
	"inflection":                           colInflection,
	"occurrence":                           colOccurrence,
	"occurrences":                          colOccurrence,
	"occurrence(s)":                        colOccurrence,
	"lemma-priority":                       colLemmaPriority,
	"inflection-priority":                  colInflectionPriority,
	"interval":                             colInterval,
	"learning-interval":                    colInterval,
	"highest-learning-interval":            colInterval,
	"lemma-interval":                       colLemmaInterval,
	"highest-lemma-learning-interval":      colLemmaInterval,
	"inflection-interval":                  colInflectionInterval,
	"highest-inflection-learning-interval": colInflectionInterval,
}

// splitFields tokenizes one CSV line. Double quotes toggle quoted mode, a
// doubled quote inside a quoted field is a literal quote, and commas inside
// quotes are not separators. Header and data rows go through this same
// function so both sides agree on quoting.
func splitFields(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				cur.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case r == ',' && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	fields = append(fields, cur.String())
	return fields
}

// parseHeader maps each header cell position to a semantic column.
func parseHeader(line string) map[int]int {
	cols := make(map[int]int)
	for i, cell := range splitFields(line) {
		name := strings.ToLower(strings.TrimSpace(cell))
		if col, ok := headerAliases[name]; ok {
			// First occurrence wins when an export repeats a column.
			taken := false
			for _, c := range cols {
				if c == col {
					taken = true
					break
				}
			}
			if !taken {
				cols[i] = col
			}
		}
	}
	return cols
}

// parseOptionalInt parses a numeric cell. Unparsable values are treated as
// absent, not fatal — exports occasionally carry "-" or empty placeholders.
func parseOptionalInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// splitLines breaks CSV text into lines, tolerating CRLF and a trailing newline.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

// Parse builds a Table from CSV text.
//
// Returns a *FormatError when the input has fewer than two lines, the header
// lacks a lemma column, or no row survives parsing. A single malformed row
// is skipped with a warning; parsing never aborts on one bad row.
func Parse(text string) (*Table, error) {
	lines := splitLines(text)
	if len(lines) < 2 {
		return nil, &FormatError{Reason: fmt.Sprintf("csv needs a header and at least one row, got %d lines", len(lines))}
	}

	cols := parseHeader(lines[0])
	lemmaIdx := -1
	for i, col := range cols {
		if col == colLemma {
			lemmaIdx = i
			break
		}
	}
	if lemmaIdx < 0 {
		return nil, &FormatError{Reason: "header has no Morph-Lemma column"}
	}

	t := &Table{morphs: make(map[string]MorphRecord, len(lines)-1)}
	skipped := 0
	for n, line := range lines[1:] {
		rec, ok := parseRow(line, cols, lemmaIdx)
		if !ok {
			skipped++
			slog.Warn("vocab: skipping malformed row", slog.Int("line", n+2))
			continue
		}
		if rec.Lemma == "" {
			continue // row without a lemma carries no key
		}
		// Later duplicates overwrite earlier ones.
		t.morphs[rec.Key()] = rec
	}

	if t.Len() == 0 {
		return nil, &FormatError{Reason: "no valid rows in csv"}
	}
	if skipped > 0 {
		slog.Warn("vocab: rows skipped", slog.Int("skipped", skipped), slog.Int("kept", t.Len()))
	}
	return t, nil
}

// parseRow converts one data line into a MorphRecord.
func parseRow(line string, cols map[int]int, lemmaIdx int) (MorphRecord, bool) {
	fields := splitFields(line)
	if lemmaIdx >= len(fields) {
		return MorphRecord{}, false
	}

	var rec MorphRecord
	for i, cell := range fields {
		col, ok := cols[i]
		if !ok {
			continue
		}
		switch col {
		case colLemma:
			rec.Lemma = strings.TrimSpace(cell)
		case colInflection:
			rec.Inflection = strings.TrimSpace(cell)
		case colOccurrence:
			rec.Occurrence = parseOptionalInt(cell)
		case colLemmaPriority:
			rec.LemmaPriority = parseOptionalInt(cell)
		case colInflectionPriority:
			rec.InflectionPriority = parseOptionalInt(cell)
		case colInterval:
			rec.Interval = parseOptionalInt(cell)
		case colLemmaInterval:
			rec.LemmaInterval = parseOptionalInt(cell)
		case colInflectionInterval:
			rec.InflectionInterval = parseOptionalInt(cell)
		}
	}
	if rec.Inflection == "" {
		rec.Inflection = rec.Lemma
	}
	return rec, true
}

// Validate reports whether the CSV header contains a lemma column.
// Cheap pre-check for upload forms; does not run the full parse.
func Validate(text string) bool {
	lines := splitLines(text)
	if len(lines) == 0 {
		return false
	}
	for _, col := range parseHeader(lines[0]) {
		if col == colLemma {
			return true
		}
	}
	return false
}
