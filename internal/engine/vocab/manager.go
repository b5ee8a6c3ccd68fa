package vocab

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Notifier receives prefix-invalidation events when the active table changes.
// The engine's invalidation bus satisfies this.
type Notifier interface {
	Publish(prefixes ...string)
}

// ScorePrefixes are the cache namespaces that become stale when the
// vocabulary table is replaced. Metadata and subtitle entries are
// vocabulary-independent and survive a replacement.
var ScorePrefixes = []string{"comprehension_", "analysis_"}

// activeTable pairs a parsed table with the raw CSV it came from.
// The raw text is kept because the remote analyzer takes the CSV verbatim.
type activeTable struct {
	table    *Table
	csv      string
	loadedAt time.Time
}

// Manager owns the single active known-morph table. Replacement is wholesale
// and atomic: readers either see the old table or the new one, never a mix.
type Manager struct {
	active   atomic.Pointer[activeTable]
	notifier Notifier
	now      func() time.Time
}

// NewManager creates an empty manager. notifier may be nil.
func NewManager(notifier Notifier) *Manager {
	return &Manager{notifier: notifier, now: time.Now}
}

// Replace parses csv and swaps it in as the active table, then publishes an
// invalidation for the score namespaces. The previous table stays active
// when parsing fails.
func (m *Manager) Replace(csv string) (*Table, error) {
	t, err := Parse(csv)
	if err != nil {
		return nil, err
	}
	m.active.Store(&activeTable{table: t, csv: csv, loadedAt: m.now()})
	slog.Info("vocab: table replaced", slog.Int("morphs", t.Len()))
	if m.notifier != nil {
		m.notifier.Publish(ScorePrefixes...)
	}
	return t, nil
}

// Active returns the current table, or nil when nothing is loaded.
func (m *Manager) Active() *Table {
	if a := m.active.Load(); a != nil {
		return a.table
	}
	return nil
}

// CSV returns the raw CSV text behind the active table ("" when empty).
func (m *Manager) CSV() string {
	if a := m.active.Load(); a != nil {
		return a.csv
	}
	return ""
}

// LoadedAt returns when the active table was installed.
func (m *Manager) LoadedAt() (time.Time, bool) {
	if a := m.active.Load(); a != nil {
		return a.loadedAt, true
	}
	return time.Time{}, false
}
