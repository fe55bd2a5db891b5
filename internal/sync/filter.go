package sync

import (
	"path"
	"strings"
	"time"

	"github.com/agnesscodex/s4/internal/config"
	"github.com/agnesscodex/s4/internal/domain"
	"github.com/agnesscodex/s4/internal/errs"
)

// Filters decides which source entries take part in a sync. All
// configured predicates are ANDed; an entry is dropped as soon as one
// excludes it.
type Filters struct {
	globs     []string
	olderThan time.Duration
	newerThan time.Duration

	now func() time.Time
}

// NewFilters validates every exclude glob and age bound up front, so bad
// values surface as configuration errors before any listing begins.
func NewFilters(excludes []string, olderThan, newerThan string) (*Filters, error) {
	f := &Filters{now: time.Now}

	for _, pattern := range excludes {
		if _, err := path.Match(pattern, "probe"); err != nil {
			return nil, errs.Configf("invalid exclude pattern %q", pattern)
		}
		f.globs = append(f.globs, pattern)
	}

	if olderThan != "" {
		d, err := config.ParseDuration(olderThan)
		if err != nil || d < 0 {
			return nil, errs.Configf("invalid --older-than value %q", olderThan)
		}
		f.olderThan = d
	}
	if newerThan != "" {
		d, err := config.ParseDuration(newerThan)
		if err != nil || d < 0 {
			return nil, errs.Configf("invalid --newer-than value %q", newerThan)
		}
		f.newerThan = d
	}

	return f, nil
}

// Excluded reports whether the entry should be dropped from the source
// side. A glob without a slash is tried against the entry's base name as
// well as the full key, so "*.tmp" reaches into subdirectories.
func (f *Filters) Excluded(entry domain.ObjectEntry) bool {
	for _, pattern := range f.globs {
		if matched, _ := path.Match(pattern, entry.Key); matched {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if matched, _ := path.Match(pattern, path.Base(entry.Key)); matched {
				return true
			}
		}
	}

	age := f.now().Sub(entry.LastModified)
	if f.olderThan > 0 && age < f.olderThan {
		return true
	}
	if f.newerThan > 0 && age > f.newerThan {
		return true
	}

	return false
}

// Apply returns the entries that survive the chain, preserving order.
func (f *Filters) Apply(entries []domain.ObjectEntry) []domain.ObjectEntry {
	if len(f.globs) == 0 && f.olderThan == 0 && f.newerThan == 0 {
		return entries
	}

	kept := make([]domain.ObjectEntry, 0, len(entries))
	for _, entry := range entries {
		if !f.Excluded(entry) {
			kept = append(kept, entry)
		}
	}
	return kept
}
