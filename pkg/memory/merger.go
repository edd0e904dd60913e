package memory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/store"
)

// Merger folds an ExtractionRecord into the durable profile and themes
// documents. All merge logic is deterministic; the merger never touches
// session files.
type Merger struct {
	store *store.Store
	now   func() time.Time
}

func NewMerger(st *store.Store) *Merger {
	return &Merger{store: st, now: time.Now}
}

// Apply merges the record and persists both documents as complete snapshots.
// A save failure is returned for the caller to log; the other document is
// still attempted.
func (m *Merger) Apply(clientID string, record ExtractionRecord) error {
	profile := m.store.LoadProfile(clientID)
	themes := m.store.LoadThemes(clientID)

	if len(record.NewFacts) > 0 {
		profile.KeyFacts = mergeFacts(profile.KeyFacts, record.NewFacts)
	}

	for key, value := range record.BasicInfo {
		profile.BasicInfo[key] = value
	}

	if len(record.Themes) > 0 {
		themes.RecurringThemes = mergeThemes(themes.RecurringThemes, record.Themes)
	}

	for _, marker := range record.ProgressMarkers {
		if marker.Date == "" {
			marker.Date = m.now().Format("2006-01-02")
		}
		themes.ProgressMarkers = append(themes.ProgressMarkers, marker)
	}

	var errs []error
	if err := m.store.SaveProfile(clientID, profile); err != nil {
		errs = append(errs, fmt.Errorf("persist profile: %w", err))
	}
	if err := m.store.SaveThemes(clientID, themes); err != nil {
		errs = append(errs, fmt.Errorf("persist themes: %w", err))
	}
	return errors.Join(errs...)
}

// mergeFacts appends new facts that are not case-insensitive substring
// duplicates of an existing fact, in either direction. Existing facts keep
// their position.
func mergeFacts(existing, incoming []string) []string {
	merged := make([]string, len(existing))
	copy(merged, existing)

	for _, fact := range incoming {
		factLower := strings.ToLower(fact)
		duplicate := false
		for _, prior := range existing {
			priorLower := strings.ToLower(prior)
			if strings.Contains(priorLower, factLower) || strings.Contains(factLower, priorLower) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			merged = append(merged, fact)
		}
	}
	return merged
}

// mergeThemes merges by theme name: an incoming theme overwrites only the
// fields it supplies on an existing entry with the same name, and inserts
// otherwise. Existing themes keep their order; new themes append in the
// order given.
func mergeThemes(existing, incoming []store.Theme) []store.Theme {
	merged := make([]store.Theme, len(existing))
	copy(merged, existing)

	index := make(map[string]int, len(merged))
	for i, theme := range merged {
		index[theme.Name] = i
	}

	for _, update := range incoming {
		if update.Name == "" {
			continue
		}
		pos, ok := index[update.Name]
		if !ok {
			index[update.Name] = len(merged)
			merged = append(merged, update)
			continue
		}
		current := merged[pos]
		if update.Description != "" {
			current.Description = update.Description
		}
		if update.Intensity != "" {
			current.Intensity = update.Intensity
		}
		if update.Notes != "" {
			current.Notes = update.Notes
		}
		merged[pos] = current
	}
	return merged
}
