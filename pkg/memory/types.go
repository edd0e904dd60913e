package memory

import (
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/store"
)

// ExtractionRecord is the fixed-shape result of reviewing a finished
// session transcript. Every field is always present; validation fills empty
// defaults for anything the generation output omitted.
type ExtractionRecord struct {
	NewFacts         []string               `json:"new_facts"`
	UpdatedFacts     []string               `json:"updated_facts"`
	BasicInfo        map[string]string      `json:"basic_info"`
	Themes           []store.Theme          `json:"themes"`
	SessionSummary   string                 `json:"session_summary"`
	ImportantMoments []string               `json:"important_moments"`
	ProgressMarkers  []store.ProgressMarker `json:"progress_markers"`
	NextSessionFocus string                 `json:"next_session_focus"`
}

// EmptyExtractionRecord returns a fully-populated record with empty values.
func EmptyExtractionRecord() ExtractionRecord {
	return ExtractionRecord{
		NewFacts:         []string{},
		UpdatedFacts:     []string{},
		BasicInfo:        map[string]string{},
		Themes:           []store.Theme{},
		SessionSummary:   "",
		ImportantMoments: []string{},
		ProgressMarkers:  []store.ProgressMarker{},
		NextSessionFocus: "",
	}
}

// Outcome tells callers whether an LLM-dependent step produced real data or
// fell back to its degraded path, and why.
type Outcome struct {
	Degraded bool
	Reason   string
}

func degraded(reason string) Outcome {
	return Outcome{Degraded: true, Reason: reason}
}

// RetrievedContext is the memory selected for one conversation turn.
type RetrievedContext struct {
	Profile          store.Profile
	RelevantThemes   []store.Theme
	RelevantSessions []store.Session
}
