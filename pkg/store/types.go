package store

import "time"

// Profile is the per-client profile document. Created on first access,
// mutated only by the memory merger, never deleted.
type Profile struct {
	ClientID     string            `json:"client_id"`
	BasicInfo    map[string]string `json:"basic_info"`
	KeyFacts     []string          `json:"key_facts"`
	CurrentGoals []string          `json:"current_goals"`
	CreatedAt    time.Time         `json:"created_at"`
	LastUpdated  time.Time         `json:"last_updated"`
}

// Theme is one recurring emotional or behavioral pattern. Name is the unique
// key within a client's themes document.
type Theme struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Intensity   string `json:"intensity,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// ProgressMarker records one sign of progress. Append-only, no dedup.
type ProgressMarker struct {
	Milestone string `json:"milestone"`
	Date      string `json:"date"`
}

// Themes is the per-client themes document. RecurringThemes holds at most
// one entry per distinct theme name.
type Themes struct {
	RecurringThemes []Theme          `json:"recurring_themes"`
	ProgressMarkers []ProgressMarker `json:"progress_markers"`
}

// TranscriptMessage is one conversation turn.
type TranscriptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is an immutable record of one finished session.
type Session struct {
	SessionID        string              `json:"session_id"`
	Date             time.Time           `json:"date"`
	StartedAt        time.Time           `json:"started_at"`
	EndedAt          time.Time           `json:"ended_at"`
	Transcript       []TranscriptMessage `json:"transcript"`
	Summary          string              `json:"summary"`
	ExtractedFacts   []string            `json:"extracted_facts"`
	ThemesDiscussed  []string            `json:"themes_discussed"`
	NextSessionFocus string              `json:"next_session_focus"`
}

// FindTheme returns the theme with the given name, if present.
func (t *Themes) FindTheme(name string) (Theme, bool) {
	for _, theme := range t.RecurringThemes {
		if theme.Name == name {
			return theme, true
		}
	}
	return Theme{}, false
}
