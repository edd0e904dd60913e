package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProfile_MissingFileReturnsEmptyTemplate(t *testing.T) {
	st := NewStore(t.TempDir())

	profile := st.LoadProfile("client_a")

	assert.Equal(t, "client_a", profile.ClientID)
	assert.NotNil(t, profile.BasicInfo)
	assert.Empty(t, profile.KeyFacts)
	assert.Empty(t, profile.CurrentGoals)
	assert.False(t, profile.CreatedAt.IsZero())
}

func TestLoadProfile_CorruptFileReturnsEmptyTemplate(t *testing.T) {
	root := t.TempDir()
	st := NewStore(root)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "client_a"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "client_a", "profile.json"), []byte("{not json"), 0o644))

	profile := st.LoadProfile("client_a")
	assert.Equal(t, "client_a", profile.ClientID)
	assert.Empty(t, profile.KeyFacts)
}

func TestSaveProfile_RoundTripRefreshesLastUpdated(t *testing.T) {
	st := NewStore(t.TempDir())

	profile := st.LoadProfile("client_a")
	profile.BasicInfo["name"] = "Dana"
	profile.KeyFacts = []string{"Works as a nurse"}
	profile.CurrentGoals = []string{"Sleep better"}
	stale := time.Now().Add(-24 * time.Hour)
	profile.LastUpdated = stale

	require.NoError(t, st.SaveProfile("client_a", profile))

	loaded := st.LoadProfile("client_a")
	assert.Equal(t, profile.ClientID, loaded.ClientID)
	assert.Equal(t, profile.BasicInfo, loaded.BasicInfo)
	assert.Equal(t, profile.KeyFacts, loaded.KeyFacts)
	assert.Equal(t, profile.CurrentGoals, loaded.CurrentGoals)
	assert.True(t, loaded.LastUpdated.After(stale), "last_updated should be stamped at persist time")
}

func TestLoadThemes_MissingFileReturnsEmptyTemplate(t *testing.T) {
	st := NewStore(t.TempDir())

	themes := st.LoadThemes("client_a")
	assert.NotNil(t, themes.RecurringThemes)
	assert.NotNil(t, themes.ProgressMarkers)
	assert.Empty(t, themes.RecurringThemes)
}

func TestThemes_RoundTrip(t *testing.T) {
	st := NewStore(t.TempDir())

	themes := Themes{
		RecurringThemes: []Theme{{Name: "work_stress", Description: "pressure at work", Intensity: "high"}},
		ProgressMarkers: []ProgressMarker{{Milestone: "Set a boundary", Date: "2026-08-01"}},
	}
	require.NoError(t, st.SaveThemes("client_a", themes))

	loaded := st.LoadThemes("client_a")
	assert.Equal(t, themes, loaded)
}

func TestSaveSession_AssignsMonotonicIDs(t *testing.T) {
	st := NewStore(t.TempDir())

	for i := 1; i <= 3; i++ {
		id, err := st.SaveSession("client_a", Session{
			Transcript: []TranscriptMessage{{Role: "user", Content: "hello"}},
		})
		require.NoError(t, err)
		assert.Equal(t, FormatSessionID(i), id)
	}

	assert.Equal(t, 3, st.LatestSessionNumber("client_a"))
	assert.Equal(t, []string{"session_001", "session_002", "session_003"}, st.ListSessions("client_a"))
}

func TestSaveSession_FirstSessionIsOne(t *testing.T) {
	st := NewStore(t.TempDir())

	id, err := st.SaveSession("client_b", Session{})
	require.NoError(t, err)
	assert.Equal(t, "session_001", id)
}

func TestLoadSession_MissingReturnsFalse(t *testing.T) {
	st := NewStore(t.TempDir())

	_, ok := st.LoadSession("client_a", "session_001")
	assert.False(t, ok)
}

func TestLoadSession_RoundTrip(t *testing.T) {
	st := NewStore(t.TempDir())

	id, err := st.SaveSession("client_a", Session{
		Transcript:       []TranscriptMessage{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}},
		Summary:          "First contact.",
		ExtractedFacts:   []string{"New to therapy"},
		ThemesDiscussed:  []string{"anxiety"},
		NextSessionFocus: "Explore sleep habits",
	})
	require.NoError(t, err)

	loaded, ok := st.LoadSession("client_a", id)
	require.True(t, ok)
	assert.Equal(t, id, loaded.SessionID)
	assert.Equal(t, "First contact.", loaded.Summary)
	assert.Len(t, loaded.Transcript, 2)
	assert.False(t, loaded.Date.IsZero())
}

func TestListSessions_IgnoresForeignFiles(t *testing.T) {
	root := t.TempDir()
	st := NewStore(root)

	_, err := st.SaveSession("client_a", Session{})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "client_a", "sessions", "notes.txt"), []byte("x"), 0o644))

	assert.Equal(t, []string{"session_001"}, st.ListSessions("client_a"))
}

func TestListClients(t *testing.T) {
	st := NewStore(t.TempDir())

	require.NoError(t, st.SaveProfile("client_b", st.LoadProfile("client_b")))
	require.NoError(t, st.SaveProfile("client_a", st.LoadProfile("client_a")))

	assert.Equal(t, []string{"client_a", "client_b"}, st.ListClients())
}
