package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/logger"
)

// Store persists per-client documents as pretty-printed JSON files:
//
//	<root>/<client_id>/profile.json
//	<root>/<client_id>/themes.json
//	<root>/<client_id>/sessions/session_NNN.json
//
// All reads and writes are whole-document snapshots. One writer per client
// is assumed; there is no locking.
type Store struct {
	root string
}

// NewStore creates a store rooted at the given directory. The root is
// created lazily on first write.
func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) clientDir(clientID string) string {
	return filepath.Join(s.root, clientID)
}

func (s *Store) sessionsDir(clientID string) string {
	return filepath.Join(s.root, clientID, "sessions")
}

func (s *Store) ensureClientDir(clientID string) error {
	if err := os.MkdirAll(s.sessionsDir(clientID), 0o755); err != nil {
		return fmt.Errorf("create client directory: %w", err)
	}
	return nil
}

// LoadProfile returns the client's profile, or a freshly-initialized empty
// profile when the document is missing or unreadable. Parse failures are
// logged, never fatal.
func (s *Store) LoadProfile(clientID string) Profile {
	path := filepath.Join(s.clientDir(clientID), "profile.json")

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.WarnCF("store", "Failed to read profile, using empty template", map[string]interface{}{
				"client_id": clientID,
				"error":     err.Error(),
			})
		}
		return emptyProfile(clientID)
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		logger.WarnCF("store", "Failed to parse profile, using empty template", map[string]interface{}{
			"client_id": clientID,
			"error":     err.Error(),
		})
		return emptyProfile(clientID)
	}

	normalizeProfile(&profile, clientID)
	return profile
}

// SaveProfile writes the profile snapshot, stamping last_updated.
func (s *Store) SaveProfile(clientID string, profile Profile) error {
	if err := s.ensureClientDir(clientID); err != nil {
		return err
	}

	profile.LastUpdated = time.Now()
	normalizeProfile(&profile, clientID)

	path := filepath.Join(s.clientDir(clientID), "profile.json")
	if err := writeJSON(path, profile); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// LoadThemes returns the client's themes document, or an empty template when
// missing or unreadable.
func (s *Store) LoadThemes(clientID string) Themes {
	path := filepath.Join(s.clientDir(clientID), "themes.json")

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.WarnCF("store", "Failed to read themes, using empty template", map[string]interface{}{
				"client_id": clientID,
				"error":     err.Error(),
			})
		}
		return emptyThemes()
	}

	var themes Themes
	if err := json.Unmarshal(data, &themes); err != nil {
		logger.WarnCF("store", "Failed to parse themes, using empty template", map[string]interface{}{
			"client_id": clientID,
			"error":     err.Error(),
		})
		return emptyThemes()
	}

	normalizeThemes(&themes)
	return themes
}

// SaveThemes writes the themes snapshot.
func (s *Store) SaveThemes(clientID string, themes Themes) error {
	if err := s.ensureClientDir(clientID); err != nil {
		return err
	}

	normalizeThemes(&themes)

	path := filepath.Join(s.clientDir(clientID), "themes.json")
	if err := writeJSON(path, themes); err != nil {
		return fmt.Errorf("save themes: %w", err)
	}
	return nil
}

// SaveSession assigns the next session id, stamps the date, and persists the
// session. The id is returned even when the write fails so the caller can
// report what was lost; sessions are never rewritten afterwards.
func (s *Store) SaveSession(clientID string, session Session) (string, error) {
	sessionID := FormatSessionID(s.LatestSessionNumber(clientID) + 1)

	session.SessionID = sessionID
	session.Date = time.Now()
	if session.Transcript == nil {
		session.Transcript = []TranscriptMessage{}
	}
	if session.ExtractedFacts == nil {
		session.ExtractedFacts = []string{}
	}
	if session.ThemesDiscussed == nil {
		session.ThemesDiscussed = []string{}
	}

	if err := s.ensureClientDir(clientID); err != nil {
		return sessionID, err
	}

	path := filepath.Join(s.sessionsDir(clientID), sessionID+".json")
	if err := writeJSON(path, session); err != nil {
		return sessionID, fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return sessionID, nil
}

// LoadSession loads one session by id. The second return is false when the
// session does not exist or cannot be parsed.
func (s *Store) LoadSession(clientID, sessionID string) (Session, bool) {
	path := filepath.Join(s.sessionsDir(clientID), sessionID+".json")

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.WarnCF("store", "Failed to read session", map[string]interface{}{
				"client_id":  clientID,
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
		return Session{}, false
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		logger.WarnCF("store", "Failed to parse session", map[string]interface{}{
			"client_id":  clientID,
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return Session{}, false
	}
	return session, true
}

// ListSessions returns all session ids for a client in chronological
// (numeric) order.
func (s *Store) ListSessions(clientID string) []string {
	entries, err := os.ReadDir(s.sessionsDir(clientID))
	if err != nil {
		return []string{}
	}

	type numbered struct {
		id  string
		num int
	}
	sessions := make([]numbered, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "session_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		num, ok := sessionNumber(id)
		if !ok {
			continue
		}
		sessions = append(sessions, numbered{id: id, num: num})
	}

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].num < sessions[j].num })

	ids := make([]string, 0, len(sessions))
	for _, sess := range sessions {
		ids = append(ids, sess.id)
	}
	return ids
}

// LatestSessionNumber returns the highest session number, or 0 when the
// client has no sessions.
func (s *Store) LatestSessionNumber(clientID string) int {
	sessions := s.ListSessions(clientID)
	if len(sessions) == 0 {
		return 0
	}
	num, ok := sessionNumber(sessions[len(sessions)-1])
	if !ok {
		return 0
	}
	return num
}

// ListClients returns the ids of all clients with a directory under the
// store root, sorted.
func (s *Store) ListClients() []string {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return []string{}
	}

	clients := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			clients = append(clients, entry.Name())
		}
	}
	sort.Strings(clients)
	return clients
}

// FormatSessionID renders a session number as session_NNN.
func FormatSessionID(num int) string {
	return fmt.Sprintf("session_%03d", num)
}

func sessionNumber(sessionID string) (int, bool) {
	idx := strings.LastIndex(sessionID, "_")
	if idx < 0 {
		return 0, false
	}
	num, err := strconv.Atoi(sessionID[idx+1:])
	if err != nil || num < 0 {
		return 0, false
	}
	return num, true
}

func emptyProfile(clientID string) Profile {
	now := time.Now()
	return Profile{
		ClientID:     clientID,
		BasicInfo:    map[string]string{},
		KeyFacts:     []string{},
		CurrentGoals: []string{},
		CreatedAt:    now,
		LastUpdated:  now,
	}
}

func emptyThemes() Themes {
	return Themes{
		RecurringThemes: []Theme{},
		ProgressMarkers: []ProgressMarker{},
	}
}

// normalizeProfile fills defaults so partial on-disk documents never leak
// nil maps or slices into the pipeline.
func normalizeProfile(profile *Profile, clientID string) {
	if profile.ClientID == "" {
		profile.ClientID = clientID
	}
	if profile.BasicInfo == nil {
		profile.BasicInfo = map[string]string{}
	}
	if profile.KeyFacts == nil {
		profile.KeyFacts = []string{}
	}
	if profile.CurrentGoals == nil {
		profile.CurrentGoals = []string{}
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now()
	}
	if profile.LastUpdated.IsZero() {
		profile.LastUpdated = profile.CreatedAt
	}
}

func normalizeThemes(themes *Themes) {
	if themes.RecurringThemes == nil {
		themes.RecurringThemes = []Theme{}
	}
	if themes.ProgressMarkers == nil {
		themes.ProgressMarkers = []ProgressMarker{}
	}
}

func writeJSON(path string, doc interface{}) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
