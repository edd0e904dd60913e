package memory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/store"
)

// RenderContext renders memory into the single text block injected below the
// dialogue system prompt. Pure formatting, no generation calls. Sections
// appear in a fixed order and are omitted when their backing data is empty:
// profile, recurring themes (subset), progress markers (all supplied),
// recent sessions (subset).
func RenderContext(profile store.Profile, themes []store.Theme, markers []store.ProgressMarker, sessions []store.Session) string {
	parts := []string{}

	if len(profile.BasicInfo) > 0 || len(profile.KeyFacts) > 0 || len(profile.CurrentGoals) > 0 {
		parts = append(parts, "=== CLIENT PROFILE ===")

		if len(profile.BasicInfo) > 0 {
			lines := make([]string, 0, len(profile.BasicInfo))
			for _, key := range sortedKeys(profile.BasicInfo) {
				lines = append(lines, fmt.Sprintf("- %s: %s", key, profile.BasicInfo[key]))
			}
			parts = append(parts, strings.Join(lines, "\n"))
		}

		if len(profile.KeyFacts) > 0 {
			parts = append(parts, "\nKey Facts:")
			for _, fact := range profile.KeyFacts {
				parts = append(parts, "• "+fact)
			}
		}

		if len(profile.CurrentGoals) > 0 {
			parts = append(parts, "\nCurrent Goals:")
			for _, goal := range profile.CurrentGoals {
				parts = append(parts, "• "+goal)
			}
		}
	}

	if len(themes) > 0 {
		parts = append(parts, "\n=== RECURRING THEMES ===")
		for _, theme := range themes {
			parts = append(parts, "\n"+displayThemeName(theme.Name))
			intensity := theme.Intensity
			if intensity == "" {
				intensity = "unknown"
			}
			parts = append(parts, "  Intensity: "+intensity)
			if theme.Notes != "" {
				parts = append(parts, "  Notes: "+theme.Notes)
			}
		}
	}

	if len(markers) > 0 {
		parts = append(parts, "\n=== PROGRESS MARKERS ===")
		for _, marker := range markers {
			date := marker.Date
			if date == "" {
				date = "Unknown date"
			}
			parts = append(parts, fmt.Sprintf("• [%s] %s", date, marker.Milestone))
		}
	}

	if len(sessions) > 0 {
		parts = append(parts, "\n=== RECENT SESSIONS ===")
		for _, session := range sessions {
			date := "Unknown date"
			if !session.Date.IsZero() {
				date = session.Date.Format("2006-01-02")
			}
			summary := session.Summary
			if summary == "" {
				summary = "No summary"
			}
			parts = append(parts, fmt.Sprintf("\n%s (%s):", session.SessionID, date))
			parts = append(parts, "  "+summary)
		}
	}

	return strings.Join(parts, "\n")
}

// displayThemeName turns a snake_case theme identifier into a title-cased
// heading.
func displayThemeName(name string) string {
	if name == "" {
		return "Unknown"
	}
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
