package memory

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/store"
)

func TestRenderContext_AllSectionsInOrder(t *testing.T) {
	profile := store.Profile{
		ClientID:     "client_a",
		BasicInfo:    map[string]string{"name": "Dana", "age": "29"},
		KeyFacts:     []string{"Works as a nurse"},
		CurrentGoals: []string{"Sleep better"},
	}
	themes := []store.Theme{{Name: "work_stress", Intensity: "high", Notes: "worse on Mondays"}}
	markers := []store.ProgressMarker{{Milestone: "Set a boundary", Date: "2026-08-01"}}
	sessions := []store.Session{{
		SessionID: "session_002",
		Date:      time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
		Summary:   "Talked about shift schedules.",
	}}

	out := RenderContext(profile, themes, markers, sessions)

	wantOrder := []string{
		"=== CLIENT PROFILE ===",
		"- age: 29",
		"- name: Dana",
		"Key Facts:",
		"• Works as a nurse",
		"Current Goals:",
		"• Sleep better",
		"=== RECURRING THEMES ===",
		"Work Stress",
		"  Intensity: high",
		"  Notes: worse on Mondays",
		"=== PROGRESS MARKERS ===",
		"• [2026-08-01] Set a boundary",
		"=== RECENT SESSIONS ===",
		"session_002 (2026-08-15):",
		"  Talked about shift schedules.",
	}

	last := -1
	for _, want := range wantOrder {
		idx := strings.Index(out, want)
		require.GreaterOrEqual(t, idx, 0, "missing %q in output:\n%s", want, out)
		assert.Greater(t, idx, last, "%q out of order", want)
		last = idx
	}
}

func TestRenderContext_EmptySectionsOmitted(t *testing.T) {
	out := RenderContext(store.Profile{ClientID: "client_a"}, nil, nil, nil)
	assert.Empty(t, out)

	out = RenderContext(store.Profile{KeyFacts: []string{"Has a dog"}}, nil, nil, nil)
	assert.Contains(t, out, "=== CLIENT PROFILE ===")
	assert.NotContains(t, out, "=== RECURRING THEMES ===")
	assert.NotContains(t, out, "=== PROGRESS MARKERS ===")
	assert.NotContains(t, out, "=== RECENT SESSIONS ===")
}

func TestRenderContext_Defaults(t *testing.T) {
	out := RenderContext(store.Profile{}, []store.Theme{{Name: "grief"}}, []store.ProgressMarker{{Milestone: "Spoke up"}}, []store.Session{{SessionID: "session_001"}})

	assert.Contains(t, out, "Grief")
	assert.Contains(t, out, "Intensity: unknown")
	assert.Contains(t, out, "• [Unknown date] Spoke up")
	assert.Contains(t, out, "session_001 (Unknown date):")
	assert.Contains(t, out, "  No summary")
}

func TestDisplayThemeName(t *testing.T) {
	assert.Equal(t, "Work Stress", displayThemeName("work_stress"))
	assert.Equal(t, "Grief", displayThemeName("grief"))
	assert.Equal(t, "Unknown", displayThemeName(""))
}
