package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/config"
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/logger"
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/providers"
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/store"
)

// Retriever decides which stored themes and sessions are worth recalling for
// the current user message. When the selection call fails, retrieval degrades
// to recency-based recall instead of failing the conversation turn.
type Retriever struct {
	store            *store.Store
	gen              providers.Generator
	model            string
	reasoningEffort  string
	verbosity        string
	fallbackSessions int
}

func NewRetriever(st *store.Store, gen providers.Generator, cfg config.MemoryConfig) *Retriever {
	fallback := cfg.FallbackSessions
	if fallback <= 0 {
		fallback = 2
	}
	return &Retriever{
		store:            st,
		gen:              gen,
		model:            cfg.Model,
		reasoningEffort:  cfg.ReasoningEffort,
		verbosity:        cfg.Verbosity,
		fallbackSessions: fallback,
	}
}

// GetRelevantContext returns the profile plus the theme and session subsets
// selected for the current message.
func (r *Retriever) GetRelevantContext(ctx context.Context, clientID, currentMessage string) (RetrievedContext, Outcome) {
	profile := r.store.LoadProfile(clientID)
	themes := r.store.LoadThemes(clientID)
	sessionIDs := r.store.ListSessions(clientID)

	result := RetrievedContext{
		Profile:          profile,
		RelevantThemes:   []store.Theme{},
		RelevantSessions: []store.Session{},
	}

	// Nothing recorded yet: no selection call needed.
	if len(themes.RecurringThemes) == 0 && len(sessionIDs) == 0 {
		return result, Outcome{}
	}

	prompt := fmt.Sprintf(retrievalPromptTemplate,
		currentMessage,
		formatProfileSummary(profile),
		formatAvailableThemes(themes.RecurringThemes),
		formatAvailableSessions(sessionIDs),
	)

	raw, err := r.gen.Generate(ctx, providers.GenerateRequest{
		Model:           r.model,
		System:          retrievalSystemPrompt,
		Prompt:          prompt,
		Structured:      true,
		ReasoningEffort: r.reasoningEffort,
		Verbosity:       r.verbosity,
	})
	if err != nil {
		return r.fallbackContext(clientID, result, sessionIDs, "generation failed: "+err.Error())
	}

	selection, ok := decodeRetrievalSelection(raw)
	if !ok {
		return r.fallbackContext(clientID, result, sessionIDs, "unparseable retrieval output")
	}

	for _, name := range selection.RelevantThemes {
		// Unknown theme names are silently dropped.
		if theme, found := themes.FindTheme(name); found {
			result.RelevantThemes = append(result.RelevantThemes, theme)
		}
	}

	for _, sessionID := range selection.RelevantSessions {
		if session, found := r.store.LoadSession(clientID, sessionID); found {
			result.RelevantSessions = append(result.RelevantSessions, session)
		}
	}

	return result, Outcome{}
}

// fallbackContext recalls the most recent sessions and no themes.
func (r *Retriever) fallbackContext(clientID string, result RetrievedContext, sessionIDs []string, reason string) (RetrievedContext, Outcome) {
	logger.WarnCF("memory", "Retrieval degraded to recency-based recall", map[string]interface{}{
		"client_id": clientID,
		"reason":    reason,
	})

	recent := sessionIDs
	if len(recent) > r.fallbackSessions {
		recent = recent[len(recent)-r.fallbackSessions:]
	}
	for _, sessionID := range recent {
		if session, found := r.store.LoadSession(clientID, sessionID); found {
			result.RelevantSessions = append(result.RelevantSessions, session)
		}
	}
	return result, degraded(reason)
}

type retrievalSelection struct {
	RelevantThemes   []string
	RelevantSessions []string
}

func decodeRetrievalSelection(raw string) (retrievalSelection, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &fields); err != nil {
		return retrievalSelection{}, false
	}

	selection := retrievalSelection{
		RelevantThemes:   []string{},
		RelevantSessions: []string{},
	}
	if v, ok := fields["relevant_themes"]; ok {
		selection.RelevantThemes = decodeStringList(v)
	}
	if v, ok := fields["relevant_sessions"]; ok {
		selection.RelevantSessions = decodeStringList(v)
	}
	return selection, true
}
