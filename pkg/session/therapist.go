package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/config"
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/logger"
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/memory"
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/providers"
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/store"
)

// State tracks the session lifecycle: NotStarted -> Active -> Ended.
type State int

const (
	StateNotStarted State = iota
	StateActive
	StateEnded
)

const (
	newClientGreeting = "Hello, I'm here to listen and support you. This is a safe space where you can " +
		"share whatever is on your mind. How are you feeling today?"
	returningGreetingFallback = "Welcome back. How have you been since we last spoke?"
	emptyResponseFallback     = "I'm listening. Please tell me more."
	errorResponseFallback     = "I'm having trouble processing that right now. Could you tell me more?"

	// How many trailing transcript turns ride along in each dialogue call.
	transcriptWindow = 20
)

// Summary reports what one finished session produced.
type Summary struct {
	SessionID        string
	Summary          string
	FactsLearned     int
	ThemesIdentified int
	MessageCount     int
}

// Stats describes the in-flight session for the CLI.
type Stats struct {
	Active            bool
	MessageCount      int
	UserMessages      int
	AssistantMessages int
	StartedAt         time.Time
}

// Therapist drives the turn loop for one client and calls into the memory
// pipeline at session boundaries. Single session at a time; not safe for
// concurrent use.
type Therapist struct {
	clientID string
	gen      providers.Generator
	mem      *memory.Manager
	store    *store.Store
	cfg      config.TherapistConfig
	metrics  memory.MetricsRecorder

	state      State
	transcript []store.TranscriptMessage
	startedAt  time.Time
}

func NewTherapist(clientID string, st *store.Store, gen providers.Generator, mem *memory.Manager, cfg config.TherapistConfig, metrics memory.MetricsRecorder) *Therapist {
	return &Therapist{
		clientID: clientID,
		gen:      gen,
		mem:      mem,
		store:    st,
		cfg:      cfg,
		metrics:  metrics,
		state:    StateNotStarted,
	}
}

func (t *Therapist) ClientID() string {
	return t.clientID
}

// StartSession begins a fresh session and returns the opening greeting,
// which is also recorded as the first transcript turn.
func (t *Therapist) StartSession(ctx context.Context) string {
	t.transcript = nil
	t.startedAt = time.Now()
	t.state = StateActive

	profile := t.store.LoadProfile(t.clientID)
	isNewClient := len(profile.KeyFacts) == 0 && len(profile.BasicInfo) == 0

	greeting := newClientGreeting
	if !isNewClient {
		greeting = t.generateReturningGreeting(ctx, profile)
	}

	t.transcript = append(t.transcript, store.TranscriptMessage{Role: "assistant", Content: greeting})
	return greeting
}

// SendMessage processes one user turn and returns the therapist reply. A
// failed generation degrades through a minimal retry to a canned reply; the
// turn itself never fails once a session is active.
func (t *Therapist) SendMessage(ctx context.Context, userMessage string) (string, error) {
	if t.state != StateActive {
		return "", ErrNotStarted
	}

	t.transcript = append(t.transcript, store.TranscriptMessage{Role: "user", Content: userMessage})

	retrieved, outcome := t.mem.GetRelevantContext(ctx, t.clientID, userMessage)
	if outcome.Degraded {
		logger.WarnCF("session", "Memory retrieval degraded for this turn", map[string]interface{}{
			"client_id": t.clientID,
			"reason":    outcome.Reason,
		})
	}
	systemPrompt := TherapistSystemPromptWithContext(t.mem.FormatContext(retrieved))

	recent := t.transcript
	if len(recent) > transcriptWindow {
		recent = recent[len(recent)-transcriptWindow:]
	}

	reply, err := t.gen.Generate(ctx, providers.GenerateRequest{
		Model:           t.cfg.Model,
		Prompt:          formatConversation(systemPrompt, recent),
		MaxOutputTokens: t.cfg.MaxOutputTokens,
		ReasoningEffort: t.cfg.ReasoningEffort,
		Verbosity:       t.cfg.Verbosity,
	})
	if err != nil {
		logger.WarnCF("session", "Dialogue generation failed, retrying with minimal prompt", map[string]interface{}{
			"client_id": t.clientID,
			"error":     err.Error(),
		})
		reply, err = t.gen.Generate(ctx, providers.GenerateRequest{
			Model:           t.cfg.Model,
			System:          memory.TherapistSystemPrompt,
			Prompt:          "User: " + userMessage,
			ReasoningEffort: "minimal",
			Verbosity:       "low",
		})
		if err != nil {
			logger.ErrorCF("session", "Dialogue retry failed, using canned reply", map[string]interface{}{
				"client_id": t.clientID,
				"error":     err.Error(),
			})
			reply = errorResponseFallback
		}
	}
	if strings.TrimSpace(reply) == "" {
		reply = emptyResponseFallback
	}

	t.transcript = append(t.transcript, store.TranscriptMessage{Role: "assistant", Content: reply})
	return reply, nil
}

// EndSession runs the memory pipeline and durably records the session. An
// extraction or merge failure degrades to empty memory updates but never
// prevents the session from being saved. Ending before start, or with an
// empty transcript, is a state error and writes nothing.
func (t *Therapist) EndSession(ctx context.Context) (Summary, error) {
	if t.state != StateActive {
		return Summary{}, ErrNotStarted
	}
	if len(t.transcript) == 0 {
		return Summary{}, ErrEmptyTranscript
	}

	endedAt := time.Now()

	record, outcome := t.mem.ExtractMemories(ctx, t.transcript)
	if outcome.Degraded {
		logger.WarnCF("session", "Memory extraction degraded, saving session with empty memory fields", map[string]interface{}{
			"client_id": t.clientID,
			"reason":    outcome.Reason,
		})
	}

	if err := t.mem.UpdateMemories(t.clientID, record); err != nil {
		logger.ErrorCF("session", "Failed to merge extracted memories", map[string]interface{}{
			"client_id": t.clientID,
			"error":     err.Error(),
		})
	}

	themeNames := make([]string, 0, len(record.Themes))
	for _, theme := range record.Themes {
		themeNames = append(themeNames, theme.Name)
	}

	sessionID, err := t.store.SaveSession(t.clientID, store.Session{
		Transcript:       t.transcript,
		Summary:          record.SessionSummary,
		ExtractedFacts:   record.NewFacts,
		ThemesDiscussed:  themeNames,
		NextSessionFocus: record.NextSessionFocus,
		StartedAt:        t.startedAt,
		EndedAt:          endedAt,
	})
	if err != nil {
		// Accepted risk: the in-memory session is lost if the write failed.
		logger.ErrorCF("session", "Failed to persist session", map[string]interface{}{
			"client_id":  t.clientID,
			"session_id": sessionID,
			"error":      err.Error(),
		})
	} else if t.metrics != nil {
		_ = t.metrics.Record(ctx, "session.saved", 1, map[string]string{"client_id": t.clientID})
	}

	summary := Summary{
		SessionID:        sessionID,
		Summary:          record.SessionSummary,
		FactsLearned:     len(record.NewFacts),
		ThemesIdentified: len(record.Themes),
		MessageCount:     len(t.transcript),
	}

	t.transcript = nil
	t.startedAt = time.Time{}
	t.state = StateEnded

	return summary, nil
}

// Stats reports the current session counters.
func (t *Therapist) Stats() Stats {
	stats := Stats{
		Active:       t.state == StateActive,
		MessageCount: len(t.transcript),
		StartedAt:    t.startedAt,
	}
	for _, msg := range t.transcript {
		switch msg.Role {
		case "user":
			stats.UserMessages++
		case "assistant":
			stats.AssistantMessages++
		}
	}
	return stats
}

// generateReturningGreeting personalizes the opening line from the profile
// and the previous session, falling back to a canned greeting.
func (t *Therapist) generateReturningGreeting(ctx context.Context, profile store.Profile) string {
	contextParts := []string{}

	if name := profile.BasicInfo["name"]; name != "" {
		contextParts = append(contextParts, "Client name: "+name)
	}

	sessions := t.store.ListSessions(t.clientID)
	if len(sessions) > 0 {
		if last, ok := t.store.LoadSession(t.clientID, sessions[len(sessions)-1]); ok && last.NextSessionFocus != "" {
			summary := last.Summary
			if summary == "" {
				summary = "previous topics"
			}
			contextParts = append(contextParts, "Last session we discussed: "+summary)
			contextParts = append(contextParts, "Follow-up focus: "+last.NextSessionFocus)
		}
	}

	if len(contextParts) == 0 {
		return returningGreetingFallback
	}

	prompt := fmt.Sprintf(`Generate a warm, brief greeting for a returning therapy client.

Context:
%s

Keep it natural, empathetic, and brief (1-2 sentences). You can reference what we discussed last time if relevant, but keep it light. Don't ask multiple questions.`, strings.Join(contextParts, "\n"))

	greeting, err := t.gen.Generate(ctx, providers.GenerateRequest{
		Model:           t.cfg.Model,
		System:          "You are an empathetic therapist greeting a returning client.",
		Prompt:          prompt,
		MaxOutputTokens: 100,
		ReasoningEffort: "minimal",
		Verbosity:       "low",
	})
	if err != nil || strings.TrimSpace(greeting) == "" {
		if err != nil {
			logger.WarnCF("session", "Greeting generation failed, using canned greeting", map[string]interface{}{
				"client_id": t.clientID,
				"error":     err.Error(),
			})
		}
		return returningGreetingFallback
	}
	return strings.TrimSpace(greeting)
}

// TherapistSystemPromptWithContext appends the rendered memory block to the
// dialogue system prompt.
func TherapistSystemPromptWithContext(memoryContext string) string {
	if strings.TrimSpace(memoryContext) == "" {
		return memory.TherapistSystemPrompt
	}
	return memory.TherapistSystemPrompt + "\n\n" + memoryContext
}

// formatConversation flattens the system prompt and recent turns into one
// input string for the generation call.
func formatConversation(systemPrompt string, messages []store.TranscriptMessage) string {
	parts := []string{"System: " + systemPrompt}
	for _, msg := range messages {
		switch msg.Role {
		case "user":
			parts = append(parts, "User: "+msg.Content)
		case "assistant":
			parts = append(parts, "Assistant: "+msg.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}
