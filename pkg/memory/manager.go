package memory

import (
	"context"

	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/config"
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/providers"
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/store"
)

// MetricsRecorder receives counters from the memory pipeline. Implemented by
// pkg/telemetry; a nil recorder disables reporting.
type MetricsRecorder interface {
	Record(ctx context.Context, metric string, value float64, labels map[string]string) error
}

// Manager is the facade the session orchestrator talks to: extraction,
// merge, retrieval and context assembly for one client store.
type Manager struct {
	store     *store.Store
	extractor *Extractor
	merger    *Merger
	retriever *Retriever
	metrics   MetricsRecorder
}

func NewManager(st *store.Store, gen providers.Generator, cfg config.MemoryConfig, metrics MetricsRecorder) *Manager {
	return &Manager{
		store:     st,
		extractor: NewExtractor(gen, cfg),
		merger:    NewMerger(st),
		retriever: NewRetriever(st, gen, cfg),
		metrics:   metrics,
	}
}

// ExtractMemories reviews a finished transcript. Never fails; the outcome
// reports degradation.
func (m *Manager) ExtractMemories(ctx context.Context, transcript []store.TranscriptMessage) (ExtractionRecord, Outcome) {
	record, outcome := m.extractor.Extract(ctx, transcript)

	m.record(ctx, "memory.extraction.facts", float64(len(record.NewFacts)), nil)
	if outcome.Degraded {
		m.record(ctx, "memory.extraction.degraded", 1, map[string]string{"reason": outcome.Reason})
	}
	return record, outcome
}

// UpdateMemories merges an extraction record into the client's profile and
// themes documents.
func (m *Manager) UpdateMemories(clientID string, record ExtractionRecord) error {
	return m.merger.Apply(clientID, record)
}

// GetRelevantContext selects the memory worth recalling for the current
// message.
func (m *Manager) GetRelevantContext(ctx context.Context, clientID, currentMessage string) (RetrievedContext, Outcome) {
	retrieved, outcome := m.retriever.GetRelevantContext(ctx, clientID, currentMessage)

	if outcome.Degraded {
		m.record(ctx, "memory.retrieval.fallback", 1, map[string]string{"client_id": clientID})
	} else {
		m.record(ctx, "memory.retrieval.themes", float64(len(retrieved.RelevantThemes)), map[string]string{"client_id": clientID})
		m.record(ctx, "memory.retrieval.sessions", float64(len(retrieved.RelevantSessions)), map[string]string{"client_id": clientID})
	}
	return retrieved, outcome
}

// FormatContext renders retrieved memory for the dialogue system prompt.
// Progress markers come from the profile view, which records none, so only
// themes and sessions carry subset data here.
func (m *Manager) FormatContext(retrieved RetrievedContext) string {
	return RenderContext(retrieved.Profile, retrieved.RelevantThemes, nil, retrieved.RelevantSessions)
}

func (m *Manager) record(ctx context.Context, metric string, value float64, labels map[string]string) {
	if m.metrics == nil {
		return
	}
	_ = m.metrics.Record(ctx, metric, value, labels)
}
