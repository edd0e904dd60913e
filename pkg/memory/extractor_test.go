package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/config"
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/providers"
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/store"
)

// fakeGenerator is a scripted Generator for pipeline tests.
type fakeGenerator struct {
	response string
	err      error
	calls    int
	lastReq  providers.GenerateRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req providers.GenerateRequest) (string, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeGenerator) GetDefaultModel() string { return "fake-model" }

func memCfg() config.MemoryConfig {
	return config.MemoryConfig{Model: "gpt-5-mini", ReasoningEffort: "low", Verbosity: "medium", FallbackSessions: 2}
}

func sampleTranscript() []store.TranscriptMessage {
	return []store.TranscriptMessage{
		{Role: "assistant", Content: "How are you feeling today?"},
		{Role: "user", Content: "Stressed about my new job."},
	}
}

func TestExtract_FullOutput(t *testing.T) {
	gen := &fakeGenerator{response: `{
		"new_facts": ["Started a new job", 42],
		"updated_facts": ["Moved from Boston to Denver"],
		"basic_info": {"name": "Dana", "age": 29},
		"themes": [{"name": "work_stress", "description": "pressure at new job", "intensity": "high", "notes": "worse on Mondays"}],
		"session_summary": "Discussed the new job and stress levels.",
		"important_moments": ["Named the fear of failing"],
		"progress_markers": ["Asked for help", {"milestone": "Kept a routine", "date": "2026-08-20"}],
		"next_session_focus": "Coping strategies for Mondays",
		"unexpected_key": "dropped"
	}`}
	extractor := NewExtractor(gen, memCfg())

	record, outcome := extractor.Extract(context.Background(), sampleTranscript())

	assert.False(t, outcome.Degraded)
	assert.Equal(t, []string{"Started a new job", "42"}, record.NewFacts)
	assert.Equal(t, []string{"Moved from Boston to Denver"}, record.UpdatedFacts)
	assert.Equal(t, map[string]string{"name": "Dana", "age": "29"}, record.BasicInfo)
	require.Len(t, record.Themes, 1)
	assert.Equal(t, "work_stress", record.Themes[0].Name)
	assert.Equal(t, "Discussed the new job and stress levels.", record.SessionSummary)
	require.Len(t, record.ProgressMarkers, 2)
	assert.Equal(t, store.ProgressMarker{Milestone: "Asked for help"}, record.ProgressMarkers[0])
	assert.Equal(t, store.ProgressMarker{Milestone: "Kept a routine", Date: "2026-08-20"}, record.ProgressMarkers[1])
	assert.Equal(t, "Coping strategies for Mondays", record.NextSessionFocus)
}

func TestExtract_MissingKeysGetDefaults(t *testing.T) {
	gen := &fakeGenerator{response: `{"session_summary": "Short session."}`}
	extractor := NewExtractor(gen, memCfg())

	record, outcome := extractor.Extract(context.Background(), sampleTranscript())

	assert.False(t, outcome.Degraded)
	assert.Equal(t, "Short session.", record.SessionSummary)
	assert.NotNil(t, record.NewFacts)
	assert.Empty(t, record.NewFacts)
	assert.NotNil(t, record.BasicInfo)
	assert.NotNil(t, record.Themes)
	assert.NotNil(t, record.ProgressMarkers)
	assert.Equal(t, "", record.NextSessionFocus)
}

func TestExtract_GenerationFailureYieldsEmptyRecord(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("connection refused")}
	extractor := NewExtractor(gen, memCfg())

	record, outcome := extractor.Extract(context.Background(), sampleTranscript())

	assert.True(t, outcome.Degraded)
	assert.Contains(t, outcome.Reason, "generation failed")
	assert.Equal(t, EmptyExtractionRecord(), record)
}

func TestExtract_UnparseableOutputYieldsEmptyRecord(t *testing.T) {
	gen := &fakeGenerator{response: "I could not produce JSON, sorry."}
	extractor := NewExtractor(gen, memCfg())

	record, outcome := extractor.Extract(context.Background(), sampleTranscript())

	assert.True(t, outcome.Degraded)
	assert.Equal(t, EmptyExtractionRecord(), record)
}

func TestExtract_AcceptsFencedJSON(t *testing.T) {
	gen := &fakeGenerator{response: "```json\n{\"new_facts\": [\"Has a dog\"]}\n```"}
	extractor := NewExtractor(gen, memCfg())

	record, outcome := extractor.Extract(context.Background(), sampleTranscript())

	assert.False(t, outcome.Degraded)
	assert.Equal(t, []string{"Has a dog"}, record.NewFacts)
}

func TestExtract_RequestIsStructuredWithTranscript(t *testing.T) {
	gen := &fakeGenerator{response: `{}`}
	extractor := NewExtractor(gen, memCfg())

	_, _ = extractor.Extract(context.Background(), sampleTranscript())

	assert.True(t, gen.lastReq.Structured)
	assert.Equal(t, "gpt-5-mini", gen.lastReq.Model)
	assert.Contains(t, gen.lastReq.Prompt, "Client: Stressed about my new job.")
	assert.Contains(t, gen.lastReq.Prompt, "Therapist: How are you feeling today?")
}

func TestDecodeThemes_SkipsEntriesWithoutName(t *testing.T) {
	record, ok := decodeExtraction(`{"themes": [{"description": "no name"}, {"name": "grief"}]}`)

	require.True(t, ok)
	require.Len(t, record.Themes, 1)
	assert.Equal(t, "grief", record.Themes[0].Name)
}
