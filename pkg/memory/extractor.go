package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/config"
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/logger"
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/providers"
	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/store"
)

// Extractor turns a finished session transcript into an ExtractionRecord via
// one structured generation call.
type Extractor struct {
	gen             providers.Generator
	model           string
	reasoningEffort string
	verbosity       string
}

func NewExtractor(gen providers.Generator, cfg config.MemoryConfig) *Extractor {
	return &Extractor{
		gen:             gen,
		model:           cfg.Model,
		reasoningEffort: cfg.ReasoningEffort,
		verbosity:       cfg.Verbosity,
	}
}

// Extract reviews the transcript. It always returns a well-formed record:
// when the generation call fails or returns unusable JSON, the record is
// empty and the outcome is degraded with the reason. Extraction failure must
// never abort session end.
func (e *Extractor) Extract(ctx context.Context, transcript []store.TranscriptMessage) (ExtractionRecord, Outcome) {
	prompt := fmt.Sprintf(extractionPromptTemplate, formatTranscript(transcript))

	raw, err := e.gen.Generate(ctx, providers.GenerateRequest{
		Model:           e.model,
		System:          extractionSystemPrompt,
		Prompt:          prompt,
		Structured:      true,
		ReasoningEffort: e.reasoningEffort,
		Verbosity:       e.verbosity,
	})
	if err != nil {
		logger.WarnCF("memory", "Extraction call failed, using empty record", map[string]interface{}{
			"error": err.Error(),
		})
		return EmptyExtractionRecord(), degraded("generation failed: " + err.Error())
	}

	record, ok := decodeExtraction(raw)
	if !ok {
		logger.WarnCF("memory", "Extraction output was not valid JSON, using empty record", map[string]interface{}{
			"output_len": len(raw),
		})
		return EmptyExtractionRecord(), degraded("unparseable extraction output")
	}

	return record, Outcome{}
}

// decodeExtraction validates raw generation output against the fixed record
// shape. Recognized keys are copied through with tolerant per-key decoding,
// missing keys keep their empty defaults, unknown keys are dropped. It only
// reports failure when the output is not a JSON object at all.
func decodeExtraction(raw string) (ExtractionRecord, bool) {
	record := EmptyExtractionRecord()

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &fields); err != nil {
		return record, false
	}

	if v, ok := fields["new_facts"]; ok {
		record.NewFacts = decodeStringList(v)
	}
	if v, ok := fields["updated_facts"]; ok {
		record.UpdatedFacts = decodeStringList(v)
	}
	if v, ok := fields["basic_info"]; ok {
		record.BasicInfo = decodeStringMap(v)
	}
	if v, ok := fields["themes"]; ok {
		record.Themes = decodeThemes(v)
	}
	if v, ok := fields["session_summary"]; ok {
		record.SessionSummary = decodeString(v)
	}
	if v, ok := fields["important_moments"]; ok {
		record.ImportantMoments = decodeStringList(v)
	}
	if v, ok := fields["progress_markers"]; ok {
		record.ProgressMarkers = decodeProgressMarkers(v)
	}
	if v, ok := fields["next_session_focus"]; ok {
		record.NextSessionFocus = decodeString(v)
	}

	return record, true
}

// stripCodeFences removes a surrounding markdown code fence, which models
// sometimes wrap around JSON output despite instructions.
func stripCodeFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func decodeString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func decodeStringList(raw json.RawMessage) []string {
	var list []interface{}
	if err := json.Unmarshal(raw, &list); err != nil {
		// A bare string stands in for a single-item list.
		if s := decodeString(raw); s != "" {
			return []string{s}
		}
		return []string{}
	}

	out := make([]string, 0, len(list))
	for _, item := range list {
		if s := stringifyValue(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func decodeStringMap(raw json.RawMessage) map[string]string {
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]string{}
	}

	out := make(map[string]string, len(m))
	for key, value := range m {
		if s := stringifyValue(value); s != "" {
			out[key] = s
		}
	}
	return out
}

func decodeThemes(raw json.RawMessage) []store.Theme {
	var list []map[string]interface{}
	if err := json.Unmarshal(raw, &list); err != nil {
		return []store.Theme{}
	}

	out := make([]store.Theme, 0, len(list))
	for _, entry := range list {
		theme := store.Theme{
			Name:        stringifyValue(entry["name"]),
			Description: stringifyValue(entry["description"]),
			Intensity:   stringifyValue(entry["intensity"]),
			Notes:       stringifyValue(entry["notes"]),
		}
		if theme.Name == "" {
			continue
		}
		out = append(out, theme)
	}
	return out
}

// decodeProgressMarkers accepts both bare strings and structured
// {milestone, date} objects. Bare strings become markers with an empty date;
// the merger stamps those at merge time.
func decodeProgressMarkers(raw json.RawMessage) []store.ProgressMarker {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return []store.ProgressMarker{}
	}

	out := make([]store.ProgressMarker, 0, len(list))
	for _, item := range list {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, store.ProgressMarker{Milestone: s})
			}
			continue
		}

		var structured struct {
			Milestone string `json:"milestone"`
			Date      string `json:"date"`
		}
		if err := json.Unmarshal(item, &structured); err == nil && strings.TrimSpace(structured.Milestone) != "" {
			out = append(out, store.ProgressMarker{
				Milestone: strings.TrimSpace(structured.Milestone),
				Date:      strings.TrimSpace(structured.Date),
			})
		}
	}
	return out
}

func stringifyValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
