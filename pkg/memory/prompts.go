package memory

import (
	"fmt"
	"strings"

	"github.com/AdnanElAssadi56/therapist-memory-mvp/pkg/store"
)

// TherapistSystemPrompt frames the dialogue model. The memory context block
// is appended below it each turn.
const TherapistSystemPrompt = `You are an empathetic and professional AI therapist. Your role is to:

- Listen actively and validate the client's feelings
- Ask thoughtful, open-ended questions to explore their experiences
- Help clients identify patterns and insights
- Maintain appropriate therapeutic boundaries
- Be warm, non-judgmental, and supportive
- Focus on the client's emotional well-being and growth

IMPORTANT: You have access to the client's profile, past sessions, and recurring themes below. Use this information to:
- Personalize your responses (use their name when appropriate)
- Reference relevant past discussions or themes
- Show continuity and that you remember what they've shared
- Connect current topics to patterns you've observed

Remember: You are having a conversation, not giving advice. Help clients explore their own thoughts and feelings.`

const extractionSystemPrompt = "You are a therapist reviewing a session to extract important information."

const extractionPromptTemplate = `You are a therapist reviewing a session transcript. Extract the following information to update the client's memory:

TRANSCRIPT:
%s

Extract and return as JSON with this exact structure:
{
  "new_facts": [
    "List any new factual information about the client (name, age, job, relationships, life events, etc.)"
  ],
  "updated_facts": [
    "List any updates to existing facts (e.g., 'Changed jobs from X to Y')"
  ],
  "basic_info": {
    "name": "Basic attributes worth keeping on the profile (name, age, occupation, ...)"
  },
  "themes": [
    {
      "name": "short_identifier_for_theme",
      "description": "Brief description of the emotional or behavioral pattern",
      "intensity": "high|medium|low",
      "notes": "Specific details or triggers related to this theme"
    }
  ],
  "session_summary": "2-3 sentence summary of what was discussed and any breakthroughs",
  "important_moments": [
    "List any particularly significant moments (breakthroughs, emotional releases, insights)"
  ],
  "progress_markers": [
    "List any signs of progress or positive changes"
  ],
  "next_session_focus": "What should be followed up on or explored further next time"
}

Focus on what would be therapeutically important to remember. Be concise but capture the essence.`

const retrievalSystemPrompt = "You decide which past memories are relevant for therapy conversations."

const retrievalPromptTemplate = `You are helping decide which past memories are relevant for the current therapy conversation.

CURRENT USER MESSAGE:
%s

CLIENT PROFILE:
%s

AVAILABLE THEMES:
%s

AVAILABLE PAST SESSIONS:
%s

Decide which themes and sessions would be most relevant to recall for this conversation. Return as JSON:
{
  "relevant_themes": ["list of theme names that are relevant"],
  "relevant_sessions": ["list of session IDs that should be recalled"],
  "reasoning": "Brief explanation of why these are relevant"
}

Only include what's truly relevant. It's okay to return empty lists if nothing from the past is particularly relevant to the current message.`

// formatTranscript renders a transcript for the extraction prompt, labeling
// user turns as the client and assistant turns as the therapist.
func formatTranscript(transcript []store.TranscriptMessage) string {
	lines := make([]string, 0, len(transcript))
	for _, msg := range transcript {
		switch msg.Role {
		case "user":
			lines = append(lines, "Client: "+msg.Content)
		case "assistant":
			lines = append(lines, "Therapist: "+msg.Content)
		}
	}
	return strings.Join(lines, "\n\n")
}

// formatProfileSummary builds the brief profile line used by the retrieval
// prompt: basic info plus up to the first three key facts.
func formatProfileSummary(profile store.Profile) string {
	parts := make([]string, 0, 2)

	if len(profile.BasicInfo) > 0 {
		infoParts := make([]string, 0, len(profile.BasicInfo))
		for _, key := range sortedKeys(profile.BasicInfo) {
			infoParts = append(infoParts, fmt.Sprintf("%s: %s", key, profile.BasicInfo[key]))
		}
		parts = append(parts, strings.Join(infoParts, ", "))
	}

	if len(profile.KeyFacts) > 0 {
		facts := profile.KeyFacts
		if len(facts) > 3 {
			facts = facts[:3]
		}
		parts = append(parts, "Key facts: "+strings.Join(facts, "; "))
	}

	if len(parts) == 0 {
		return "New client, no profile yet"
	}
	return strings.Join(parts, " | ")
}

func formatAvailableThemes(themes []store.Theme) string {
	if len(themes) == 0 {
		return "No themes recorded yet"
	}
	lines := make([]string, 0, len(themes))
	for _, theme := range themes {
		lines = append(lines, fmt.Sprintf("- %s: %s", theme.Name, theme.Description))
	}
	return strings.Join(lines, "\n")
}

func formatAvailableSessions(sessionIDs []string) string {
	if len(sessionIDs) == 0 {
		return "No previous sessions"
	}
	return strings.Join(sessionIDs, ", ")
}
