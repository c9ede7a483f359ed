package agents

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/littl3hero/studentio-backend/internal/llmjson"
	"github.com/littl3hero/studentio-backend/internal/logger"
	"github.com/littl3hero/studentio-backend/internal/types"
)

const extractorSystemPrompt = `You analyze a tutoring chat transcript and extract what the student wants to learn and which difficulties they report.
Respond with a single JSON object: {"goals": "<short phrase>", "errors": ["<difficulty>", ...]}.
Use the student's own wording where possible. No other keys, no prose.`

const maxExtractMessages = 30

// Phrases that mark a reported difficulty in the transcript.
var errorTriggers = []string{
	"don't understand",
	"mistake",
	"confuse",
	"hard",
	"difficult",
	"problem",
}

// Extractor turns a raw chat transcript into (goals, errors) for the
// Curator. The LLM path is optional; the keyword heuristic always works.
type Extractor struct {
	llm Completer
	log *logger.Logger
}

func NewExtractor(llm Completer, baseLog *logger.Logger) *Extractor {
	return &Extractor{llm: llm, log: baseLog.With("agent", "Extractor")}
}

func (e *Extractor) Extract(ctx context.Context, messages []types.ChatMessage, topicHint string) (string, []string) {
	if goals, errs, ok := e.llmExtract(ctx, messages); ok {
		return goals, errs
	}
	return e.heuristicExtract(messages, topicHint)
}

func (e *Extractor) llmExtract(ctx context.Context, messages []types.ChatMessage) (string, []string, bool) {
	if e.llm == nil || len(messages) == 0 {
		return "", nil, false
	}

	window := messages
	if len(window) > maxExtractMessages {
		window = window[len(window)-maxExtractMessages:]
	}
	transcript, err := json.Marshal(window)
	if err != nil {
		return "", nil, false
	}

	out, err := e.llm.Complete(ctx, extractorSystemPrompt, string(transcript), 0.0, true)
	if err != nil {
		e.log.Debug("LLM extraction failed, using heuristic", "error", err)
		return "", nil, false
	}

	var parsed struct {
		Goals  string   `json:"goals"`
		Errors []string `json:"errors"`
	}
	if err := llmjson.Decode(out, &parsed); err != nil {
		e.log.Debug("LLM extraction output not decodable, using heuristic", "error", err)
		return "", nil, false
	}
	return strings.TrimSpace(parsed.Goals), dedupeStrings(parsed.Errors, 6), true
}

func (e *Extractor) heuristicExtract(messages []types.ChatMessage, topicHint string) (string, []string) {
	goals := strings.TrimSpace(topicHint)
	if goals == "" {
		if last := lastUserMessage(messages); last != "" {
			goals = truncateRunes(normalizeWhitespace(last), 80)
		}
	}
	if goals == "" {
		goals = "general topic"
	}

	var transcript strings.Builder
	for _, msg := range messages {
		transcript.WriteString(strings.ToLower(msg.Content))
		transcript.WriteString("\n")
	}
	joined := transcript.String()

	var errs []string
	for _, trigger := range errorTriggers {
		if strings.Contains(joined, trigger) {
			errs = append(errs, trigger)
		}
	}
	return goals, dedupeStrings(errs, 6)
}

func lastUserMessage(messages []types.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" && strings.TrimSpace(messages[i].Content) != "" {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
