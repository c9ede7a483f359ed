package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/littl3hero/studentio-backend/internal/llmjson"
	"github.com/littl3hero/studentio-backend/internal/logger"
	"github.com/littl3hero/studentio-backend/internal/platform/openai"
	"github.com/littl3hero/studentio-backend/internal/services"
	"github.com/littl3hero/studentio-backend/internal/types"
)

const curatorSystemPrompt = `You are a study curator. Given a student's goals, reported mistakes and prior context, assess them.
Respond with a single JSON object:
{"profile": {"level": "...", "strengths": [...], "weaknesses": [...], "topics": [...], "notes": "...", "advice": "..."}}
No other keys, no prose.`

// Curator assesses a student into a StudentProfile and records a memory
// snapshot of the assessment. Assess always returns a usable profile.
type Curator struct {
	llm    Completer
	memory services.MemoryService
	log    *logger.Logger
}

func NewCurator(llm Completer, memory services.MemoryService, baseLog *logger.Logger) *Curator {
	return &Curator{llm: llm, memory: memory, log: baseLog.With("agent", "Curator")}
}

func (c *Curator) Assess(ctx context.Context, studentID, goals string, reportedErrors []string, level string) types.StudentProfile {
	normLevel := NormalizeLevel(level)
	reportedErrors = dedupeStrings(reportedErrors, 0)

	query := strings.TrimSpace(strings.Join(append(append([]string{}, reportedErrors...), goals), " "))
	if query == "" {
		query = "general topic"
	}
	snippets := c.memory.Retrieve(ctx, studentID, query, 3)

	profile := c.assessWithLLM(ctx, goals, reportedErrors, normLevel, snippets)
	profile = backfillProfile(profile, goals, reportedErrors, normLevel)

	c.saveSnapshot(ctx, studentID, goals, reportedErrors, profile)
	return profile
}

func (c *Curator) assessWithLLM(ctx context.Context, goals string, reportedErrors []string, level string, snippets []string) types.StudentProfile {
	if c.llm == nil {
		return types.StudentProfile{Notes: "LLM not configured; heuristic profile applied."}
	}

	user := fmt.Sprintf(
		"Prior context:\n%s\n\nLevel: %s\nGoals: %s\nReported mistakes: %s",
		strings.Join(snippets, "\n---\n"),
		level,
		goals,
		strings.Join(reportedErrors, ", "),
	)

	out, err := c.llm.Complete(ctx, curatorSystemPrompt, user, 0.4, true)
	if err != nil {
		c.log.Warn("Curator LLM call failed, using heuristic profile", "kind", openai.ErrKind(err), "error", err)
		return types.StudentProfile{Notes: "LLM unavailable; heuristic profile applied."}
	}

	var parsed struct {
		Profile types.StudentProfile `json:"profile"`
	}
	if err := llmjson.Decode(out, &parsed); err != nil {
		c.log.Warn("Curator LLM output not decodable, using heuristic profile", "error", err)
		return types.StudentProfile{Notes: "Model output could not be parsed; heuristic profile applied."}
	}
	return parsed.Profile
}

// backfillProfile fills every missing field so callers never see a partial
// profile, regardless of what the model returned.
func backfillProfile(profile types.StudentProfile, goals string, reportedErrors []string, level string) types.StudentProfile {
	profile.Level = level
	if profile.Strengths == nil {
		profile.Strengths = []string{}
	}
	if len(profile.Weaknesses) == 0 {
		if len(reportedErrors) > 0 {
			profile.Weaknesses = append([]string{}, reportedErrors...)
		} else {
			profile.Weaknesses = []string{"unspecified errors"}
		}
	}
	if len(profile.Topics) == 0 {
		if strings.TrimSpace(goals) != "" {
			profile.Topics = []string{strings.TrimSpace(goals)}
		} else {
			profile.Topics = []string{"basics"}
		}
	}
	if strings.TrimSpace(profile.Advice) == "" {
		profile.Advice = basicAdvice(reportedErrors, level)
	}
	return profile
}

// basicAdvice is the rule-based advice used whenever the model supplies
// none: keyword-matched tips for the reported mistakes plus one tip for
// the level.
func basicAdvice(reportedErrors []string, level string) string {
	joined := strings.ToLower(strings.Join(reportedErrors, " "))

	var tips []string
	if strings.Contains(joined, "sign") || strings.Contains(joined, "знак") {
		tips = append(tips, "Watch the signs: re-check them after every transformation.")
	}
	if strings.Contains(joined, "bracket") || strings.Contains(joined, "скоб") {
		tips = append(tips, "Expand brackets slowly and double-check each term.")
	}
	if strings.Contains(joined, "formula") || strings.Contains(joined, "формул") {
		tips = append(tips, "Write the formula out before substituting any values.")
	}
	if strings.Contains(joined, "logic") || strings.Contains(joined, "логик") {
		tips = append(tips, "State each inference explicitly and check it follows from the previous step.")
	}

	switch level {
	case types.LevelAdvanced:
		tips = append(tips, "Round-trip the formal definitions: state them, then derive them back from examples.")
	case types.LevelIntermediate:
		tips = append(tips, "Try solving without the cheat sheet first, then compare against it.")
	default:
		tips = append(tips, "Break every problem into small steps and verify each one before moving on.")
	}
	return strings.Join(tips, " ")
}

func (c *Curator) saveSnapshot(ctx context.Context, studentID, goals string, reportedErrors []string, profile types.StudentProfile) {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		c.log.Warn("Assessment profile not serializable, snapshot skipped", "error", err)
		return
	}

	text := fmt.Sprintf(
		"=== CURATOR ASSESSMENT ===\nstudent_id: %s\ngoals: %s\nerrors: %s\nprofile: %s",
		studentID,
		goals,
		strings.Join(reportedErrors, ", "),
		string(profileJSON),
	)
	meta := map[string]any{
		"kind":   services.KindCuratorAssessment,
		"level":  profile.Level,
		"goals":  goals,
		"errors": reportedErrors,
		"topics": profile.Topics,
	}
	if err := c.memory.Save(ctx, studentID, text, meta); err != nil {
		c.log.Warn("Assessment snapshot save failed", "student_id", studentID, "error", err)
	}
}
