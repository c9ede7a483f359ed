package agents

import (
	"context"
	"strings"
)

// plannerTool is one operation the orchestrator's model may invoke. Run
// absorbs all internal errors into a {"status": "error"} payload so a
// failed tool never aborts the planning loop by itself.
type plannerTool struct {
	Name        string
	Description string
	Run         func(ctx context.Context, args map[string]any) map[string]any
}

func (o *Orchestrator) buildTools(pc planContext) []plannerTool {
	return []plannerTool{
		{
			Name:        "curator_agent",
			Description: "Re-assess the student. args: {\"task\": string}",
			Run: func(ctx context.Context, args map[string]any) map[string]any {
				task := stringArg(args, "task")
				if task == "" {
					task = pc.Goals
				}
				profile := o.curator.Assess(ctx, pc.StudentID, task, nil, pc.Level)
				return map[string]any{"status": "ok", "profile": profile}
			},
		},
		{
			Name:        "examiner_agent",
			Description: "Prepare an exam for the student. args: {\"count\": int (1-20, default 5), \"topic_hint\": string}",
			Run: func(ctx context.Context, args map[string]any) map[string]any {
				count := ClampCount(intArg(args, "count"))
				topicHint := stringArg(args, "topic_hint")
				prepared := o.examiner.Prepare(ctx, pc.StudentID, count, topicHint)
				return map[string]any{"status": "ok", "questions_prepared": prepared, "topic_hint": topicHint}
			},
		},
		{
			Name:        "materials_agent",
			Description: "Generate and store study materials. args: {\"focus_topics\": [string], \"weaknesses\": [string]}",
			Run: func(ctx context.Context, args map[string]any) map[string]any {
				focus := stringListArg(args, "focus_topics")
				weak := stringListArg(args, "weaknesses")
				materials := o.materials.GenerateAndSave(ctx, pc.StudentID, focus, weak)
				return map[string]any{"status": "ok", "materials_prepared": len(materials)}
			},
		},
		{
			Name:        "get_materials_summary",
			Description: "List stored materials. args: {\"limit\": int (1-20)}",
			Run: func(ctx context.Context, args map[string]any) map[string]any {
				limit := clampLimit(intArg(args, "limit"), 10)
				materials := o.materials.List(ctx, pc.StudentID)
				if len(materials) > limit {
					materials = materials[:limit]
				}
				summary := make([]map[string]string, 0, len(materials))
				for _, m := range materials {
					summary = append(summary, map[string]string{"title": m.Title, "type": m.Type})
				}
				return map[string]any{"status": "ok", "materials": summary}
			},
		},
		{
			Name:        "get_student_profile",
			Description: "Read the student profile the plan is for. args: {}",
			Run: func(ctx context.Context, args map[string]any) map[string]any {
				return map[string]any{"status": "ok", "profile": pc.Profile, "goals": pc.Goals}
			},
		},
		{
			Name:        "get_recent_memory",
			Description: "Read recent memory records. args: {\"limit\": int (1-20)}",
			Run: func(ctx context.Context, args map[string]any) map[string]any {
				limit := clampLimit(intArg(args, "limit"), 5)
				records, err := o.memory.Recent(ctx, pc.StudentID, "", limit)
				if err != nil {
					return map[string]any{"status": "error", "error": err.Error()}
				}
				texts := make([]string, 0, len(records))
				for _, rec := range records {
					texts = append(texts, rec.Text)
				}
				return map[string]any{"status": "ok", "records": texts}
			},
		},
	}
}

func clampLimit(n, def int) int {
	if n == 0 {
		return def
	}
	if n < 1 {
		return 1
	}
	if n > 20 {
		return 20
	}
	return n
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	if s, ok := args[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func intArg(args map[string]any, key string) int {
	if args == nil {
		return 0
	}
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func stringListArg(args map[string]any, key string) []string {
	if args == nil {
		return nil
	}
	items, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
