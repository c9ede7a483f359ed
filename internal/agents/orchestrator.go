package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/littl3hero/studentio-backend/internal/llmjson"
	"github.com/littl3hero/studentio-backend/internal/logger"
	"github.com/littl3hero/studentio-backend/internal/services"
	"github.com/littl3hero/studentio-backend/internal/types"
)

const plannerMaxRounds = 6

const fallbackInstruction = "Here is your study plan. Follow the steps in order; I will guide you along the way."

// Orchestrator builds a study plan for a student. When a provider is
// configured it runs an agentic planning loop over a closed tool set; any
// failure in that loop discards the whole agentic result in favor of the
// deterministic two-step plan.
type Orchestrator struct {
	llm       Completer
	curator   *Curator
	examiner  *Examiner
	materials *MaterialsAgent
	memory    services.MemoryService
	log       *logger.Logger
}

func NewOrchestrator(llm Completer, curator *Curator, examiner *Examiner, materials *MaterialsAgent, memory services.MemoryService, baseLog *logger.Logger) *Orchestrator {
	return &Orchestrator{
		llm:       llm,
		curator:   curator,
		examiner:  examiner,
		materials: materials,
		memory:    memory,
		log:       baseLog.With("agent", "Orchestrator"),
	}
}

type planContext struct {
	StudentID  string
	Level      string
	Goals      string
	Topics     []string
	Weaknesses []string
	Profile    types.StudentProfile
}

type plan struct {
	Instruction string
	Steps       []types.PlanStep
	NextAgent   string
	AutoRoute   string
}

func (o *Orchestrator) PlanAndExecute(ctx context.Context, studentID, goals string, profile types.StudentProfile, chat []types.ChatMessage) types.OrchestratorResult {
	level := NormalizeLevel(profile.Level)
	profile.Level = level

	pc := planContext{
		StudentID:  studentID,
		Level:      level,
		Goals:      goals,
		Topics:     profile.Topics,
		Weaknesses: profile.Weaknesses,
		Profile:    profile,
	}

	p := o.agentPlan(ctx, pc, chat)
	if p == nil {
		p = o.fallbackPlan(pc)
	}
	if strings.TrimSpace(p.Instruction) == "" {
		p.Instruction = fallbackInstruction
	}

	// Uniform normalization regardless of which path produced the plan.
	steps := normalizeSteps(p.Steps)

	primary := primaryStep(steps)
	nextAgent, autoRoute := routeForStep(primary)
	if validNextAgent(p.NextAgent) {
		nextAgent = p.NextAgent
		if strings.TrimSpace(p.AutoRoute) != "" {
			route := strings.TrimSpace(p.AutoRoute)
			autoRoute = &route
		}
	}

	result := types.OrchestratorResult{
		InstructionMessage: p.Instruction,
		PlanSteps:          steps,
		NextAgent:          nextAgent,
		AutoRoute:          autoRoute,
	}
	if primary != nil {
		id := primary.ID
		result.PrimaryStepID = &id
	}
	return result
}

// -------------------- agentic path --------------------

const plannerProtocol = `You are a tutoring orchestrator. Plan the student's next study session.
You may call tools, one at a time. To call a tool respond with exactly:
{"tool": "<name>", "args": {...}}
When you are done respond with the final plan:
{"instruction_message": "<message to the student>", "plan_steps": [{"id": "...", "type": "exam|materials|chat|other", "title": "...", "description": "...", "meta": {}, "status": "prepared|pending"}], "next_agent": "examiner|materials|curator|none", "auto_route": "<route or omit>"}
Always respond with a single JSON object and nothing else.

Available tools:
`

func (o *Orchestrator) agentPlan(ctx context.Context, pc planContext, chat []types.ChatMessage) *plan {
	if o.llm == nil {
		return nil
	}

	tools := o.buildTools(pc)
	byName := make(map[string]plannerTool, len(tools))
	var system strings.Builder
	system.WriteString(plannerProtocol)
	for _, tool := range tools {
		byName[tool.Name] = tool
		fmt.Fprintf(&system, "- %s: %s\n", tool.Name, tool.Description)
	}

	contextPayload := map[string]any{
		"student_id": pc.StudentID,
		"level":      pc.Level,
		"goals":      pc.Goals,
		"topics":     pc.Topics,
		"weaknesses": pc.Weaknesses,
		"profile":    pc.Profile,
	}
	if snapshot := o.memory.LastCuratorSnapshot(ctx, pc.StudentID); snapshot != nil {
		contextPayload["last_curator_snapshot"] = snapshot.Text
	}
	if records, err := o.memory.Recent(ctx, pc.StudentID, "", 8); err == nil {
		texts := make([]string, 0, len(records))
		for _, rec := range records {
			texts = append(texts, rec.Text)
		}
		contextPayload["recent_memory"] = texts
	}
	if len(chat) > 0 {
		contextPayload["chat_messages"] = chat
	}
	contextJSON, err := json.Marshal(contextPayload)
	if err != nil {
		return nil
	}

	transcript := []string{"CONTEXT: " + string(contextJSON)}

	for round := 0; round < plannerMaxRounds; round++ {
		out, err := o.llm.Complete(ctx, system.String(), strings.Join(transcript, "\n\n"), 0.2, true)
		if err != nil {
			o.log.Warn("Planner LLM call failed, using deterministic plan", "round", round, "error", err)
			return nil
		}

		m, err := llmjson.DecodeMap(out)
		if err != nil {
			o.log.Warn("Planner output not decodable, using deterministic plan", "round", round, "error", err)
			return nil
		}

		if toolName, ok := m["tool"].(string); ok && strings.TrimSpace(toolName) != "" {
			tool, known := byName[strings.TrimSpace(toolName)]
			if !known {
				o.log.Warn("Planner requested unknown tool, using deterministic plan", "tool", toolName)
				return nil
			}
			args, _ := m["args"].(map[string]any)
			result := tool.Run(ctx, args)
			resultJSON, err := json.Marshal(result)
			if err != nil {
				return nil
			}
			transcript = append(transcript, fmt.Sprintf("TOOL %s RESULT: %s", tool.Name, string(resultJSON)))
			continue
		}

		if _, ok := m["plan_steps"]; ok {
			return finalAnswerPlan(m)
		}

		o.log.Warn("Planner output neither tool call nor plan, using deterministic plan", "round", round)
		return nil
	}

	o.log.Warn("Planner exceeded round budget, using deterministic plan")
	return nil
}

// finalAnswerPlan validates the model's final answer. A missing
// instruction_message key or an empty usable step list rejects the whole
// agentic result; a present but blank instruction keeps the steps and
// gets the default message substituted by the caller.
func finalAnswerPlan(m map[string]any) *plan {
	rawInstruction, hasInstruction := m["instruction_message"]
	if !hasInstruction {
		return nil
	}
	instruction, _ := rawInstruction.(string)

	rawSteps, ok := m["plan_steps"].([]any)
	if !ok {
		return nil
	}
	steps := coerceSteps(rawSteps)
	if len(steps) == 0 {
		return nil
	}

	p := &plan{Instruction: strings.TrimSpace(instruction), Steps: steps}
	if next, ok := m["next_agent"].(string); ok {
		p.NextAgent = strings.TrimSpace(next)
	}
	if route, ok := m["auto_route"].(string); ok {
		p.AutoRoute = strings.TrimSpace(route)
	}
	return p
}

func coerceSteps(raw []any) []types.PlanStep {
	steps := make([]types.PlanStep, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		step := types.PlanStep{
			ID:          stringArg(m, "id"),
			Type:        stringArg(m, "type"),
			Title:       stringArg(m, "title"),
			Description: stringArg(m, "description"),
			Status:      stringArg(m, "status"),
		}
		if meta, ok := m["meta"].(map[string]any); ok {
			step.Meta = meta
		}
		steps = append(steps, step)
	}
	return normalizeSteps(steps)
}

// normalizeSteps coerces type and status onto the closed sets and
// synthesizes missing ids, titles and descriptions. It is idempotent.
func normalizeSteps(steps []types.PlanStep) []types.PlanStep {
	out := make([]types.PlanStep, 0, len(steps))
	for idx, step := range steps {
		switch step.Type {
		case types.StepTypeExam, types.StepTypeMaterials, types.StepTypeChat, types.StepTypeOther:
		default:
			step.Type = types.StepTypeOther
		}
		switch step.Status {
		case types.StepStatusPrepared, types.StepStatusPending, types.StepStatusError:
		default:
			step.Status = types.StepStatusPending
		}
		if strings.TrimSpace(step.ID) == "" {
			step.ID = fmt.Sprintf("step_%d", idx+1)
		}
		if strings.TrimSpace(step.Title) == "" {
			step.Title = fmt.Sprintf("Step %d", idx+1)
		}
		if strings.TrimSpace(step.Description) == "" {
			step.Description = "Work through this step with the assistant."
		}
		if step.Meta == nil {
			step.Meta = map[string]any{}
		}
		out = append(out, step)
	}
	return out
}

// -------------------- deterministic fallback --------------------

// fallbackPlan is the two-step plan used whenever the agentic path is
// unavailable or rejected: materials before the exam for beginners and
// intermediates, exam first for advanced students.
func (o *Orchestrator) fallbackPlan(pc planContext) *plan {
	topicsText := strings.Join(pc.Topics, ", ")
	if topicsText == "" {
		topicsText = "your current topics"
	}
	weakText := strings.Join(pc.Weaknesses, ", ")
	if weakText == "" {
		weakText = "typical mistakes"
	}

	// Each step gets its own meta map; clients mutate these.
	stepMeta := func() map[string]any {
		return map[string]any{
			"student_id": pc.StudentID,
			"level":      pc.Level,
			"topics":     pc.Topics,
			"weaknesses": pc.Weaknesses,
		}
	}

	materialsStep := types.PlanStep{
		Type:        types.StepTypeMaterials,
		Title:       "Review the materials",
		Description: fmt.Sprintf("Study the prepared materials on %s.", topicsText),
		Meta:        stepMeta(),
		Status:      types.StepStatusPending,
	}
	examStep := types.PlanStep{
		Type:        types.StepTypeExam,
		Title:       "Take a short exam",
		Description: fmt.Sprintf("Check yourself on %s and watch out for %s.", topicsText, weakText),
		Meta:        stepMeta(),
		Status:      types.StepStatusPending,
	}

	var steps []types.PlanStep
	if pc.Level == types.LevelAdvanced {
		steps = []types.PlanStep{examStep, materialsStep}
	} else {
		steps = []types.PlanStep{materialsStep, examStep}
	}
	for idx := range steps {
		steps[idx].ID = fmt.Sprintf("step_%d", idx+1)
	}

	return &plan{Instruction: fallbackInstruction, Steps: steps}
}

// -------------------- routing --------------------

// primaryStep is the first non-error step a client can act on.
func primaryStep(steps []types.PlanStep) *types.PlanStep {
	for i := range steps {
		if steps[i].Status == types.StepStatusError {
			continue
		}
		switch steps[i].Type {
		case types.StepTypeExam, types.StepTypeMaterials, types.StepTypeChat:
			return &steps[i]
		}
	}
	return nil
}

func routeForStep(step *types.PlanStep) (string, *string) {
	if step == nil {
		return types.AgentNone, nil
	}
	switch step.Type {
	case types.StepTypeExam:
		route := "/tests"
		return types.AgentExaminer, &route
	case types.StepTypeMaterials:
		route := "/materials"
		return types.AgentMaterials, &route
	case types.StepTypeChat:
		return types.AgentCurator, nil
	}
	return types.AgentNone, nil
}

func validNextAgent(agent string) bool {
	switch agent {
	case types.AgentExaminer, types.AgentMaterials, types.AgentCurator, types.AgentNone:
		return true
	}
	return false
}
