package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/littl3hero/studentio-backend/internal/cache"
	"github.com/littl3hero/studentio-backend/internal/config"
	"github.com/littl3hero/studentio-backend/internal/types"
)

func newOrchestrator(llm Completer, mem *stubMemory) *Orchestrator {
	repo := &stubMaterialRepo{}
	cfg := config.Load("/nonexistent.yaml", nil)
	curator := NewCurator(llm, mem, testLogger())
	examiner := NewExaminer(llm, mem, cache.NewMemoryPreparedExams(), testLogger())
	materials := NewMaterialsAgent(llm, mem, repo, cfg, testLogger())
	return NewOrchestrator(llm, curator, examiner, materials, mem, testLogger())
}

func beginnerProfile() types.StudentProfile {
	return types.StudentProfile{
		Level:      "beginner",
		Topics:     []string{"limits"},
		Weaknesses: []string{"sign mistake"},
	}
}

func TestPlanFallbackBeginnerOrderAndRouting(t *testing.T) {
	o := newOrchestrator(nil, &stubMemory{})

	result := o.PlanAndExecute(context.Background(), "s1", "learn limits", beginnerProfile(), nil)

	if len(result.PlanSteps) != 2 {
		t.Fatalf("got %d steps, want 2", len(result.PlanSteps))
	}
	if result.PlanSteps[0].Type != types.StepTypeMaterials || result.PlanSteps[1].Type != types.StepTypeExam {
		t.Fatalf("step order = [%s, %s], want [materials, exam]", result.PlanSteps[0].Type, result.PlanSteps[1].Type)
	}
	if result.PlanSteps[0].ID != "step_1" || result.PlanSteps[1].ID != "step_2" {
		t.Fatalf("step ids = [%s, %s]", result.PlanSteps[0].ID, result.PlanSteps[1].ID)
	}
	if result.NextAgent != types.AgentMaterials {
		t.Fatalf("next_agent = %q, want materials", result.NextAgent)
	}
	if result.AutoRoute == nil || *result.AutoRoute != "/materials" {
		t.Fatalf("auto_route = %v, want /materials", result.AutoRoute)
	}
	if result.PrimaryStepID == nil || *result.PrimaryStepID != "step_1" {
		t.Fatalf("primary_step_id = %v", result.PrimaryStepID)
	}
	if !strings.Contains(result.PlanSteps[0].Description, "limits") {
		t.Fatalf("description should interpolate topics: %q", result.PlanSteps[0].Description)
	}
	if !strings.Contains(result.PlanSteps[1].Description, "sign mistake") {
		t.Fatalf("exam description should interpolate weaknesses: %q", result.PlanSteps[1].Description)
	}
	if result.InstructionMessage == "" {
		t.Fatal("instruction message missing")
	}
}

func TestPlanFallbackAdvancedExamFirst(t *testing.T) {
	o := newOrchestrator(nil, &stubMemory{})
	profile := beginnerProfile()
	profile.Level = "advanced"

	result := o.PlanAndExecute(context.Background(), "s1", "", profile, nil)

	if result.PlanSteps[0].Type != types.StepTypeExam {
		t.Fatalf("first step = %q, want exam for advanced", result.PlanSteps[0].Type)
	}
	if result.NextAgent != types.AgentExaminer {
		t.Fatalf("next_agent = %q", result.NextAgent)
	}
	if result.AutoRoute == nil || *result.AutoRoute != "/tests" {
		t.Fatalf("auto_route = %v", result.AutoRoute)
	}
}

func TestPlanFallbackEmptyProfileUsesGenericText(t *testing.T) {
	o := newOrchestrator(nil, &stubMemory{})

	result := o.PlanAndExecute(context.Background(), "s1", "", types.StudentProfile{}, nil)
	if !strings.Contains(result.PlanSteps[0].Description, "your current topics") {
		t.Fatalf("description = %q", result.PlanSteps[0].Description)
	}
}

func TestPlanFallbackStepsDoNotShareMeta(t *testing.T) {
	o := newOrchestrator(nil, &stubMemory{})

	result := o.PlanAndExecute(context.Background(), "s1", "", beginnerProfile(), nil)

	result.PlanSteps[0].Meta["marker"] = true
	if _, leaked := result.PlanSteps[1].Meta["marker"]; leaked {
		t.Fatal("fallback steps share one meta map")
	}
}

func TestAgentPlanFinalAnswerDirect(t *testing.T) {
	llm := &stubCompleter{responses: []string{
		`{"instruction_message": "Let's begin.", "plan_steps": [
			{"id": "warmup", "type": "exam", "title": "Warmup quiz", "description": "Five questions", "status": "prepared"},
			{"type": "mystery", "title": "", "description": ""}
		], "next_agent": "examiner", "auto_route": "/tests"}`,
	}}
	o := newOrchestrator(llm, &stubMemory{})

	result := o.PlanAndExecute(context.Background(), "s1", "limits", beginnerProfile(), nil)

	if result.InstructionMessage != "Let's begin." {
		t.Fatalf("instruction = %q", result.InstructionMessage)
	}
	if len(result.PlanSteps) != 2 {
		t.Fatalf("steps = %d", len(result.PlanSteps))
	}
	if result.PlanSteps[0].Status != types.StepStatusPrepared {
		t.Fatalf("status = %q", result.PlanSteps[0].Status)
	}
	// Second step is coerced: unknown type, synthesized id/title/description.
	second := result.PlanSteps[1]
	if second.Type != types.StepTypeOther || second.ID != "step_2" || second.Title != "Step 2" || second.Description == "" {
		t.Fatalf("coerced step = %+v", second)
	}
	if result.NextAgent != types.AgentExaminer || result.AutoRoute == nil || *result.AutoRoute != "/tests" {
		t.Fatalf("routing = %q %v", result.NextAgent, result.AutoRoute)
	}
	if result.PrimaryStepID == nil || *result.PrimaryStepID != "warmup" {
		t.Fatalf("primary = %v", result.PrimaryStepID)
	}
}

func TestAgentPlanBlankInstructionKeepsStepsWithDefault(t *testing.T) {
	llm := &stubCompleter{responses: []string{
		`{"instruction_message": "", "plan_steps": [
			{"id": "deep_dive", "type": "materials", "title": "Read up", "description": "One section", "status": "pending"}
		]}`,
	}}
	o := newOrchestrator(llm, &stubMemory{})

	result := o.PlanAndExecute(context.Background(), "s1", "", beginnerProfile(), nil)

	if len(result.PlanSteps) != 1 || result.PlanSteps[0].ID != "deep_dive" {
		t.Fatalf("steps = %+v, want the model's step kept", result.PlanSteps)
	}
	if result.InstructionMessage != fallbackInstruction {
		t.Fatalf("instruction = %q, want the default substituted", result.InstructionMessage)
	}
}

func TestAgentPlanToolLoopThenFinal(t *testing.T) {
	llm := &stubCompleter{responses: []string{
		`{"tool": "get_student_profile", "args": {}}`,
		`{"tool": "examiner_agent", "args": {"count": 3, "topic_hint": "limits"}}`,
		// Consumed by the examiner while serving the tool call.
		`{"questions": [
			{"id": "a", "text": "Q1", "options": ["w","x","y","z"], "answer": 1},
			{"id": "b", "text": "Q2", "options": ["w","x","y","z"], "answer": 2},
			{"id": "c", "text": "Q3", "options": ["w","x","y","z"], "answer": 3}
		]}`,
		`{"instruction_message": "Exam is ready.", "plan_steps": [
			{"id": "step_1", "type": "exam", "title": "Take the exam", "description": "Three questions on limits", "status": "prepared"}
		]}`,
	}}
	mem := &stubMemory{snapshot: snapshotRecord()}
	o := newOrchestrator(llm, mem)

	result := o.PlanAndExecute(context.Background(), "s1", "limits", beginnerProfile(), nil)

	if llm.calls != 4 {
		t.Fatalf("llm calls = %d, want 2 planner rounds, 1 examiner call, 1 final answer", llm.calls)
	}
	if result.InstructionMessage != "Exam is ready." {
		t.Fatalf("instruction = %q, want agentic plan", result.InstructionMessage)
	}
	// Tool results are fed back into the next round.
	if !strings.Contains(llm.lastUser, "TOOL examiner_agent RESULT") {
		t.Fatalf("transcript missing tool result: %q", llm.lastUser)
	}
	if !strings.Contains(llm.lastUser, `"questions_prepared":3`) {
		t.Fatalf("examiner tool result not surfaced: %q", llm.lastUser)
	}
	// The prepared exam from the tool call is poppable afterwards.
	if exam, ok := o.examiner.TakePrepared(context.Background(), "s1"); !ok || len(exam.Questions) != 3 {
		t.Fatalf("prepared exam = %v ok=%v", exam, ok)
	}
}

func TestAgentPlanUnknownToolDiscardsWholeResult(t *testing.T) {
	llm := &stubCompleter{responses: []string{
		`{"tool": "rm_rf_agent", "args": {}}`,
	}}
	o := newOrchestrator(llm, &stubMemory{})

	result := o.PlanAndExecute(context.Background(), "s1", "", beginnerProfile(), nil)
	if result.InstructionMessage != fallbackInstruction {
		t.Fatalf("unknown tool should discard the agentic result, got %q", result.InstructionMessage)
	}
	if llm.calls != 1 {
		t.Fatalf("loop should stop at the invalid tool, calls = %d", llm.calls)
	}
}

func TestAgentPlanMalformedAnswersFallBack(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not json", "I think the student should study more"},
		{"missing instruction", `{"plan_steps": [{"type": "exam"}]}`},
		{"empty steps", `{"instruction_message": "hi", "plan_steps": []}`},
		{"steps not a list", `{"instruction_message": "hi", "plan_steps": "exam"}`},
		{"neither tool nor plan", `{"thoughts": "hmm"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			llm := &stubCompleter{responses: []string{tc.response}}
			o := newOrchestrator(llm, &stubMemory{})

			result := o.PlanAndExecute(context.Background(), "s1", "", beginnerProfile(), nil)
			if result.InstructionMessage != fallbackInstruction {
				t.Fatalf("want deterministic fallback, got %q", result.InstructionMessage)
			}
			if len(result.PlanSteps) != 2 {
				t.Fatalf("fallback steps = %d", len(result.PlanSteps))
			}
		})
	}
}

func TestAgentPlanRoundBudgetExhaustedFallsBack(t *testing.T) {
	// The model keeps calling tools and never answers.
	llm := &stubCompleter{responses: []string{`{"tool": "get_student_profile", "args": {}}`}}
	o := newOrchestrator(llm, &stubMemory{})

	result := o.PlanAndExecute(context.Background(), "s1", "", beginnerProfile(), nil)
	if result.InstructionMessage != fallbackInstruction {
		t.Fatalf("want fallback after round budget, got %q", result.InstructionMessage)
	}
	if llm.calls != plannerMaxRounds {
		t.Fatalf("llm calls = %d, want %d", llm.calls, plannerMaxRounds)
	}
}

func TestAgentPlanInvalidNextAgentDerivesRouting(t *testing.T) {
	llm := &stubCompleter{responses: []string{
		`{"instruction_message": "Go.", "plan_steps": [
			{"id": "s1", "type": "materials", "title": "Read", "description": "d", "status": "pending"}
		], "next_agent": "terminator", "auto_route": "/shutdown"}`,
	}}
	o := newOrchestrator(llm, &stubMemory{})

	result := o.PlanAndExecute(context.Background(), "s1", "", beginnerProfile(), nil)
	if result.NextAgent != types.AgentMaterials {
		t.Fatalf("invalid next_agent should be replaced by derived routing, got %q", result.NextAgent)
	}
	if result.AutoRoute == nil || *result.AutoRoute != "/materials" {
		t.Fatalf("auto_route = %v", result.AutoRoute)
	}
}

func TestPrimaryStepSkipsErrorAndOtherSteps(t *testing.T) {
	steps := []types.PlanStep{
		{ID: "a", Type: types.StepTypeOther, Status: types.StepStatusPending},
		{ID: "b", Type: types.StepTypeExam, Status: types.StepStatusError},
		{ID: "c", Type: types.StepTypeChat, Status: types.StepStatusPending},
	}
	primary := primaryStep(steps)
	if primary == nil || primary.ID != "c" {
		t.Fatalf("primary = %+v, want step c", primary)
	}

	next, route := routeForStep(primary)
	if next != types.AgentCurator || route != nil {
		t.Fatalf("chat routing = %q %v, want curator with null route", next, route)
	}
}

func TestRouteForNoPrimary(t *testing.T) {
	next, route := routeForStep(nil)
	if next != types.AgentNone || route != nil {
		t.Fatalf("routing = %q %v", next, route)
	}
}
