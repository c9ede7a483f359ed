package types

// Levels a student profile can carry. Every other spelling is normalized
// onto one of these.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

type StudentProfile struct {
	Level      string   `json:"level"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
	Topics     []string `json:"topics"`
	Notes      string   `json:"notes"`
	Advice     string   `json:"advice"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ExamQuestion is a single multiple-choice question: exactly four options,
// answer is the index of the correct one.
type ExamQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Answer  int      `json:"answer"`
}

type Exam struct {
	OK        bool           `json:"ok"`
	Questions []ExamQuestion `json:"questions"`
	Rubric    string         `json:"rubric"`
}

// Plan step types and statuses used by the orchestrator.
const (
	StepTypeExam      = "exam"
	StepTypeMaterials = "materials"
	StepTypeChat      = "chat"
	StepTypeOther     = "other"

	StepStatusPrepared = "prepared"
	StepStatusPending  = "pending"
	StepStatusError    = "error"
)

type PlanStep struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Meta        map[string]any `json:"meta"`
	Status      string         `json:"status"`
}

// Agents the orchestrator can hand off to.
const (
	AgentExaminer  = "examiner"
	AgentMaterials = "materials"
	AgentCurator   = "curator"
	AgentNone      = "none"
)

type OrchestratorResult struct {
	InstructionMessage string     `json:"instruction_message"`
	PlanSteps          []PlanStep `json:"plan_steps"`
	NextAgent          string     `json:"next_agent"`
	AutoRoute          *string    `json:"auto_route"`
	PrimaryStepID      *string    `json:"primary_step_id"`
}
