package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/littl3hero/studentio-backend/internal/agents"
	"github.com/littl3hero/studentio-backend/internal/logger"
	"github.com/littl3hero/studentio-backend/internal/types"
)

// AgentsHandler exposes the agent pipeline over HTTP. Every route answers
// 200 with a schema-conforming body even when the LLM provider or the
// store is down; the agents degrade internally.
type AgentsHandler struct {
	log          *logger.Logger
	extractor    *agents.Extractor
	curator      *agents.Curator
	examiner     *agents.Examiner
	materials    *agents.MaterialsAgent
	orchestrator *agents.Orchestrator
}

func NewAgentsHandler(
	log *logger.Logger,
	extractor *agents.Extractor,
	curator *agents.Curator,
	examiner *agents.Examiner,
	materials *agents.MaterialsAgent,
	orchestrator *agents.Orchestrator,
) *AgentsHandler {
	return &AgentsHandler{
		log:          log.With("handler", "AgentsHandler"),
		extractor:    extractor,
		curator:      curator,
		examiner:     examiner,
		materials:    materials,
		orchestrator: orchestrator,
	}
}

type curatorFromChatRequest struct {
	StudentID string              `json:"student_id"`
	Level     string              `json:"level"`
	Topic     string              `json:"topic"`
	Messages  []types.ChatMessage `json:"messages"`
	MakeExam  bool                `json:"make_exam"`
	Count     int                 `json:"count"`
}

// POST /v1/agents/curator/from_chat
// Extract goals and errors from the transcript, assess the student and
// optionally prepare an exam in the same call.
func (h *AgentsHandler) CuratorFromChat(c *gin.Context) {
	var req curatorFromChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	studentID := req.StudentID
	if studentID == "" {
		studentID = "default"
	}

	ctx := c.Request.Context()
	goals, errs := h.extractor.Extract(ctx, req.Messages, req.Topic)
	if errs == nil {
		errs = []string{}
	}

	profile := h.curator.Assess(ctx, studentID, goals, errs, req.Level)

	topic := req.Topic
	if topic == "" {
		topic = goals
	}
	resp := gin.H{
		"ok":      true,
		"topic":   topic,
		"goals":   goals,
		"errors":  errs,
		"profile": profile,
	}
	if req.MakeExam {
		resp["exam"] = h.examiner.Generate(ctx, studentID, agents.ClampCount(req.Count))
	}
	c.JSON(http.StatusOK, resp)
}

type examinerRequest struct {
	StudentID string `json:"student_id"`
	Count     int    `json:"count"`
}

// POST /v1/agents/examiner
// Serve the prepared exam when one is waiting, otherwise generate on
// demand from the latest curator snapshot.
func (h *AgentsHandler) Examiner(c *gin.Context) {
	var req examinerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	studentID := req.StudentID
	if studentID == "" {
		studentID = "default"
	}

	ctx := c.Request.Context()
	if exam, ok := h.examiner.TakePrepared(ctx, studentID); ok {
		h.log.Debug("Serving prepared exam", "student_id", studentID, "questions", len(exam.Questions))
		c.JSON(http.StatusOK, exam)
		return
	}
	c.JSON(http.StatusOK, h.examiner.Generate(ctx, studentID, agents.ClampCount(req.Count)))
}

type orchestratorPlanRequest struct {
	StudentID string               `json:"student_id"`
	Goals     string               `json:"goals"`
	Profile   types.StudentProfile `json:"profile"`
	Messages  []types.ChatMessage  `json:"messages"`
}

// POST /v1/agents/orchestrator/plan
func (h *AgentsHandler) OrchestratorPlan(c *gin.Context) {
	var req orchestratorPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	studentID := req.StudentID
	if studentID == "" {
		studentID = "default"
	}

	result := h.orchestrator.PlanAndExecute(c.Request.Context(), studentID, req.Goals, req.Profile, req.Messages)
	c.JSON(http.StatusOK, result)
}

type materialsGenerateRequest struct {
	StudentID   string   `json:"student_id"`
	FocusTopics []string `json:"focus_topics"`
	Weaknesses  []string `json:"weaknesses"`
}

// POST /v1/agents/materials
func (h *AgentsHandler) GenerateMaterials(c *gin.Context) {
	var req materialsGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	studentID := req.StudentID
	if studentID == "" {
		studentID = "default"
	}

	materials := h.materials.GenerateAndSave(c.Request.Context(), studentID, req.FocusTopics, req.Weaknesses)
	c.JSON(http.StatusOK, gin.H{"ok": true, "materials": materials})
}

// GET /v1/agents/materials?student_id=...
// Read path never fails the caller; a store error yields an empty list.
func (h *AgentsHandler) ListMaterials(c *gin.Context) {
	studentID := c.Query("student_id")
	if studentID == "" {
		studentID = "default"
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "materials": h.materials.List(c.Request.Context(), studentID)})
}
