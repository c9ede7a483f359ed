package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/littl3hero/studentio-backend/internal/agents"
	"github.com/littl3hero/studentio-backend/internal/logger"
)

// QuizHandler serves the legacy quick-quiz route kept for older frontends.
type QuizHandler struct {
	log      *logger.Logger
	examiner *agents.Examiner
}

func NewQuizHandler(log *logger.Logger, examiner *agents.Examiner) *QuizHandler {
	return &QuizHandler{log: log.With("handler", "QuizHandler"), examiner: examiner}
}

type generateQuizRequest struct {
	Topic string `json:"topic"`
	Level string `json:"level"`
}

// POST /tests/generate
// Three questions on the topic; a fixed demo set without a provider.
func (h *QuizHandler) GenerateQuiz(c *gin.Context) {
	var req generateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	exam := h.examiner.QuickQuiz(c.Request.Context(), req.Topic, req.Level)
	c.JSON(http.StatusOK, gin.H{"questions": exam.Questions})
}
