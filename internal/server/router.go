package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/littl3hero/studentio-backend/internal/handlers"
	"github.com/littl3hero/studentio-backend/internal/logger"
	"github.com/littl3hero/studentio-backend/internal/utils"
)

type RouterConfig struct {
	AgentsHandler *handlers.AgentsHandler
	ChatHandler   *handlers.ChatHandler
	QuizHandler   *handlers.QuizHandler
	Log           *logger.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(cfg.Log),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	// Legacy quiz route kept for older frontends.
	router.POST("/tests/generate", cfg.QuizHandler.GenerateQuiz)

	v1 := router.Group("/v1")
	{
		v1.POST("/chat/stream", cfg.ChatHandler.ChatStream)

		agents := v1.Group("/agents")
		{
			agents.POST("/curator/from_chat", cfg.AgentsHandler.CuratorFromChat)
			agents.POST("/examiner", cfg.AgentsHandler.Examiner)
			agents.POST("/orchestrator/plan", cfg.AgentsHandler.OrchestratorPlan)
			agents.GET("/materials", cfg.AgentsHandler.ListMaterials)
			agents.POST("/materials", cfg.AgentsHandler.GenerateMaterials)
		}
	}

	return router
}

func allowedOrigins(log *logger.Logger) []string {
	raw := utils.GetEnv("ALLOW_ORIGINS", "", log)
	if raw == "" {
		return []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}
	}
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
