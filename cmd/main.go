package main

import (
	"fmt"
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/littl3hero/studentio-backend/internal/agents"
	"github.com/littl3hero/studentio-backend/internal/cache"
	"github.com/littl3hero/studentio-backend/internal/config"
	"github.com/littl3hero/studentio-backend/internal/db"
	"github.com/littl3hero/studentio-backend/internal/handlers"
	"github.com/littl3hero/studentio-backend/internal/logger"
	"github.com/littl3hero/studentio-backend/internal/platform/openai"
	"github.com/littl3hero/studentio-backend/internal/repos"
	"github.com/littl3hero/studentio-backend/internal/server"
	"github.com/littl3hero/studentio-backend/internal/services"
	"github.com/littl3hero/studentio-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	port := utils.GetEnv("PORT", "8000", log)
	configPath := utils.GetEnv("STUDENTIO_CONFIG", "", log)

	// Database
	var theDB *gorm.DB
	dbService, err := db.NewDatabaseService(log)
	if err != nil {
		log.Warn("Database init failed, read paths will degrade", "error", err)
	} else {
		if err = dbService.AutoMigrateAll(); err != nil {
			log.Warn("Database auto migration failed", "error", err)
		}
		theDB = dbService.DB()
	}

	// Repos
	log.Info("Setting up Repos from main...")
	memoryRepo := repos.NewStudentMemoryRepo(theDB, log)
	materialRepo := repos.NewMaterialRepo(theDB, log)

	// Config
	cfg := config.Load(configPath, log)

	// LLM provider. Missing key is not fatal: every agent carries a
	// deterministic fallback.
	var llm agents.Completer
	var embedder services.Embedder
	oaClient, err := openai.NewClient(log)
	if err != nil {
		log.Warn("OpenAI client not configured, agents run on fallbacks", "error", err)
	} else {
		llm = oaClient
		embedder = oaClient
	}

	// Per-agent model overrides from the config file.
	completerFor := func(modelOverride string) agents.Completer {
		if llm == nil || strings.TrimSpace(modelOverride) == "" {
			return llm
		}
		c, err := openai.NewClientWithModel(log, modelOverride)
		if err != nil {
			return llm
		}
		return c
	}

	// Services
	log.Info("Setting up Services from main...")
	memoryService := services.NewMemoryService(memoryRepo, embedder, log)
	preparedExams := cache.NewPreparedExams(log)

	// Agents
	log.Info("Setting up Agents from main...")
	extractor := agents.NewExtractor(llm, log)
	curator := agents.NewCurator(completerFor(cfg.Models.Curator), memoryService, log)
	examiner := agents.NewExaminer(completerFor(cfg.Models.Examiner), memoryService, preparedExams, log)
	materials := agents.NewMaterialsAgent(completerFor(cfg.Models.Materials), memoryService, materialRepo, cfg, log)
	orchestrator := agents.NewOrchestrator(completerFor(cfg.Models.Orchestrator), curator, examiner, materials, memoryService, log)

	// Handlers
	agentsHandler := handlers.NewAgentsHandler(log, extractor, curator, examiner, materials, orchestrator)
	chatHandler := handlers.NewChatHandler(log, oaClient)
	quizHandler := handlers.NewQuizHandler(log, examiner)

	// Router
	router := server.NewRouter(server.RouterConfig{
		AgentsHandler: agentsHandler,
		ChatHandler:   chatHandler,
		QuizHandler:   quizHandler,
		Log:           log,
	})

	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server stopped", "error", err)
	}
}
