package services

import (
	"context"
	"encoding/json"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"

	"github.com/littl3hero/studentio-backend/internal/logger"
	"github.com/littl3hero/studentio-backend/internal/repos"
	"github.com/littl3hero/studentio-backend/internal/types"
)

// KindCuratorAssessment tags memory records written by the Curator so the
// Examiner and Materials agents can find the latest assessment.
const KindCuratorAssessment = "curator_assessment"

// Embedder is the slice of the LLM client the memory layer needs. A nil
// Embedder disables the vector tier but never blocks reads or writes.
type Embedder interface {
	Embed(ctx context.Context, input string) ([]float32, error)
}

type MemoryService interface {
	// Save appends one record. Embedding is best-effort: on provider failure
	// the record is stored with a NULL embedding.
	Save(ctx context.Context, studentID, text string, meta map[string]any) error

	// Retrieve returns up to k texts for the query, degrading through
	// vector similarity, trigram similarity and recency. It never fails;
	// the worst case is an empty slice.
	Retrieve(ctx context.Context, studentID, query string, k int) []string

	Recent(ctx context.Context, studentID, kind string, limit int) ([]*types.StudentMemory, error)

	// LastCuratorSnapshot returns the latest curator assessment, or the
	// latest record of any kind when no assessment exists, or nil.
	LastCuratorSnapshot(ctx context.Context, studentID string) *types.StudentMemory
}

type memoryService struct {
	memoryRepo repos.StudentMemoryRepo
	embedder   Embedder
	log        *logger.Logger
}

func NewMemoryService(memoryRepo repos.StudentMemoryRepo, embedder Embedder, baseLog *logger.Logger) MemoryService {
	serviceLog := baseLog.With("service", "MemoryService")
	return &memoryService{memoryRepo: memoryRepo, embedder: embedder, log: serviceLog}
}

func (s *memoryService) Save(ctx context.Context, studentID, text string, meta map[string]any) error {
	record := &types.StudentMemory{
		StudentID: studentID,
		Text:      text,
	}

	if meta != nil {
		raw, err := json.Marshal(meta)
		if err != nil {
			s.log.Warn("Memory meta not serializable, storing without meta", "error", err)
		} else {
			record.Meta = datatypes.JSON(raw)
		}
	}

	if s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			s.log.Warn("Embedding failed, storing record without embedding", "student_id", studentID, "error", err)
		} else if len(vec) > 0 {
			v := pgvector.NewVector(vec)
			record.Embedding = &v
		}
	}

	if _, err := s.memoryRepo.Create(ctx, nil, record); err != nil {
		return err
	}
	return nil
}

func (s *memoryService) Retrieve(ctx context.Context, studentID, query string, k int) []string {
	if k <= 0 {
		k = 3
	}

	if s.embedder != nil {
		if vec, err := s.embedder.Embed(ctx, query); err != nil {
			s.log.Debug("Query embedding failed, skipping vector tier", "error", err)
		} else if len(vec) > 0 {
			texts, err := s.memoryRepo.SimilarByEmbedding(ctx, nil, studentID, pgvector.NewVector(vec), k)
			if err == nil {
				return texts
			}
			s.log.Debug("Vector tier failed, trying trigram tier", "error", err)
		}
	}

	texts, err := s.memoryRepo.SimilarByTrigram(ctx, nil, studentID, query, k)
	if err == nil {
		return texts
	}
	s.log.Debug("Trigram tier failed, falling back to recency", "error", err)

	texts, err = s.memoryRepo.RecentTexts(ctx, nil, studentID, k)
	if err != nil {
		s.log.Warn("Recency tier failed, returning no context", "student_id", studentID, "error", err)
		return []string{}
	}
	return texts
}

func (s *memoryService) Recent(ctx context.Context, studentID, kind string, limit int) ([]*types.StudentMemory, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.memoryRepo.Recent(ctx, nil, studentID, kind, limit)
}

func (s *memoryService) LastCuratorSnapshot(ctx context.Context, studentID string) *types.StudentMemory {
	records, err := s.memoryRepo.Recent(ctx, nil, studentID, KindCuratorAssessment, 1)
	if err != nil {
		s.log.Debug("Snapshot lookup failed", "student_id", studentID, "error", err)
		return nil
	}
	if len(records) > 0 {
		return records[0]
	}

	records, err = s.memoryRepo.Recent(ctx, nil, studentID, "", 1)
	if err != nil || len(records) == 0 {
		return nil
	}
	return records[0]
}
