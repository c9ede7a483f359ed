package repos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/littl3hero/studentio-backend/internal/logger"
	"github.com/littl3hero/studentio-backend/internal/types"
)

type StudentMemoryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, record *types.StudentMemory) (*types.StudentMemory, error)
	SimilarByEmbedding(ctx context.Context, tx *gorm.DB, studentID string, embedding pgvector.Vector, k int) ([]string, error)
	SimilarByTrigram(ctx context.Context, tx *gorm.DB, studentID, query string, k int) ([]string, error)
	RecentTexts(ctx context.Context, tx *gorm.DB, studentID string, k int) ([]string, error)
	Recent(ctx context.Context, tx *gorm.DB, studentID, kind string, limit int) ([]*types.StudentMemory, error)
}

type studentMemoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudentMemoryRepo(db *gorm.DB, baseLog *logger.Logger) StudentMemoryRepo {
	repoLog := baseLog.With("repo", "StudentMemoryRepo")
	return &studentMemoryRepo{db: db, log: repoLog}
}

func (r *studentMemoryRepo) Create(ctx context.Context, tx *gorm.DB, record *types.StudentMemory) (*types.StudentMemory, error) {
	transaction, err := handleFor(tx, r.db)
	if err != nil {
		return nil, err
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	if err := transaction.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *studentMemoryRepo) SimilarByEmbedding(ctx context.Context, tx *gorm.DB, studentID string, embedding pgvector.Vector, k int) ([]string, error) {
	transaction, err := handleFor(tx, r.db)
	if err != nil {
		return nil, err
	}

	var texts []string
	err = transaction.WithContext(ctx).Raw(
		`SELECT text FROM student_memory
		 WHERE student_id = ?
		 ORDER BY embedding <-> ?::vector NULLS LAST
		 LIMIT ?`,
		studentID, embedding, k,
	).Scan(&texts).Error
	if err != nil {
		return nil, err
	}
	return texts, nil
}

func (r *studentMemoryRepo) SimilarByTrigram(ctx context.Context, tx *gorm.DB, studentID, query string, k int) ([]string, error) {
	transaction, err := handleFor(tx, r.db)
	if err != nil {
		return nil, err
	}

	var texts []string
	err = transaction.WithContext(ctx).Raw(
		`SELECT text FROM student_memory
		 WHERE student_id = ?
		 ORDER BY similarity(text, ?) DESC NULLS LAST
		 LIMIT ?`,
		studentID, query, k,
	).Scan(&texts).Error
	if err != nil {
		return nil, err
	}
	return texts, nil
}

func (r *studentMemoryRepo) RecentTexts(ctx context.Context, tx *gorm.DB, studentID string, k int) ([]string, error) {
	transaction, err := handleFor(tx, r.db)
	if err != nil {
		return nil, err
	}

	var texts []string
	err = transaction.WithContext(ctx).
		Model(&types.StudentMemory{}).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Limit(k).
		Pluck("text", &texts).Error
	if err != nil {
		return nil, err
	}
	return texts, nil
}

func (r *studentMemoryRepo) Recent(ctx context.Context, tx *gorm.DB, studentID, kind string, limit int) ([]*types.StudentMemory, error) {
	transaction, err := handleFor(tx, r.db)
	if err != nil {
		return nil, err
	}

	var results []*types.StudentMemory
	q := transaction.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC")

	if kind == "" {
		if err := q.Limit(limit).Find(&results).Error; err != nil {
			return nil, err
		}
		return results, nil
	}

	err = q.Where("meta->>'kind' = ?", kind).Limit(limit).Find(&results).Error
	if err == nil {
		return results, nil
	}

	// The json operator is postgres-only; on other drivers filter in Go over
	// a recent window instead of failing the read.
	r.log.Debug("meta kind filter unsupported, filtering in memory", "error", err)
	var window []*types.StudentMemory
	if err := transaction.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Limit(limit * 10).
		Find(&window).Error; err != nil {
		return nil, err
	}
	for _, rec := range window {
		if metaKind(rec) == kind {
			results = append(results, rec)
			if len(results) >= limit {
				break
			}
		}
	}
	return results, nil
}

func metaKind(rec *types.StudentMemory) string {
	if rec == nil || len(rec.Meta) == 0 {
		return ""
	}
	var meta map[string]any
	if err := json.Unmarshal(rec.Meta, &meta); err != nil {
		return ""
	}
	if kind, ok := meta["kind"].(string); ok {
		return kind
	}
	return ""
}
