package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/littl3hero/studentio-backend/internal/logger"
	"github.com/littl3hero/studentio-backend/internal/types"
)

type MaterialRepo interface {
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*types.Material, error)
	CreateIfNew(ctx context.Context, tx *gorm.DB, studentID string, materials []*types.Material) (int, error)
}

type materialRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMaterialRepo(db *gorm.DB, baseLog *logger.Logger) MaterialRepo {
	repoLog := baseLog.With("repo", "MaterialRepo")
	return &materialRepo{db: db, log: repoLog}
}

func (r *materialRepo) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*types.Material, error) {
	transaction, err := handleFor(tx, r.db)
	if err != nil {
		return nil, err
	}

	var results []*types.Material
	if err := transaction.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// CreateIfNew inserts only materials whose (title, type, url, content)
// tuple is not already stored for the student. Generation is additive;
// existing materials are never overwritten or deleted.
func (r *materialRepo) CreateIfNew(ctx context.Context, tx *gorm.DB, studentID string, materials []*types.Material) (int, error) {
	transaction, err := handleFor(tx, r.db)
	if err != nil {
		return 0, err
	}

	if len(materials) == 0 {
		return 0, nil
	}

	existing, err := r.ListByStudent(ctx, transaction, studentID)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, m := range existing {
		seen[materialKey(m)] = true
	}

	inserted := 0
	for _, m := range materials {
		m.StudentID = studentID
		key := materialKey(m)
		if seen[key] {
			continue
		}
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now().UTC()
		}
		if err := transaction.WithContext(ctx).Create(m).Error; err != nil {
			return inserted, err
		}
		seen[key] = true
		inserted++
	}
	return inserted, nil
}

func materialKey(m *types.Material) string {
	url := ""
	if m.URL != nil {
		url = *m.URL
	}
	content := ""
	if m.Content != nil {
		content = *m.Content
	}
	return m.Title + "\x00" + m.Type + "\x00" + url + "\x00" + content
}
