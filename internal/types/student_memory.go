package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// StudentMemory is one append-only record of the per-student memory. The
// embedding is optional: records written while the embedding provider is
// down stay retrievable through the text and recency tiers.
type StudentMemory struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID string           `gorm:"index;not null" json:"student_id"`
	Text      string           `gorm:"not null" json:"text"`
	Meta      datatypes.JSON   `gorm:"type:jsonb" json:"meta"`
	Embedding *pgvector.Vector `gorm:"type:vector(1536)" json:"-"`
	CreatedAt time.Time        `gorm:"not null" json:"created_at"`
}

func (StudentMemory) TableName() string {
	return "student_memory"
}
