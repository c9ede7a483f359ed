package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	MaterialTypeNotes      = "notes"
	MaterialTypeCheatSheet = "cheat_sheet"
	MaterialTypeLink       = "link"
)

// Material is a stored study material. URL is set only for links and is
// always constructed server-side; Content is set only for notes and
// cheat sheets.
type Material struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID string    `gorm:"index;not null" json:"student_id"`
	Title     string    `gorm:"size:100;not null" json:"title"`
	Type      string    `gorm:"not null" json:"type"`
	URL       *string   `json:"url,omitempty"`
	Content   *string   `json:"content,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Material) TableName() string {
	return "materials"
}
