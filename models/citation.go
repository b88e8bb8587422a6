package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Citation ist die Quelle eines Motifs (Buch, Artikel, Vortrag).
type Citation struct {
	UUID      string    `json:"uuid" gorm:"primaryKey;size:36"`
	Title     string    `json:"title" gorm:"type:text;not null;index"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Citation) TableName() string {
	return "citations"
}

func (c *Citation) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == "" {
		c.UUID = uuid.NewString()
	}
	return nil
}
