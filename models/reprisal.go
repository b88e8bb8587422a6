package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reprisal hält fest, dass ein Motif in einem Durchlauf (SetUUID) ausgewählt
// wurde, optional mit einer Cloze-Deletion. Wird nur angehängt, nie geändert.
type Reprisal struct {
	UUID              string    `json:"uuid" gorm:"primaryKey;size:36"`
	MotifUUID         string    `json:"motif_uuid" gorm:"size:36;not null;index"`
	ClozeDeletionUUID *string   `json:"cloze_deletion_uuid,omitempty" gorm:"size:36;index"`
	SetUUID           string    `json:"set_uuid" gorm:"size:36;not null;index"`
	CreatedAt         time.Time `json:"created_at"`

	Motif         *Motif         `json:"motif,omitempty" gorm:"foreignKey:MotifUUID;references:UUID;constraint:OnDelete:CASCADE"`
	ClozeDeletion *ClozeDeletion `json:"cloze_deletion,omitempty" gorm:"foreignKey:ClozeDeletionUUID;references:UUID;constraint:OnDelete:SET NULL"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Reprisal) TableName() string {
	return "reprisals"
}

func (r *Reprisal) BeforeCreate(tx *gorm.DB) error {
	if r.UUID == "" {
		r.UUID = uuid.NewString()
	}
	return nil
}
