package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"reprise/mask"
)

// ClozeDeletion ist ein Satz maskierter Bereiche eines Motifs.
// Die Offsets beziehen sich auf den Motif-Inhalt zum Zeitpunkt der Erstellung.
type ClozeDeletion struct {
	UUID       string                         `json:"uuid" gorm:"primaryKey;size:36"`
	MotifUUID  string                         `json:"motif_uuid" gorm:"size:36;not null;index"`
	MaskTuples datatypes.JSONSlice[mask.Pair] `json:"mask_tuples" gorm:"not null"`
	CreatedAt  time.Time                      `json:"created_at"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (ClozeDeletion) TableName() string {
	return "cloze_deletions"
}

func (cd *ClozeDeletion) BeforeCreate(tx *gorm.DB) error {
	if cd.UUID == "" {
		cd.UUID = uuid.NewString()
	}
	return nil
}

// Pairs gibt die Maskenpaare als einfache Slice zurück.
func (cd *ClozeDeletion) Pairs() []mask.Pair {
	return []mask.Pair(cd.MaskTuples)
}

// Masked rendert den Inhalt mit ausgeblendeten Bereichen.
func (cd *ClozeDeletion) Masked(content, token string) (string, error) {
	return mask.Render(content, cd.Pairs(), token)
}

// MaskedWords liefert die ausgeblendeten Wörter, also die Lösungen.
func (cd *ClozeDeletion) MaskedWords(content string) ([]string, error) {
	return mask.ExtractSpans(content, cd.Pairs())
}
