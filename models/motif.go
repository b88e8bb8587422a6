package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Motif ist ein kurzer Textausschnitt, der regelmäßig wiedervorgelegt wird.
// Cloze-Deletions und Reprisals hängen am Motif und werden mit ihm gelöscht.
type Motif struct {
	UUID      string    `json:"uuid" gorm:"primaryKey;size:36"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`

	CitationUUID *string   `json:"citation_uuid,omitempty" gorm:"size:36;index"`
	Citation     *Citation `json:"citation,omitempty" gorm:"foreignKey:CitationUUID;references:UUID;constraint:OnDelete:SET NULL"`

	ClozeDeletions []ClozeDeletion `json:"cloze_deletions,omitempty" gorm:"foreignKey:MotifUUID;references:UUID;constraint:OnDelete:CASCADE"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Motif) TableName() string {
	return "motifs"
}

func (m *Motif) BeforeCreate(tx *gorm.DB) error {
	if m.UUID == "" {
		m.UUID = uuid.NewString()
	}
	return nil
}

// CitationTitle liefert den Titel der Quelle oder "".
func (m *Motif) CitationTitle() string {
	if m.Citation == nil {
		return ""
	}
	return m.Citation.Title
}

// MotifReprisalCount bündelt ein Motif mit der Anzahl seiner Reprisals.
// Kein Tabellenmodell, sondern das Ergebnis der Zählabfrage.
type MotifReprisalCount struct {
	Motif         Motif
	ReprisalCount int
}
