package repository

import (
	"context"

	"gorm.io/gorm"

	"reprise/mask"
	"reprise/models"
)

// motifOrder ist die feste Iterationsreihenfolge für Motifs.
const motifOrder = "created_at ASC, uuid ASC"

// MotifRepository verwaltet Motifs und liefert die Zählabfrage für den Selector.
type MotifRepository struct {
	DB *gorm.DB
}

// NewMotifRepository erstellt ein neues MotifRepository.
func NewMotifRepository(db *gorm.DB) *MotifRepository {
	return &MotifRepository{DB: db}
}

// Add legt ein Motif mit optionaler Quelle an.
func (r *MotifRepository) Add(ctx context.Context, content string, citationUUID *string) (*models.Motif, error) {
	m := &models.Motif{Content: content, CitationUUID: citationUUID}
	if err := r.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Create speichert ein vorbereitetes Motif. Ist CreatedAt gesetzt, bleibt es erhalten.
func (r *MotifRepository) Create(ctx context.Context, m *models.Motif) error {
	if m.CitationUUID != nil {
		var n int64
		if err := r.DB.WithContext(ctx).Model(&models.Citation{}).Where("uuid = ?", *m.CitationUUID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
	}
	return r.DB.WithContext(ctx).Omit("Citation", "ClozeDeletions").Create(m).Error
}

// Get lädt ein Motif samt Quelle und Cloze-Deletions.
func (r *MotifRepository) Get(ctx context.Context, id string) (*models.Motif, error) {
	var m models.Motif
	err := r.DB.WithContext(ctx).
		Preload("Citation").
		Preload("ClozeDeletions", orderedClozeDeletions).
		First(&m, "uuid = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// List liefert alle Motifs in Erstellungsreihenfolge.
func (r *MotifRepository) List(ctx context.Context) ([]models.Motif, error) {
	var out []models.Motif
	err := r.DB.WithContext(ctx).Preload("Citation").Order(motifOrder).Find(&out).Error
	return out, err
}

// ListPaginated liefert eine Seite (ab 1) und die Gesamtanzahl.
func (r *MotifRepository) ListPaginated(ctx context.Context, page, pageSize int) ([]models.Motif, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	var out []models.Motif
	err = r.DB.WithContext(ctx).
		Preload("Citation").
		Order(motifOrder).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&out).Error
	return out, total, err
}

func (r *MotifRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Motif{}).Count(&n).Error
	return n, err
}

// ListWithClozeDeletions liefert alle Motifs mit ihren Cloze-Deletions.
func (r *MotifRepository) ListWithClozeDeletions(ctx context.Context) ([]models.Motif, error) {
	var out []models.Motif
	err := r.DB.WithContext(ctx).
		Preload("Citation").
		Preload("ClozeDeletions", orderedClozeDeletions).
		Order(motifOrder).
		Find(&out).Error
	return out, err
}

// UpdateContent ersetzt den Inhalt. Cloze-Deletions, deren Masken nicht mehr
// zum neuen Inhalt passen, werden in derselben Transaktion entfernt.
func (r *MotifRepository) UpdateContent(ctx context.Context, id, content string) (*models.Motif, error) {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Motif{}).Where("uuid = ?", id).Update("content", content)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		var cds []models.ClozeDeletion
		if err := tx.Where("motif_uuid = ?", id).Find(&cds).Error; err != nil {
			return err
		}
		for _, cd := range cds {
			if mask.Validate(content, cd.Pairs()) == nil {
				continue
			}
			if err := deleteClozeDeletion(tx, cd.UUID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// SetCitation setzt oder entfernt (nil) die Quelle eines Motifs.
func (r *MotifRepository) SetCitation(ctx context.Context, id string, citationUUID *string) (*models.Motif, error) {
	if citationUUID != nil {
		var n int64
		if err := r.DB.WithContext(ctx).Model(&models.Citation{}).Where("uuid = ?", *citationUUID).Count(&n).Error; err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, ErrNotFound
		}
	}
	res := r.DB.WithContext(ctx).Model(&models.Motif{}).Where("uuid = ?", id).Update("citation_uuid", citationUUID)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, id)
}

// Delete entfernt ein Motif mitsamt Cloze-Deletions und Reprisal-Historie.
func (r *MotifRepository) Delete(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("motif_uuid = ?", id).Delete(&models.Reprisal{}).Error; err != nil {
			return err
		}
		if err := tx.Where("motif_uuid = ?", id).Delete(&models.ClozeDeletion{}).Error; err != nil {
			return err
		}
		res := tx.Where("uuid = ?", id).Delete(&models.Motif{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ReprisalCounts liefert jedes Motif mit der Anzahl seiner Reprisals,
// geordnet nach Erstellungszeit und UUID. Beide Abfragen laufen in einer
// Transaktion, damit Motifs und Zählung zueinander passen.
func (r *MotifRepository) ReprisalCounts(ctx context.Context) ([]models.MotifReprisalCount, error) {
	type countRow struct {
		MotifUUID string
		N         int
	}
	var (
		motifs []models.Motif
		rows   []countRow
	)
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Citation").
			Preload("ClozeDeletions", orderedClozeDeletions).
			Order(motifOrder).
			Find(&motifs).Error; err != nil {
			return err
		}
		return tx.Model(&models.Reprisal{}).
			Select("motif_uuid, COUNT(*) AS n").
			Group("motif_uuid").
			Scan(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.MotifUUID] = row.N
	}
	out := make([]models.MotifReprisalCount, 0, len(motifs))
	for _, m := range motifs {
		out = append(out, models.MotifReprisalCount{Motif: m, ReprisalCount: counts[m.UUID]})
	}
	return out, nil
}

func orderedClozeDeletions(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, uuid ASC")
}
