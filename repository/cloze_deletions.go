package repository

import (
	"context"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"reprise/mask"
	"reprise/models"
)

// ClozeDeletionRepository verwaltet Maskensätze. Jeder Schreibzugriff prüft
// die Paare gegen den aktuellen Motif-Inhalt; bei Fehlern wird nichts geschrieben.
type ClozeDeletionRepository struct {
	DB *gorm.DB
}

// NewClozeDeletionRepository erstellt ein neues ClozeDeletionRepository.
func NewClozeDeletionRepository(db *gorm.DB) *ClozeDeletionRepository {
	return &ClozeDeletionRepository{DB: db}
}

// Add legt einen Maskensatz für ein Motif an. Die Paare werden sortiert gespeichert.
func (r *ClozeDeletionRepository) Add(ctx context.Context, motifUUID string, pairs []mask.Pair) (*models.ClozeDeletion, error) {
	var motif models.Motif
	if err := r.DB.WithContext(ctx).First(&motif, "uuid = ?", motifUUID).Error; err != nil {
		return nil, notFound(err)
	}
	if err := validatePairs(motif.Content, pairs); err != nil {
		return nil, err
	}
	cd := &models.ClozeDeletion{
		MotifUUID:  motifUUID,
		MaskTuples: datatypes.JSONSlice[mask.Pair](mask.Sorted(pairs)),
	}
	if err := r.DB.WithContext(ctx).Create(cd).Error; err != nil {
		return nil, err
	}
	return cd, nil
}

// AddAll legt mehrere Maskensätze für ein Motif in einer Transaktion an.
// Ist ein Satz ungültig oder schlägt ein Insert fehl, wird keiner gespeichert.
func (r *ClozeDeletionRepository) AddAll(ctx context.Context, motifUUID string, sets [][]mask.Pair) ([]models.ClozeDeletion, error) {
	out := make([]models.ClozeDeletion, 0, len(sets))
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var motif models.Motif
		if err := tx.First(&motif, "uuid = ?", motifUUID).Error; err != nil {
			return notFound(err)
		}
		for i, pairs := range sets {
			if err := validatePairs(motif.Content, pairs); err != nil {
				return fmt.Errorf("set %d: %w", i, err)
			}
		}
		for _, pairs := range sets {
			cd := models.ClozeDeletion{
				MotifUUID:  motifUUID,
				MaskTuples: datatypes.JSONSlice[mask.Pair](mask.Sorted(pairs)),
			}
			if err := tx.Create(&cd).Error; err != nil {
				return err
			}
			out = append(out, cd)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update ersetzt die Paarliste vollständig.
func (r *ClozeDeletionRepository) Update(ctx context.Context, id string, pairs []mask.Pair) (*models.ClozeDeletion, error) {
	cd, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var motif models.Motif
	if err := r.DB.WithContext(ctx).First(&motif, "uuid = ?", cd.MotifUUID).Error; err != nil {
		return nil, notFound(err)
	}
	if err := validatePairs(motif.Content, pairs); err != nil {
		return nil, err
	}
	cd.MaskTuples = datatypes.JSONSlice[mask.Pair](mask.Sorted(pairs))
	if err := r.DB.WithContext(ctx).Model(cd).Update("mask_tuples", cd.MaskTuples).Error; err != nil {
		return nil, err
	}
	return cd, nil
}

func (r *ClozeDeletionRepository) Get(ctx context.Context, id string) (*models.ClozeDeletion, error) {
	var cd models.ClozeDeletion
	if err := r.DB.WithContext(ctx).First(&cd, "uuid = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &cd, nil
}

func (r *ClozeDeletionRepository) ListByMotif(ctx context.Context, motifUUID string) ([]models.ClozeDeletion, error) {
	var out []models.ClozeDeletion
	err := r.DB.WithContext(ctx).
		Where("motif_uuid = ?", motifUUID).
		Order("created_at ASC, uuid ASC").
		Find(&out).Error
	return out, err
}

// Delete entfernt einen Maskensatz. Reprisals behalten ihre Historie,
// verlieren aber den Verweis.
func (r *ClozeDeletionRepository) Delete(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteClozeDeletion(tx, id)
	})
}

func deleteClozeDeletion(tx *gorm.DB, id string) error {
	if err := tx.Model(&models.Reprisal{}).
		Where("cloze_deletion_uuid = ?", id).
		Update("cloze_deletion_uuid", nil).Error; err != nil {
		return err
	}
	res := tx.Where("uuid = ?", id).Delete(&models.ClozeDeletion{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func validatePairs(content string, pairs []mask.Pair) error {
	if len(pairs) == 0 {
		return fmt.Errorf("%w: at least one pair is required", mask.ErrMalformedMask)
	}
	return mask.Validate(content, pairs)
}
