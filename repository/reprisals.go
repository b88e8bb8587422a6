package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reprise/models"
)

// ReprisalRepository schreibt die Reprisal-Historie. Einträge werden nur angehängt.
type ReprisalRepository struct {
	DB *gorm.DB
}

// NewReprisalRepository erstellt ein neues ReprisalRepository.
func NewReprisalRepository(db *gorm.DB) *ReprisalRepository {
	return &ReprisalRepository{DB: db}
}

// Add speichert einen einzelnen Reprisal.
func (r *ReprisalRepository) Add(ctx context.Context, rep *models.Reprisal) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertReprisal(tx, rep)
	})
}

// AddSet speichert alle Reprisals eines Durchlaufs in einer Transaktion.
func (r *ReprisalRepository) AddSet(ctx context.Context, reps []*models.Reprisal) error {
	if len(reps) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rep := range reps {
			if err := insertReprisal(tx, rep); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertReprisal(tx *gorm.DB, rep *models.Reprisal) error {
	var n int64
	if err := tx.Model(&models.Motif{}).Where("uuid = ?", rep.MotifUUID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("motif %s: %w", rep.MotifUUID, ErrNotFound)
	}
	if rep.ClozeDeletionUUID != nil {
		var cd models.ClozeDeletion
		if err := tx.First(&cd, "uuid = ?", *rep.ClozeDeletionUUID).Error; err != nil {
			return fmt.Errorf("cloze deletion %s: %w", *rep.ClozeDeletionUUID, notFound(err))
		}
		if cd.MotifUUID != rep.MotifUUID {
			return fmt.Errorf("cloze deletion %s, motif %s: %w", cd.UUID, rep.MotifUUID, ErrMotifMismatch)
		}
	}
	return tx.Omit(clause.Associations).Create(rep).Error
}

// ListBySet liefert alle Reprisals eines Sets samt Motif, Quelle und Maskensatz.
func (r *ReprisalRepository) ListBySet(ctx context.Context, setUUID string) ([]models.Reprisal, error) {
	var out []models.Reprisal
	err := r.DB.WithContext(ctx).
		Preload("Motif.Citation").
		Preload("ClozeDeletion").
		Where("set_uuid = ?", setUUID).
		Order("created_at ASC, uuid ASC").
		Find(&out).Error
	return out, err
}

// SetExists meldet, ob mindestens ein Reprisal die Set-UUID trägt.
func (r *ReprisalRepository) SetExists(ctx context.Context, setUUID string) (bool, error) {
	return setExists(r.DB.WithContext(ctx), setUUID)
}

func setExists(db *gorm.DB, setUUID string) (bool, error) {
	var n int64
	if err := db.Model(&models.Reprisal{}).Where("set_uuid = ?", setUUID).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListRecent liefert die neuesten Reprisals zuerst.
func (r *ReprisalRepository) ListRecent(ctx context.Context, limit int) ([]models.Reprisal, error) {
	if limit < 1 {
		limit = 50
	}
	var out []models.Reprisal
	err := r.DB.WithContext(ctx).
		Preload("Motif").
		Order("created_at DESC, uuid DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
