package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"reprise/models"
)

// ScheduleRepository verwaltet Zustellzeitpunkte von Reprisal-Sets.
// Zeitpunkte werden in UTC und sekundengenau gespeichert.
type ScheduleRepository struct {
	DB *gorm.DB
}

// NewScheduleRepository erstellt ein neues ScheduleRepository.
func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{DB: db}
}

// List liefert alle Schedules, neueste Zustellung zuerst.
func (r *ScheduleRepository) List(ctx context.Context) ([]models.ReprisalSchedule, error) {
	var out []models.ReprisalSchedule
	err := r.DB.WithContext(ctx).Order("scheduled_for DESC, uuid ASC").Find(&out).Error
	return out, err
}

// HasCoverage meldet, ob es einen Schedule mit |scheduled_for - at| < tolerance gibt.
func (r *ScheduleRepository) HasCoverage(ctx context.Context, at time.Time, tolerance time.Duration) (bool, error) {
	at = normalizeTime(at)
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.ReprisalSchedule{}).
		Where("scheduled_for > ? AND scheduled_for < ?", at.Add(-tolerance), at.Add(tolerance)).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Add verknüpft ein Reprisal-Set mit einem Zustellzeitpunkt. Die Set-UUID
// muss bei mindestens einem Reprisal vorkommen, sonst ErrScheduleConflict.
func (r *ScheduleRepository) Add(ctx context.Context, setUUID string, at time.Time) (*models.ReprisalSchedule, error) {
	s := &models.ReprisalSchedule{ReprisalSetUUID: setUUID, ScheduledFor: normalizeTime(at)}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := setExists(tx, setUUID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("reprisal set %s not found: %w", setUUID, ErrScheduleConflict)
		}
		return tx.Create(s).Error
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
