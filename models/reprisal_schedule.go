package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReprisalSchedule hält fest, dass ein Reprisal-Set zu ScheduledFor zugestellt
// wurde (bzw. wird). Die Verbindung zum Set läuft nur über den UUID-Wert,
// nicht über einen Fremdschlüssel.
type ReprisalSchedule struct {
	UUID            string    `json:"uuid" gorm:"primaryKey;size:36"`
	ReprisalSetUUID string    `json:"reprisal_set_uuid" gorm:"size:36;not null;index"`
	ScheduledFor    time.Time `json:"scheduled_for" gorm:"not null;index"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (ReprisalSchedule) TableName() string {
	return "reprisal_schedules"
}

func (s *ReprisalSchedule) BeforeCreate(tx *gorm.DB) error {
	if s.UUID == "" {
		s.UUID = uuid.NewString()
	}
	return nil
}
