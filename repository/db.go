// Package repository kapselt alle Datenbankzugriffe über GORM.
// Produktiv läuft PostgreSQL, lokal und in Tests SQLite.
package repository

import (
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"reprise/config"
	"reprise/models"
)

var (
	// ErrNotFound wird zurückgegeben, wenn ein Datensatz nicht existiert.
	ErrNotFound = errors.New("record not found")
	// ErrScheduleConflict: ein Schedule verweist auf ein unbekanntes Reprisal-Set.
	ErrScheduleConflict = errors.New("schedule conflict")
	// ErrMotifMismatch: die Cloze-Deletion gehört zu einem anderen Motif.
	ErrMotifMismatch = errors.New("cloze deletion belongs to another motif")
)

// Open öffnet die Datenbank anhand von DB_DRIVER.
func Open(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
}

// OpenSQLite öffnet eine SQLite-Datenbank. ":memory:" ergibt eine
// flüchtige Datenbank, die nur über genau eine Verbindung sichtbar ist.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Migrate legt alle Tabellen an bzw. aktualisiert sie.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Citation{},
		&models.Motif{},
		&models.ClozeDeletion{},
		&models.Reprisal{},
		&models.ReprisalSchedule{},
	)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
