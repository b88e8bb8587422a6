package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"reprise/config"
	"reprise/repository"
	"reprise/storage"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starte Backup-Prozess...")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Fehler beim Laden der Konfiguration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	// 1. Datenbank-Dump erstellen
	dumpData, err := createDump(ctx, cfg)
	if err != nil {
		logger.Fatal("Fehler beim Erstellen des DB-Dumps", zap.Error(err))
	}

	// 2. S3-Client erstellen
	store, err := storage.NewS3Store(ctx, cfg)
	if err != nil {
		logger.Fatal("Fehler beim Erstellen des S3-Clients", zap.Error(err))
	}

	// 3. Backup hochladen
	key := storage.BackupKey(cfg.DBDriver, time.Now())
	if err := store.Put(ctx, key, dumpData); err != nil {
		logger.Fatal("Fehler beim Hochladen nach S3", zap.Error(err))
	}
	logger.Info("Backup hochgeladen",
		zap.String("location", fmt.Sprintf("s3://%s/%s", store.Bucket, key)),
		zap.Int("bytes", len(dumpData)))

	// 4. Alte Backups rotieren
	deleted, err := storage.Rotate(ctx, store, cfg.KeepBackups, logger)
	if err != nil {
		logger.Fatal("Fehler bei der Rotation alter Backups", zap.Error(err))
	}

	logger.Info("Backup-Prozess erfolgreich abgeschlossen.", zap.Int("rotated", len(deleted)))
}

func createDump(ctx context.Context, cfg *config.Config) ([]byte, error) {
	if cfg.DBDriver == "sqlite" {
		return dumpSQLite(ctx, cfg.SQLitePath)
	}
	return dumpPostgres(ctx, cfg)
}

func dumpPostgres(ctx context.Context, cfg *config.Config) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "pg_dump",
		"-h", cfg.DBHost,
		"-p", strconv.Itoa(cfg.DBPort),
		"-U", cfg.DBUser,
		"-d", cfg.DBName,
		"-w", // Passwort kommt über PGPASSWORD
	)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+cfg.DBPassword)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	data, err := gzipFrom(stdout)
	if err != nil {
		cmd.Wait()
		return nil, err
	}
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("pg_dump: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return data, nil
}

// dumpSQLite erzeugt per VACUUM INTO eine konsistente Kopie, auch während der Server schreibt.
func dumpSQLite(ctx context.Context, path string) ([]byte, error) {
	db, err := repository.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	dir, err := os.MkdirTemp("", "reprise-backup-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)
	snapshot := filepath.Join(dir, "snapshot.db")

	if err := db.WithContext(ctx).Exec("VACUUM INTO ?", snapshot).Error; err != nil {
		return nil, fmt.Errorf("vacuum into snapshot: %w", err)
	}
	f, err := os.Open(snapshot)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return gzipFrom(f)
}

func gzipFrom(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	if _, err := io.Copy(gzipWriter, r); err != nil {
		return nil, err
	}
	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
