// Package storage legt Datenbank-Backups in einem S3-kompatiblen Bucket ab
// und rotiert alte Sicherungen.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"reprise/config"
)

// BackupPrefix steht vor jedem Backup-Schlüssel; Rotation betrifft nur diese Objekte.
const BackupPrefix = "reprise-backup-"

// Object beschreibt ein gespeichertes Objekt.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStore ist die Teilmenge von S3, die Backup und Rotation brauchen.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	List(ctx context.Context, prefix string) ([]Object, error)
	Delete(ctx context.Context, key string) error
}

// S3Store speichert Objekte in einem Bucket.
type S3Store struct {
	Client *s3.Client
	Bucket string
}

// NewS3Store erstellt einen S3-Client für den konfigurierten Backup-Endpunkt.
// Ohne Endpunkt gilt die Standard-AWS-Auflösung.
func NewS3Store(ctx context.Context, cfg *config.Config) (*S3Store, error) {
	if cfg.BackupS3Bucket == "" {
		return nil, errors.New("BACKUP_S3_BUCKET is not set")
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.BackupS3Region)}
	if cfg.BackupS3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.BackupS3AccessKey, cfg.BackupS3SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BackupS3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BackupS3Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{Client: client, Bucket: cfg.BackupS3Bucket}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", s.Bucket, key, err)
	}
	return nil
}

// List folgt der Paginierung von ListObjectsV2.
func (s *S3Store) List(ctx context.Context, prefix string) ([]Object, error) {
	var out []Object
	p := s3.NewListObjectsV2Paginator(s.Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", s.Bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			o := Object{Key: aws.ToString(obj.Key), Size: aws.ToInt64(obj.Size)}
			if obj.LastModified != nil {
				o.LastModified = *obj.LastModified
			}
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete s3://%s/%s: %w", s.Bucket, key, err)
	}
	return nil
}

// BackupKey bildet den Schlüssel für ein Backup zum Zeitpunkt t.
func BackupKey(driver string, t time.Time) string {
	ext := ".sql.gz"
	if driver == "sqlite" {
		ext = ".db.gz"
	}
	return BackupPrefix + t.UTC().Format("2006-01-02T15-04-05Z") + ext
}

// Rotate behält die keep neuesten Backups und löscht den Rest. Fehler beim
// Löschen einzelner Objekte werden geloggt und gesammelt zurückgegeben.
func Rotate(ctx context.Context, store ObjectStore, keep int, logger *zap.Logger) ([]string, error) {
	objects, err := store.List(ctx, BackupPrefix)
	if err != nil {
		return nil, err
	}
	if keep < 1 {
		keep = 1
	}
	if len(objects) <= keep {
		logger.Info("Keine Rotation nötig.", zap.Int("backups", len(objects)), zap.Int("keep", keep))
		return nil, nil
	}

	sort.Slice(objects, func(i, j int) bool {
		if !objects[i].LastModified.Equal(objects[j].LastModified) {
			return objects[i].LastModified.After(objects[j].LastModified)
		}
		return strings.Compare(objects[i].Key, objects[j].Key) > 0
	})

	var deleted []string
	var errs []error
	for _, obj := range objects[keep:] {
		logger.Info("Lösche altes Backup.", zap.String("key", obj.Key))
		if err := store.Delete(ctx, obj.Key); err != nil {
			logger.Error("Backup konnte nicht gelöscht werden.", zap.String("key", obj.Key), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		deleted = append(deleted, obj.Key)
	}
	return deleted, errors.Join(errs...)
}
