package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"reprise/models"
)

// CitationRepository verwaltet Quellenangaben.
type CitationRepository struct {
	DB *gorm.DB
}

// NewCitationRepository erstellt ein neues CitationRepository.
func NewCitationRepository(db *gorm.DB) *CitationRepository {
	return &CitationRepository{DB: db}
}

// Add legt eine neue Quelle an.
func (r *CitationRepository) Add(ctx context.Context, title string) (*models.Citation, error) {
	c := &models.Citation{Title: strings.TrimSpace(title)}
	if err := r.DB.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CitationRepository) Get(ctx context.Context, id string) (*models.Citation, error) {
	var c models.Citation
	if err := r.DB.WithContext(ctx).First(&c, "uuid = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *CitationRepository) List(ctx context.Context) ([]models.Citation, error) {
	var out []models.Citation
	err := r.DB.WithContext(ctx).Order("created_at ASC, uuid ASC").Find(&out).Error
	return out, err
}

// GetByTitle sucht eine Quelle über den exakten Titel.
func (r *CitationRepository) GetByTitle(ctx context.Context, title string) (*models.Citation, error) {
	var c models.Citation
	err := r.DB.WithContext(ctx).
		Where("title = ?", strings.TrimSpace(title)).
		Order("created_at ASC").
		First(&c).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// GetOrCreateByTitle liefert die vorhandene Quelle mit diesem Titel oder legt sie an.
func (r *CitationRepository) GetOrCreateByTitle(ctx context.Context, title string) (*models.Citation, error) {
	c, err := r.GetByTitle(ctx, title)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return r.Add(ctx, title)
}
