package services

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"reprise/models"
	"reprise/providers"
)

// MotifAdder legt neue Motifs an.
type MotifAdder interface {
	Add(ctx context.Context, content string, citationUUID *string) (*models.Motif, error)
}

// CitationResolver findet oder erstellt eine Quelle über ihren Titel.
type CitationResolver interface {
	GetOrCreateByTitle(ctx context.Context, title string) (*models.Citation, error)
}

// ExtractionService zerlegt freien Text mit Hilfe der Textgenerierung in Motifs.
type ExtractionService struct {
	Generator providers.TextGenerator
	Motifs    MotifAdder
	Citations CitationResolver
	Logger    *zap.Logger
	Retry     RetryPolicy
}

// NewExtractionService erstellt einen neuen ExtractionService.
func NewExtractionService(gen providers.TextGenerator, motifs MotifAdder, citations CitationResolver, logger *zap.Logger) *ExtractionService {
	return &ExtractionService{
		Generator: gen,
		Motifs:    motifs,
		Citations: citations,
		Logger:    logger,
		Retry:     RetryPolicy{Attempts: 1},
	}
}

// Extract bereinigt text, speichert jedes gefundene Motif und verknüpft es
// optional mit der Quelle citationTitle.
func (s *ExtractionService) Extract(ctx context.Context, text, citationTitle string) ([]models.Motif, error) {
	text = NormalizeText(text)
	if text == "" {
		return nil, ErrNothingExtracted
	}
	log := s.Logger.With(zap.Int("text_length", len(text)))

	var proposals []string
	err := s.Retry.Do(ctx, "extract_motifs", log, func(ctx context.Context) error {
		var err error
		proposals, err = s.Generator.ExtractMotifs(ctx, text)
		return err
	})
	if err != nil {
		log.Warn("Motif-Extraktion fehlgeschlagen.", zap.Error(err))
		return nil, generationError(err)
	}

	var contents []string
	for _, p := range proposals {
		if p = norm.NFC.String(strings.TrimSpace(p)); p != "" {
			contents = append(contents, p)
		}
	}
	if len(contents) == 0 {
		return nil, ErrNothingExtracted
	}

	var citationUUID *string
	if title := strings.TrimSpace(citationTitle); title != "" {
		c, err := s.Citations.GetOrCreateByTitle(ctx, title)
		if err != nil {
			return nil, err
		}
		citationUUID = &c.UUID
	}

	out := make([]models.Motif, 0, len(contents))
	for _, content := range contents {
		m, err := s.Motifs.Add(ctx, content, citationUUID)
		if err != nil {
			return out, err
		}
		out = append(out, *m)
	}
	log.Info("Motifs extrahiert.", zap.Int("count", len(out)))
	return out, nil
}
