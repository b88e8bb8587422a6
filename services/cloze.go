package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"reprise/mask"
	"reprise/models"
	"reprise/providers"
)

// MotifReader lädt ein einzelnes Motif.
type MotifReader interface {
	Get(ctx context.Context, id string) (*models.Motif, error)
}

// ClozeWriter speichert geprüfte Maskensätze eines Motifs gemeinsam oder gar nicht.
type ClozeWriter interface {
	AddAll(ctx context.Context, motifUUID string, sets [][]mask.Pair) ([]models.ClozeDeletion, error)
}

// ClozeService erzeugt Cloze-Deletions aus Vorschlägen der Textgenerierung.
// Der Generator nennt nur Phrasen; die Offsets werden lokal im bekannten Text gesucht.
type ClozeService struct {
	Generator      providers.TextGenerator
	Motifs         MotifReader
	ClozeDeletions ClozeWriter
	Logger         *zap.Logger
	MaxSets        int
	QualityCheck   bool
	Retry          RetryPolicy
}

// NewClozeService erstellt einen neuen ClozeService.
func NewClozeService(gen providers.TextGenerator, motifs MotifReader, cds ClozeWriter, logger *zap.Logger) *ClozeService {
	return &ClozeService{
		Generator:      gen,
		Motifs:         motifs,
		ClozeDeletions: cds,
		Logger:         logger,
		MaxSets:        3,
		Retry:          RetryPolicy{Attempts: 1},
	}
}

// Generate liefert bis zu nMax geprüfte Maskensätze für content.
// Leere und doppelte Sätze werden übersprungen; bleibt keiner übrig, ErrNoValidMasks.
func (s *ClozeService) Generate(ctx context.Context, content string, nMax int) ([][]mask.Pair, error) {
	if nMax < 1 {
		nMax = max(s.MaxSets, 1)
	}
	log := s.Logger.With(zap.Int("n_max", nMax))

	var proposals [][]string
	err := s.Retry.Do(ctx, "propose_cloze_sets", log, func(ctx context.Context) error {
		var err error
		proposals, err = s.Generator.ProposeClozeSets(ctx, content, nMax)
		return err
	})
	if err != nil {
		log.Warn("Cloze-Vorschläge fehlgeschlagen.", zap.Error(err))
		return nil, generationError(err)
	}
	if len(proposals) > nMax {
		proposals = proposals[:nMax]
	}

	seen := make(map[string]bool)
	var sets [][]mask.Pair
	for i, phrases := range proposals {
		pairs := mask.Normalize(mask.ResolvePhrases(content, phrases))
		if len(pairs) == 0 {
			log.Info("Vorschlag ohne Treffer übersprungen.", zap.Int("set", i), zap.Strings("phrases", phrases))
			clozeSetsCounter.WithLabelValues("empty").Inc()
			continue
		}
		if err := mask.Validate(content, pairs); err != nil {
			log.Warn("Aufgelöster Satz ungültig.", zap.Int("set", i), zap.Error(err))
			clozeSetsCounter.WithLabelValues("empty").Inc()
			continue
		}
		key := mask.String(pairs)
		if seen[key] {
			clozeSetsCounter.WithLabelValues("duplicate").Inc()
			continue
		}
		seen[key] = true
		sets = append(sets, pairs)
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("%w: none of %d proposed sets matched the text", ErrNoValidMasks, len(proposals))
	}

	if s.QualityCheck {
		sets, err = s.filterQuality(ctx, log, content, sets)
		if err != nil {
			return nil, err
		}
		if len(sets) == 0 {
			return nil, fmt.Errorf("%w: all sets rejected by quality check", ErrNoValidMasks)
		}
	}
	clozeSetsCounter.WithLabelValues("accepted").Add(float64(len(sets)))
	return sets, nil
}

func (s *ClozeService) filterQuality(ctx context.Context, log *zap.Logger, content string, sets [][]mask.Pair) ([][]mask.Pair, error) {
	kept := sets[:0]
	for _, pairs := range sets {
		var ok bool
		err := s.Retry.Do(ctx, "judge_cloze_set", log, func(ctx context.Context) error {
			var err error
			ok, err = s.Generator.JudgeClozeSet(ctx, content, pairs)
			return err
		})
		if err != nil {
			log.Warn("Qualitätsurteil fehlgeschlagen.", zap.Error(err))
			return nil, generationError(err)
		}
		if !ok {
			log.Info("Satz von der Qualitätsprüfung verworfen.", zap.String("pairs", mask.String(pairs)))
			clozeSetsCounter.WithLabelValues("rejected").Inc()
			continue
		}
		kept = append(kept, pairs)
	}
	return kept, nil
}

// GenerateForMotif erzeugt Maskensätze für ein gespeichertes Motif und speichert sie.
func (s *ClozeService) GenerateForMotif(ctx context.Context, motifUUID string, nMax int) ([]models.ClozeDeletion, error) {
	motif, err := s.Motifs.Get(ctx, motifUUID)
	if err != nil {
		return nil, err
	}
	sets, err := s.Generate(ctx, motif.Content, nMax)
	if err != nil {
		return nil, err
	}
	out, err := s.ClozeDeletions.AddAll(ctx, motif.UUID, sets)
	if err != nil {
		s.Logger.Error("Cloze-Deletions konnten nicht gespeichert werden.", zap.String("motif_uuid", motif.UUID), zap.Error(err))
		return nil, err
	}
	s.Logger.Info("Cloze-Deletions gespeichert.", zap.String("motif_uuid", motif.UUID), zap.Int("count", len(out)))
	return out, nil
}
