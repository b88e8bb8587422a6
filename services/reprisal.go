package services

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"reprise/models"
)

// DefaultBatchSize ist die Anzahl der Motifs pro Durchlauf.
const DefaultBatchSize = 5

// MotifCounter liefert alle Motifs mit ihrer Reprisal-Anzahl in fester Reihenfolge.
type MotifCounter interface {
	ReprisalCounts(ctx context.Context) ([]models.MotifReprisalCount, error)
}

// ReprisalWriter speichert alle Reprisals eines Sets atomar.
type ReprisalWriter interface {
	AddSet(ctx context.Context, reps []*models.Reprisal) error
}

// ReprisalService wählt bei jedem Aufruf die nächsten Motifs zur Wiedervorlage.
//
// Es zählt nur, wie oft ein Motif schon dran war: solange nicht alle gleich
// oft vorgelegt wurden, kommen nur Motifs unterhalb des Maximums in Frage.
// Sind alle gleichauf, ist jedes Motif wählbar und die nächste Runde beginnt.
//
// Aufrufe werden im Prozess über mu serialisiert (Lesen der Zähler, Schreiben
// des Sets und Rand). Locker sperrt zusätzlich prozessübergreifend.
type ReprisalService struct {
	mu sync.Mutex

	Locker    Locker
	Motifs    MotifCounter
	Reprisals ReprisalWriter
	Logger    *zap.Logger
	BatchSize int
	Rand      *rand.Rand
	IDs       IDGenerator
	Clock     Clock
}

// NewReprisalService erstellt einen ReprisalService mit echter Uhr, UUIDs und Zufallsquelle.
func NewReprisalService(motifs MotifCounter, reprisals ReprisalWriter, batchSize int, logger *zap.Logger) *ReprisalService {
	return &ReprisalService{
		Motifs:    motifs,
		Reprisals: reprisals,
		Logger:    logger,
		BatchSize: batchSize,
		Rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		IDs:       UUIDGenerator{},
		Clock:     SystemClock{},
	}
}

// Reprise wählt bis zu BatchSize Motifs, speichert je einen Reprisal unter
// einer gemeinsamen Set-UUID und gibt sie in Auswahlreihenfolge zurück.
// Ohne Motifs ist das Ergebnis leer und kein Fehler.
func (s *ReprisalService) Reprise(ctx context.Context) ([]models.Reprisal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Locker != nil {
		release, err := s.Locker.Acquire(ctx)
		if err != nil {
			s.Logger.Warn("Auswahl übersprungen, Lock nicht erhalten.", zap.Error(err))
			return nil, err
		}
		defer release()
	}

	counts, err := s.Motifs.ReprisalCounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		s.Logger.Info("Keine Motifs vorhanden, nichts auszuwählen.")
		return nil, nil
	}

	selected := selectEligible(counts, s.batchSize())
	setUUID := s.IDs.NewID()
	now := s.Clock.Now()
	log := s.Logger.With(zap.String("set_uuid", setUUID))

	reps := make([]*models.Reprisal, 0, len(selected))
	for _, mc := range selected {
		rep := &models.Reprisal{
			UUID:      s.IDs.NewID(),
			MotifUUID: mc.Motif.UUID,
			SetUUID:   setUUID,
			CreatedAt: now,
		}
		if cds := mc.Motif.ClozeDeletions; len(cds) > 0 {
			cd := cds[s.Rand.Intn(len(cds))]
			rep.ClozeDeletionUUID = &cd.UUID
		}
		reps = append(reps, rep)
	}

	if err := s.Reprisals.AddSet(ctx, reps); err != nil {
		log.Error("Reprisal-Set konnte nicht gespeichert werden.", zap.Error(err))
		return nil, err
	}
	reprisalsCreatedCounter.Add(float64(len(reps)))

	out := make([]models.Reprisal, len(reps))
	for i, rep := range reps {
		motif := selected[i].Motif
		rep.Motif = &motif
		if rep.ClozeDeletionUUID != nil {
			for j := range motif.ClozeDeletions {
				if motif.ClozeDeletions[j].UUID == *rep.ClozeDeletionUUID {
					rep.ClozeDeletion = &motif.ClozeDeletions[j]
					break
				}
			}
		}
		out[i] = *rep
	}
	log.Info("Reprisal-Set erstellt.", zap.Int("size", len(out)), zap.Int("corpus", len(counts)))
	return out, nil
}

func (s *ReprisalService) batchSize() int {
	if s.BatchSize < 1 {
		return DefaultBatchSize
	}
	return s.BatchSize
}

// selectEligible wendet die Aufholregel an: wählbar ist ein Motif, wenn es
// unter dem Maximum liegt oder alle Zähler gleich sind.
func selectEligible(counts []models.MotifReprisalCount, k int) []models.MotifReprisalCount {
	minCount, maxCount := counts[0].ReprisalCount, counts[0].ReprisalCount
	for _, mc := range counts[1:] {
		minCount = min(minCount, mc.ReprisalCount)
		maxCount = max(maxCount, mc.ReprisalCount)
	}
	var out []models.MotifReprisalCount
	for _, mc := range counts {
		if len(out) == k {
			break
		}
		if mc.ReprisalCount < maxCount || maxCount == minCount {
			out = append(out, mc)
		}
	}
	return out
}
