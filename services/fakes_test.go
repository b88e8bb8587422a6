package services

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"reprise/mask"
	"reprise/repository"
	"reprise/testutil"
)

var epoch = time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)

// fakeGenerator liefert vorbereitete Antworten und zählt Aufrufe.
type fakeGenerator struct {
	mu         sync.Mutex
	proposals  [][]string
	proposeErr []error
	verdicts   map[string]bool
	judgeErr   error
	motifs     []string
	extractErr error

	proposeCalls int
	judgeCalls   int
	lastNMax     int
}

func (g *fakeGenerator) ProposeClozeSets(_ context.Context, _ string, nMax int) ([][]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.proposeCalls++
	g.lastNMax = nMax
	if len(g.proposeErr) > 0 {
		err := g.proposeErr[0]
		g.proposeErr = g.proposeErr[1:]
		if err != nil {
			return nil, err
		}
	}
	return g.proposals, nil
}

func (g *fakeGenerator) JudgeClozeSet(_ context.Context, _ string, pairs []mask.Pair) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.judgeCalls++
	if g.judgeErr != nil {
		return false, g.judgeErr
	}
	ok, found := g.verdicts[mask.String(pairs)]
	return !found || ok, nil
}

func (g *fakeGenerator) ExtractMotifs(context.Context, string) ([]string, error) {
	if g.extractErr != nil {
		return nil, g.extractErr
	}
	return g.motifs, nil
}

// fakeDeliverer nimmt Nachrichten entgegen oder scheitert nach Vorgabe.
type fakeDeliverer struct {
	mu    sync.Mutex
	errs  []error
	sent  []sentMessage
	calls int
}

type sentMessage struct {
	Text string
	At   time.Time
}

func (d *fakeDeliverer) Name() string { return "fake" }

func (d *fakeDeliverer) Send(_ context.Context, text string, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if len(d.errs) > 0 {
		err := d.errs[0]
		d.errs = d.errs[1:]
		if err != nil {
			return err
		}
	}
	d.sent = append(d.sent, sentMessage{Text: text, At: at})
	return nil
}

// fakeLocker ist entweder frei oder belegt.
type fakeLocker struct {
	locked   bool
	released int
}

func (l *fakeLocker) Acquire(context.Context) (func(), error) {
	if l.locked {
		return nil, ErrRunLocked
	}
	return func() { l.released++ }, nil
}

// stack bündelt Repositories und Services auf einer frischen Datenbank.
type stack struct {
	motifs    *repository.MotifRepository
	citations *repository.CitationRepository
	clozes    *repository.ClozeDeletionRepository
	reprisals *repository.ReprisalRepository
	schedules *repository.ScheduleRepository
	repriser  *ReprisalService
	clock     *testutil.StubClock
}

func newStack(t *testing.T) *stack {
	t.Helper()
	db := testutil.NewDB(t)
	s := &stack{
		motifs:    repository.NewMotifRepository(db),
		citations: repository.NewCitationRepository(db),
		clozes:    repository.NewClozeDeletionRepository(db),
		reprisals: repository.NewReprisalRepository(db),
		schedules: repository.NewScheduleRepository(db),
		clock:     testutil.NewStubClock(epoch),
	}
	s.repriser = &ReprisalService{
		Motifs:    s.motifs,
		Reprisals: s.reprisals,
		Logger:    zap.NewNop(),
		BatchSize: DefaultBatchSize,
		Rand:      rand.New(rand.NewSource(1)),
		IDs:       &testutil.SequentialIDs{Prefix: "r"},
		Clock:     s.clock,
	}
	return s
}
