package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"reprise/models"
	"reprise/providers"
)

// DefaultTolerance ist der Abstand, innerhalb dessen ein Zielzeitpunkt als abgedeckt gilt.
const DefaultTolerance = 30 * time.Minute

// Repriser erzeugt ein neues Reprisal-Set.
type Repriser interface {
	Reprise(ctx context.Context) ([]models.Reprisal, error)
}

// ScheduleStore prüft und speichert Zustellzeitpunkte.
type ScheduleStore interface {
	HasCoverage(ctx context.Context, at time.Time, tolerance time.Duration) (bool, error)
	Add(ctx context.Context, setUUID string, at time.Time) (*models.ReprisalSchedule, error)
}

// OutcomeStatus beschreibt, was mit einem Zielzeitpunkt geschehen ist.
type OutcomeStatus string

const (
	OutcomeCovered   OutcomeStatus = "covered"
	OutcomeEmpty     OutcomeStatus = "empty"
	OutcomeScheduled OutcomeStatus = "scheduled"
	OutcomeFailed    OutcomeStatus = "failed"
)

// Outcome ist das Ergebnis für einen Zielzeitpunkt.
type Outcome struct {
	Target  time.Time     `json:"target"`
	Status  OutcomeStatus `json:"status"`
	SetUUID string        `json:"set_uuid,omitempty"`
	Size    int           `json:"size,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Dispatcher plant Reprisal-Sets für Zielzeitpunkte ein. Ein Zeitpunkt, zu dem
// schon ein Schedule innerhalb der Toleranz existiert, wird übersprungen;
// dadurch ist ein erneuter Lauf nach Fehlern unschädlich.
type Dispatcher struct {
	Repriser  Repriser
	Schedules ScheduleStore
	Deliverer providers.Deliverer
	Format    Formatter
	Tolerance time.Duration
	Retry     RetryPolicy
	Locker    Locker
	Logger    *zap.Logger
}

// NewDispatcher erstellt einen Dispatcher mit prozesslokalem Lock und SimpleFormatter.
// Ein zweiter gleichzeitiger Lauf liefert ErrRunLocked.
func NewDispatcher(repriser Repriser, schedules ScheduleStore, deliverer providers.Deliverer, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		Repriser:  repriser,
		Schedules: schedules,
		Deliverer: deliverer,
		Format:    SimpleFormatter,
		Tolerance: DefaultTolerance,
		Retry:     RetryPolicy{Attempts: 1},
		Locker:    NewLocalLocker(false),
		Logger:    logger,
	}
}

// Schedule verarbeitet jeden Zielzeitpunkt unabhängig. Zustellfehler beenden
// nur den jeweiligen Zeitpunkt und werden gesammelt zurückgegeben (je ein
// ErrDeliveryFailed). Speicherfehler brechen den Lauf ab.
func (d *Dispatcher) Schedule(ctx context.Context, targets []time.Time) ([]Outcome, error) {
	locker := d.Locker
	if locker == nil {
		locker = NoopLocker{}
	}
	release, err := locker.Acquire(ctx)
	if err != nil {
		d.Logger.Warn("Dispatch-Lauf übersprungen, Lock nicht erhalten.", zap.Error(err))
		return nil, err
	}
	defer release()

	tolerance := d.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	outcomes := make([]Outcome, 0, len(targets))
	var failures []error
	for _, target := range targets {
		out, err := d.scheduleOne(ctx, target, tolerance)
		if out.Status != "" {
			outcomes = append(outcomes, out)
			dispatchOutcomeCounter.WithLabelValues(string(out.Status)).Inc()
		}
		if err == nil {
			continue
		}
		if out.Status != OutcomeFailed {
			return outcomes, errors.Join(append(failures, err)...)
		}
		failures = append(failures, err)
	}
	return outcomes, errors.Join(failures...)
}

// scheduleOne liefert ein Outcome ohne Status, wenn der Lauf abgebrochen werden muss.
func (d *Dispatcher) scheduleOne(ctx context.Context, target time.Time, tolerance time.Duration) (Outcome, error) {
	log := d.Logger.With(zap.Time("target", target))
	out := Outcome{Target: target}

	covered, err := d.Schedules.HasCoverage(ctx, target, tolerance)
	if err != nil {
		return Outcome{}, fmt.Errorf("coverage check for %s: %w", target.Format(time.RFC3339), err)
	}
	if covered {
		log.Debug("Zielzeitpunkt bereits abgedeckt.")
		out.Status = OutcomeCovered
		return out, nil
	}

	batch, err := d.Repriser.Reprise(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("reprise for %s: %w", target.Format(time.RFC3339), err)
	}
	if len(batch) == 0 {
		log.Info("Leeres Reprisal-Set, nichts zuzustellen.")
		out.Status = OutcomeEmpty
		return out, nil
	}
	out.SetUUID = batch[0].SetUUID
	out.Size = len(batch)
	log = log.With(zap.String("set_uuid", out.SetUUID))

	fail := func(err error) (Outcome, error) {
		out.Status = OutcomeFailed
		out.Error = err.Error()
		log.Error("Zielzeitpunkt fehlgeschlagen.", zap.Error(err))
		return out, err
	}

	text, err := d.Format(batch)
	if err != nil {
		return fail(fmt.Errorf("format set %s: %w", out.SetUUID, err))
	}

	err = d.Retry.Do(ctx, "deliver", log, func(ctx context.Context) error {
		return d.Deliverer.Send(ctx, text, target)
	})
	if err != nil {
		return fail(fmt.Errorf("%w: %s for %s: %w", ErrDeliveryFailed, d.Deliverer.Name(), target.Format(time.RFC3339), err))
	}

	if _, err := d.Schedules.Add(ctx, out.SetUUID, target); err != nil {
		return fail(fmt.Errorf("record schedule for set %s: %w", out.SetUUID, err))
	}
	out.Status = OutcomeScheduled
	log.Info("Reprisal-Set eingeplant.", zap.Int("size", out.Size))
	return out, nil
}
