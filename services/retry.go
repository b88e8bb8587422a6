package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"reprise/providers"
)

// RetryPolicy begrenzt jeden Versuch eines externen Aufrufs zeitlich und
// wiederholt nur bei vorübergehenden Fehlern.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
	Timeout  time.Duration
}

// SingleRetry ist die Standardpolitik: ein Versuch plus eine Wiederholung.
func SingleRetry(backoff, timeout time.Duration) RetryPolicy {
	return RetryPolicy{Attempts: 2, Backoff: backoff, Timeout: timeout}
}

// Do führt fn aus. Validierungs- und Formatfehler werden nie wiederholt.
func (p RetryPolicy) Do(ctx context.Context, op string, logger *zap.Logger, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; ; attempt++ {
		err := p.once(ctx, fn)
		if err == nil {
			return nil
		}
		if attempt >= attempts || !providers.IsTransient(err) || ctx.Err() != nil {
			return err
		}

		logger.Warn("Vorübergehender Fehler, neuer Versuch.",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", p.Backoff),
			zap.Error(err))
		retryCounter.WithLabelValues(op).Inc()

		timer := time.NewTimer(p.Backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

func (p RetryPolicy) once(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.Timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	return fn(attemptCtx)
}
