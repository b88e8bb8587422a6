// Package app verdrahtet Konfiguration, Datenbank, Provider und Services.
// Server und CLI bauen ihren Zustand hierüber auf.
package app

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"reprise/api"
	"reprise/config"
	"reprise/providers/mailgun"
	"reprise/providers/openai"
	"reprise/repository"
	"reprise/services"
)

// selectorLockWait begrenzt, wie lange eine Auswahl auf eine andere Instanz wartet.
const selectorLockWait = 30 * time.Second

// App hält alle langlebigen Komponenten. Cloze, Extraction und Dispatcher
// bleiben nil, wenn der zugehörige Provider nicht konfiguriert ist.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *gorm.DB
	Redis  *redis.Client

	Motifs         *repository.MotifRepository
	Citations      *repository.CitationRepository
	ClozeDeletions *repository.ClozeDeletionRepository
	Reprisals      *repository.ReprisalRepository
	Schedules      *repository.ScheduleRepository

	Repriser   *services.ReprisalService
	Cloze      *services.ClozeService
	Extraction *services.ExtractionService
	Dispatcher *services.Dispatcher
}

// New öffnet die Datenbank, migriert das Schema und baut die Services.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := repository.Open(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Datenbank verbunden.", zap.String("driver", cfg.DBDriver))
	if err := repository.Migrate(db); err != nil {
		return nil, err
	}

	a := &App{
		Config:         cfg,
		Logger:         logger,
		DB:             db,
		Motifs:         repository.NewMotifRepository(db),
		Citations:      repository.NewCitationRepository(db),
		ClozeDeletions: repository.NewClozeDeletionRepository(db),
		Reprisals:      repository.NewReprisalRepository(db),
		Schedules:      repository.NewScheduleRepository(db),
	}
	a.Repriser = services.NewReprisalService(a.Motifs, a.Reprisals, cfg.ReprisalBatchSize, logger)
	if cfg.RedisAddr != "" {
		client, err := services.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Redis = client
		selectorLock := services.NewRedisLocker(client, cfg.LockTTL, logger)
		selectorLock.Key = services.SelectorLockKey
		selectorLock.Wait = selectorLockWait
		a.Repriser.Locker = selectorLock
	}

	if cfg.GenerationEnabled() {
		gen := openai.NewClient(cfg, logger)
		generationRetry := services.SingleRetry(cfg.RetryBackoff, cfg.LLMTimeout)

		a.Cloze = services.NewClozeService(gen, a.Motifs, a.ClozeDeletions, logger)
		a.Cloze.MaxSets = cfg.ClozeMaxSets
		a.Cloze.QualityCheck = cfg.ClozeQualityCheck
		a.Cloze.Retry = generationRetry

		a.Extraction = services.NewExtractionService(gen, a.Motifs, a.Citations, logger)
		a.Extraction.Retry = generationRetry
	} else {
		logger.Warn("OPENAI_API_KEY fehlt, Textgenerierung ist deaktiviert.")
	}

	if cfg.DeliveryEnabled() {
		d := services.NewDispatcher(a.Repriser, a.Schedules, mailgun.NewSender(cfg, logger), logger)
		d.Format = services.ClozeFormatter(cfg.MaskToken)
		d.Tolerance = cfg.ScheduleTolerance
		d.Retry = services.SingleRetry(cfg.RetryBackoff, cfg.DeliveryTimeout)
		if a.Redis != nil {
			d.Locker = services.ChainLocker{d.Locker, services.NewRedisLocker(a.Redis, cfg.LockTTL, logger)}
		}
		a.Dispatcher = d
	} else {
		logger.Warn("Mailgun ist nicht vollständig konfiguriert, Zustellung ist deaktiviert.")
	}
	return a, nil
}

// Deps liefert die Abhängigkeiten für den HTTP-Router.
func (a *App) Deps() *api.Deps {
	return &api.Deps{
		Config:         a.Config,
		Logger:         a.Logger,
		Motifs:         a.Motifs,
		Citations:      a.Citations,
		ClozeDeletions: a.ClozeDeletions,
		Reprisals:      a.Reprisals,
		Schedules:      a.Schedules,
		Repriser:       a.Repriser,
		Cloze:          a.Cloze,
		Extraction:     a.Extraction,
		Dispatcher:     a.Dispatcher,
		Clock:          services.SystemClock{},
	}
}

// DispatchDaily plant die konfigurierten Zielzeitpunkte ab jetzt ein.
func (a *App) DispatchDaily(ctx context.Context) ([]services.Outcome, error) {
	targets := services.DailyTargets(time.Now(), a.Config.DispatchHours, a.Config.DispatchDays)
	return a.Dispatcher.Schedule(ctx, targets)
}

// Close schließt Datenbank und Redis.
func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
