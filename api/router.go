// Package api stellt die HTTP-Schnittstelle für Motifs, Cloze-Deletions und
// Reprisals bereit. Die Handler sind dünn; die Logik liegt in services und repository.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"reprise/config"
	"reprise/repository"
	"reprise/services"
)

// Deps bündelt alles, was die Handler brauchen. Cloze, Extraction und
// Dispatcher sind nil, wenn der jeweilige Provider nicht konfiguriert ist.
type Deps struct {
	Config         *config.Config
	Logger         *zap.Logger
	Motifs         *repository.MotifRepository
	Citations      *repository.CitationRepository
	ClozeDeletions *repository.ClozeDeletionRepository
	Reprisals      *repository.ReprisalRepository
	Schedules      *repository.ScheduleRepository
	Repriser       services.Repriser
	Cloze          *services.ClozeService
	Extraction     *services.ExtractionService
	Dispatcher     *services.Dispatcher
	Clock          services.Clock
}

// NewRouter erstellt den gin-Router mit allen Routen.
func NewRouter(d *Deps) *gin.Engine {
	if d.Clock == nil {
		d.Clock = services.SystemClock{}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(d.Config)))
	router.GET("/health", healthHandler(d))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	protected := router.Group("/")
	protected.Use(apiKeyAuthMiddleware(d.Config))
	setupMotifRoutes(protected, d)
	setupCitationRoutes(protected, d)
	setupClozeDeletionRoutes(protected, d)
	setupReprisalRoutes(protected, d)
	return router
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.Config{
		AllowOrigins:     cfg.CORSAllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-API-KEY"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(c.AllowOrigins) == 0 {
		// cors.New verweigert eine leere Origin-Liste.
		c.AllowOrigins = nil
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	}
	return c
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func healthHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := d.Motifs.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			d.Logger.Error("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"generation": d.Cloze != nil,
			"delivery":   d.Dispatcher != nil,
		})
	}
}
