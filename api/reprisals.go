package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reprise/services"
)

func setupReprisalRoutes(router *gin.RouterGroup, d *Deps) {
	log := d.Logger.With(zap.String("routes", "reprisals"))

	// Erzeugt sofort ein Reprisal-Set, ohne Zustellung.
	router.POST("/reprise", func(c *gin.Context) {
		batch, err := d.Repriser.Reprise(c.Request.Context())
		if err != nil {
			respondError(c, log, err)
			return
		}
		if len(batch) == 0 {
			c.JSON(http.StatusOK, gin.H{"reprisals": batch})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"set_uuid": batch[0].SetUUID, "reprisals": batch})
	})

	router.GET("/reprisals", func(c *gin.Context) {
		ctx := c.Request.Context()
		if set := c.Query("set_uuid"); set != "" {
			reprisals, err := d.Reprisals.ListBySet(ctx, set)
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, reprisals)
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		reprisals, err := d.Reprisals.ListRecent(ctx, limit)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, reprisals)
	})

	router.GET("/reprisal_schedules", func(c *gin.Context) {
		schedules, err := d.Schedules.List(c.Request.Context())
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, schedules)
	})

	// Ohne targets werden die täglichen Zeitpunkte aus der Konfiguration verwendet.
	router.POST("/reprisal_schedules/dispatch", func(c *gin.Context) {
		if d.Dispatcher == nil {
			unavailable(c, "delivery")
			return
		}
		var req struct {
			Targets []time.Time `json:"targets"`
		}
		if err := bindOptionalJSON(c, &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "targets must be RFC 3339 timestamps"})
			return
		}
		targets := req.Targets
		if len(targets) == 0 {
			targets = services.DailyTargets(d.Clock.Now(), d.Config.DispatchHours, d.Config.DispatchDays)
		}
		outcomes, err := d.Dispatcher.Schedule(c.Request.Context(), targets)
		if err != nil {
			status := statusFor(err)
			if status == http.StatusInternalServerError {
				log.Error("Dispatch failed", zap.Error(err))
			}
			c.JSON(status, gin.H{"error": err.Error(), "outcomes": outcomes})
			return
		}
		c.JSON(http.StatusOK, gin.H{"outcomes": outcomes})
	})
}
