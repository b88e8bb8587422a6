package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reprise/mask"
	"reprise/repository"
	"reprise/services"
)

// statusFor ordnet die Fehler-Taxonomie HTTP-Statuscodes zu.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, mask.ErrMalformedMask), errors.Is(err, repository.ErrMotifMismatch):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNoValidMasks), errors.Is(err, services.ErrNothingExtracted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrInvalidResponseFormat), errors.Is(err, services.ErrDeliveryFailed):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrGenerationUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrScheduleConflict), errors.Is(err, services.ErrRunLocked):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError schreibt {"error": ...}. Unerwartete Fehler werden geloggt und
// ohne Details beantwortet.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": what + " is not configured"})
}

// bindOptionalJSON bindet einen JSON-Body, falls einer mitgeschickt wurde.
// Ein leerer Body (auch chunked ohne Content-Length) lässt obj unverändert.
func bindOptionalJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
