package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reprise/mask"
)

// clozeDeletionView ergänzt den Maskensatz um gerenderten Text und Lösungen.
type clozeDeletionView struct {
	UUID        string      `json:"uuid"`
	MotifUUID   string      `json:"motif_uuid"`
	MaskTuples  []mask.Pair `json:"mask_tuples"`
	Masked      string      `json:"masked"`
	MaskedWords []string    `json:"masked_words"`
}

func bindPairsError(c *gin.Context, err error) {
	if errors.Is(err, mask.ErrMalformedMask) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
}

func setupClozeDeletionRoutes(router *gin.RouterGroup, d *Deps) {
	log := d.Logger.With(zap.String("routes", "cloze_deletions"))
	rg := router.Group("/cloze_deletions")
	token := d.Config.MaskToken
	if token == "" {
		token = mask.DefaultToken
	}

	rg.POST("", func(c *gin.Context) {
		var req struct {
			MotifUUID  string      `json:"motif_uuid" binding:"required"`
			MaskTuples []mask.Pair `json:"mask_tuples"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			bindPairsError(c, err)
			return
		}
		cd, err := d.ClozeDeletions.Add(c.Request.Context(), req.MotifUUID, req.MaskTuples)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, cd)
	})

	rg.PUT("", func(c *gin.Context) {
		var req struct {
			UUID       string      `json:"uuid" binding:"required"`
			MaskTuples []mask.Pair `json:"mask_tuples"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			bindPairsError(c, err)
			return
		}
		cd, err := d.ClozeDeletions.Update(c.Request.Context(), req.UUID, req.MaskTuples)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, cd)
	})

	rg.GET("/:uuid", func(c *gin.Context) {
		ctx := c.Request.Context()
		cd, err := d.ClozeDeletions.Get(ctx, c.Param("uuid"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		motif, err := d.Motifs.Get(ctx, cd.MotifUUID)
		if err != nil {
			respondError(c, log, err)
			return
		}
		masked, err := cd.Masked(motif.Content, token)
		if err != nil {
			respondError(c, log, err)
			return
		}
		words, err := cd.MaskedWords(motif.Content)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, clozeDeletionView{
			UUID:        cd.UUID,
			MotifUUID:   cd.MotifUUID,
			MaskTuples:  cd.Pairs(),
			Masked:      masked,
			MaskedWords: words,
		})
	})

	rg.DELETE("/:uuid", func(c *gin.Context) {
		if err := d.ClozeDeletions.Delete(c.Request.Context(), c.Param("uuid")); err != nil {
			respondError(c, log, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}
