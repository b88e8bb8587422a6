package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func setupMotifRoutes(router *gin.RouterGroup, d *Deps) {
	log := d.Logger.With(zap.String("routes", "motifs"))
	rg := router.Group("/motifs")

	// Ohne page werden alle Motifs geliefert, sonst eine Seite.
	rg.GET("", func(c *gin.Context) {
		if c.Query("page") == "" {
			motifs, err := d.Motifs.List(c.Request.Context())
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"motifs": motifs, "total": len(motifs)})
			return
		}
		page, _ := strconv.Atoi(c.Query("page"))
		pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
		if page < 1 || pageSize < 1 || pageSize > 200 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "page must be >= 1 and page_size between 1 and 200"})
			return
		}
		motifs, total, err := d.Motifs.ListPaginated(c.Request.Context(), page, pageSize)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"motifs": motifs, "total": total, "page": page, "page_size": pageSize})
	})

	rg.POST("", func(c *gin.Context) {
		var req struct {
			Content       string  `json:"content" binding:"required"`
			CitationUUID  *string `json:"citation_uuid"`
			CitationTitle string  `json:"citation_title"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
			return
		}
		ctx := c.Request.Context()
		citationUUID := req.CitationUUID
		if citationUUID == nil && strings.TrimSpace(req.CitationTitle) != "" {
			citation, err := d.Citations.GetOrCreateByTitle(ctx, req.CitationTitle)
			if err != nil {
				respondError(c, log, err)
				return
			}
			citationUUID = &citation.UUID
		}
		motif, err := d.Motifs.Add(ctx, req.Content, citationUUID)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, motif)
	})

	rg.GET("/:uuid", func(c *gin.Context) {
		motif, err := d.Motifs.Get(c.Request.Context(), c.Param("uuid"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, motif)
	})

	// Nur gesendete Felder werden geändert; clear_citation entfernt die Quelle.
	rg.PUT("/:uuid", func(c *gin.Context) {
		var req struct {
			Content       *string `json:"content"`
			CitationUUID  *string `json:"citation_uuid"`
			ClearCitation bool    `json:"clear_citation"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		ctx := c.Request.Context()
		id := c.Param("uuid")
		if req.Content != nil {
			if strings.TrimSpace(*req.Content) == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "content must not be empty"})
				return
			}
			if _, err := d.Motifs.UpdateContent(ctx, id, *req.Content); err != nil {
				respondError(c, log, err)
				return
			}
		}
		if req.CitationUUID != nil || req.ClearCitation {
			if _, err := d.Motifs.SetCitation(ctx, id, req.CitationUUID); err != nil {
				respondError(c, log, err)
				return
			}
		}
		motif, err := d.Motifs.Get(ctx, id)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, motif)
	})

	rg.DELETE("/:uuid", func(c *gin.Context) {
		if err := d.Motifs.Delete(c.Request.Context(), c.Param("uuid")); err != nil {
			respondError(c, log, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	rg.POST("/extract", func(c *gin.Context) {
		if d.Extraction == nil {
			unavailable(c, "text generation")
			return
		}
		var req struct {
			Text          string `json:"text" binding:"required"`
			CitationTitle string `json:"citation_title"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
			return
		}
		motifs, err := d.Extraction.Extract(c.Request.Context(), req.Text, req.CitationTitle)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"motifs": motifs})
	})

	rg.POST("/:uuid/cloze_deletions/generate", func(c *gin.Context) {
		if d.Cloze == nil {
			unavailable(c, "text generation")
			return
		}
		var req struct {
			NMax int `json:"n_max"`
		}
		if err := bindOptionalJSON(c, &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		created, err := d.Cloze.GenerateForMotif(c.Request.Context(), c.Param("uuid"), req.NMax)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"cloze_deletions": created})
	})
}

func setupCitationRoutes(router *gin.RouterGroup, d *Deps) {
	log := d.Logger.With(zap.String("routes", "citations"))
	rg := router.Group("/citations")

	rg.GET("", func(c *gin.Context) {
		citations, err := d.Citations.List(c.Request.Context())
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, citations)
	})

	rg.POST("", func(c *gin.Context) {
		var req struct {
			Title string `json:"title" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
			return
		}
		citation, err := d.Citations.Add(c.Request.Context(), req.Title)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, citation)
	})
}
