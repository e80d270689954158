// Package handlers exposes the catalog read paths over HTTP.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/threadmark/catalog-api/internal/catalog"
)

// CatalogHandler serves the listing, facet, detail and suggest routes.
type CatalogHandler struct {
	svc *catalog.Service
	log zerolog.Logger
}

// NewCatalogHandler creates the handler.
func NewCatalogHandler(svc *catalog.Service, log zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{svc: svc, log: log}
}

// csv splits a comma-separated query value, dropping empties.
func csv(c *gin.Context, key string) []string {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func floatParam(c *gin.Context, key string) *float64 {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return &v
		}
	}
	return nil
}

func boolParam(c *gin.Context, key string) *bool {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			return &v
		}
	}
	return nil
}

func intParam(c *gin.Context, key string, def int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return def
}

func parseFilters(c *gin.Context) catalog.Filters {
	f := catalog.Filters{
		Gender:        c.Query("gender"),
		AgeGroup:      c.Query("ageGroup"),
		Tag:           c.Query("tag"),
		PrimaryColour: csv(c, "primaryColour"),
		ColourShade:   csv(c, "colourShade"),

		Sleeves:        csv(c, "sleeve"),
		Necklines:      csv(c, "neckline"),
		Fabrics:        csv(c, "fabric"),
		Sizes:          csv(c, "size"),
		Styles:         csv(c, "style"),
		Colours:        csv(c, "colour"),
		Weights:        csv(c, "weight"),
		Fits:           csv(c, "fit"),
		Features:       csv(c, "feature"),
		Effects:        csv(c, "effect"),
		Accreditations: csv(c, "accreditations"),
		Sectors:        csv(c, "sector"),
		Sports:         csv(c, "sport"),
		Flags:          csv(c, "flag"),

		Brand:       c.Query("brand"),
		ProductType: c.Query("productType"),

		PriceMin: floatParam(c, "priceMin"),
		PriceMax: floatParam(c, "priceMax"),

		IsBestSeller:  boolParam(c, "isBestSeller"),
		IsRecommended: boolParam(c, "isRecommended"),
	}
	for _, raw := range csv(c, "category") {
		if id, err := strconv.Atoi(raw); err == nil {
			f.CategoryIDs = append(f.CategoryIDs, id)
		}
	}
	return f
}

// List handles GET /api/products.
func (h *CatalogHandler) List(c *gin.Context) {
	start := time.Now()

	params := catalog.ListParams{
		Filters: parseFilters(c),
		Query:   c.Query("q"),
		Sort:    c.Query("sort"),
		Order:   c.Query("order"),
		Page:    intParam(c, "page", 1),
		Limit:   intParam(c, "limit", 24),
	}

	result, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		h.fail(c, err, "product listing failed")
		return
	}

	c.Header("Cache-Control", "public, max-age=30, stale-while-revalidate=60")
	c.JSON(http.StatusOK, gin.H{
		"items":      result.Items,
		"total":      result.Total,
		"page":       params.Page,
		"limit":      params.Limit,
		"priceRange": result.PriceRange,
		"took_ms":    time.Since(start).Milliseconds(),
	})
}

// Facets handles GET /api/products/facets.
func (h *CatalogHandler) Facets(c *gin.Context) {
	start := time.Now()

	params := catalog.FacetParams{
		Filters: parseFilters(c),
		Query:   c.Query("q"),
	}

	facets, err := h.svc.FacetCounts(c.Request.Context(), params)
	if err != nil {
		h.fail(c, err, "facet aggregation failed")
		return
	}

	c.Header("Cache-Control", "public, max-age=600")
	c.JSON(http.StatusOK, gin.H{
		"facets":  facets,
		"took_ms": time.Since(start).Milliseconds(),
	})
}

// Detail handles GET /api/products/:code.
func (h *CatalogHandler) Detail(c *gin.Context) {
	start := time.Now()

	detail, err := h.svc.Detail(c.Request.Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "product not found"})
			return
		}
		h.fail(c, err, "product detail failed")
		return
	}

	c.Header("Cache-Control", "public, max-age=300, stale-while-revalidate=600")
	c.Header("X-Took-Ms", strconv.FormatInt(time.Since(start).Milliseconds(), 10))
	c.JSON(http.StatusOK, detail)
}

// Suggest handles GET /api/products/suggest?q=.
func (h *CatalogHandler) Suggest(c *gin.Context) {
	start := time.Now()

	suggestions, err := h.svc.Suggest(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.fail(c, err, "suggest failed")
		return
	}

	c.Header("Cache-Control", "public, max-age=30")
	c.JSON(http.StatusOK, gin.H{
		"q":       c.Query("q"),
		"results": suggestions,
		"took_ms": time.Since(start).Milliseconds(),
	})
}

// fail maps service errors to the `{error, message}` body. Internal
// detail never leaks; it goes to the log instead.
func (h *CatalogHandler) fail(c *gin.Context, err error, msg string) {
	if errors.Is(err, catalog.ErrInvalidInput) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": err.Error()})
		return
	}
	h.log.Error().Err(err).Str("path", c.FullPath()).Msg(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "internal error"})
}
