package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/threadmark/catalog-api/internal/cache"
	"github.com/threadmark/catalog-api/internal/catalog"
	"github.com/threadmark/catalog-api/internal/lookup"
)

// cachePrefixes are the key namespaces the invalidation endpoint can
// flush. The empty set means all of them.
var cachePrefixes = []string{"products", "aggregations", "count", "priceRange", "product", "suggest"}

// AdminHandler serves the JWT-guarded maintenance routes.
type AdminHandler struct {
	cache        *cache.Layer
	dictionaries *lookup.DictionaryStore
	synonyms     *lookup.SynonymResolver
	schedule     *catalog.ScheduleStore
	log          zerolog.Logger
}

// NewAdminHandler creates the handler.
func NewAdminHandler(cacheLayer *cache.Layer, dicts *lookup.DictionaryStore,
	synonyms *lookup.SynonymResolver, schedule *catalog.ScheduleStore, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		cache:        cacheLayer,
		dictionaries: dicts,
		synonyms:     synonyms,
		schedule:     schedule,
		log:          log,
	}
}

type invalidateRequest struct {
	Prefixes []string `json:"prefixes"`
}

// Invalidate handles POST /api/admin/cache/invalidate: flush the named
// cache prefixes (all when omitted) and drop the in-process dictionary,
// synonym and price-schedule snapshots so the next read reloads.
func (h *AdminHandler) Invalidate(c *gin.Context) {
	start := time.Now()

	var req invalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	prefixes := req.Prefixes
	if len(prefixes) == 0 {
		prefixes = cachePrefixes
	} else {
		known := make(map[string]bool, len(cachePrefixes))
		for _, p := range cachePrefixes {
			known[p] = true
		}
		for _, p := range prefixes {
			if !known[p] {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown cache prefix: " + p})
				return
			}
		}
	}

	h.cache.InvalidatePrefixes(c.Request.Context(), prefixes...)

	// A stale dictionary would keep classifying retired vocabulary for
	// up to the refresh TTL, so the snapshots always go with the keys.
	h.dictionaries.Invalidate()
	h.synonyms.Invalidate()
	h.schedule.Invalidate()

	h.log.Info().Strs("prefixes", prefixes).Msg("cache invalidated")
	c.JSON(http.StatusOK, gin.H{
		"invalidated": prefixes,
		"lookups":     true,
		"took_ms":     time.Since(start).Milliseconds(),
	})
}
