package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/threadmark/catalog-api/internal/cache"
	"github.com/threadmark/catalog-api/internal/lookup"
)

// HealthHandler reports service liveness and dependency status.
type HealthHandler struct {
	pool         *pgxpool.Pool
	cache        *cache.Layer
	dictionaries *lookup.DictionaryStore
}

// NewHealthHandler creates the handler.
func NewHealthHandler(pool *pgxpool.Pool, cacheLayer *cache.Layer, dicts *lookup.DictionaryStore) *HealthHandler {
	return &HealthHandler{pool: pool, cache: cacheLayer, dictionaries: dicts}
}

// Health handles GET /health. The database is the only hard
// dependency; a degraded cache still serves traffic.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	start := time.Now()

	status := http.StatusOK
	dbOK := true
	if err := h.pool.Ping(ctx); err != nil {
		dbOK = false
		status = http.StatusServiceUnavailable
	}

	cacheOK := h.cache.Ping(ctx) == nil

	dicts := h.dictionaries.Current(ctx)
	lookupTotal := 0
	for _, dim := range lookup.ProbeOrder {
		lookupTotal += dicts.Size(dim)
	}

	body := gin.H{
		"status":    "healthy",
		"database":  dbOK,
		"cache":     cacheOK,
		"lookups":   lookupTotal,
		"took_ms":   time.Since(start).Milliseconds(),
		"timestamp": time.Now().UTC(),
	}
	if status != http.StatusOK {
		body["status"] = "unhealthy"
	}
	c.JSON(status, body)
}
