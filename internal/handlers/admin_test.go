package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadmark/catalog-api/internal/cache"
	"github.com/threadmark/catalog-api/internal/catalog"
	"github.com/threadmark/catalog-api/internal/lookup"
)

func adminFixture(t *testing.T) (*cache.Layer, *gin.Engine) {
	t.Helper()
	layer := cache.NewLayer(cache.NewMemoryStore(100), zerolog.Nop())
	h := NewAdminHandler(layer,
		lookup.NewDictionaryStore(nil, time.Hour, time.Second, zerolog.Nop()),
		lookup.NewStaticSynonyms(nil),
		catalog.NewScheduleStore(nil, time.Hour, time.Second, zerolog.Nop()),
		zerolog.Nop())

	r := gin.New()
	r.POST("/invalidate", h.Invalidate)
	return layer, r
}

func TestInvalidateFlushesEverythingByDefault(t *testing.T) {
	layer, r := adminFixture(t)
	ctx := context.Background()
	layer.SetJSON(ctx, "products:abc", 1, time.Minute)
	layer.SetJSON(ctx, "aggregations:abc", 1, time.Minute)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/invalidate", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var got int
	assert.False(t, layer.GetJSON(ctx, "products:abc", &got))
	assert.False(t, layer.GetJSON(ctx, "aggregations:abc", &got))

	var body struct {
		Invalidated []string `json:"invalidated"`
		Lookups     bool     `json:"lookups"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.ElementsMatch(t, cachePrefixes, body.Invalidated)
	assert.True(t, body.Lookups, "in-process snapshots always drop with the keys")
}

func TestInvalidateNamedPrefixOnly(t *testing.T) {
	layer, r := adminFixture(t)
	ctx := context.Background()
	layer.SetJSON(ctx, "products:abc", 1, time.Minute)
	layer.SetJSON(ctx, "count:abc", 2, time.Minute)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/invalidate",
		strings.NewReader(`{"prefixes":["products"]}`))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got int
	assert.False(t, layer.GetJSON(ctx, "products:abc", &got))
	assert.True(t, layer.GetJSON(ctx, "count:abc", &got), "unnamed prefixes survive")
}

func TestInvalidateRejectsUnknownPrefix(t *testing.T) {
	_, r := adminFixture(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/invalidate",
		strings.NewReader(`{"prefixes":["sessions"]}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
