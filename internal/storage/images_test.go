package storage

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passthroughResolver(t *testing.T, publicURL string) *ImageResolver {
	t.Helper()
	r, err := NewImageResolver(context.Background(), ResolverConfig{PublicURL: publicURL}, zerolog.Nop())
	require.NoError(t, err)
	return r
}

func TestResolveAbsoluteURLUnchanged(t *testing.T) {
	r := passthroughResolver(t, "https://cdn.example.com")

	assert.Equal(t, "https://other.example.com/a.jpg", r.Resolve("https://other.example.com/a.jpg"))
	assert.Equal(t, "http://other.example.com/a.jpg", r.Resolve("http://other.example.com/a.jpg"))
}

func TestResolveKeyAgainstPublicURL(t *testing.T) {
	r := passthroughResolver(t, "https://cdn.example.com/")

	assert.Equal(t, "https://cdn.example.com/products/a.jpg", r.Resolve("products/a.jpg"))
	assert.Equal(t, "https://cdn.example.com/products/a.jpg", r.Resolve("/products/a.jpg"))
}

func TestResolveEmptyAndNoPublicURL(t *testing.T) {
	r := passthroughResolver(t, "")

	assert.Equal(t, "", r.Resolve(""))
	assert.Equal(t, "products/a.jpg", r.Resolve("products/a.jpg"), "passthrough without a CDN base")
}

func TestPresignWithoutClient(t *testing.T) {
	r := passthroughResolver(t, "")

	_, err := r.PresignUpload(context.Background(), "k", "image/png", 0)
	assert.Error(t, err)
}

func TestHealthyPassthrough(t *testing.T) {
	r := passthroughResolver(t, "")

	assert.True(t, r.Healthy(context.Background()))
}
