package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyStableAcrossArrayOrder(t *testing.T) {
	a := Key("products", map[string]any{"colour": []string{"red", "navy"}}, 1, 24)
	b := Key("products", map[string]any{"colour": []string{"navy", "red"}}, 1, 24)

	assert.Equal(t, a, b)
}

func TestKeyDropsEmptyValues(t *testing.T) {
	a := Key("products", map[string]any{"brand": "acme"}, 1, 24)
	b := Key("products", map[string]any{
		"brand":    "acme",
		"gender":   "",
		"colour":   []string{},
		"priceMin": (*float64)(nil),
	}, 1, 24)

	assert.Equal(t, a, b)
}

func TestKeyVariesByPageAndLimit(t *testing.T) {
	base := Key("products", map[string]any{"brand": "acme"}, 1, 24)

	assert.NotEqual(t, base, Key("products", map[string]any{"brand": "acme"}, 2, 24))
	assert.NotEqual(t, base, Key("products", map[string]any{"brand": "acme"}, 1, 48))
}

func TestKeyVariesByKind(t *testing.T) {
	filters := map[string]any{"brand": "acme"}

	listKey := Key("products", filters, 0, 0)
	countKey := Key("count", filters, 0, 0)

	assert.NotEqual(t, listKey, countKey)
	assert.True(t, strings.HasPrefix(listKey, "products:"))
	assert.True(t, strings.HasPrefix(countKey, "count:"))
}

func TestCanonicalLayout(t *testing.T) {
	min := 5.0
	got := Canonical(map[string]any{
		"colour": []string{"red", "navy"},
		"brand":  "acme",
		"min":    &min,
	}, 2, 24, "products")

	assert.Equal(t, "brand:acme|colour:navy,red|min:5|page:2|limit:24|type:products", got)
}
