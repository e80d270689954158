package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadmark/catalog-api/internal/lookup"
)

func testDictionaries() *lookup.Dictionaries {
	return lookup.NewStaticDictionaries(map[lookup.Dimension][]string{
		lookup.DimBrand:       {"nike", "adidas", "fruit of the loom"},
		lookup.DimProductType: {"t-shirts", "polos", "hoodies", "vests"},
		lookup.DimSport:       {"rugby", "football"},
		lookup.DimFit:         {"slim fit", "regular"},
		lookup.DimSleeve:      {"long-sleeve", "short-sleeve"},
		lookup.DimNeckline:    {"v-neck", "crew-neck"},
		lookup.DimFabric:      {"cotton", "polyester"},
		lookup.DimSector:      {"workwear", "hospitality"},
		lookup.DimColour:      {"red", "navy", "grey", "royal blue"},
		lookup.DimFeature:     {"hi-vis", "waterproof"},
	})
}

func testSynonyms() *lookup.SynonymResolver {
	return lookup.NewStaticSynonyms(nil)
}

func parse(t *testing.T, raw string) Intent {
	t.Helper()
	return ParseWith(context.Background(), raw, testDictionaries(), testSynonyms())
}

func TestLooksLikeStyleCode(t *testing.T) {
	assert.True(t, looksLikeStyleCode("AD002"))
	assert.True(t, looksLikeStyleCode("gd67"))
	assert.True(t, looksLikeStyleCode("1a"))

	assert.False(t, looksLikeStyleCode("polo"), "letters only")
	assert.False(t, looksLikeStyleCode("100"), "digits only")
	assert.False(t, looksLikeStyleCode("a"), "too short")
	assert.False(t, looksLikeStyleCode("abcdef12345"), "too long")
	assert.False(t, looksLikeStyleCode("ad-002"), "punctuation")
}

func TestParseStyleCodeDoesNotConsume(t *testing.T) {
	intent := parse(t, "red AD002")

	assert.Equal(t, "AD002", intent.StyleCode)
	assert.Equal(t, []string{"red"}, intent.Colours)
}

func TestParsePhraseBeforeSingleTokens(t *testing.T) {
	intent := parse(t, "long sleeve cotton polo")

	assert.Equal(t, []string{"long-sleeve"}, intent.Sleeves)
	assert.Equal(t, []string{"cotton"}, intent.Fabrics)
	assert.Equal(t, "polos", intent.ProductType)
	assert.Empty(t, intent.FreeText)
}

func TestParseThreeTokenBrand(t *testing.T) {
	intent := parse(t, "fruit of the loom tshirt")

	// "of the loom" is never a phrase on its own; the 4-token brand name
	// cannot match whole, so the tokens fall through.
	assert.Equal(t, "t-shirts", intent.ProductType)
	assert.Empty(t, intent.Brand)
	assert.Contains(t, intent.FreeText, "fruit")
}

func TestParseSynonymExpansion(t *testing.T) {
	intent := parse(t, "ladies gray tee")

	assert.Equal(t, "t-shirts", intent.ProductType)
	assert.Equal(t, []string{"grey"}, intent.Colours)
	// "womens" is not in any dictionary here, so it stays free text.
	assert.Contains(t, intent.FreeText, "womens")
}

func TestParseMultiValueDimensions(t *testing.T) {
	intent := parse(t, "red navy vneck hoodie")

	assert.Equal(t, []string{"red", "navy"}, intent.Colours)
	assert.Equal(t, []string{"v-neck"}, intent.Necklines)
	assert.Equal(t, "hoodies", intent.ProductType)
}

func TestParseBrandKeepsFirst(t *testing.T) {
	intent := parse(t, "nike adidas polo")

	assert.Equal(t, "nike", intent.Brand)
	assert.Equal(t, "polos", intent.ProductType)
}

func TestParseResidualFreeText(t *testing.T) {
	intent := parse(t, "comfy red polo")

	assert.Equal(t, []string{"red"}, intent.Colours)
	assert.Equal(t, "polos", intent.ProductType)
	assert.Equal(t, []string{"comfy"}, intent.FreeText)
}

func TestParseEmpty(t *testing.T) {
	intent := parse(t, "   ")
	assert.True(t, intent.IsEmpty())
}

func TestParseTrademarkGlyphs(t *testing.T) {
	intent := parse(t, "Nike® polo")
	require.Equal(t, "nike®", intent.Brand, "brand records the resolved token")
}

func TestParseTwoTokenColour(t *testing.T) {
	intent := parse(t, "royal blue vest")

	assert.Equal(t, []string{"royal blue"}, intent.Colours)
	assert.Equal(t, "vests", intent.ProductType)
	assert.Empty(t, intent.FreeText)
}
