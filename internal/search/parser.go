// Package search turns free-text queries into typed intents and SQL
// predicates over the catalog search projection.
package search

import (
	"context"
	"regexp"
	"strings"

	"github.com/threadmark/catalog-api/internal/lookup"
)

// Intent is the structured reading of a free-text query. Multi-valued
// dimensions collect every matched term; Brand and ProductType keep the
// first match. Residual tokens land in FreeText.
type Intent struct {
	Brand       string
	ProductType string
	Sports      []string
	Fits        []string
	Sleeves     []string
	Necklines   []string
	Fabrics     []string
	Sectors     []string
	Colours     []string
	Features    []string
	StyleCode   string
	FreeText    []string
}

// IsEmpty reports whether parsing classified nothing at all.
func (in Intent) IsEmpty() bool {
	return in.Brand == "" && in.ProductType == "" && in.StyleCode == "" &&
		len(in.Sports) == 0 && len(in.Fits) == 0 && len(in.Sleeves) == 0 &&
		len(in.Necklines) == 0 && len(in.Fabrics) == 0 && len(in.Sectors) == 0 &&
		len(in.Colours) == 0 && len(in.Features) == 0 && len(in.FreeText) == 0
}

// styleCodeRe matches candidate style codes: short alphanumerics. The
// additional letter+digit requirement is checked separately so plain
// words ("polo") and plain numbers ("100") never count as codes.
var styleCodeRe = regexp.MustCompile(`^[A-Za-z0-9]{2,10}$`)

// looksLikeStyleCode reports whether a token is a plausible style code:
// 2-10 alphanumerics containing at least one letter and one digit.
func looksLikeStyleCode(token string) bool {
	if !styleCodeRe.MatchString(token) {
		return false
	}
	hasLetter, hasDigit := false, false
	for _, r := range token {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLetter = true
		}
	}
	return hasLetter && hasDigit
}

// Parser classifies query tokens against the lookup dictionaries after
// synonym expansion.
type Parser struct {
	dicts    *lookup.DictionaryStore
	synonyms *lookup.SynonymResolver
}

// NewParser wires a parser to its vocabulary sources.
func NewParser(dicts *lookup.DictionaryStore, synonyms *lookup.SynonymResolver) *Parser {
	return &Parser{dicts: dicts, synonyms: synonyms}
}

// Parse runs the full pipeline on a raw query string.
func (p *Parser) Parse(ctx context.Context, raw string) Intent {
	dicts := p.dicts.Current(ctx)
	return ParseWith(ctx, raw, dicts, p.synonyms)
}

// ParseWith is the pure core of Parse, taking an explicit dictionary
// snapshot so it can be exercised without a database.
func ParseWith(ctx context.Context, raw string, dicts *lookup.Dictionaries, synonyms *lookup.SynonymResolver) Intent {
	var intent Intent

	rawTokens := strings.Fields(raw)
	if len(rawTokens) == 0 {
		return intent
	}

	// Style-code detection runs on the raw tokens and does not consume
	// them: "AD002 polo" still classifies "polo".
	for _, tok := range rawTokens {
		if looksLikeStyleCode(tok) {
			intent.StyleCode = tok
			break
		}
	}

	resolved := synonyms.ResolveTokens(ctx, rawTokens)
	consumed := make([]bool, len(resolved))

	// Phrase pass: longest phrases first so "long sleeve" is classified
	// before "long" and "sleeve" ever get a look.
	for length := 3; length >= 1; length-- {
		for i := 0; i+length <= len(resolved); i++ {
			if anyConsumed(consumed[i : i+length]) {
				continue
			}
			phrase := joinCanonical(resolved[i : i+length])
			if phrase == "" {
				continue
			}
			if classify(&intent, dicts, phrase) {
				markConsumed(consumed[i : i+length])
			}
		}
	}

	for i, tok := range resolved {
		if !consumed[i] {
			intent.FreeText = append(intent.FreeText, tok.Canonical)
		}
	}

	return intent
}

// classify probes the dictionaries in the fixed order and records every
// hit for the phrase. A term that is both a brand and a product type
// populates both. Returns true if any dictionary claimed the phrase.
func classify(intent *Intent, dicts *lookup.Dictionaries, phrase string) bool {
	matched := false
	for _, dim := range lookup.ProbeOrder {
		if !dicts.Has(dim, phrase) {
			continue
		}
		switch dim {
		case lookup.DimBrand:
			if intent.Brand == "" {
				intent.Brand = phrase
			}
		case lookup.DimProductType:
			if intent.ProductType == "" {
				intent.ProductType = phrase
			}
		case lookup.DimSport:
			intent.Sports = appendUnique(intent.Sports, phrase)
		case lookup.DimFit:
			intent.Fits = appendUnique(intent.Fits, phrase)
		case lookup.DimSleeve:
			intent.Sleeves = appendUnique(intent.Sleeves, phrase)
		case lookup.DimNeckline:
			intent.Necklines = appendUnique(intent.Necklines, phrase)
		case lookup.DimFabric:
			intent.Fabrics = appendUnique(intent.Fabrics, phrase)
		case lookup.DimSector:
			intent.Sectors = appendUnique(intent.Sectors, phrase)
		case lookup.DimColour:
			intent.Colours = appendUnique(intent.Colours, phrase)
		case lookup.DimFeature:
			intent.Features = appendUnique(intent.Features, phrase)
		}
		matched = true
	}
	return matched
}

func anyConsumed(flags []bool) bool {
	for _, f := range flags {
		if f {
			return true
		}
	}
	return false
}

func markConsumed(flags []bool) {
	for i := range flags {
		flags[i] = true
	}
}

func joinCanonical(tokens []lookup.ResolvedToken) string {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		parts = append(parts, t.Canonical)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
