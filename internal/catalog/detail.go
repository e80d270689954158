package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/threadmark/catalog-api/internal/cache"
)

// DetailImage is one product image with its display role.
type DetailImage struct {
	URL  string `json:"url"`
	Type string `json:"type"` // "main" or "thumb"
}

// DetailInfo carries the descriptive attributes of a style.
type DetailInfo struct {
	Fit    string `json:"fit"`
	Fabric string `json:"fabric"`
	Weight string `json:"weight"`
	Care   string `json:"care"`
}

// Detail is the full single-product response.
type Detail struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Brand         string          `json:"brand"`
	ProductType   string          `json:"productType"`
	Price         float64         `json:"price"`
	BasePrice     float64         `json:"basePrice"`
	SellPrice     float64         `json:"sell_price"`
	CartonPrice   float64         `json:"carton_price"`
	MarkupTier    float64         `json:"markup_tier"`
	MarkupSource  string          `json:"markup_source"`
	PriceBreaks   []PriceBreak    `json:"priceBreaks"`
	Colors        []ColourVariant `json:"colors"`
	Sizes         []string        `json:"sizes"`
	Images        []DetailImage   `json:"images"`
	Description   string          `json:"description"`
	Details       DetailInfo      `json:"details"`
	Customization []string        `json:"customization"`
}

// Detail loads one style by code. Codes match case-insensitively; a
// code with no live SKUs is ErrNotFound.
func (s *Service) Detail(ctx context.Context, styleCode string) (*Detail, error) {
	styleCode = strings.TrimSpace(styleCode)
	if styleCode == "" {
		return nil, fmt.Errorf("%w: empty style code", ErrInvalidInput)
	}

	key := cache.Key("product", map[string]any{"code": strings.ToLower(styleCode)}, 0, 0)
	var cached Detail
	if s.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.DetailTimeout)
	defer cancel()

	d, err := s.loadDetail(ctx, styleCode)
	if err != nil {
		return nil, err
	}

	overrides, err := s.loadDetailOverrides(ctx, d.Code)
	if err != nil {
		return nil, err
	}
	schedule := s.schedule.Current(ctx)
	d.PriceBreaks = BuildBreaks(d.SellPrice, schedule, overrides)
	if d.PriceBreaks == nil {
		d.PriceBreaks = []PriceBreak{}
	}

	s.cache.SetJSON(ctx, key, d, s.cfg.DetailTTL)
	return d, nil
}

func (s *Service) loadDetail(ctx context.Context, styleCode string) (*Detail, error) {
	rows, err := s.pool.Query(ctx, `
SELECT st.style_code, st.style_name, b.name, COALESCE(st.product_type, ''),
  COALESCE(st.description, ''), COALESCE(st.fit, ''), COALESCE(st.fabric, ''),
  COALESCE(st.weight, ''), COALESCE(st.care, ''),
  st.primary_image_url, pr.colour_name, pr.colour_image_url, sz.name,
  pr.single_price, pr.carton_price, pr.sell_price, mo.markup_percent
FROM products pr
JOIN styles st ON st.style_code = pr.style_code
JOIN brands b ON b.id = st.brand_id
LEFT JOIN sizes sz ON sz.name = pr.size_name
LEFT JOIN product_markup_overrides mo ON LOWER(mo.style_code) = LOWER(st.style_code)
WHERE LOWER(st.style_code) = LOWER($1) AND pr.sku_status = 'Live'
ORDER BY pr.colour_name, sz.size_order NULLS LAST`, styleCode)
	if err != nil {
		return nil, fmt.Errorf("detail query: %w", err)
	}
	defer rows.Close()

	var d *Detail
	var singleMin float64
	colourSeen := map[string]bool{}
	var markupOverride *float64

	for rows.Next() {
		var code, name, brand, ptype, desc, fit, fabric, weight, care, colourName string
		var primaryImage, colourImage, sizeName *string
		var single, carton, sell float64
		var mo *float64
		if err := rows.Scan(&code, &name, &brand, &ptype, &desc, &fit, &fabric,
			&weight, &care, &primaryImage, &colourName, &colourImage, &sizeName,
			&single, &carton, &sell, &mo); err != nil {
			return nil, fmt.Errorf("detail scan: %w", err)
		}

		if d == nil {
			d = &Detail{
				Code:          code,
				Name:          name,
				Brand:         brand,
				ProductType:   ptype,
				Description:   desc,
				Details:       DetailInfo{Fit: fit, Fabric: fabric, Weight: weight, Care: care},
				Customization: []string{"embroidery", "print"},
				SellPrice:     sell,
				CartonPrice:   carton,
			}
			singleMin = single
			if primaryImage != nil && *primaryImage != "" {
				main := s.images.Resolve(*primaryImage)
				d.Images = append(d.Images, DetailImage{URL: main, Type: "main"})
			}
		}
		if mo != nil {
			markupOverride = mo
		}

		if sell > 0 && (d.SellPrice == 0 || sell < d.SellPrice) {
			d.SellPrice = sell
		}
		if carton > 0 && (d.CartonPrice == 0 || carton < d.CartonPrice) {
			d.CartonPrice = carton
		}
		if single > 0 && (singleMin == 0 || single < singleMin) {
			singleMin = single
		}

		if colourName != "" && !colourSeen[strings.ToLower(colourName)] {
			colourSeen[strings.ToLower(colourName)] = true
			img := ""
			if colourImage != nil {
				img = s.images.Resolve(*colourImage)
			}
			if img == "" && len(d.Images) > 0 {
				img = d.Images[0].URL
			}
			d.Colors = append(d.Colors, ColourVariant{Name: colourName, Main: img, Thumb: img})
			if img != "" {
				d.Images = append(d.Images, DetailImage{URL: img, Type: "thumb"})
			}
		}
		if sizeName != nil && *sizeName != "" && !containsFold(d.Sizes, *sizeName) {
			d.Sizes = append(d.Sizes, *sizeName)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("detail rows: %w", err)
	}
	if d == nil {
		return nil, fmt.Errorf("style %s: %w", styleCode, ErrNotFound)
	}

	SortSizes(d.Sizes)

	d.Price = d.SellPrice
	d.BasePrice = d.CartonPrice
	if d.BasePrice == 0 {
		d.BasePrice = singleMin
	}

	markup := SelectMarkup(d.SellPrice, d.BasePrice, markupOverride)
	d.MarkupTier = markup.Percent
	d.MarkupSource = markup.Source
	return d, nil
}

func (s *Service) loadDetailOverrides(ctx context.Context, code string) ([]BreakRange, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT min_qty, COALESCE(max_qty, 0), discount_percent
		 FROM product_price_overrides WHERE LOWER(style_code) = LOWER($1)`, code)
	if err != nil {
		return nil, fmt.Errorf("detail override query: %w", err)
	}
	defer rows.Close()

	var out []BreakRange
	for rows.Next() {
		var r BreakRange
		if err := rows.Scan(&r.Min, &r.Max, &r.Discount); err != nil {
			return nil, fmt.Errorf("detail override scan: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("detail override rows: %w", err)
	}
	return out, nil
}
