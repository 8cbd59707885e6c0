package dataset

import (
	"math"
	"math/rand"

	"resale-price/internal/common"
	"resale-price/internal/features"
)

// Relative value retained on resale, per attribute. Unlisted values use 1.0.
var (
	brandFactor = map[string]float64{
		"Gucci": 1.35, "Levi's": 1.05, "Zara": 0.95, "Uniqlo": 0.85, "H&M": 0.75,
	}
	categoryFactor = map[string]float64{
		"Jacket": 1.10, "Jeans": 1.0, "Sweater": 0.95, "Shirt": 0.9, "T-shirt": 0.8,
	}
	materialFactor = map[string]float64{
		"Wool": 1.1, "Denim": 1.05, "Linen": 1.0, "Cotton": 0.95, "Polyester": 0.85,
	}
	basePrice = map[string]float64{
		"Jacket": 120, "Jeans": 70, "Sweater": 60, "Shirt": 45, "T-shirt": 25,
	}
)

func factor(m map[string]float64, key string) float64 {
	if f, ok := m[key]; ok {
		return f
	}
	return 1
}

// GenerateSynthetic produces n labelled samples drawn from the form's
// attribute options. Resale price falls with usage and scales with brand,
// category and material, plus Gaussian noise. Output is a pure function of seed.
func GenerateSynthetic(n int, seed int64) []Sample {
	rng := rand.New(rand.NewSource(seed))
	pick := func(options []string) string { return options[rng.Intn(len(options))] }

	samples := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		rec := features.RawRecord{
			Brand:      pick(common.BrandOptions),
			Category:   pick(common.CategoryOptions),
			Color:      pick(common.ColorOptions),
			Size:       pick(common.SizeOptions),
			Material:   pick(common.MaterialOptions),
			UsageLevel: common.UsageOptions[rng.Intn(len(common.UsageOptions))],
		}

		original := basePrice[rec.Category] * factor(brandFactor, rec.Brand) * (0.8 + 0.4*rng.Float64())
		rec.OriginalPrice = math.Round(original*100) / 100

		retained := 0.75 - 0.12*float64(rec.UsageLevel)
		price := rec.OriginalPrice * retained * factor(categoryFactor, rec.Category) * factor(materialFactor, rec.Material)
		price += rng.NormFloat64() * 3
		price = math.Round(price*100) / 100

		samples = append(samples, Sample{RawRecord: rec, Price: price})
	}
	return samples
}
