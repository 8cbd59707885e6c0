package ml

import (
	"math"
	"math/rand"
	"sort"

	"resale-price/internal/dataset"
	"resale-price/internal/features"

	"golang.org/x/sync/errgroup"
)

// FeatureWeight is one encoded feature and its fitted coefficient.
type FeatureWeight struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Share  float64 `json:"share"` // |Weight| / Σ|Weight|
}

// CoefficientImportance ranks encoded features by absolute coefficient.
// Numeric features are standardized, so their weights are per standard
// deviation and comparable with the one-hot weights.
func CoefficientImportance(p *FittedPipeline) []FeatureWeight {
	names := p.Encoder.FeatureNames()
	out := make([]FeatureWeight, len(names))

	var total float64
	for i, w := range p.Regressor.Coefficients {
		total += math.Abs(w)
		out[i] = FeatureWeight{Name: names[i], Weight: w}
	}
	if total > 0 {
		for i := range out {
			out[i].Share = math.Abs(out[i].Weight) / total
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Weight) > math.Abs(out[j].Weight)
	})
	return out
}

// FieldImportance is the increase in RMSE when one raw field is shuffled
// across samples, breaking its relationship with the target.
type FieldImportance struct {
	Field        features.Field `json:"field"`
	BaselineRMSE float64        `json:"baseline_rmse"`
	ShuffledRMSE float64        `json:"shuffled_rmse"`
	Increase     float64        `json:"increase"`
}

// PermutationImportance measures FieldImportance for every raw field. The
// permutation order is derived from seed, so results are reproducible.
func PermutationImportance(p *FittedPipeline, samples []dataset.Sample, seed int64) ([]FieldImportance, error) {
	baseline, err := Evaluate(p, samples)
	if err != nil {
		return nil, err
	}

	fields := append(append([]features.Field{}, features.CategoricalFields...), features.NumericFields...)

	// Draw every permutation up front so the result does not depend on
	// goroutine scheduling.
	rng := rand.New(rand.NewSource(seed))
	perms := make([][]int, len(fields))
	for i := range fields {
		perms[i] = rng.Perm(len(samples))
	}

	out := make([]FieldImportance, len(fields))
	var eg errgroup.Group
	for i, f := range fields {
		i, f := i, f
		eg.Go(func() error {
			shuffled := make([]dataset.Sample, len(samples))
			for j, s := range samples {
				shuffled[j] = s
				shuffled[j].RawRecord = withField(s.RawRecord, samples[perms[i][j]].RawRecord, f)
			}

			m, err := Evaluate(p, shuffled)
			if err != nil {
				return err
			}
			out[i] = FieldImportance{
				Field:        f,
				BaselineRMSE: baseline.RMSE,
				ShuffledRMSE: m.RMSE,
				Increase:     m.RMSE - baseline.RMSE,
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Increase > out[j].Increase })
	return out, nil
}

// withField returns dst with field f copied from src.
func withField(dst, src features.RawRecord, f features.Field) features.RawRecord {
	switch f {
	case features.FieldBrand:
		dst.Brand = src.Brand
	case features.FieldCategory:
		dst.Category = src.Category
	case features.FieldColor:
		dst.Color = src.Color
	case features.FieldSize:
		dst.Size = src.Size
	case features.FieldMaterial:
		dst.Material = src.Material
	case features.FieldOriginalPrice:
		dst.OriginalPrice = src.OriginalPrice
	case features.FieldUsageLevel:
		dst.UsageLevel = src.UsageLevel
	}
	return dst
}
