package ml

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"resale-price/internal/features"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DriftMethod names a test comparing two distributions of one field.
type DriftMethod string

const (
	KolmogorovSmirnovTest    DriftMethod = "kolmogorov_smirnov"
	PopulationStabilityIndex DriftMethod = "population_stability_index"
)

// ErrInsufficientSamples is returned when either side of a drift comparison
// has fewer rows than DriftConfig.MinSamples.
var ErrInsufficientSamples = errors.New("not enough samples for drift detection")

// DriftConfig configures DetectDrift. Zero values take defaults.
type DriftConfig struct {
	PSIThreshold float64                    // default 0.1
	KSThreshold  float64                    // default 0.2
	Thresholds   map[features.Field]float64 // per-field PSI threshold overrides
	MinSamples   int                        // default 30
	Bins         int                        // numeric PSI bins, default 10
}

func (c DriftConfig) withDefaults() DriftConfig {
	if c.PSIThreshold <= 0 {
		c.PSIThreshold = 0.1
	}
	if c.KSThreshold <= 0 {
		c.KSThreshold = 0.2
	}
	if c.MinSamples <= 0 {
		c.MinSamples = 30
	}
	if c.Bins <= 1 {
		c.Bins = 10
	}
	return c
}

// FieldDrift holds the drift scores of one input field.
type FieldDrift struct {
	Field features.Field `json:"field"`
	PSI   float64        `json:"psi"`
	// KS is only computed for numeric fields.
	KS float64 `json:"ks,omitempty"`
	// UnseenShare is the share of current categorical values absent from
	// the baseline.
	UnseenShare float64 `json:"unseen_share,omitempty"`
}

// DriftAlert reports a field whose score exceeded its threshold.
type DriftAlert struct {
	Timestamp      time.Time      `json:"timestamp"`
	Field          features.Field `json:"field"`
	Method         DriftMethod    `json:"method"`
	Score          float64        `json:"score"`
	Threshold      float64        `json:"threshold"`
	Severity       string         `json:"severity"`
	Recommendation string         `json:"recommendation"`
}

// DriftReport compares the inputs seen in production with a baseline,
// usually the training data.
type DriftReport struct {
	BaselineRows int          `json:"baseline_rows"`
	CurrentRows  int          `json:"current_rows"`
	Fields       []FieldDrift `json:"fields"`
	Alerts       []DriftAlert `json:"alerts"`
}

// DetectDrift scores every input field of current against baseline.
// Categorical fields are compared by category share, numeric fields by
// binned share and the two-sample KS statistic.
func DetectDrift(baseline, current []features.RawRecord, cfg DriftConfig) (DriftReport, error) {
	cfg = cfg.withDefaults()
	if len(baseline) < cfg.MinSamples || len(current) < cfg.MinSamples {
		return DriftReport{}, fmt.Errorf("%w: baseline %d, current %d, need %d",
			ErrInsufficientSamples, len(baseline), len(current), cfg.MinSamples)
	}

	report := DriftReport{BaselineRows: len(baseline), CurrentRows: len(current)}
	now := time.Now()

	for _, f := range features.CategoricalFields {
		b := make([]string, len(baseline))
		for i, r := range baseline {
			b[i] = r.Categorical(f)
		}
		c := make([]string, len(current))
		for i, r := range current {
			c[i] = r.Categorical(f)
		}

		expected, actual, unseen := categoricalShares(b, c)
		fd := FieldDrift{Field: f, PSI: psi(expected, actual), UnseenShare: unseen}
		report.Fields = append(report.Fields, fd)
		report.Alerts = appendAlert(report.Alerts, now, f, PopulationStabilityIndex, fd.PSI, cfg.psiThreshold(f))
	}

	for _, f := range features.NumericFields {
		b := make([]float64, len(baseline))
		for i, r := range baseline {
			b[i] = r.Numeric(f)
		}
		c := make([]float64, len(current))
		for i, r := range current {
			c[i] = r.Numeric(f)
		}

		expected, actual := numericShares(b, c, cfg.Bins)
		fd := FieldDrift{Field: f, PSI: psi(expected, actual), KS: kolmogorovSmirnov(b, c)}
		report.Fields = append(report.Fields, fd)
		report.Alerts = appendAlert(report.Alerts, now, f, PopulationStabilityIndex, fd.PSI, cfg.psiThreshold(f))
		report.Alerts = appendAlert(report.Alerts, now, f, KolmogorovSmirnovTest, fd.KS, cfg.KSThreshold)
	}

	return report, nil
}

func (c DriftConfig) psiThreshold(f features.Field) float64 {
	if t, ok := c.Thresholds[f]; ok && t > 0 {
		return t
	}
	return c.PSIThreshold
}

func appendAlert(alerts []DriftAlert, ts time.Time, f features.Field, method DriftMethod, score, threshold float64) []DriftAlert {
	if score <= threshold {
		return alerts
	}

	severity := "medium"
	if score > threshold*2 {
		severity = "high"
	}
	if score > threshold*3 {
		severity = "critical"
	}

	return append(alerts, DriftAlert{
		Timestamp:      ts,
		Field:          f,
		Method:         method,
		Score:          score,
		Threshold:      threshold,
		Severity:       severity,
		Recommendation: recommendation(severity, f),
	})
}

func recommendation(severity string, f features.Field) string {
	switch severity {
	case "critical":
		return fmt.Sprintf("Field '%s' shows severe drift. Retrain on recent listings before trusting prices.", f)
	case "high":
		return fmt.Sprintf("Field '%s' shows significant drift. Schedule retraining.", f)
	default:
		return fmt.Sprintf("Field '%s' shows moderate drift. Monitor and retrain if the trend continues.", f)
	}
}

// driftEpsilon stands in for empty shares so new or vanished values still
// contribute to the PSI.
const driftEpsilon = 1e-4

func psi(expected, actual []float64) float64 {
	var s float64
	for i := range expected {
		e := math.Max(expected[i], driftEpsilon)
		a := math.Max(actual[i], driftEpsilon)
		s += (a - e) * math.Log(a/e)
	}
	return s
}

// categoricalShares returns per-category shares over the union of both
// samples, and the share of current values never seen in baseline.
func categoricalShares(baseline, current []string) (expected, actual []float64, unseen float64) {
	bCount := map[string]int{}
	for _, v := range baseline {
		bCount[v]++
	}
	cCount := map[string]int{}
	for _, v := range current {
		cCount[v]++
		if bCount[v] == 0 {
			unseen++
		}
	}

	keys := make([]string, 0, len(bCount)+len(cCount))
	for k := range bCount {
		keys = append(keys, k)
	}
	for k := range cCount {
		if _, ok := bCount[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	expected = make([]float64, len(keys))
	actual = make([]float64, len(keys))
	for i, k := range keys {
		expected[i] = float64(bCount[k]) / float64(len(baseline))
		actual[i] = float64(cCount[k]) / float64(len(current))
	}
	return expected, actual, unseen / float64(len(current))
}

// numericShares bins both samples over their combined range. Constant data
// yields no bins and a PSI of zero.
func numericShares(baseline, current []float64, bins int) (expected, actual []float64) {
	lo := math.Min(floats.Min(baseline), floats.Min(current))
	hi := math.Max(floats.Max(baseline), floats.Max(current))
	if hi == lo {
		return nil, nil
	}
	width := (hi - lo) / float64(bins)

	share := func(xs []float64) []float64 {
		out := make([]float64, bins)
		for _, x := range xs {
			bin := int((x - lo) / width)
			if bin >= bins {
				bin = bins - 1
			}
			out[bin]++
		}
		floats.Scale(1/float64(len(xs)), out)
		return out
	}
	return share(baseline), share(current)
}

func kolmogorovSmirnov(baseline, current []float64) float64 {
	b := append([]float64(nil), baseline...)
	c := append([]float64(nil), current...)
	sort.Float64s(b)
	sort.Float64s(c)
	return stat.KolmogorovSmirnov(b, nil, c, nil)
}
