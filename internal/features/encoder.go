package features

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
)

// Vocabulary is the set of values observed for one categorical field during
// training. Values are kept sorted so that the index of each value is stable
// across runs on the same data.
type Vocabulary struct {
	Field  Field    `json:"field"`
	Values []string `json:"values"`

	index map[string]int
}

// NewVocabulary builds a vocabulary from the observed values, dropping duplicates.
func NewVocabulary(field Field, observed []string) *Vocabulary {
	seen := make(map[string]struct{}, len(observed))
	values := make([]string, 0, len(observed))
	for _, v := range observed {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	sort.Strings(values)

	v := &Vocabulary{Field: field, Values: values}
	v.buildIndex()
	return v
}

func (v *Vocabulary) buildIndex() {
	v.index = make(map[string]int, len(v.Values))
	for i, value := range v.Values {
		v.index[value] = i
	}
}

// UnmarshalJSON restores the lookup index along with the value list.
func (v *Vocabulary) UnmarshalJSON(data []byte) error {
	type plain Vocabulary
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*v = Vocabulary(p)
	v.buildIndex()
	return nil
}

// Index returns the one-hot position of value.
func (v *Vocabulary) Index(value string) (int, bool) {
	i, ok := v.index[value]
	return i, ok
}

// Size is the width of the field's one-hot block.
func (v *Vocabulary) Size() int {
	return len(v.Values)
}

// Scaler standardizes one numeric field.
type Scaler struct {
	Field Field   `json:"field"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
}

// Scale returns (x - Mean) / Std. A degenerate column (Std == 0) contributes 0.
func (s Scaler) Scale(x float64) float64 {
	if s.Std == 0 {
		return 0
	}
	return (x - s.Mean) / s.Std
}

// EncoderState is the fitted state of the feature encoder: one vocabulary
// per categorical field and one scaler per numeric field, both in the fixed
// field order.
type EncoderState struct {
	Vocabularies []*Vocabulary `json:"vocabularies"`
	Scalers      []Scaler      `json:"scalers"`
}

// FitEncoder learns vocabularies and scaling parameters from training records.
func FitEncoder(records []RawRecord) (*EncoderState, error) {
	if len(records) == 0 {
		return nil, errors.New("cannot fit encoder on empty training set")
	}

	state := &EncoderState{
		Vocabularies: make([]*Vocabulary, 0, len(CategoricalFields)),
		Scalers:      make([]Scaler, 0, len(NumericFields)),
	}

	observed := make([]string, len(records))
	for _, f := range CategoricalFields {
		for i, r := range records {
			observed[i] = r.Categorical(f)
		}
		state.Vocabularies = append(state.Vocabularies, NewVocabulary(f, observed))
	}

	for _, f := range NumericFields {
		var sum float64
		for _, r := range records {
			sum += r.Numeric(f)
		}
		mean := sum / float64(len(records))

		var sq float64
		for _, r := range records {
			d := r.Numeric(f) - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(len(records)))
		if math.IsNaN(mean) || math.IsInf(mean, 0) || math.IsNaN(std) || math.IsInf(std, 0) {
			return nil, fmt.Errorf("non-finite statistics for %s", f)
		}
		state.Scalers = append(state.Scalers, Scaler{Field: f, Mean: mean, Std: std})
	}

	return state, nil
}

// Width is the length of every vector produced by Transform.
func (e *EncoderState) Width() int {
	w := len(e.Scalers)
	for _, v := range e.Vocabularies {
		w += v.Size()
	}
	return w
}

// FeatureNames labels each vector position, e.g. "brand=Zara" or "usage_level".
func (e *EncoderState) FeatureNames() []string {
	names := make([]string, 0, e.Width())
	for _, v := range e.Vocabularies {
		for _, value := range v.Values {
			names = append(names, fmt.Sprintf("%s=%s", v.Field, value))
		}
	}
	for _, s := range e.Scalers {
		names = append(names, string(s.Field))
	}
	return names
}

// Transform encodes a record. A categorical value never seen during training
// yields an all-zero block for that field.
func (e *EncoderState) Transform(rec RawRecord) ([]float64, error) {
	out := make([]float64, e.Width())
	offset := 0
	for _, v := range e.Vocabularies {
		if i, ok := v.Index(rec.Categorical(v.Field)); ok {
			out[offset+i] = 1
		}
		offset += v.Size()
	}

	for _, s := range e.Scalers {
		x := rec.Numeric(s.Field)
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, &InputError{Field: s.Field, Value: fmt.Sprint(x), Reason: "must be finite"}
		}
		out[offset] = s.Scale(x)
		offset++
	}
	return out, nil
}

// Validate checks that the state covers exactly the expected fields in the
// expected order and that every scaler is usable.
func (e *EncoderState) Validate() error {
	if len(e.Vocabularies) != len(CategoricalFields) {
		return fmt.Errorf("encoder has %d vocabularies, want %d", len(e.Vocabularies), len(CategoricalFields))
	}
	for i, f := range CategoricalFields {
		if e.Vocabularies[i] == nil {
			return fmt.Errorf("vocabulary %d is missing", i)
		}
		if e.Vocabularies[i].Field != f {
			return fmt.Errorf("vocabulary %d is for %s, want %s", i, e.Vocabularies[i].Field, f)
		}
	}

	if len(e.Scalers) != len(NumericFields) {
		return fmt.Errorf("encoder has %d scalers, want %d", len(e.Scalers), len(NumericFields))
	}
	for i, f := range NumericFields {
		s := e.Scalers[i]
		if s.Field != f {
			return fmt.Errorf("scaler %d is for %s, want %s", i, s.Field, f)
		}
		if math.IsNaN(s.Mean) || math.IsInf(s.Mean, 0) || math.IsNaN(s.Std) || math.IsInf(s.Std, 0) || s.Std < 0 {
			return fmt.Errorf("scaler for %s has invalid parameters (mean=%v std=%v)", f, s.Mean, s.Std)
		}
	}
	return nil
}
