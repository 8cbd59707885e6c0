// Package features turns raw clothing attributes into the fixed-width numeric
// vectors consumed by the price regressor.
//
// Categorical attributes are one-hot encoded against vocabularies learned at
// training time; numeric attributes are standardized with training-time
// mean and standard deviation. Fitted state is immutable once built and may
// be shared by concurrent callers without locking.
package features

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Field names a RawRecord attribute. The string form is the key used in
// HTML forms, JSON bodies and CSV headers (case-insensitive there).
type Field string

const (
	FieldBrand         Field = "brand"
	FieldCategory      Field = "category"
	FieldColor         Field = "color"
	FieldSize          Field = "size"
	FieldMaterial      Field = "material"
	FieldOriginalPrice Field = "original_price"
	FieldUsageLevel    Field = "usage_level"
)

// Usage level bounds: 0 = unused, 5 = heavily worn.
const (
	MinUsageLevel = 0
	MaxUsageLevel = 5
)

// CategoricalFields is the fixed order of the one-hot blocks.
var CategoricalFields = []Field{FieldBrand, FieldCategory, FieldColor, FieldSize, FieldMaterial}

// NumericFields is the fixed order of the standardized block.
var NumericFields = []Field{FieldOriginalPrice, FieldUsageLevel}

// RawRecord is one clothing item as supplied by a caller.
type RawRecord struct {
	Brand         string  `json:"brand"`
	Category      string  `json:"category"`
	Color         string  `json:"color"`
	Size          string  `json:"size"`
	Material      string  `json:"material"`
	OriginalPrice float64 `json:"original_price"`
	UsageLevel    int     `json:"usage_level"`
}

// Categorical returns the value of a categorical field, or "" for any other field.
func (r RawRecord) Categorical(f Field) string {
	switch f {
	case FieldBrand:
		return r.Brand
	case FieldCategory:
		return r.Category
	case FieldColor:
		return r.Color
	case FieldSize:
		return r.Size
	case FieldMaterial:
		return r.Material
	}
	return ""
}

// Numeric returns the value of a numeric field, or 0 for any other field.
func (r RawRecord) Numeric(f Field) float64 {
	switch f {
	case FieldOriginalPrice:
		return r.OriginalPrice
	case FieldUsageLevel:
		return float64(r.UsageLevel)
	}
	return 0
}

// MissingFieldPolicy maps a field to the raw value substituted when the
// caller omits it. A field without an entry is required.
type MissingFieldPolicy map[Field]string

// DefaultMissingFieldPolicy defaults every categorical field to "" and every
// numeric field to 0, so absent input is silently tolerated.
func DefaultMissingFieldPolicy() MissingFieldPolicy {
	p := make(MissingFieldPolicy, len(CategoricalFields)+len(NumericFields))
	for _, f := range CategoricalFields {
		p[f] = ""
	}
	for _, f := range NumericFields {
		p[f] = "0"
	}
	return p
}

// StrictMissingFieldPolicy requires every field to be present.
func StrictMissingFieldPolicy() MissingFieldPolicy {
	return MissingFieldPolicy{}
}

// Default returns the substitute value for f, if the policy defines one.
func (p MissingFieldPolicy) Default(f Field) (string, bool) {
	v, ok := p[f]
	return v, ok
}

// Fields returns the fields the policy covers, sorted.
func (p MissingFieldPolicy) Fields() []Field {
	out := make([]Field, 0, len(p))
	for f := range p {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseRecord converts untyped request values (form fields, CSV cells) into
// a RawRecord. Absent or blank values are replaced according to policy;
// numeric values that cannot be parsed, negative prices and out-of-range
// usage levels yield an *InputError.
func ParseRecord(values map[string]string, policy MissingFieldPolicy) (RawRecord, error) {
	get := func(f Field) (string, error) {
		v := strings.TrimSpace(values[string(f)])
		if v != "" {
			return v, nil
		}
		if def, ok := policy.Default(f); ok {
			return def, nil
		}
		return "", &InputError{Field: f, Reason: "field is required"}
	}

	var rec RawRecord
	for _, f := range CategoricalFields {
		v, err := get(f)
		if err != nil {
			return RawRecord{}, err
		}
		rec.setCategorical(f, v)
	}

	priceRaw, err := get(FieldOriginalPrice)
	if err != nil {
		return RawRecord{}, err
	}
	price, err := strconv.ParseFloat(priceRaw, 64)
	if err != nil {
		return RawRecord{}, &InputError{Field: FieldOriginalPrice, Value: priceRaw, Reason: "not a number"}
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return RawRecord{}, &InputError{Field: FieldOriginalPrice, Value: priceRaw, Reason: "must be finite"}
	}
	if price < 0 {
		return RawRecord{}, &InputError{Field: FieldOriginalPrice, Value: priceRaw, Reason: "must not be negative"}
	}
	rec.OriginalPrice = price

	usageRaw, err := get(FieldUsageLevel)
	if err != nil {
		return RawRecord{}, err
	}
	usage, err := strconv.Atoi(usageRaw)
	if err != nil {
		return RawRecord{}, &InputError{Field: FieldUsageLevel, Value: usageRaw, Reason: "not an integer"}
	}
	if usage < MinUsageLevel || usage > MaxUsageLevel {
		return RawRecord{}, &InputError{Field: FieldUsageLevel, Value: usageRaw, Reason: "must be between 0 and 5"}
	}
	rec.UsageLevel = usage

	return rec, nil
}

func (r *RawRecord) setCategorical(f Field, v string) {
	switch f {
	case FieldBrand:
		r.Brand = v
	case FieldCategory:
		r.Category = v
	case FieldColor:
		r.Color = v
	case FieldSize:
		r.Size = v
	case FieldMaterial:
		r.Material = v
	}
}
