package features

import (
	"errors"
	"testing"
)

func TestParseRecord(t *testing.T) {
	full := map[string]string{
		"brand":          "Zara",
		"category":       "Jacket",
		"color":          "Black",
		"size":           "M",
		"material":       "Wool",
		"original_price": "5000",
		"usage_level":    "2",
	}

	tests := []struct {
		name      string
		values    map[string]string
		policy    MissingFieldPolicy
		want      RawRecord
		wantField Field
	}{
		{
			name:   "all fields present",
			values: full,
			policy: DefaultMissingFieldPolicy(),
			want:   RawRecord{Brand: "Zara", Category: "Jacket", Color: "Black", Size: "M", Material: "Wool", OriginalPrice: 5000, UsageLevel: 2},
		},
		{
			name:   "missing fields use defaults",
			values: map[string]string{"brand": "Gucci"},
			policy: DefaultMissingFieldPolicy(),
			want:   RawRecord{Brand: "Gucci"},
		},
		{
			name:   "blank values count as missing",
			values: map[string]string{"brand": "  ", "original_price": " ", "usage_level": ""},
			policy: DefaultMissingFieldPolicy(),
			want:   RawRecord{},
		},
		{
			name:   "custom default",
			values: map[string]string{},
			policy: MissingFieldPolicy{
				FieldBrand: "Unknown", FieldCategory: "", FieldColor: "", FieldSize: "M",
				FieldMaterial: "", FieldOriginalPrice: "100", FieldUsageLevel: "3",
			},
			want: RawRecord{Brand: "Unknown", Size: "M", OriginalPrice: 100, UsageLevel: 3},
		},
		{
			name:      "strict policy rejects missing field",
			values:    map[string]string{"brand": "Zara"},
			policy:    StrictMissingFieldPolicy(),
			wantField: FieldCategory,
		},
		{
			name:      "non-numeric price",
			values:    map[string]string{"original_price": "cheap"},
			policy:    DefaultMissingFieldPolicy(),
			wantField: FieldOriginalPrice,
		},
		{
			name:      "negative price",
			values:    map[string]string{"original_price": "-10"},
			policy:    DefaultMissingFieldPolicy(),
			wantField: FieldOriginalPrice,
		},
		{
			name:      "infinite price",
			values:    map[string]string{"original_price": "Inf"},
			policy:    DefaultMissingFieldPolicy(),
			wantField: FieldOriginalPrice,
		},
		{
			name:      "fractional usage",
			values:    map[string]string{"usage_level": "2.5"},
			policy:    DefaultMissingFieldPolicy(),
			wantField: FieldUsageLevel,
		},
		{
			name:      "usage out of range",
			values:    map[string]string{"usage_level": "6"},
			policy:    DefaultMissingFieldPolicy(),
			wantField: FieldUsageLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRecord(tt.values, tt.policy)
			if tt.wantField != "" {
				var inputErr *InputError
				if !errors.As(err, &inputErr) {
					t.Fatalf("expected InputError, got %v", err)
				}
				if inputErr.Field != tt.wantField {
					t.Errorf("expected error on %s, got %s", tt.wantField, inputErr.Field)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestDefaultMissingFieldPolicy(t *testing.T) {
	p := DefaultMissingFieldPolicy()
	for _, f := range CategoricalFields {
		if v, ok := p.Default(f); !ok || v != "" {
			t.Errorf("expected %s to default to empty string, got %q (ok=%v)", f, v, ok)
		}
	}
	for _, f := range NumericFields {
		if v, ok := p.Default(f); !ok || v != "0" {
			t.Errorf("expected %s to default to 0, got %q (ok=%v)", f, v, ok)
		}
	}
	if len(p.Fields()) != 7 {
		t.Errorf("expected 7 fields in policy, got %d", len(p.Fields()))
	}
}

func TestInputError_Message(t *testing.T) {
	err := &InputError{Field: FieldUsageLevel, Value: "9", Reason: "must be between 0 and 5"}
	want := `invalid usage_level "9": must be between 0 and 5`
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}
