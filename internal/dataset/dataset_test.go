package dataset

import (
	"bytes"
	"strings"
	"testing"

	"resale-price/internal/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Brand,Category,Color,Size,Material,Original_Price,Usage_Level,Price
Zara,Jacket,Black,M,Wool,120.5,2,61.2
Gucci,Shirt,White,S,Cotton,300,0,210
H&M,T-shirt,Red,XL,Polyester,20,5,3.5
`

func TestLoadCSV(t *testing.T) {
	samples, err := LoadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, samples, 3)

	assert.Equal(t, features.RawRecord{
		Brand: "Zara", Category: "Jacket", Color: "Black", Size: "M", Material: "Wool",
		OriginalPrice: 120.5, UsageLevel: 2,
	}, samples[0].RawRecord)
	assert.Equal(t, 61.2, samples[0].Price)
	assert.Equal(t, "H&M", samples[2].Brand)
}

func TestLoadCSV_ColumnOrderAndCase(t *testing.T) {
	data := "price,usage_level,original_price,material,size,color,category,brand,notes\n" +
		"10,1,50,Linen,S,Blue,Shirt,Uniqlo,ignored\n"

	samples, err := LoadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, "Uniqlo", samples[0].Brand)
	assert.Equal(t, 50.0, samples[0].OriginalPrice)
	assert.Equal(t, 1, samples[0].UsageLevel)
	assert.Equal(t, 10.0, samples[0].Price)
}

func TestLoadCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantMsg string
	}{
		{"empty", "", "missing header"},
		{"header only", "Brand,Category,Color,Size,Material,Original_Price,Usage_Level,Price\n", "no rows"},
		{"missing price column", "Brand,Category,Color,Size,Material,Original_Price,Usage_Level\n", "missing column Price"},
		{"missing feature column", "Brand,Category,Color,Size,Original_Price,Usage_Level,Price\n", "missing column"},
		{"bad original price", "Brand,Category,Color,Size,Material,Original_Price,Usage_Level,Price\nZara,Jacket,Black,M,Wool,abc,2,10\n", "line 2"},
		{"bad usage", "Brand,Category,Color,Size,Material,Original_Price,Usage_Level,Price\nZara,Jacket,Black,M,Wool,10,9,10\n", "usage_level"},
		{"bad target", "Brand,Category,Color,Size,Material,Original_Price,Usage_Level,Price\nZara,Jacket,Black,M,Wool,10,2,n/a\n", "invalid Price"},
		{"blank categorical", "Brand,Category,Color,Size,Material,Original_Price,Usage_Level,Price\n,Jacket,Black,M,Wool,10,2,5\n", "brand"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCSV(strings.NewReader(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	original := GenerateSynthetic(25, 7)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, original))

	loaded, err := LoadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, loaded, len(original))
	for i := range original {
		assert.Equal(t, original[i].RawRecord, loaded[i].RawRecord)
		assert.InDelta(t, original[i].Price, loaded[i].Price, 0.005)
	}
}

func TestSplit(t *testing.T) {
	samples := GenerateSynthetic(100, 1)

	train, test, err := Split(samples, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, train, 80)
	assert.Len(t, test, 20)

	train2, test2, err := Split(samples, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, train, train2, "same seed must give same split")
	assert.Equal(t, test, test2)

	// The input slice is not reordered.
	assert.Equal(t, GenerateSynthetic(100, 1), samples)
}

func TestSplit_Bounds(t *testing.T) {
	samples := GenerateSynthetic(10, 1)

	_, _, err := Split(samples, 1.0, 42)
	assert.Error(t, err)
	_, _, err = Split(samples, -0.1, 42)
	assert.Error(t, err)

	train, test, err := Split(samples, 0, 42)
	require.NoError(t, err)
	assert.Len(t, train, 10)
	assert.Empty(t, test)

	train, test, err = Split(samples[:3], 0.1, 42)
	require.NoError(t, err)
	assert.Len(t, train, 2)
	assert.Len(t, test, 1)

	_, _, err = Split(nil, 0.5, 42)
	assert.Error(t, err)
}

func TestSplit_RoundsTestSizeUp(t *testing.T) {
	tests := []struct {
		rows, train, test int
	}{
		{1001, 800, 201},
		{1000, 800, 200},
		{7, 5, 2},
		{2, 1, 1},
	}

	for _, tt := range tests {
		train, test, err := Split(GenerateSynthetic(tt.rows, 1), 0.2, 42)
		require.NoError(t, err)
		assert.Len(t, train, tt.train, "rows=%d", tt.rows)
		assert.Len(t, test, tt.test, "rows=%d", tt.rows)
	}
}

func TestGenerateSynthetic(t *testing.T) {
	a := GenerateSynthetic(50, 99)
	b := GenerateSynthetic(50, 99)
	require.Len(t, a, 50)
	assert.Equal(t, a, b)

	for _, s := range a {
		assert.GreaterOrEqual(t, s.UsageLevel, features.MinUsageLevel)
		assert.LessOrEqual(t, s.UsageLevel, features.MaxUsageLevel)
		assert.Greater(t, s.OriginalPrice, 0.0)
		assert.NotEmpty(t, s.Brand)
	}

	assert.NotEqual(t, a, GenerateSynthetic(50, 100))
}

func TestRecordsAndTargets(t *testing.T) {
	samples := GenerateSynthetic(5, 3)
	recs := Records(samples)
	ys := Targets(samples)
	require.Len(t, recs, 5)
	require.Len(t, ys, 5)
	for i := range samples {
		assert.Equal(t, samples[i].RawRecord, recs[i])
		assert.Equal(t, samples[i].Price, ys[i])
	}
}
