// Package dataset reads, writes and splits labelled resale observations used
// to train the price pipeline.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"resale-price/internal/features"

	"github.com/rs/zerolog/log"
)

// Sample is one labelled observation: the item attributes and the price it resold for.
type Sample struct {
	features.RawRecord
	Price float64 `json:"price"`
}

// Column headers of the training CSV. Matching is case-insensitive.
const (
	ColBrand         = "Brand"
	ColCategory      = "Category"
	ColColor         = "Color"
	ColSize          = "Size"
	ColMaterial      = "Material"
	ColOriginalPrice = "Original_Price"
	ColUsageLevel    = "Usage_Level"
	ColPrice         = "Price"
)

// Columns is the header written by WriteCSV.
var Columns = []string{ColBrand, ColCategory, ColColor, ColSize, ColMaterial, ColOriginalPrice, ColUsageLevel, ColPrice}

var columnFields = map[string]features.Field{
	strings.ToLower(ColBrand):         features.FieldBrand,
	strings.ToLower(ColCategory):      features.FieldCategory,
	strings.ToLower(ColColor):         features.FieldColor,
	strings.ToLower(ColSize):          features.FieldSize,
	strings.ToLower(ColMaterial):      features.FieldMaterial,
	strings.ToLower(ColOriginalPrice): features.FieldOriginalPrice,
	strings.ToLower(ColUsageLevel):    features.FieldUsageLevel,
}

// LoadCSVFile loads samples from a CSV file on disk.
func LoadCSVFile(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer f.Close()

	samples, err := LoadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}

	log.Info().Str("path", path).Int("rows", len(samples)).Msg("Loaded dataset")
	return samples, nil
}

// LoadCSV parses a header row followed by one sample per line. Extra columns
// are ignored; every known column must be present. Training data is held to
// the strict missing-field policy: blank cells are an error, not a default.
func LoadCSV(r io.Reader) ([]Sample, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty CSV: missing header")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	fieldCol := make(map[features.Field]int)
	priceCol := -1
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == strings.ToLower(ColPrice) {
			priceCol = i
			continue
		}
		if f, ok := columnFields[key]; ok {
			fieldCol[f] = i
		}
	}
	if priceCol < 0 {
		return nil, fmt.Errorf("missing column %s", ColPrice)
	}
	for key, f := range columnFields {
		if _, ok := fieldCol[f]; !ok {
			return nil, fmt.Errorf("missing column %s", key)
		}
	}

	var samples []Sample
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := reader.FieldPos(0)

		values := make(map[string]string, len(fieldCol))
		for f, col := range fieldCol {
			values[string(f)] = row[col]
		}
		rec, err := features.ParseRecord(values, features.StrictMissingFieldPolicy())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		price, err := strconv.ParseFloat(strings.TrimSpace(row[priceCol]), 64)
		if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
			return nil, fmt.Errorf("line %d: invalid %s %q", line, ColPrice, row[priceCol])
		}

		samples = append(samples, Sample{RawRecord: rec, Price: price})
	}

	if len(samples) == 0 {
		return nil, errors.New("dataset has no rows")
	}
	return samples, nil
}

// WriteCSV writes samples with the standard header.
func WriteCSV(w io.Writer, samples []Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, s := range samples {
		row := []string{
			s.Brand, s.Category, s.Color, s.Size, s.Material,
			strconv.FormatFloat(s.OriginalPrice, 'f', -1, 64),
			strconv.Itoa(s.UsageLevel),
			strconv.FormatFloat(s.Price, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Records strips the labels.
func Records(samples []Sample) []features.RawRecord {
	out := make([]features.RawRecord, len(samples))
	for i, s := range samples {
		out[i] = s.RawRecord
	}
	return out
}

// Targets returns the labels in sample order.
func Targets(samples []Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Price
	}
	return out
}
