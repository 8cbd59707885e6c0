package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"resale-price/internal/dataset"

	"go.etcd.io/bbolt"
)

// ErrDatasetNotFound is returned when a named dataset has never been stored.
var ErrDatasetNotFound = errors.New("dataset not found")

// DatasetInfo summarizes one stored dataset.
type DatasetInfo struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

// StoreSamples replaces the named dataset with samples, preserving order.
func (s *Store) StoreSamples(name string, samples []dataset.Sample) error {
	if name == "" {
		return errors.New("dataset name is empty")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(samplesBucket))
		if root.Bucket([]byte(name)) != nil {
			if err := root.DeleteBucket([]byte(name)); err != nil {
				return fmt.Errorf("drop dataset %s: %w", name, err)
			}
		}
		b, err := root.CreateBucket([]byte(name))
		if err != nil {
			return fmt.Errorf("create dataset %s: %w", name, err)
		}

		for i, sample := range samples {
			data, err := json.Marshal(sample)
			if err != nil {
				return fmt.Errorf("marshal sample: %w", err)
			}
			if err := b.Put(itob(uint64(i)), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetSamples returns the named dataset in insertion order.
func (s *Store) GetSamples(name string) ([]dataset.Sample, error) {
	var samples []dataset.Sample

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(samplesBucket)).Bucket([]byte(name))
		if b == nil {
			return fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
		}

		samples = make([]dataset.Sample, 0, b.Stats().KeyN)
		return b.ForEach(func(k, v []byte) error {
			var sample dataset.Sample
			if err := json.Unmarshal(v, &sample); err != nil {
				return fmt.Errorf("decode sample %x: %w", k, err)
			}
			samples = append(samples, sample)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return samples, nil
}

// ListDatasets returns every stored dataset, sorted by name.
func (s *Store) ListDatasets() ([]DatasetInfo, error) {
	var out []DatasetInfo

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(samplesBucket)).ForEach(func(k, v []byte) error {
			// Nested buckets have a nil value.
			if v != nil {
				return nil
			}
			b := tx.Bucket([]byte(samplesBucket)).Bucket(k)
			out = append(out, DatasetInfo{Name: string(k), Rows: b.Stats().KeyN})
			return nil
		})
	})

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

// DeleteDataset removes the named dataset.
func (s *Store) DeleteDataset(name string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		err := tx.Bucket([]byte(samplesBucket)).DeleteBucket([]byte(name))
		if errors.Is(err, bbolt.ErrBucketNotFound) {
			return fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
		}
		return err
	})
}
