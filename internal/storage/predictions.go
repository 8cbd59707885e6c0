package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"resale-price/internal/ml"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

// LogPrediction appends a served prediction to the log. Entries without an
// ID or timestamp get one assigned.
func (s *Store) LogPrediction(entry ml.PredictionRecord) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))

		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal prediction: %w", err)
		}

		return b.Put(timeKey(entry.Timestamp, entry.ID), data)
	})
}

// GetPredictions returns logged predictions with start <= timestamp <= end,
// oldest first. Malformed entries are skipped.
func (s *Store) GetPredictions(start, end time.Time) ([]ml.PredictionRecord, error) {
	var records []ml.PredictionRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(predictionsBucket)).Cursor()

		startKey := []byte(fmt.Sprintf("%020d", start.UnixNano()))
		// '`' sorts after '_', so every id at the end instant is included.
		endKey := []byte(fmt.Sprintf("%020d`", end.UnixNano()))

		for k, v := c.Seek(startKey); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			var rec ml.PredictionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue
			}
			records = append(records, rec)
		}
		return nil
	})

	return records, err
}

// CountPredictions returns the number of logged predictions.
func (s *Store) CountPredictions() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(predictionsBucket)).Stats().KeyN
		return nil
	})
	return n, err
}
