package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/damon-houk/rate-history-sync/internal/domain/entity"
	"github.com/dgraph-io/badger/v3"
)

const ratesKeyPrefix = "rates:"

// BadgerRateStore implements the rate store interface using BadgerDB, one key per date
type BadgerRateStore struct {
	db *badger.DB
}

// NewBadgerRateStore creates a new BadgerDB rate store
func NewBadgerRateStore(db *badger.DB) *BadgerRateStore {
	return &BadgerRateStore{db: db}
}

// Load returns every stored snapshot
func (s *BadgerRateStore) Load(ctx context.Context) (entity.HistoricalRates, error) {
	rates := make(entity.HistoricalRates)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(ratesKeyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			date := strings.TrimPrefix(string(item.Key()), ratesKeyPrefix)

			var snapshot entity.RateSnapshot
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &snapshot)
			})
			if err != nil {
				return fmt.Errorf("failed to decode rates for %s: %w", date, err)
			}
			rates[date] = snapshot
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to load rates: %w", err)
	}

	return rates, nil
}

// Save replaces the stored snapshots with rates. Dates absent from rates are deleted.
func (s *BadgerRateStore) Save(ctx context.Context, rates entity.HistoricalRates) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, key := range staleKeys(txn, rates) {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}

		for date, snapshot := range rates {
			if err := ctx.Err(); err != nil {
				return err
			}

			data, err := json.Marshal(snapshot)
			if err != nil {
				return fmt.Errorf("failed to marshal rates for %s: %w", date, err)
			}
			if err := txn.Set([]byte(ratesKeyPrefix+date), data); err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to save rates: %w", err)
	}

	return nil
}

// staleKeys lists stored keys whose date is not in rates
func staleKeys(txn *badger.Txn, rates entity.HistoricalRates) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(ratesKeyPrefix)
	opts.PrefetchValues = false

	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		key := it.Item().KeyCopy(nil)
		date := strings.TrimPrefix(string(key), ratesKeyPrefix)
		if _, ok := rates[date]; !ok {
			keys = append(keys, key)
		}
	}

	return keys
}
