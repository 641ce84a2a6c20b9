package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ruteri/card-issuing-backend/interfaces"
)

// MultiStore replicates card records across several stores for redundancy.
// Reads return the first hit; writes go to every available store and
// succeed if at least one backend accepted the record.
type MultiStore struct {
	stores []interfaces.CardStore
	log    *slog.Logger
}

// NewMultiStore creates a multi-store over the given backends.
func NewMultiStore(stores []interfaces.CardStore, log *slog.Logger) *MultiStore {
	if log == nil {
		log = slog.Default()
	}
	return &MultiStore{stores: stores, log: log}
}

func (m *MultiStore) Get(ctx context.Context, userID string) (string, error) {
	var errs []error

	for _, store := range m.stores {
		if !store.Available(ctx) {
			m.log.Debug("Card store unavailable", slog.String("store", store.Name()))
			continue
		}

		cardID, err := store.Get(ctx, userID)
		if err == nil {
			return cardID, nil
		}
		if errors.Is(err, interfaces.ErrCardNotRecorded) {
			continue
		}
		errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
		m.log.Debug("Card store read failed",
			slog.String("store", store.Name()),
			"err", err)
	}

	if len(errs) > 0 {
		return "", fmt.Errorf("card store reads failed: %v", errs)
	}
	return "", interfaces.ErrCardNotRecorded
}

func (m *MultiStore) Set(ctx context.Context, userID, cardID string) error {
	var success bool
	var errs []error

	for _, store := range m.stores {
		if !store.Available(ctx) {
			m.log.Debug("Card store unavailable", slog.String("store", store.Name()))
			continue
		}

		if err := store.Set(ctx, userID, cardID); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
			m.log.Warn("Card store write failed",
				slog.String("store", store.Name()),
				"err", err)
			continue
		}
		success = true
	}

	if !success {
		return fmt.Errorf("all card stores failed to record card: %v", errs)
	}
	return nil
}

// Available reports whether any underlying store is available.
func (m *MultiStore) Available(ctx context.Context) bool {
	for _, store := range m.stores {
		if store.Available(ctx) {
			return true
		}
	}
	return false
}

func (m *MultiStore) Name() string { return "multi" }
