package events

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Store is the part of the pool the sequence repository uses.
type Store interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type SequenceRepository struct {
	store Store
}

func NewSequenceRepository(store Store) *SequenceRepository {
	return &SequenceRepository{store: store}
}

// NextSequence atomically increments and returns the sequence for partitionKey.
func (r *SequenceRepository) NextSequence(ctx context.Context, partitionKey string) (int64, error) {
	if partitionKey == "" {
		return 0, fmt.Errorf("partition key is required")
	}

	var next int64
	err := r.store.QueryRow(ctx, `
		INSERT INTO event_sequences (partition_key, last_sequence, updated_at)
		VALUES ($1, 1, now())
		ON CONFLICT (partition_key) DO UPDATE
		SET last_sequence = event_sequences.last_sequence + 1,
		    updated_at = now()
		RETURNING last_sequence
	`, partitionKey).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("increment sequence: %w", err)
	}
	return next, nil
}
