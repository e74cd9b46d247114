package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
)

var _ repository.Sequencer = (*Sequencer)(nil)

// Sequencer consecutivos diarios en la tabla sequences (upsert atómico por tienda, ámbito y día).
type Sequencer struct {
	q Querier
}

// NewSequencer construye el secuenciador. Usar el pool: el número se consume aunque la tx del llamador falle.
func NewSequencer(q Querier) *Sequencer {
	return &Sequencer{q: q}
}

func (s *Sequencer) Next(ctx context.Context, shopID, scope string, day time.Time) (int64, error) {
	var n int64
	y, m, d := day.UTC().Date()
	err := s.q.QueryRow(ctx, `
		INSERT INTO sequences (shop_id, scope, day, value) VALUES ($1, $2, $3, 1)
		ON CONFLICT (shop_id, scope, day) DO UPDATE SET value = sequences.value + 1
		RETURNING value`,
		shopID, scope, time.Date(y, m, d, 0, 0, 0, 0, time.UTC)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return n, nil
}
