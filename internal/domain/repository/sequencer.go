package repository

import (
	"context"
	"time"
)

// Sequencer genera consecutivos diarios por tienda y ámbito (ej. "transfer").
type Sequencer interface {
	Next(ctx context.Context, shopID, scope string, day time.Time) (int64, error)
}
