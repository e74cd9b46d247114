package memory

import (
	"context"
	"sync"
	"time"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
)

var _ repository.Sequencer = (*Sequencer)(nil)

// Sequencer consecutivos diarios en memoria. Tiene su propio mutex: puede usarse fuera de transacción.
type Sequencer struct {
	mu   sync.Mutex
	seqs map[string]int64
}

// NewSequencer construye el secuenciador.
func NewSequencer() *Sequencer {
	return &Sequencer{seqs: make(map[string]int64)}
}

func (s *Sequencer) Next(_ context.Context, shopID, scope string, day time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := shopID + "|" + scope + "|" + day.Format("20060102")
	s.seqs[key]++
	return s.seqs[key], nil
}
