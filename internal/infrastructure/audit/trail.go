// Package audit despacha el registro de auditoría fuera del camino de la petición:
// Record encola y un goroutine entrega por lotes al Sink configurado (log o Kafka).
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/DTBbuilds/smartduka-inventory/internal/application/ports"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/pkg/logger"
)

const (
	defaultBufferSize = 1024
	maxBatch          = 100
	flushInterval     = time.Second
)

// Sink destino final de los registros.
type Sink interface {
	Write(ctx context.Context, entries []entity.AuditEntry) error
	Close() error
}

var _ ports.AuditTrail = (*AsyncTrail)(nil)

// AsyncTrail implementa ports.AuditTrail con un buffer acotado. Si el buffer está lleno el
// registro se descarta con un warn: la auditoría nunca bloquea una operación de inventario.
type AsyncTrail struct {
	sink    Sink
	log     *logger.Logger
	entries chan entity.AuditEntry
	done    chan struct{}

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewAsyncTrail arranca el despachador. Llamar Close al apagar para vaciar el buffer.
func NewAsyncTrail(sink Sink, bufferSize int, log *logger.Logger) *AsyncTrail {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if log == nil {
		log = logger.Nop()
	}
	t := &AsyncTrail{
		sink:    sink,
		log:     log.Named("audit"),
		entries: make(chan entity.AuditEntry, bufferSize),
		done:    make(chan struct{}),
	}
	go t.run()
	return t
}

// Record encola el registro sin bloquear.
func (t *AsyncTrail) Record(_ context.Context, entry entity.AuditEntry) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		t.log.Warn().Str("action", entry.Action).Msg("auditoría cerrada; registro descartado")
		return
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now()
	}
	select {
	case t.entries <- entry:
	default:
		t.log.Warn().
			Str("shop_id", entry.ShopID).
			Str("action", entry.Action).
			Str("resource_id", entry.ResourceID).
			Msg("buffer de auditoría lleno; registro descartado")
	}
}

// Close deja de aceptar registros, entrega lo pendiente y cierra el sink.
func (t *AsyncTrail) Close(ctx context.Context) error {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		close(t.entries)
		t.mu.Unlock()
	})
	select {
	case <-t.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return t.sink.Close()
}

func (t *AsyncTrail) run() {
	defer close(t.done)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]entity.AuditEntry, 0, maxBatch)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := t.sink.Write(context.Background(), batch); err != nil {
			t.log.Error().Err(err).Int("entries", len(batch)).Msg("no se pudo entregar la auditoría")
		}
		batch = batch[:0]
	}

	for {
		select {
		case e, ok := <-t.entries:
			if !ok {
				flush()
				return
			}
			batch = append(batch, e)
			if len(batch) >= maxBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
