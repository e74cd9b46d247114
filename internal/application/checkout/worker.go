package checkout

import (
	"context"
	"time"

	"github.com/DTBbuilds/smartduka-inventory/pkg/logger"
)

// Worker consume periódicamente la cola de descuentos vencidos.
type Worker struct {
	binder   *Binder
	interval time.Duration
	log      *logger.Logger
}

// NewWorker construye el worker.
func NewWorker(binder *Binder, interval time.Duration, log *logger.Logger) *Worker {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Worker{binder: binder, interval: interval, log: log.Named("deduction_worker")}
}

// Run bloquea hasta que ctx se cancela.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.log.Info().Dur("interval", w.interval).Msg("worker de descuentos iniciado")
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("worker de descuentos detenido")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	applied, failed, err := w.binder.ProcessDue(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("error leyendo la cola de descuentos")
		}
		return
	}
	if applied > 0 || failed > 0 {
		w.log.Info().Int("applied", applied).Int("failed", failed).Msg("lote de descuentos procesado")
	}
}
