package audit

import (
	"context"
	"errors"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
)

// MultiSink entrega el lote a todos los sinks; un fallo en uno no impide los demás.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, entries []entity.AuditEntry) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, entries); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
