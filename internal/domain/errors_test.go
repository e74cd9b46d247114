package domain_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain"
)

func TestRetryOnConflict_CarreraPerdidaSeReintenta(t *testing.T) {
	calls := 0
	err := domain.RetryOnConflict(context.Background(), 3, func() error {
		calls++
		if calls < 2 {
			return &domain.ConflictError{Resource: "transferencia", ID: "TRF-1"}
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryOnConflict_AgotaIntentosDevuelveElConflicto(t *testing.T) {
	calls := 0
	err := domain.RetryOnConflict(context.Background(), 3, func() error {
		calls++
		return fmt.Errorf("ship: %w", &domain.ConflictError{Resource: "stock", ID: "p1"})
	})
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Equal(t, 3, calls)
}

func TestRetryOnConflict_ConflictoDeEstadoNoSeReintenta(t *testing.T) {
	calls := 0
	err := domain.RetryOnConflict(context.Background(), 3, func() error {
		calls++
		return &domain.ConflictError{
			Resource: "transferencia",
			ID:       "TRF-1",
			Current:  "received",
			Expected: []string{"approved"},
		}
	})
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Equal(t, 1, calls)
	assert.Equal(t, `transferencia TRF-1 está en estado "received"; se requiere approved`, err.Error())
}

func TestRetryOnConflict_OtrosErroresNoSeReintentan(t *testing.T) {
	calls := 0
	err := domain.RetryOnConflict(context.Background(), 3, func() error {
		calls++
		return domain.NewNotFoundError("transferencia", "x")
	})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, 1, calls)
}

func TestRetryOnConflict_ContextoCancelado(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := domain.RetryOnConflict(ctx, 3, func() error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}
