// Package memory implementa los puertos de persistencia en memoria. Se usa en modo
// desarrollo (STORE_DRIVER=memory) y en los tests de casos de uso.
//
// Las transacciones serializan el acceso con el mutex del Store y llevan un diario de
// deshacer: si el callback falla se aplican las compensaciones en orden inverso.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/DTBbuilds/smartduka-inventory/internal/application/ports"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
)

type stockKey struct {
	productID string
	branchID  string
}

// Store estado compartido de todos los repositorios en memoria.
type Store struct {
	mu sync.Mutex

	products        map[string]*entity.Product
	branches        map[string]*entity.Branch
	branchStock     map[stockKey]*entity.BranchStock
	adjustments     []*entity.StockAdjustment
	transfers       map[string]*entity.StockTransfer
	orders          map[string]*entity.Order
	jobs            map[string]*entity.DeductionJob
	jobSeq          []string
	reconciliations map[string]*entity.Reconciliation
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		products:        make(map[string]*entity.Product),
		branches:        make(map[string]*entity.Branch),
		branchStock:     make(map[stockKey]*entity.BranchStock),
		transfers:       make(map[string]*entity.StockTransfer),
		orders:          make(map[string]*entity.Order),
		jobs:            make(map[string]*entity.DeductionJob),
		reconciliations: make(map[string]*entity.Reconciliation),
	}
}

// txn diario de deshacer de una transacción en curso. nil fuera de transacción.
type txn struct {
	undo []func()
}

func (t *txn) onRollback(f func()) {
	if t != nil {
		t.undo = append(t.undo, f)
	}
}

func (t *txn) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// base comparte el store y la transacción (si la hay) entre repositorios.
type base struct {
	s  *Store
	tx *txn
}

// lock toma el mutex solo fuera de transacción; dentro, TxRunner ya lo tiene.
func (b base) lock() func() {
	if b.tx != nil {
		return func() {}
	}
	b.s.mu.Lock()
	return b.s.mu.Unlock
}

func (s *Store) stores(tx *txn) ports.Stores {
	b := base{s: s, tx: tx}
	return ports.Stores{
		Ledger:          &LedgerRepo{base: b},
		Adjustments:     &AdjustmentRepo{base: b},
		Products:        &ProductRepo{base: b},
		Transfers:       &TransferRepo{base: b},
		Orders:          &OrderRepo{base: b},
		Deductions:      &DeductionQueue{base: b},
		Reconciliations: &ReconciliationRepo{base: b},
	}
}

// Repos devuelve los repositorios no transaccionales del store.
func (s *Store) Repos() ports.Stores {
	return s.stores(nil)
}

var _ ports.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks con los repos atados a una transacción en memoria.
type TxRunner struct {
	s *Store
}

// NewTxRunner construye el runner.
func NewTxRunner(s *Store) *TxRunner {
	return &TxRunner{s: s}
}

// Run serializa la transacción con el resto de accesos y deshace los cambios si fn falla o entra en pánico.
func (r *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, s ports.Stores) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx := &txn{}
	defer func() {
		if p := recover(); p != nil {
			tx.rollback()
			err = fmt.Errorf("memory tx: panic: %v", p)
		}
	}()

	if err := fn(ctx, r.s.stores(tx)); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func page(n, limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	end := offset + limit
	if end > n {
		end = n
	}
	return offset, end
}
