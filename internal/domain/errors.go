package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")
)

// ValidationError entrada mal formada o incompleta. Se rechaza antes de cualquier mutación.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError construye un ValidationError.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError recurso inexistente o perteneciente a otra tienda.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s no encontrado", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFoundError construye un NotFoundError.
func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConflictError transición intentada desde un estado distinto al esperado,
// o carrera perdida contra otra escritura concurrente.
type ConflictError struct {
	Resource string
	ID       string
	Current  string
	Expected []string
}

func (e *ConflictError) Error() string {
	if len(e.Expected) == 0 {
		return fmt.Sprintf("%s %s fue modificado concurrentemente; vuelva a consultarlo", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s %s está en estado %q; se requiere %s",
		e.Resource, e.ID, e.Current, strings.Join(e.Expected, " o "))
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// Shortfall faltante de stock para una línea.
type Shortfall struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Location  string `json:"location"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

// Message texto legible para el usuario final.
func (s Shortfall) Message() string {
	name := s.Name
	if name == "" {
		name = s.ProductID
	}
	return fmt.Sprintf("Stock insuficiente de %s en %s. Disponible: %d, Solicitado: %d",
		name, s.Location, s.Available, s.Requested)
}

// InsufficientStockError lista estructurada de faltantes.
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	msgs := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		msgs = append(msgs, s.Message())
	}
	return strings.Join(msgs, "; ")
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// LostRace indica una carrera perdida contra otra escritura concurrente. Los conflictos de
// estado (Expected) o de existencia (Current) no cambian al reintentar.
func (e *ConflictError) LostRace() bool {
	return len(e.Expected) == 0 && e.Current == ""
}

// RetryOnConflict reintenta fn mientras devuelva una carrera perdida de concurrencia optimista,
// hasta attempts veces. Cualquier otro error, incluidos los conflictos de estado, se devuelve de inmediato.
func RetryOnConflict(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = fn()
		var ce *ConflictError
		if err == nil || !errors.As(err, &ce) || !ce.LostRace() {
			return err
		}
	}
	return err
}
