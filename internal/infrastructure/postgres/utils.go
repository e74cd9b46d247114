package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "23505")
}

// jsonList evita que un slice nil llegue como NULL a una columna JSONB NOT NULL.
func jsonList[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
