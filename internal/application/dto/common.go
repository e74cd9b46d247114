package dto

import "github.com/DTBbuilds/smartduka-inventory/internal/domain"

// PageRequest paginación para listados.
type PageRequest struct {
	Limit  int `query:"limit" validate:"min=1,max=100"`
	Offset int `query:"offset" validate:"min=0"`
}

// DefaultPage aplica valores por defecto y límites a Limit/Offset.
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// PageResponse metadatos de página en respuestas.
type PageResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total,omitempty"`
}

// ErrorResponse cuerpo de error HTTP. Shortfalls solo viene con INSUFFICIENT_STOCK.
type ErrorResponse struct {
	Code       string             `json:"code"`
	Message    string             `json:"message"`
	Field      string             `json:"field,omitempty"`
	Shortfalls []domain.Shortfall `json:"shortfalls,omitempty"`
}
