package entity

import "time"

// Branch sucursal física de una tienda.
type Branch struct {
	ID        string
	ShopID    string
	Code      string
	Name      string
	Address   string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
