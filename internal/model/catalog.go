package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category classifies products. Mutated by remote admin actions and mirrored
// locally as a read cache. A category with dependent products cannot be
// deleted.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Product is a catalog item. CategoryName is denormalized by the remote admin
// tooling; the local degraded-mode dependency check falls back to it when the
// id link cannot be verified.
type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	CategoryID   string          `json:"categoryId"`
	CategoryName string          `json:"categoryName,omitempty"`
	Price        decimal.Decimal `json:"price"`
	SKU          string          `json:"sku,omitempty"`
	Barcode      string          `json:"barcode,omitempty"`
	Stock        int             `json:"stock"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}
