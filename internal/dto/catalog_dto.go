package dto

import "github.com/shopspring/decimal"

type CategoryRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

type ProductRequest struct {
	Name       string          `json:"name" validate:"required,max=200"`
	CategoryID string          `json:"category_id" validate:"omitempty,uuid"`
	Price      decimal.Decimal `json:"price" validate:"min=0"`
	SKU        string          `json:"sku" validate:"max=64"`
	Barcode    string          `json:"barcode" validate:"max=64"`
	Stock      *int            `json:"stock" validate:"omitempty,min=0"`
}

// BulkDeleteRequest lists the ids of a bulk delete. Items are processed
// independently; the response itemizes failures.
type BulkDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=100,dive,required"`
}
