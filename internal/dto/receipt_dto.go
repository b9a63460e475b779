package dto

import "github.com/shopspring/decimal"

type ReceiptItemRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Name      string          `json:"name" validate:"required,max=200"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"min=0"`
}

type RecordSaleRequest struct {
	Total         decimal.Decimal      `json:"total" validate:"required,gt=0"`
	PaymentMethod string               `json:"payment_method" validate:"required,oneof=cash card other"`
	Items         []ReceiptItemRequest `json:"items" validate:"required,min=1,dive"`
}

type TicketRequest struct {
	Name  string               `json:"name" validate:"required,max=100"`
	Items []ReceiptItemRequest `json:"items" validate:"required,min=1,dive"`
}
