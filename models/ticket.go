package models

import (
	"github.com/shopspring/decimal"
)

type Ticket struct {
	ID            uint64          `json:"id"`
	FestivalID    uint64          `json:"festival_id"`
	Owner         string          `json:"owner"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	ForSale       bool            `json:"for_sale"`
	Metadata      string          `json:"metadata"`
}
