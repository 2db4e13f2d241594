// Package ingest turns user input into receipts: manual entry from a form and
// plain text already extracted from a receipt image.
package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/evenly/internal/calculator"
	"github.com/mmynk/evenly/internal/models"
)

// ErrMalformedReceipt is returned when input cannot be turned into a receipt.
var ErrMalformedReceipt = errors.New("ingest: malformed receipt")

const (
	unknownMerchant = "Unknown Merchant"
	unknownItem     = "Unknown Item"
)

// ManualItem is one line item as entered by hand.
type ManualItem struct {
	ID       string  `json:"id,omitempty"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity,omitempty"`
}

// ManualReceipt is a hand-entered receipt. Nil amounts are derived from the
// items; a nil date means "now".
type ManualReceipt struct {
	ID        string       `json:"id,omitempty"`
	Merchant  string       `json:"merchant"`
	Date      *time.Time   `json:"date,omitempty"`
	Items     []ManualItem `json:"items"`
	Subtotal  *float64     `json:"subtotal,omitempty"`
	Discounts *float64     `json:"discounts,omitempty"`
	Tax       *float64     `json:"tax,omitempty"`
	Tip       *float64     `json:"tip,omitempty"`
	Total     *float64     `json:"total,omitempty"`
	PaidBy    string       `json:"paidBy,omitempty"`
}

// Parser builds receipts. The zero value uses the wall clock and random UUIDs.
type Parser struct {
	Now   func() time.Time
	NewID func() string
}

var defaultParser Parser

// Manual normalizes a hand-entered receipt using the default Parser.
func Manual(in ManualReceipt) (models.Receipt, error) {
	return defaultParser.Manual(in)
}

// ParseText parses extracted receipt text using the default Parser.
func ParseText(text, paidBy string) (models.Receipt, error) {
	return defaultParser.ParseText(text, paidBy)
}

// Manual validates and normalizes a hand-entered receipt.
// Merchant and at least one item are required.
func (p Parser) Manual(in ManualReceipt) (models.Receipt, error) {
	merchant := strings.TrimSpace(in.Merchant)
	if merchant == "" {
		return models.Receipt{}, fmt.Errorf("%w: merchant is required", ErrMalformedReceipt)
	}
	if len(in.Items) == 0 {
		return models.Receipt{}, fmt.Errorf("%w: at least one item is required", ErrMalformedReceipt)
	}

	items := make([]models.ReceiptItem, 0, len(in.Items))
	var itemsTotal float64
	for _, mi := range in.Items {
		item := models.ReceiptItem{
			ID:       mi.ID,
			Name:     strings.TrimSpace(mi.Name),
			Price:    calculator.RoundMoney(mi.Price),
			Quantity: mi.Quantity,
		}
		if item.ID == "" {
			item.ID = p.newID()
		}
		if item.Name == "" {
			item.Name = unknownItem
		}
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		itemsTotal += item.LineCost()
		items = append(items, item)
	}

	receipt := models.Receipt{
		ID:        in.ID,
		Merchant:  merchant,
		Items:     items,
		Subtotal:  calculator.RoundMoney(valueOr(in.Subtotal, itemsTotal)),
		Discounts: calculator.RoundMoney(valueOr(in.Discounts, 0)),
		Tax:       calculator.RoundMoney(valueOr(in.Tax, 0)),
		Tip:       calculator.RoundMoney(valueOr(in.Tip, 0)),
		PaidBy:    in.PaidBy,
	}
	if receipt.ID == "" {
		receipt.ID = p.newID()
	}
	if in.Date != nil {
		receipt.Date = *in.Date
	} else {
		receipt.Date = p.now()
	}
	receipt.Total = calculator.RoundMoney(valueOr(in.Total, computedTotal(receipt)))

	return receipt, nil
}

func (p Parser) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p Parser) newID() string {
	if p.NewID != nil {
		return p.NewID()
	}
	return uuid.NewString()
}

func computedTotal(r models.Receipt) float64 {
	return r.Subtotal - r.Discounts + r.Tax + r.Tip
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
