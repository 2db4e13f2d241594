package models

import "time"

// Receipt represents one purchase event with line items and a designated payer.
type Receipt struct {
	// ID is the opaque receipt identifier (UUID when generated by ingestion).
	ID string `json:"id"`

	// Merchant is the store or restaurant name.
	Merchant string `json:"merchant"`

	// Date is when the purchase happened.
	Date time.Time `json:"date"`

	// Items are the individual line items on the receipt.
	Items []ReceiptItem `json:"items"`

	// Subtotal is expected to equal the sum of item line costs, but it is
	// stored as given. Settlement uses it as the proration denominator.
	Subtotal float64 `json:"subtotal"`

	// Discounts, Tax and Tip are receipt-level charges prorated across
	// assignees. Zero when absent.
	Discounts float64 `json:"discounts,omitempty"`
	Tax       float64 `json:"tax,omitempty"`
	Tip       float64 `json:"tip,omitempty"`

	// Total is the amount actually paid: subtotal - discounts + tax + tip.
	Total float64 `json:"total"`

	// PaidBy is the person ID credited with the full total.
	PaidBy string `json:"paidBy"`
}

// ReceiptItem represents a single line item on a receipt.
type ReceiptItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Price is the per-unit amount.
	Price float64 `json:"price"`

	// Quantity is at least 1.
	Quantity int `json:"quantity"`
}

// LineCost returns price × quantity.
func (i ReceiptItem) LineCost() float64 {
	return i.Price * float64(i.Quantity)
}

// Clone returns a copy of the receipt that shares no slices with r.
func (r Receipt) Clone() Receipt {
	out := r
	if r.Items != nil {
		out.Items = make([]ReceiptItem, len(r.Items))
		copy(out.Items, r.Items)
	}
	return out
}

// ReceiptPatch carries a partial receipt update. Nil fields are left
// untouched. There is no ID field: the receipt ID is never overwritten.
type ReceiptPatch struct {
	Merchant  *string       `json:"merchant,omitempty"`
	Date      *time.Time    `json:"date,omitempty"`
	Items     []ReceiptItem `json:"items,omitempty"`
	Subtotal  *float64      `json:"subtotal,omitempty"`
	Discounts *float64      `json:"discounts,omitempty"`
	Tax       *float64      `json:"tax,omitempty"`
	Tip       *float64      `json:"tip,omitempty"`
	Total     *float64      `json:"total,omitempty"`
	PaidBy    *string       `json:"paidBy,omitempty"`
}

// Apply merges the patch onto r and returns the result.
func (p ReceiptPatch) Apply(r Receipt) Receipt {
	out := r.Clone()
	if p.Merchant != nil {
		out.Merchant = *p.Merchant
	}
	if p.Date != nil {
		out.Date = *p.Date
	}
	if p.Items != nil {
		out.Items = make([]ReceiptItem, len(p.Items))
		copy(out.Items, p.Items)
	}
	if p.Subtotal != nil {
		out.Subtotal = *p.Subtotal
	}
	if p.Discounts != nil {
		out.Discounts = *p.Discounts
	}
	if p.Tax != nil {
		out.Tax = *p.Tax
	}
	if p.Tip != nil {
		out.Tip = *p.Tip
	}
	if p.Total != nil {
		out.Total = *p.Total
	}
	if p.PaidBy != nil {
		out.PaidBy = *p.PaidBy
	}
	return out
}
