package calculator

import (
	"math"

	"github.com/mmynk/evenly/internal/models"
)

// PersonShare represents what one person owes for a single receipt.
type PersonShare struct {
	PersonID string

	// Subtotal is the sum of this person's item costs (price × quantity × share).
	Subtotal float64

	// Discount, Tax and Tip are the prorated receipt-level amounts.
	Discount float64
	Tax      float64
	Tip      float64

	// Total is Subtotal - Discount + Tax + Tip.
	Total float64
}

// ReceiptShares computes how much each assignee owes for one receipt.
//
// Algorithm:
//   - item cost = price × quantity × share, summed per person
//   - ratio = person_subtotal / receipt_subtotal (0 when the receipt subtotal is 0)
//   - person_total = person_subtotal - ratio×discounts + ratio×tax + ratio×tip
//
// Assignments that reference an item not on the receipt are ignored, and
// people whose subtotal is zero are omitted. Results keep first-seen order.
func ReceiptShares(receipt models.Receipt, assignments []models.ItemAssignment) []PersonShare {
	items := make(map[string]models.ReceiptItem, len(receipt.Items))
	for _, item := range receipt.Items {
		if _, exists := items[item.ID]; !exists {
			items[item.ID] = item
		}
	}

	var shares []PersonShare
	index := make(map[string]int)

	for _, assignment := range assignments {
		item, ok := items[assignment.ItemID]
		if !ok {
			continue
		}
		itemCost := item.LineCost()

		for _, ps := range assignment.Assignments {
			i, seen := index[ps.PersonID]
			if !seen {
				i = len(shares)
				index[ps.PersonID] = i
				shares = append(shares, PersonShare{PersonID: ps.PersonID})
			}
			shares[i].Subtotal += itemCost * ps.Share
		}
	}

	out := shares[:0]
	for _, share := range shares {
		if share.Subtotal == 0 {
			continue
		}
		share.Discount = proportionalAmount(share.Subtotal, receipt.Subtotal, receipt.Discounts)
		share.Tax = proportionalAmount(share.Subtotal, receipt.Subtotal, receipt.Tax)
		share.Tip = proportionalAmount(share.Subtotal, receipt.Subtotal, receipt.Tip)
		share.Total = share.Subtotal - share.Discount + share.Tax + share.Tip
		out = append(out, share)
	}

	return out
}

// proportionalAmount returns amount × (personSubtotal / receiptSubtotal).
func proportionalAmount(personSubtotal, receiptSubtotal, amount float64) float64 {
	if receiptSubtotal == 0 {
		return 0
	}
	return personSubtotal / receiptSubtotal * amount
}

// RoundMoney rounds an amount to 2 decimal places.
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}
