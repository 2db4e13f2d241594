// Package itemizer stages per-item ownership shares before a receipt is
// committed to the ledger.
package itemizer

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/mmynk/evenly/internal/models"
)

// shareTolerance bounds floating point error when summing shares.
const shareTolerance = 1e-4

// Assignment errors.
var (
	// ErrInvalidShare rejects shares outside (0, 1].
	ErrInvalidShare  = errors.New("itemizer: share must be between 0 and 1")
	// ErrShareExceeded rejects a share that would over-assign an item.
	ErrShareExceeded = errors.New("itemizer: total share for item would exceed 1.0")
)

// receiptShares keeps item assignments in first-assigned order.
type receiptShares struct {
	order  []string
	shares map[string][]models.PersonShare
}

// Itemizer is a staging area for fractional item ownership, keyed by receipt.
// It is safe for concurrent use.
type Itemizer struct {
	mu       sync.Mutex
	receipts map[string]*receiptShares
}

// New creates an empty Itemizer.
func New() *Itemizer {
	return &Itemizer{
		receipts: make(map[string]*receiptShares),
	}
}

// Assign records that personID owns share of itemID on receiptID.
//
// Assigning the same person to the same item twice records two independent
// entries; shares are never merged or overwritten. Staged state is left
// untouched when an error is returned.
func (it *Itemizer) Assign(receiptID, itemID, personID string, share float64) error {
	if math.IsNaN(share) || share < 0 || share > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidShare, share)
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	rs := it.receipts[receiptID]

	total := share
	if rs != nil {
		total += sumShares(rs.shares[itemID])
	}
	if total > 1+shareTolerance {
		return fmt.Errorf("%w: item %s (would be %.4f)", ErrShareExceeded, itemID, total)
	}

	if rs == nil {
		rs = &receiptShares{shares: make(map[string][]models.PersonShare)}
		it.receipts[receiptID] = rs
	}
	if _, exists := rs.shares[itemID]; !exists {
		rs.order = append(rs.order, itemID)
	}
	rs.shares[itemID] = append(rs.shares[itemID], models.PersonShare{PersonID: personID, Share: share})

	return nil
}

// GetAssignments returns every staged share for a receipt, grouped by item.
// The result is empty (never nil) when nothing is staged.
func (it *Itemizer) GetAssignments(receiptID string) []models.ItemAssignment {
	it.mu.Lock()
	defer it.mu.Unlock()

	rs, ok := it.receipts[receiptID]
	if !ok {
		return []models.ItemAssignment{}
	}

	result := make([]models.ItemAssignment, 0, len(rs.order))
	for _, itemID := range rs.order {
		shares := make([]models.PersonShare, len(rs.shares[itemID]))
		copy(shares, rs.shares[itemID])
		result = append(result, models.ItemAssignment{ItemID: itemID, Assignments: shares})
	}
	return result
}

// Clear drops every staged share for a receipt.
func (it *Itemizer) Clear(receiptID string) {
	it.mu.Lock()
	defer it.mu.Unlock()

	delete(it.receipts, receiptID)
}

// Validate reports whether every item on the receipt is fully assigned, i.e.
// its shares across the whole assignment list sum to 1.0 within 1e-4.
// A receipt without items is trivially valid.
func (it *Itemizer) Validate(receipt models.Receipt, assignments []models.ItemAssignment) bool {
	return len(Incomplete(receipt, assignments)) == 0
}

// Incomplete returns the IDs of receipt items whose shares do not sum to 1.0.
func Incomplete(receipt models.Receipt, assignments []models.ItemAssignment) []string {
	totals := make(map[string]float64, len(assignments))
	for _, a := range assignments {
		totals[a.ItemID] += sumShares(a.Assignments)
	}

	var incomplete []string
	for _, item := range receipt.Items {
		if math.Abs(totals[item.ID]-1.0) > shareTolerance {
			incomplete = append(incomplete, item.ID)
		}
	}
	return incomplete
}

func sumShares(shares []models.PersonShare) float64 {
	var total float64
	for _, s := range shares {
		total += s.Share
	}
	return total
}
