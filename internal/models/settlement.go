package models

// Person is a participant in the shared expenses.
type Person struct {
	// ID is a stable opaque handle generated by the ledger (p1, p2, ...).
	ID string `json:"id"`

	// DisplayName is the name shown to users.
	DisplayName string `json:"displayName"`
}

// Settlement represents a payment between two people that reduces their
// net balances toward zero.
type Settlement struct {
	// From is the debtor's person ID.
	From string `json:"from"`

	// To is the creditor's person ID.
	To string `json:"to"`

	// Amount is positive and rounded to 2 decimals.
	Amount float64 `json:"amount"`
}

// ReceiptAssignments pairs a receipt ID with its stored assignment set.
type ReceiptAssignments struct {
	ReceiptID   string           `json:"receiptId"`
	Assignments []ItemAssignment `json:"assignments"`
}

// Balance is a read-only snapshot of the ledger state.
type Balance struct {
	Persons  []Person  `json:"persons"`
	Receipts []Receipt `json:"receipts"`

	// Assignments follows receipt insertion order.
	Assignments []ReceiptAssignments `json:"assignments"`

	// Settlements is the result of the last CalculateSettlements call.
	Settlements []Settlement `json:"settlements"`
}

// AssignmentsFor returns the assignment set stored for a receipt.
func (b Balance) AssignmentsFor(receiptID string) ([]ItemAssignment, bool) {
	for _, ra := range b.Assignments {
		if ra.ReceiptID == receiptID {
			return ra.Assignments, true
		}
	}
	return nil, false
}
