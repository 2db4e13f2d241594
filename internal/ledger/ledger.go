// Package ledger is the source of truth for people, receipts and item
// assignments, and derives settlements from them.
//
// Assignments are stored exactly as given. Checking that every item's shares
// sum to 1.0 is the caller's job (see itemizer.Validate); when they don't,
// settlement still runs and any unassigned value stays with the payer.
package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/mmynk/evenly/internal/calculator"
	"github.com/mmynk/evenly/internal/models"
)

// ErrReceiptNotFound is returned when updating a receipt the ledger does not hold.
var ErrReceiptNotFound = errors.New("ledger: receipt not found")

// personIDPrefix prefixes generated person IDs: p1, p2, ...
const personIDPrefix = "p"

// ReceiptRecord is a stored receipt with its assignment set.
type ReceiptRecord struct {
	Receipt     models.Receipt
	Assignments []models.ItemAssignment
}

// Ledger holds the canonical state. Every public method runs under a single
// mutex, so settlement always sees a consistent snapshot of all receipts.
type Ledger struct {
	mu          sync.Mutex
	nextPerson  int
	persons     []models.Person
	receipts    []ReceiptRecord
	settlements []models.Settlement
}

// New creates an empty Ledger.
func New() *Ledger {
	return &Ledger{nextPerson: 1}
}

// AddPerson creates a person with a fresh ID and appends it to the person list.
func (l *Ledger) AddPerson(displayName string) models.Person {
	l.mu.Lock()
	defer l.mu.Unlock()

	person := models.Person{
		ID:          personIDPrefix + strconv.Itoa(l.nextPerson),
		DisplayName: displayName,
	}
	l.nextPerson++
	l.persons = append(l.persons, person)
	return person
}

// AddReceipt stores a receipt and its assignments. A receipt with an
// existing ID is replaced in place, keeping its position; both the receipt
// and its assignment set are replaced.
func (l *Ledger) AddReceipt(receipt models.Receipt, assignments []models.ItemAssignment) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record := ReceiptRecord{
		Receipt:     receipt.Clone(),
		Assignments: models.CloneAssignments(assignments),
	}

	if i := l.indexOf(receipt.ID); i >= 0 {
		l.receipts[i] = record
		return
	}
	l.receipts = append(l.receipts, record)
}

// UpdateReceipt merges patch onto an existing receipt and returns the result.
// Assignments are kept as they are.
func (l *Ledger) UpdateReceipt(receiptID string, patch models.ReceiptPatch) (models.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(receiptID)
	if i < 0 {
		return models.Receipt{}, fmt.Errorf("%w: %s", ErrReceiptNotFound, receiptID)
	}

	updated := patch.Apply(l.receipts[i].Receipt)
	updated.ID = receiptID
	l.receipts[i].Receipt = updated

	return updated.Clone(), nil
}

// DeleteReceipt removes a receipt and its assignments. Unknown IDs are ignored.
func (l *Ledger) DeleteReceipt(receiptID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i := l.indexOf(receiptID); i >= 0 {
		l.receipts = append(l.receipts[:i], l.receipts[i+1:]...)
	}
}

// Receipt returns a stored receipt and its assignments.
func (l *Ledger) Receipt(receiptID string) (ReceiptRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(receiptID)
	if i < 0 {
		return ReceiptRecord{}, false
	}
	return cloneRecord(l.receipts[i]), true
}

// ReceiptCount returns the number of stored receipts.
func (l *Ledger) ReceiptCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.receipts)
}

// GetBalance returns a snapshot of the current state without recomputing
// settlements.
func (l *Ledger) GetBalance() models.Balance {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance := models.Balance{
		Persons:     make([]models.Person, len(l.persons)),
		Receipts:    make([]models.Receipt, 0, len(l.receipts)),
		Assignments: make([]models.ReceiptAssignments, 0, len(l.receipts)),
		Settlements: make([]models.Settlement, len(l.settlements)),
	}
	copy(balance.Persons, l.persons)
	copy(balance.Settlements, l.settlements)
	for _, r := range l.receipts {
		balance.Receipts = append(balance.Receipts, r.Receipt.Clone())
		balance.Assignments = append(balance.Assignments, models.ReceiptAssignments{
			ReceiptID:   r.Receipt.ID,
			Assignments: models.CloneAssignments(r.Assignments),
		})
	}
	return balance
}

// NetBalances returns every person's paid/owed/net totals across all receipts.
func (l *Ledger) NetBalances() []calculator.MemberBalance {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.memberBalances()
}

// CalculateSettlements recomputes settlements from the full current state,
// caches them and returns them.
func (l *Ledger) CalculateSettlements() []models.Settlement {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.settlements = calculator.SimplifyDebts(l.memberBalances())

	out := make([]models.Settlement, len(l.settlements))
	copy(out, l.settlements)
	return out
}

// Restore replaces the whole state, e.g. when loading from storage. Person
// ID generation continues after the highest pN ID restored. settlements
// becomes the cached result of the last calculation and may be nil.
func (l *Ledger) Restore(persons []models.Person, records []ReceiptRecord, settlements []models.Settlement) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.persons = make([]models.Person, len(persons))
	copy(l.persons, persons)

	l.receipts = make([]ReceiptRecord, 0, len(records))
	for _, r := range records {
		l.receipts = append(l.receipts, cloneRecord(r))
	}

	l.nextPerson = 1
	for _, p := range persons {
		if !strings.HasPrefix(p.ID, personIDPrefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(p.ID, personIDPrefix))
		if err == nil && n >= l.nextPerson {
			l.nextPerson = n + 1
		}
	}

	l.settlements = make([]models.Settlement, len(settlements))
	copy(l.settlements, settlements)
}

func (l *Ledger) memberBalances() []calculator.MemberBalance {
	personIDs := make([]string, len(l.persons))
	for i, p := range l.persons {
		personIDs[i] = p.ID
	}

	receipts := make([]calculator.ReceiptForBalance, len(l.receipts))
	for i, r := range l.receipts {
		receipts[i] = calculator.ReceiptForBalance{Receipt: r.Receipt, Assignments: r.Assignments}
	}

	return calculator.CalculateBalances(personIDs, receipts)
}

func (l *Ledger) indexOf(receiptID string) int {
	for i, r := range l.receipts {
		if r.Receipt.ID == receiptID {
			return i
		}
	}
	return -1
}

func cloneRecord(r ReceiptRecord) ReceiptRecord {
	return ReceiptRecord{
		Receipt:     r.Receipt.Clone(),
		Assignments: models.CloneAssignments(r.Assignments),
	}
}
