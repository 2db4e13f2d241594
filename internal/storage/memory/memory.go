// Package memory provides an in-process implementation of storage.Store.
// Nothing survives a restart; it is the default backend and a test double.
package memory

import (
	"context"
	"sync"

	"github.com/mmynk/evenly/internal/ledger"
	"github.com/mmynk/evenly/internal/models"
	"github.com/mmynk/evenly/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store keeps ledger state in slices guarded by a RWMutex.
type Store struct {
	mu          sync.RWMutex
	persons     []models.Person
	receipts    []ledger.ReceiptRecord
	settlements []models.Settlement
}

// New creates an empty Store.
func New() *Store {
	return &Store{}
}

func (s *Store) SavePerson(_ context.Context, person models.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.persons {
		if s.persons[i].ID == person.ID {
			s.persons[i] = person
			return nil
		}
	}
	s.persons = append(s.persons, person)
	return nil
}

func (s *Store) ListPersons(_ context.Context) ([]models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Person, len(s.persons))
	copy(out, s.persons)
	return out, nil
}

func (s *Store) SaveReceipt(_ context.Context, record ledger.ReceiptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record = cloneRecord(record)
	for i := range s.receipts {
		if s.receipts[i].Receipt.ID == record.Receipt.ID {
			s.receipts[i] = record
			return nil
		}
	}
	s.receipts = append(s.receipts, record)
	return nil
}

func (s *Store) DeleteReceipt(_ context.Context, receiptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.receipts {
		if s.receipts[i].Receipt.ID == receiptID {
			s.receipts = append(s.receipts[:i], s.receipts[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) ListReceipts(_ context.Context) ([]ledger.ReceiptRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ledger.ReceiptRecord, len(s.receipts))
	for i, r := range s.receipts {
		out[i] = cloneRecord(r)
	}
	return out, nil
}

func (s *Store) SaveSettlements(_ context.Context, settlements []models.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settlements = make([]models.Settlement, len(settlements))
	copy(s.settlements, settlements)
	return nil
}

func (s *Store) ListSettlements(_ context.Context) ([]models.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Settlement, len(s.settlements))
	copy(out, s.settlements)
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func cloneRecord(r ledger.ReceiptRecord) ledger.ReceiptRecord {
	return ledger.ReceiptRecord{
		Receipt:     r.Receipt.Clone(),
		Assignments: models.CloneAssignments(r.Assignments),
	}
}
