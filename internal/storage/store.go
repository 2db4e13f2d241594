// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/mmynk/evenly/internal/ledger"
	"github.com/mmynk/evenly/internal/models"
)

// Store persists ledger state so it survives restarts.
// This abstraction allows swapping storage backends (SQLite, in-memory)
// without changing the service layer.
type Store interface {
	// SavePerson inserts a person or renames an existing one.
	// A person keeps the position of its first save.
	SavePerson(ctx context.Context, person models.Person) error

	// ListPersons returns every person in the order they were first saved.
	ListPersons(ctx context.Context) ([]models.Person, error)

	// SaveReceipt inserts or replaces a receipt together with its assignments.
	// A replaced receipt keeps its original position.
	SaveReceipt(ctx context.Context, record ledger.ReceiptRecord) error

	// DeleteReceipt removes a receipt and its assignments.
	// Deleting an unknown receipt is not an error.
	DeleteReceipt(ctx context.Context, receiptID string) error

	// ListReceipts returns every receipt with its assignments in insertion order.
	ListReceipts(ctx context.Context) ([]ledger.ReceiptRecord, error)

	// SaveSettlements replaces the last calculated settlement list.
	SaveSettlements(ctx context.Context, settlements []models.Settlement) error

	// ListSettlements returns the last saved settlement list.
	ListSettlements(ctx context.Context) ([]models.Settlement, error)

	// Close releases any resources held by the store.
	Close() error
}

// Load reads the full ledger state from s and restores it into l.
func Load(ctx context.Context, s Store, l *ledger.Ledger) error {
	persons, err := s.ListPersons(ctx)
	if err != nil {
		return err
	}
	receipts, err := s.ListReceipts(ctx)
	if err != nil {
		return err
	}
	settlements, err := s.ListSettlements(ctx)
	if err != nil {
		return err
	}

	l.Restore(persons, receipts, settlements)
	return nil
}
