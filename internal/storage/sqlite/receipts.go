package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mmynk/evenly/internal/ledger"
	"github.com/mmynk/evenly/internal/models"
)

// SaveReceipt upserts a receipt and replaces its items and assignments.
func (s *SQLiteStore) SaveReceipt(ctx context.Context, record ledger.ReceiptRecord) error {
	r := record.Receipt

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO receipts (id, merchant, date, subtotal, discounts, tax, tip, total, paid_by, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM receipts))
		ON CONFLICT(id) DO UPDATE SET
			merchant = excluded.merchant,
			date = excluded.date,
			subtotal = excluded.subtotal,
			discounts = excluded.discounts,
			tax = excluded.tax,
			tip = excluded.tip,
			total = excluded.total,
			paid_by = excluded.paid_by`,
		r.ID, r.Merchant, r.Date.UTC().Format(time.RFC3339Nano),
		r.Subtotal, r.Discounts, r.Tax, r.Tip, r.Total, r.PaidBy,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert receipt: %w", err)
	}

	if err := deleteChildren(ctx, tx, r.ID); err != nil {
		return err
	}

	for i, item := range r.Items {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO receipt_items (receipt_id, position, id, name, price, quantity) VALUES (?, ?, ?, ?, ?, ?)",
			r.ID, i, item.ID, item.Name, item.Price, item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}
	}

	for i, a := range record.Assignments {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO item_assignments (receipt_id, position, item_id) VALUES (?, ?, ?)",
			r.ID, i, a.ItemID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert item assignment: %w", err)
		}

		for j, ps := range a.Assignments {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO assignment_shares (receipt_id, assignment_position, position, person_id, share) VALUES (?, ?, ?, ?, ?)",
				r.ID, i, j, ps.PersonID, ps.Share,
			)
			if err != nil {
				return fmt.Errorf("failed to insert share: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteReceipt removes a receipt and everything attached to it.
func (s *SQLiteStore) DeleteReceipt(ctx context.Context, receiptID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteChildren(ctx, tx, receiptID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM receipts WHERE id = ?", receiptID); err != nil {
		return fmt.Errorf("failed to delete receipt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListReceipts retrieves every receipt with items and assignments, in
// insertion order. Each table is read in a single pass since the store runs
// on one connection.
func (s *SQLiteStore) ListReceipts(ctx context.Context) ([]ledger.ReceiptRecord, error) {
	records, index, err := s.listReceiptRows(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return records, nil
	}

	if err := s.attachItems(ctx, records, index); err != nil {
		return nil, err
	}
	if err := s.attachAssignments(ctx, records, index); err != nil {
		return nil, err
	}

	return records, nil
}

func (s *SQLiteStore) listReceiptRows(ctx context.Context) ([]ledger.ReceiptRecord, map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, merchant, date, subtotal, discounts, tax, tip, total, paid_by
		FROM receipts ORDER BY position`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer rows.Close()

	var records []ledger.ReceiptRecord
	index := make(map[string]int)
	for rows.Next() {
		var r models.Receipt
		var date string
		if err := rows.Scan(&r.ID, &r.Merchant, &date, &r.Subtotal, &r.Discounts, &r.Tax, &r.Tip, &r.Total, &r.PaidBy); err != nil {
			return nil, nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		if r.Date, err = time.Parse(time.RFC3339Nano, date); err != nil {
			return nil, nil, fmt.Errorf("failed to parse date of receipt %s: %w", r.ID, err)
		}
		index[r.ID] = len(records)
		records = append(records, ledger.ReceiptRecord{Receipt: r})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate receipts: %w", err)
	}

	return records, index, nil
}

func (s *SQLiteStore) attachItems(ctx context.Context, records []ledger.ReceiptRecord, index map[string]int) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT receipt_id, id, name, price, quantity FROM receipt_items ORDER BY receipt_id, position",
	)
	if err != nil {
		return fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var receiptID string
		var item models.ReceiptItem
		if err := rows.Scan(&receiptID, &item.ID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return fmt.Errorf("failed to scan item: %w", err)
		}
		if i, ok := index[receiptID]; ok {
			records[i].Receipt.Items = append(records[i].Receipt.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate items: %w", err)
	}

	return nil
}

func (s *SQLiteStore) attachAssignments(ctx context.Context, records []ledger.ReceiptRecord, index map[string]int) error {
	type key struct {
		receiptID string
		position  int
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT receipt_id, position, item_id FROM item_assignments ORDER BY receipt_id, position",
	)
	if err != nil {
		return fmt.Errorf("failed to get item assignments: %w", err)
	}
	defer rows.Close()

	slots := make(map[key]int)
	for rows.Next() {
		var k key
		var itemID string
		if err := rows.Scan(&k.receiptID, &k.position, &itemID); err != nil {
			return fmt.Errorf("failed to scan item assignment: %w", err)
		}
		i, ok := index[k.receiptID]
		if !ok {
			continue
		}
		slots[k] = len(records[i].Assignments)
		records[i].Assignments = append(records[i].Assignments, models.ItemAssignment{ItemID: itemID})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate item assignments: %w", err)
	}
	rows.Close()

	shareRows, err := s.db.QueryContext(ctx, `
		SELECT receipt_id, assignment_position, person_id, share
		FROM assignment_shares ORDER BY receipt_id, assignment_position, position`)
	if err != nil {
		return fmt.Errorf("failed to get shares: %w", err)
	}
	defer shareRows.Close()

	for shareRows.Next() {
		var k key
		var ps models.PersonShare
		if err := shareRows.Scan(&k.receiptID, &k.position, &ps.PersonID, &ps.Share); err != nil {
			return fmt.Errorf("failed to scan share: %w", err)
		}
		slot, ok := slots[k]
		if !ok {
			continue
		}
		a := &records[index[k.receiptID]].Assignments[slot]
		a.Assignments = append(a.Assignments, ps)
	}
	if err := shareRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate shares: %w", err)
	}

	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func deleteChildren(ctx context.Context, tx execer, receiptID string) error {
	for _, table := range []string{"assignment_shares", "item_assignments", "receipt_items"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE receipt_id = ?", receiptID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}
