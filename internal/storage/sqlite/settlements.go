package sqlite

import (
	"context"
	"fmt"

	"github.com/mmynk/evenly/internal/models"
)

// SaveSettlements replaces the stored settlement list with settlements.
func (s *SQLiteStore) SaveSettlements(ctx context.Context, settlements []models.Settlement) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM settlements"); err != nil {
		return fmt.Errorf("failed to clear settlements: %w", err)
	}

	for i, st := range settlements {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO settlements (position, from_person, to_person, amount) VALUES (?, ?, ?, ?)",
			i, st.From, st.To, st.Amount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert settlement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListSettlements retrieves the last saved settlement list in order.
func (s *SQLiteStore) ListSettlements(ctx context.Context) ([]models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT from_person, to_person, amount FROM settlements ORDER BY position",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []models.Settlement
	for rows.Next() {
		var st models.Settlement
		if err := rows.Scan(&st.From, &st.To, &st.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}

	return settlements, nil
}
