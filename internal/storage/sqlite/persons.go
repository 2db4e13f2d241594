package sqlite

import (
	"context"
	"fmt"

	"github.com/mmynk/evenly/internal/models"
)

// SavePerson inserts a person, or updates the display name of an existing one.
func (s *SQLiteStore) SavePerson(ctx context.Context, person models.Person) error {
	query := `
		INSERT INTO persons (id, display_name, position)
		VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM persons))
		ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name
	`

	if _, err := s.db.ExecContext(ctx, query, person.ID, person.DisplayName); err != nil {
		return fmt.Errorf("failed to save person: %w", err)
	}

	return nil
}

// ListPersons retrieves every person in insertion order.
func (s *SQLiteStore) ListPersons(ctx context.Context) ([]models.Person, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, display_name FROM persons ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}
	defer rows.Close()

	var persons []models.Person
	for rows.Next() {
		var p models.Person
		if err := rows.Scan(&p.ID, &p.DisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		persons = append(persons, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate persons: %w", err)
	}

	return persons, nil
}
