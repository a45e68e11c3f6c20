package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/textfolk/server/internal/model"
)

// ContactRepo defines the interface for contact repository operations
type ContactRepo interface {
	ListBySubmitter(ctx context.Context, submitter string) ([]model.Contact, error)
	SearchByName(ctx context.Context, submitter, fragment string) ([]model.Contact, error)
	FindBySubmitterAndName(ctx context.Context, submitter, name string) (model.Contact, error)
	Insert(ctx context.Context, submitter, name, number string) (uuid.UUID, error)
	UpdateNumber(ctx context.Context, id uuid.UUID, number string) error
}

type contactRepo struct {
	db *sql.DB
}

// NewContactRepo creates a new ContactRepo instance
func NewContactRepo(db *sql.DB) ContactRepo {
	return &contactRepo{db: db}
}

// likePattern escapes LIKE metacharacters in a user-supplied fragment and
// wraps it for substring containment.
func likePattern(fragment string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(fragment)
	return "%" + escaped + "%"
}

func scanContacts(rows *sql.Rows) ([]model.Contact, error) {
	defer rows.Close()
	var contacts []model.Contact
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.SubmitterNumber, &c.ContactName, &c.ContactUserNumber, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return contacts, nil
}

// ListBySubmitter returns all of a user's contacts in name order.
func (r *contactRepo) ListBySubmitter(ctx context.Context, submitter string) ([]model.Contact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, submitter_number, contact_name, contact_user_number, created_at
		FROM contacts
		WHERE submitter_number = $1
		ORDER BY contact_name, id
	`, submitter)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return scanContacts(rows)
}

// SearchByName returns the user's contacts whose name contains the fragment,
// case-insensitively, in name order.
func (r *contactRepo) SearchByName(ctx context.Context, submitter, fragment string) ([]model.Contact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, submitter_number, contact_name, contact_user_number, created_at
		FROM contacts
		WHERE submitter_number = $1 AND contact_name ILIKE $2
		ORDER BY contact_name, id
	`, submitter, likePattern(fragment))
	if err != nil {
		return nil, fmt.Errorf("search contacts: %w", err)
	}
	return scanContacts(rows)
}

// FindBySubmitterAndName returns the oldest contact with that exact name,
// used to deduplicate imports. ErrNotFound when none exists.
func (r *contactRepo) FindBySubmitterAndName(ctx context.Context, submitter, name string) (model.Contact, error) {
	var c model.Contact
	err := r.db.QueryRowContext(ctx, `
		SELECT id, submitter_number, contact_name, contact_user_number, created_at
		FROM contacts
		WHERE submitter_number = $1 AND contact_name = $2
		ORDER BY created_at
		LIMIT 1
	`, submitter, name).Scan(&c.ID, &c.SubmitterNumber, &c.ContactName, &c.ContactUserNumber, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Contact{}, ErrNotFound
		}
		return model.Contact{}, fmt.Errorf("find contact: %w", err)
	}
	return c, nil
}

// Insert adds a contact row and returns its id.
func (r *contactRepo) Insert(ctx context.Context, submitter, name, number string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO contacts (submitter_number, contact_name, contact_user_number)
		VALUES ($1, $2, $3)
		RETURNING id
	`, submitter, name, number).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert contact: %w", err)
	}
	return id, nil
}

// UpdateNumber replaces the stored number for a contact.
func (r *contactRepo) UpdateNumber(ctx context.Context, id uuid.UUID, number string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE contacts SET contact_user_number = $2 WHERE id = $1
	`, id, number)
	if err != nil {
		return fmt.Errorf("update contact number: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
