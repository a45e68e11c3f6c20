package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/textfolk/server/internal/model"
)

// PendingRepo manages the one-workflow-per-submitter slot and its candidate
// rows. Every state transition that touches more than one row runs in a
// single transaction, so a pending action is never observed without its
// candidates.
type PendingRepo interface {
	Get(ctx context.Context, submitter string) (model.PendingAction, error)

	StartDeletion(ctx context.Context, submitter string, groupIDs, contactIDs []uuid.UUID) error
	StartGroup(ctx context.Context, submitter string, contactIDs []uuid.UUID) error
	AddDeferred(ctx context.Context, submitter string, rows []model.DeferredContact) error

	DeletionCandidates(ctx context.Context, submitter string) ([]model.Group, []model.Contact, error)
	GroupCandidates(ctx context.Context, submitter string) ([]model.Contact, error)
	DeferredNames(ctx context.Context, submitter string) ([]string, error)
	DeferredNumbersForName(ctx context.Context, submitter, name string) ([]model.DeferredContact, error)

	ResolveDeletion(ctx context.Context, submitter string, groupIDs, contactIDs []uuid.UUID) error
	ResolveDeferred(ctx context.Context, submitter string, resolved []model.Contact, resolvedNames []string) (remaining int, err error)
	Clear(ctx context.Context, submitter string) error
	DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error)
}

type pendingRepo struct {
	db *sql.DB
}

// NewPendingRepo creates a new PendingRepo instance
func NewPendingRepo(db *sql.DB) PendingRepo {
	return &pendingRepo{db: db}
}

// Get returns the submitter's open pending action; ErrNotFound when the
// slot is empty.
func (r *pendingRepo) Get(ctx context.Context, submitter string) (model.PendingAction, error) {
	var pa model.PendingAction
	err := r.db.QueryRowContext(ctx, `
		SELECT submitter_number, action_type, created_at
		FROM pending_actions
		WHERE submitter_number = $1
	`, submitter).Scan(&pa.SubmitterNumber, &pa.Kind, &pa.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.PendingAction{}, ErrNotFound
		}
		return model.PendingAction{}, fmt.Errorf("query pending action: %w", err)
	}
	return pa, nil
}

// replaceAction deletes any existing pending action (candidate rows cascade)
// and inserts a fresh one of the given kind.
func replaceAction(ctx context.Context, tx *sql.Tx, submitter string, kind model.ActionKind) error {
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM pending_actions WHERE submitter_number = $1
	`, submitter); err != nil {
		return fmt.Errorf("clear previous action: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO pending_actions (submitter_number, action_type) VALUES ($1, $2)
	`, submitter, string(kind)); err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

// StartDeletion replaces the submitter's workflow with a deletion pending
// action carrying the given candidates.
func (r *pendingRepo) StartDeletion(ctx context.Context, submitter string, groupIDs, contactIDs []uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := replaceAction(ctx, tx, submitter, model.ActionDeletion); err != nil {
		return err
	}
	for _, id := range groupIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO pending_deletions (submitter_number, group_id) VALUES ($1, $2)
		`, submitter, id); err != nil {
			return fmt.Errorf("insert deletion candidate: %w", err)
		}
	}
	for _, id := range contactIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO pending_deletions (submitter_number, contact_id) VALUES ($1, $2)
		`, submitter, id); err != nil {
			return fmt.Errorf("insert deletion candidate: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// StartGroup replaces the submitter's workflow with a group pending action
// carrying the shortlisted contacts.
func (r *pendingRepo) StartGroup(ctx context.Context, submitter string, contactIDs []uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := replaceAction(ctx, tx, submitter, model.ActionGroup); err != nil {
		return err
	}
	for _, id := range contactIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO pending_group_members (submitter_number, contact_id) VALUES ($1, $2)
		`, submitter, id); err != nil {
			return fmt.Errorf("insert group candidate: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// AddDeferred appends deferred-contact rows. When the open action is already
// deferred_contacts the rows accumulate under it; any other kind is replaced
// wholesale first. Repeated imports therefore pile up instead of discarding
// earlier unresolved contacts.
func (r *pendingRepo) AddDeferred(ctx context.Context, submitter string, rows []model.DeferredContact) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var kind string
	err = tx.QueryRowContext(ctx, `
		SELECT action_type FROM pending_actions WHERE submitter_number = $1
	`, submitter).Scan(&kind)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO pending_actions (submitter_number, action_type) VALUES ($1, $2)
		`, submitter, string(model.ActionDeferredContacts)); err != nil {
			return fmt.Errorf("insert action: %w", err)
		}
	case err != nil:
		return fmt.Errorf("query action: %w", err)
	case kind != string(model.ActionDeferredContacts):
		if err := replaceAction(ctx, tx, submitter, model.ActionDeferredContacts); err != nil {
			return err
		}
	}

	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO deferred_contacts (submitter_number, contact_name, phone_number, phone_description)
			VALUES ($1, $2, $3, $4)
		`, submitter, row.ContactName, row.PhoneNumber, row.PhoneDescription); err != nil {
			return fmt.Errorf("insert deferred contact: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// DeletionCandidates re-derives the combined addressing list from the stored
// candidate rows: groups in name order, then contacts in name order. Confirm
// indexes are interpreted against exactly this ordering.
func (r *pendingRepo) DeletionCandidates(ctx context.Context, submitter string) ([]model.Group, []model.Contact, error) {
	groupRows, err := r.db.QueryContext(ctx, `
		SELECT g.id, g.creator_number, g.name, COUNT(m.group_id), g.created_at
		FROM pending_deletions pd
		JOIN groups g ON g.id = pd.group_id
		LEFT JOIN group_members m ON m.group_id = g.id
		WHERE pd.submitter_number = $1
		GROUP BY g.id, g.creator_number, g.name, g.created_at
		ORDER BY g.name, g.id
	`, submitter)
	if err != nil {
		return nil, nil, fmt.Errorf("query deletion groups: %w", err)
	}
	groups, err := scanGroups(groupRows)
	if err != nil {
		return nil, nil, err
	}

	contactRows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.submitter_number, c.contact_name, c.contact_user_number, c.created_at
		FROM pending_deletions pd
		JOIN contacts c ON c.id = pd.contact_id
		WHERE pd.submitter_number = $1
		ORDER BY c.contact_name, c.id
	`, submitter)
	if err != nil {
		return nil, nil, fmt.Errorf("query deletion contacts: %w", err)
	}
	contacts, err := scanContacts(contactRows)
	if err != nil {
		return nil, nil, err
	}
	return groups, contacts, nil
}

// GroupCandidates returns the shortlisted contacts in name order.
func (r *pendingRepo) GroupCandidates(ctx context.Context, submitter string) ([]model.Contact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.submitter_number, c.contact_name, c.contact_user_number, c.created_at
		FROM pending_group_members pgm
		JOIN contacts c ON c.id = pgm.contact_id
		WHERE pgm.submitter_number = $1
		ORDER BY c.contact_name, c.id
	`, submitter)
	if err != nil {
		return nil, fmt.Errorf("query group candidates: %w", err)
	}
	return scanContacts(rows)
}

// DeferredNames returns the distinct deferred contact names in alphabetical
// order; the digit part of a deferred confirm token indexes into this list.
func (r *pendingRepo) DeferredNames(ctx context.Context, submitter string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT contact_name FROM deferred_contacts
		WHERE submitter_number = $1
		ORDER BY contact_name
	`, submitter)
	if err != nil {
		return nil, fmt.Errorf("query deferred names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan deferred name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deferred names: %w", err)
	}
	return names, nil
}

// DeferredNumbersForName returns one name's candidate numbers in insertion
// order; the letter part of a deferred confirm token indexes into this list.
func (r *pendingRepo) DeferredNumbersForName(ctx context.Context, submitter, name string) ([]model.DeferredContact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, submitter_number, contact_name, phone_number, phone_description
		FROM deferred_contacts
		WHERE submitter_number = $1 AND contact_name = $2
		ORDER BY id
	`, submitter, name)
	if err != nil {
		return nil, fmt.Errorf("query deferred numbers: %w", err)
	}
	defer rows.Close()

	var deferred []model.DeferredContact
	for rows.Next() {
		var d model.DeferredContact
		if err := rows.Scan(&d.ID, &d.SubmitterNumber, &d.ContactName, &d.PhoneNumber, &d.PhoneDescription); err != nil {
			return nil, fmt.Errorf("scan deferred contact: %w", err)
		}
		deferred = append(deferred, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deferred contacts: %w", err)
	}
	return deferred, nil
}

// ResolveDeletion deletes the selected groups and contacts and clears the
// pending action in one transaction. Group members cascade with their group.
func (r *pendingRepo) ResolveDeletion(ctx context.Context, submitter string, groupIDs, contactIDs []uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, id := range groupIDs {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM groups WHERE id = $1 AND creator_number = $2
		`, id, submitter); err != nil {
			return fmt.Errorf("delete group: %w", err)
		}
	}
	for _, id := range contactIDs {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM contacts WHERE id = $1 AND submitter_number = $2
		`, id, submitter); err != nil {
			return fmt.Errorf("delete contact: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM pending_actions WHERE submitter_number = $1
	`, submitter); err != nil {
		return fmt.Errorf("clear pending action: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ResolveDeferred inserts the chosen contacts, purges every deferred row
// whose name was resolved, and clears the pending action only when nothing
// deferred remains. Partial resolution leaves the workflow open.
func (r *pendingRepo) ResolveDeferred(ctx context.Context, submitter string, resolved []model.Contact, resolvedNames []string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, c := range resolved {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO contacts (submitter_number, contact_name, contact_user_number)
			VALUES ($1, $2, $3)
		`, submitter, c.ContactName, c.ContactUserNumber); err != nil {
			return 0, fmt.Errorf("insert resolved contact: %w", err)
		}
	}
	for _, name := range resolvedNames {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM deferred_contacts WHERE submitter_number = $1 AND contact_name = $2
		`, submitter, name); err != nil {
			return 0, fmt.Errorf("purge deferred contacts: %w", err)
		}
	}

	var remaining int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM deferred_contacts WHERE submitter_number = $1
	`, submitter).Scan(&remaining); err != nil {
		return 0, fmt.Errorf("count remaining deferred: %w", err)
	}
	if remaining == 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM pending_actions WHERE submitter_number = $1
		`, submitter); err != nil {
			return 0, fmt.Errorf("clear pending action: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return remaining, nil
}

// Clear drops the submitter's pending action; candidate rows cascade.
func (r *pendingRepo) Clear(ctx context.Context, submitter string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM pending_actions WHERE submitter_number = $1
	`, submitter)
	if err != nil {
		return fmt.Errorf("clear pending action: %w", err)
	}
	return nil
}

// DeleteExpired sweeps pending actions older than the cutoff. Advisory
// cleanup only: confirm does not re-check expiry, so a confirm that lands
// between expiry and the sweep still resolves.
func (r *pendingRepo) DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM pending_actions WHERE created_at < $1
	`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("delete expired actions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
