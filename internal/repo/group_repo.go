package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/textfolk/server/internal/model"
)

// GroupRepo defines the interface for group repository operations
type GroupRepo interface {
	ListByCreator(ctx context.Context, creator string) ([]model.Group, error)
	SearchByName(ctx context.Context, creator, fragment string) ([]model.Group, error)
	NextGroupName(ctx context.Context, creator string) (string, error)
	CreateWithMembers(ctx context.Context, creator, name string, memberNumbers []string) (model.Group, error)
	Members(ctx context.Context, groupID string) ([]string, error)
}

type groupRepo struct {
	db *sql.DB
}

// NewGroupRepo creates a new GroupRepo instance
func NewGroupRepo(db *sql.DB) GroupRepo {
	return &groupRepo{db: db}
}

const groupWithCountQuery = `
	SELECT g.id, g.creator_number, g.name, COUNT(m.group_id), g.created_at
	FROM groups g
	LEFT JOIN group_members m ON m.group_id = g.id
	WHERE g.creator_number = $1%s
	GROUP BY g.id, g.creator_number, g.name, g.created_at
	ORDER BY g.name, g.id
`

func scanGroups(rows *sql.Rows) ([]model.Group, error) {
	defer rows.Close()
	var groups []model.Group
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.ID, &g.CreatorNumber, &g.Name, &g.MemberCount, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return groups, nil
}

// ListByCreator returns the user's groups with member counts, in name order.
func (r *groupRepo) ListByCreator(ctx context.Context, creator string) ([]model.Group, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(groupWithCountQuery, ""), creator)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return scanGroups(rows)
}

// SearchByName returns the user's groups whose name contains the fragment,
// case-insensitively, in name order.
func (r *groupRepo) SearchByName(ctx context.Context, creator, fragment string) ([]model.Group, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(groupWithCountQuery, " AND g.name ILIKE $2"), creator, likePattern(fragment))
	if err != nil {
		return nil, fmt.Errorf("search groups: %w", err)
	}
	return scanGroups(rows)
}

// NextGroupName returns the first "group<N>" name, N counting up from 0,
// not already used by the creator. The check and the later insert are not
// atomic; per-submitter serialization through the pending-action slot keeps
// that safe.
func (r *groupRepo) NextGroupName(ctx context.Context, creator string) (string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name FROM groups WHERE creator_number = $1
	`, creator)
	if err != nil {
		return "", fmt.Errorf("query group names: %w", err)
	}
	defer rows.Close()

	used := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", fmt.Errorf("scan group name: %w", err)
		}
		used[name] = true
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate group names: %w", err)
	}

	for n := 0; ; n++ {
		candidate := fmt.Sprintf("group%d", n)
		if !used[candidate] {
			return candidate, nil
		}
	}
}

// CreateWithMembers inserts the group, one member row per number, and clears
// the creator's pending action, all in one transaction.
func (r *groupRepo) CreateWithMembers(ctx context.Context, creator, name string, memberNumbers []string) (model.Group, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Group{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var g model.Group
	err = tx.QueryRowContext(ctx, `
		INSERT INTO groups (creator_number, name)
		VALUES ($1, $2)
		RETURNING id, creator_number, name, created_at
	`, creator, name).Scan(&g.ID, &g.CreatorNumber, &g.Name, &g.CreatedAt)
	if err != nil {
		return model.Group{}, fmt.Errorf("insert group: %w", err)
	}

	for _, number := range memberNumbers {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO group_members (group_id, member_number)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, g.ID, number)
		if err != nil {
			return model.Group{}, fmt.Errorf("insert group member: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM pending_actions WHERE submitter_number = $1
	`, creator)
	if err != nil {
		return model.Group{}, fmt.Errorf("clear pending action: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM group_members WHERE group_id = $1
	`, g.ID).Scan(&g.MemberCount)
	if err != nil {
		return model.Group{}, fmt.Errorf("count members: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Group{}, fmt.Errorf("commit: %w", err)
	}
	return g, nil
}

// Members returns the member numbers of a group.
func (r *groupRepo) Members(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT member_number FROM group_members WHERE group_id = $1 ORDER BY member_number
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		numbers = append(numbers, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return numbers, nil
}
