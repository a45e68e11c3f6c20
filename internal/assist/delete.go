package assist

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/textfolk/server/internal/command"
	"github.com/textfolk/server/internal/model"
)

// handleDelete fuzzy-matches the fragment against the sender's groups and
// contacts, stores the candidates under a deletion pending action, and
// replies with the combined numbered list the confirm indexes address.
func (s *Service) handleDelete(ctx context.Context, from string, rest []string) (string, error) {
	fragment := strings.TrimSpace(strings.Join(rest, " "))
	if fragment == "" {
		return command.WordDelete.Hint(), nil
	}

	groups, err := s.groups.SearchByName(ctx, from, fragment)
	if err != nil {
		return "", err
	}
	contacts, err := s.contacts.SearchByName(ctx, from, fragment)
	if err != nil {
		return "", err
	}
	if len(groups) == 0 && len(contacts) == 0 {
		return fmt.Sprintf("No groups or contacts matching %q were found.", fragment), nil
	}

	groupIDs := make([]uuid.UUID, len(groups))
	for i, g := range groups {
		groupIDs[i] = g.ID
	}
	contactIDs := make([]uuid.UUID, len(contacts))
	for i, c := range contacts {
		contactIDs[i] = c.ID
	}
	if err := s.pending.StartDeletion(ctx, from, groupIDs, contactIDs); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You asked to delete %q. Matches:\n", fragment)
	b.WriteString(combinedDeletionList(s, groups, contacts))
	fmt.Fprintf(&b, "%s", command.WordConfirm.Hint())
	return b.String(), nil
}

// combinedDeletionList numbers groups first, then contacts, contiguously
// from 1. The resolver reproduces this exact ordering from the stored
// candidate rows.
func combinedDeletionList(s *Service, groups []model.Group, contacts []model.Contact) string {
	var b strings.Builder
	index := 1
	for _, g := range groups {
		fmt.Fprintf(&b, "%d. group %s\n", index, s.describeGroup(g))
		index++
	}
	for _, c := range contacts {
		fmt.Fprintf(&b, "%d. contact %s\n", index, s.describeContact(c))
		index++
	}
	return b.String()
}
