package assist

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/textfolk/server/internal/command"
	"github.com/textfolk/server/internal/model"
)

// handleGroup unions the contact matches of every comma-separated fragment,
// stores them under a group pending action, and replies with the numbered
// shortlist.
func (s *Service) handleGroup(ctx context.Context, from string, rest []string) (string, error) {
	raw := strings.TrimSpace(strings.Join(rest, " "))
	if raw == "" {
		return command.WordGroup.Hint(), nil
	}

	var fragments []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			fragments = append(fragments, part)
		}
	}

	var matches []model.Contact
	for _, fragment := range fragments {
		found, err := s.contacts.SearchByName(ctx, from, fragment)
		if err != nil {
			return "", err
		}
		matches = append(matches, found...)
	}
	matches = dedupContacts(matches)
	if len(matches) == 0 {
		return fmt.Sprintf("No contacts matching %q were found.", raw), nil
	}

	contactIDs := make([]uuid.UUID, len(matches))
	for i, c := range matches {
		contactIDs[i] = c.ID
	}
	if err := s.pending.StartGroup(ctx, from, contactIDs); err != nil {
		return "", err
	}

	// The shortlist must be rendered from the same ordered query the
	// resolver re-runs, or an index could name one contact and resolve
	// to another under a differing collation.
	candidates, err := s.pending.GroupCandidates(ctx, from)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("You asked to create a group. Matching contacts:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s.describeContact(c))
	}
	fmt.Fprintf(&b, "%s", command.WordConfirm.Hint())
	return b.String(), nil
}

// dedupContacts removes duplicate matches across fragments: sort by id,
// drop adjacent duplicates, then re-sort by name. Id ordering is stable,
// which keeps the result deterministic.
func dedupContacts(contacts []model.Contact) []model.Contact {
	sort.Slice(contacts, func(i, j int) bool {
		return contacts[i].ID.String() < contacts[j].ID.String()
	})
	deduped := make([]model.Contact, 0, len(contacts))
	for i, c := range contacts {
		if i == 0 || c.ID != contacts[i-1].ID {
			deduped = append(deduped, c)
		}
	}
	sort.Slice(deduped, func(i, j int) bool {
		return deduped[i].ContactName < deduped[j].ContactName
	})
	return deduped
}

// createGroup names and creates a group from resolved contacts, clearing the
// pending action in the same transaction. invalid carries any selection
// tokens the resolver rejected, reported alongside the success.
func (s *Service) createGroup(ctx context.Context, creator string, members []model.Contact, invalid []string) (string, error) {
	name, err := s.groups.NextGroupName(ctx, creator)
	if err != nil {
		return "", err
	}

	numbers := make([]string, 0, len(members))
	for _, m := range members {
		numbers = append(numbers, m.ContactUserNumber)
	}
	group, err := s.groups.CreateWithMembers(ctx, creator, name, numbers)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Created group %q with members:\n", group.Name)
	for _, m := range members {
		fmt.Fprintf(&b, "- %s\n", s.describeContact(m))
	}
	if len(invalid) > 0 {
		fmt.Fprintf(&b, "Invalid selection(s): %s.\n", strings.Join(invalid, ", "))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
