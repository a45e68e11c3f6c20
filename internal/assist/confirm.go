package assist

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/textfolk/server/internal/command"
	"github.com/textfolk/server/internal/model"
	"github.com/textfolk/server/internal/repo"
)

// handleConfirm resolves the selection string against whatever pending
// action is on file, using the addressing scheme of that action's kind.
func (s *Service) handleConfirm(ctx context.Context, from string, rest []string) (string, error) {
	action, err := s.pending.Get(ctx, from)
	if errors.Is(err, repo.ErrNotFound) {
		return "You have nothing to confirm.", nil
	}
	if err != nil {
		return "", err
	}

	selection := strings.Join(rest, " ")
	if strings.TrimSpace(selection) == "" {
		return command.WordConfirm.Hint(), nil
	}

	switch action.Kind {
	case model.ActionDeletion:
		return s.resolveDeletion(ctx, from, selection)
	case model.ActionGroup:
		return s.resolveGroup(ctx, from, selection)
	case model.ActionDeferredContacts:
		return s.resolveDeferred(ctx, from, selection)
	}
	return "", fmt.Errorf("unknown pending action kind %q", action.Kind)
}

// splitSelections breaks a comma-separated selection string into trimmed,
// non-empty tokens.
func splitSelections(selection string) []string {
	var tokens []string
	for _, part := range strings.Split(selection, ",") {
		if part = strings.TrimSpace(part); part != "" {
			tokens = append(tokens, part)
		}
	}
	return tokens
}

// resolveDeletion interprets 1-based indexes against the combined
// groups-then-contacts candidate list, re-derived from the stored rows with
// the same ordering the original prompt used.
func (s *Service) resolveDeletion(ctx context.Context, from, selection string) (string, error) {
	groups, contacts, err := s.pending.DeletionCandidates(ctx, from)
	if err != nil {
		return "", err
	}

	var delGroups []model.Group
	var delContacts []model.Contact
	var invalid []string
	seen := make(map[uuid.UUID]bool)
	for _, token := range splitSelections(selection) {
		n, err := strconv.Atoi(token)
		if err != nil || n < 1 || n > len(groups)+len(contacts) {
			invalid = append(invalid, token)
			continue
		}
		if n <= len(groups) {
			g := groups[n-1]
			if !seen[g.ID] {
				seen[g.ID] = true
				delGroups = append(delGroups, g)
			}
		} else {
			c := contacts[n-1-len(groups)]
			if !seen[c.ID] {
				seen[c.ID] = true
				delContacts = append(delContacts, c)
			}
		}
	}

	if len(delGroups) == 0 && len(delContacts) == 0 {
		return fmt.Sprintf("Invalid selection(s): %s.\nNothing was deleted; the list is still waiting.", strings.Join(invalid, ", ")), nil
	}

	groupIDs := make([]uuid.UUID, len(delGroups))
	for i, g := range delGroups {
		groupIDs[i] = g.ID
	}
	contactIDs := make([]uuid.UUID, len(delContacts))
	for i, c := range delContacts {
		contactIDs[i] = c.ID
	}
	if err := s.pending.ResolveDeletion(ctx, from, groupIDs, contactIDs); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, g := range delGroups {
		fmt.Fprintf(&b, "Deleted group %s.\n", s.describeGroup(g))
	}
	for _, c := range delContacts {
		fmt.Fprintf(&b, "Deleted contact %s.\n", s.describeContact(c))
	}
	if len(invalid) > 0 {
		fmt.Fprintf(&b, "Invalid selection(s): %s.\n", strings.Join(invalid, ", "))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// resolveGroup interprets 1-based indexes against the stored contact
// shortlist and hands the valid ones to group creation.
func (s *Service) resolveGroup(ctx context.Context, from, selection string) (string, error) {
	candidates, err := s.pending.GroupCandidates(ctx, from)
	if err != nil {
		return "", err
	}

	var members []model.Contact
	var invalid []string
	seen := make(map[uuid.UUID]bool)
	for _, token := range splitSelections(selection) {
		n, err := strconv.Atoi(token)
		if err != nil || n < 1 || n > len(candidates) {
			invalid = append(invalid, token)
			continue
		}
		c := candidates[n-1]
		if !seen[c.ID] {
			seen[c.ID] = true
			members = append(members, c)
		}
	}

	if len(members) == 0 {
		return fmt.Sprintf("Invalid selection(s): %s.\nNo group was created; the list is still waiting.", strings.Join(invalid, ", ")), nil
	}
	return s.createGroup(ctx, from, members, invalid)
}

// deferredTokenRE matches "<digits><single lowercase letter>", e.g. "2b".
var deferredTokenRE = regexp.MustCompile(`^([0-9]+)([a-z])$`)

// parseDeferredToken splits a deferred selection token into its 1-based
// contact index and 0-based letter index ("a" = 0). ok is false when the
// token doesn't have the digits-then-letter shape.
func parseDeferredToken(token string) (contactIdx, letterIdx int, ok bool) {
	m := deferredTokenRE.FindStringSubmatch(token)
	if m == nil {
		return 0, 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	return n, int(m[2][0] - 'a'), true
}

// resolveDeferred interprets tokens like "2b": the digits pick a deferred
// contact name (1-based, alphabetical), the letter picks one of its numbers
// (insertion order). Resolved names are purged; the pending action is
// cleared only once no deferred rows remain, so partial confirms leave the
// workflow open for the rest.
func (s *Service) resolveDeferred(ctx context.Context, from, selection string) (string, error) {
	names, err := s.pending.DeferredNames(ctx, from)
	if err != nil {
		return "", err
	}

	var resolved []model.Contact
	var resolvedNames []string
	var problems []string
	chosen := make(map[string]bool)
	for _, token := range splitSelections(selection) {
		contactIdx, letterIdx, ok := parseDeferredToken(token)
		if !ok {
			problems = append(problems, fmt.Sprintf("%q is not a valid selection; reply with a number and a letter, like \"2b\".", token))
			continue
		}
		if contactIdx < 1 || contactIdx > len(names) {
			problems = append(problems, fmt.Sprintf("There is no contact number %d.", contactIdx))
			continue
		}
		name := names[contactIdx-1]
		if chosen[name] {
			problems = append(problems, fmt.Sprintf("Contact %d was already chosen.", contactIdx))
			continue
		}
		numbers, err := s.pending.DeferredNumbersForName(ctx, from, name)
		if err != nil {
			return "", err
		}
		if letterIdx >= len(numbers) {
			problems = append(problems, fmt.Sprintf("Contact %d doesn't have a number %q.", contactIdx, string(rune('a'+letterIdx))))
			continue
		}
		chosen[name] = true
		resolved = append(resolved, model.Contact{
			SubmitterNumber:   from,
			ContactName:       name,
			ContactUserNumber: numbers[letterIdx].PhoneNumber,
		})
		resolvedNames = append(resolvedNames, name)
	}

	remaining := len(names) - len(resolvedNames)
	if len(resolvedNames) > 0 {
		remaining, err = s.pending.ResolveDeferred(ctx, from, resolved, resolvedNames)
		if err != nil {
			return "", err
		}
	}

	var b strings.Builder
	for _, c := range resolved {
		fmt.Fprintf(&b, "Saved %s (%s).\n", c.ContactName, c.ContactUserNumber)
	}
	for _, p := range problems {
		b.WriteString(p)
		b.WriteString("\n")
	}
	if remaining > 0 {
		fmt.Fprintf(&b, "Some contacts still need a number chosen. %s", command.WordConfirm.Hint())
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
