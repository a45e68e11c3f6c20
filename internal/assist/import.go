package assist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/textfolk/server/internal/model"
	"github.com/textfolk/server/internal/phone"
	"github.com/textfolk/server/internal/repo"
	"github.com/textfolk/server/internal/vcard"
)

// ImportVCard processes a contact-card attachment. Single-number contacts
// resolve immediately (added, updated or unchanged against the existing
// entry of the same name); multi-number contacts become deferred rows under
// a deferred_contacts pending action awaiting a confirm. Repeated imports
// accumulate deferred contacts instead of replacing them.
func (s *Service) ImportVCard(ctx context.Context, from string, data []byte) (string, error) {
	if _, err := s.users.GetByNumber(ctx, from); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return onboardingBanner(), nil
		}
		return "", err
	}

	records, err := vcard.Parse(bytes.NewReader(data))
	if err != nil {
		log.Debug().Err(err).Msg("unreadable vcard attachment")
		return "We couldn't read that contact card.", nil
	}

	var added, updated, unchanged []string
	var deferredRows []model.DeferredContact
	deferredSeen := false
	for _, record := range records {
		numbers := s.normalizePhones(record.Phones)
		switch len(numbers) {
		case 0:
			continue
		case 1:
			outcome, err := s.importSingle(ctx, from, record.Name, numbers[0].Number)
			if err != nil {
				return "", err
			}
			switch outcome {
			case importAdded:
				added = append(added, record.Name)
			case importUpdated:
				updated = append(updated, record.Name)
			case importUnchanged:
				unchanged = append(unchanged, record.Name)
			}
		default:
			deferredSeen = true
			for _, p := range numbers {
				row := model.DeferredContact{
					SubmitterNumber: from,
					ContactName:     record.Name,
					PhoneNumber:     p.Number,
				}
				if p.Label != "" {
					label := p.Label
					row.PhoneDescription = &label
				}
				deferredRows = append(deferredRows, row)
			}
		}
	}

	if len(added)+len(updated)+len(unchanged) == 0 && !deferredSeen {
		return "No usable contacts were found in that card.", nil
	}

	if deferredSeen {
		if err := s.pending.AddDeferred(ctx, from, deferredRows); err != nil {
			return "", err
		}
	}

	var b strings.Builder
	for _, name := range added {
		fmt.Fprintf(&b, "Added %s.\n", name)
	}
	for _, name := range updated {
		fmt.Fprintf(&b, "Updated %s.\n", name)
	}
	for _, name := range unchanged {
		fmt.Fprintf(&b, "%s is unchanged.\n", name)
	}
	if deferredSeen {
		listing, err := s.deferredListing(ctx, from)
		if err != nil {
			return "", err
		}
		b.WriteString(listing)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// normalizePhones canonicalizes each number and drops the ones that don't
// parse, deduplicating repeats within the record.
func (s *Service) normalizePhones(phones []vcard.Phone) []vcard.Phone {
	var out []vcard.Phone
	seen := make(map[string]bool)
	for _, p := range phones {
		normalized, err := phone.Normalize(p.Number, s.region)
		if err != nil {
			log.Debug().Str("number", p.Number).Msg("dropping unparseable vcard number")
			continue
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, vcard.Phone{Number: normalized, Label: p.Label})
	}
	return out
}

type importOutcome int

const (
	importAdded importOutcome = iota
	importUpdated
	importUnchanged
)

// importSingle resolves an unambiguous record against the existing contact
// of the same name, if any.
func (s *Service) importSingle(ctx context.Context, from, name, number string) (importOutcome, error) {
	existing, err := s.contacts.FindBySubmitterAndName(ctx, from, name)
	if errors.Is(err, repo.ErrNotFound) {
		if _, err := s.contacts.Insert(ctx, from, name, number); err != nil {
			return 0, err
		}
		return importAdded, nil
	}
	if err != nil {
		return 0, err
	}
	if existing.ContactUserNumber == number {
		return importUnchanged, nil
	}
	if err := s.contacts.UpdateNumber(ctx, existing.ID, number); err != nil {
		return 0, err
	}
	return importUpdated, nil
}

// deferredListing renders the full addressing list for everything deferred
// so far: names numbered from 1 in alphabetical order, each name's numbers
// lettered from "a" in insertion order.
func (s *Service) deferredListing(ctx context.Context, from string) (string, error) {
	names, err := s.pending.DeferredNames(ctx, from)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("These contacts have more than one number. Pick one for each, e.g. \"confirm 1a\":\n")
	for i, name := range names {
		fmt.Fprintf(&b, "%d. %s\n", i+1, name)
		numbers, err := s.pending.DeferredNumbersForName(ctx, from, name)
		if err != nil {
			return "", err
		}
		for j, d := range numbers {
			if d.PhoneDescription != nil {
				fmt.Fprintf(&b, "  %c. %s (%s)\n", 'a'+rune(j), d.PhoneNumber, *d.PhoneDescription)
			} else {
				fmt.Fprintf(&b, "  %c. %s\n", 'a'+rune(j), d.PhoneNumber)
			}
		}
	}
	return b.String(), nil
}
