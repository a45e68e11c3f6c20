// Package assist implements the conversational core: command dispatch,
// onboarding, the pending-action workflows and their confirmation resolver.
package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/textfolk/server/internal/command"
	"github.com/textfolk/server/internal/model"
	"github.com/textfolk/server/internal/phone"
	"github.com/textfolk/server/internal/repo"
)

// Service processes inbound messages to terminal reply strings. User input
// problems become reply text; only store faults surface as errors.
type Service struct {
	users    repo.UserRepo
	contacts repo.ContactRepo
	groups   repo.GroupRepo
	pending  repo.PendingRepo
	region   string
}

// NewService creates a new assist Service instance.
func NewService(users repo.UserRepo, contacts repo.ContactRepo, groups repo.GroupRepo, pending repo.PendingRepo, region string) *Service {
	return &Service{users: users, contacts: contacts, groups: groups, pending: pending, region: region}
}

// Process handles one inbound text from a sender and returns the reply body.
func (s *Service) Process(ctx context.Context, from, body string) (string, error) {
	word, rest, ok, parseErr := command.Parse(body)

	_, err := s.users.GetByNumber(ctx, from)
	if errors.Is(err, repo.ErrNotFound) {
		return s.onboard(ctx, from, word, rest, ok, parseErr)
	}
	if err != nil {
		return "", err
	}

	if !ok {
		return command.WordH.Hint(), nil
	}
	var unrec *command.UnrecognizedError
	if errors.As(parseErr, &unrec) {
		return fmt.Sprintf("We didn't recognize that command word: %q.\n%s", unrec.Token, command.WordH.Hint()), nil
	}

	switch word {
	case command.WordH:
		return helpText(), nil
	case command.WordName:
		return s.handleName(ctx, from, rest)
	case command.WordInfo:
		return handleInfo(rest), nil
	case command.WordStop:
		if err := s.users.Delete(ctx, from); err != nil {
			return "", err
		}
		return "You've been unsubscribed. Goodbye!", nil
	case command.WordContacts:
		return s.handleContacts(ctx, from)
	case command.WordDelete:
		return s.handleDelete(ctx, from, rest)
	case command.WordConfirm:
		return s.handleConfirm(ctx, from, rest)
	case command.WordGroup:
		return s.handleGroup(ctx, from, rest)
	}
	return command.WordH.Hint(), nil
}

// onboard handles messages from unregistered senders. Only the name command
// registers; everything else gets the welcome banner without persisting
// anything.
func (s *Service) onboard(ctx context.Context, from string, word command.Word, rest []string, ok bool, parseErr error) (string, error) {
	if !ok || parseErr != nil || word != command.WordName {
		return onboardingBanner(), nil
	}
	name, problem := validateName(strings.Join(rest, " "))
	if problem != "" {
		return problem, nil
	}
	if err := s.users.Create(ctx, from, name); err != nil {
		return "", err
	}
	return fmt.Sprintf("Hello, %s! %s", name, command.WordH.Hint()), nil
}

func onboardingBanner() string {
	return fmt.Sprintf("Welcome to Textfolk, a contact and group assistant over SMS!\nTo participate:\n%s", command.WordName.Hint())
}

func helpText() string {
	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, w := range command.All() {
		fmt.Fprintf(&b, "- %s\n", w)
	}
	b.WriteString("\n")
	b.WriteString(command.WordInfo.Hint())
	return b.String()
}

// validateName trims and bounds-checks a display name. problem is the reply
// to send when the name is rejected.
func validateName(raw string) (name, problem string) {
	name = strings.TrimSpace(raw)
	if name == "" {
		return "", command.WordName.Usage()
	}
	if len(name) > model.MaxNameLen {
		return "", fmt.Sprintf("That name is %d characters long.\nPlease shorten it to %d characters or less.", len(name), model.MaxNameLen)
	}
	return name, ""
}

func (s *Service) handleName(ctx context.Context, from string, rest []string) (string, error) {
	name, problem := validateName(strings.Join(rest, " "))
	if problem != "" {
		return problem, nil
	}
	if err := s.users.UpdateName(ctx, from, name); err != nil {
		return "", err
	}
	return fmt.Sprintf("Your name has been updated to %q", name), nil
}

func handleInfo(rest []string) string {
	if len(rest) == 0 {
		return command.WordInfo.Hint()
	}
	word, _, _, err := command.Parse(rest[0])
	if err != nil {
		return fmt.Sprintf("Command %q not recognized", rest[0])
	}
	return word.Hint()
}

func (s *Service) handleContacts(ctx context.Context, from string) (string, error) {
	groups, err := s.groups.ListByCreator(ctx, from)
	if err != nil {
		return "", err
	}
	contacts, err := s.contacts.ListBySubmitter(ctx, from)
	if err != nil {
		return "", err
	}
	if len(groups) == 0 && len(contacts) == 0 {
		return "You don't have any groups or contacts yet.", nil
	}

	var b strings.Builder
	if len(groups) > 0 {
		b.WriteString("Your groups:\n")
		for _, g := range groups {
			fmt.Fprintf(&b, "- %s\n", s.describeGroup(g))
		}
	}
	if len(contacts) > 0 {
		b.WriteString("Your contacts:\n")
		for _, c := range contacts {
			fmt.Fprintf(&b, "- %s\n", s.describeContact(c))
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// describeContact renders "name (512)", using the area code to tell
// same-named contacts apart.
func (s *Service) describeContact(c model.Contact) string {
	if area := phone.AreaCode(c.ContactUserNumber, s.region); area != "" {
		return fmt.Sprintf("%s (%s)", c.ContactName, area)
	}
	return c.ContactName
}

func (s *Service) describeGroup(g model.Group) string {
	noun := "members"
	if g.MemberCount == 1 {
		noun = "member"
	}
	return fmt.Sprintf("%s (%d %s)", g.Name, g.MemberCount, noun)
}
