package command

import (
	"fmt"
	"strings"
)

// Word is one of the fixed command words a user can text to the service.
// The vocabulary is closed; dispatch switches over it exhaustively.
type Word string

const (
	// WordH lists the available commands. Twilio intercepts "HELP" and
	// never relays it, so the short form is used instead.
	WordH        Word = "h"
	WordName     Word = "name"
	WordInfo     Word = "info"
	WordStop     Word = "stop"
	WordContacts Word = "contacts"
	WordDelete   Word = "delete"
	WordConfirm  Word = "confirm"
	WordGroup    Word = "group"
)

// All returns the vocabulary in display order.
func All() []Word {
	return []Word{WordH, WordName, WordInfo, WordStop, WordContacts, WordDelete, WordConfirm, WordGroup}
}

// UnrecognizedError reports a first token that is not a command word.
type UnrecognizedError struct {
	Token string
}

func (e *UnrecognizedError) Error() string {
	return fmt.Sprintf("unrecognized command word: %q", e.Token)
}

// Parse splits body on whitespace and matches the first token,
// case-insensitively, against the vocabulary. ok is false when the body
// contains no token at all; an *UnrecognizedError is returned when a token
// is present but matches no word. rest holds the remaining tokens.
func Parse(body string) (w Word, rest []string, ok bool, err error) {
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return "", nil, false, nil
	}
	token := strings.ToLower(fields[0])
	for _, candidate := range All() {
		if token == string(candidate) {
			return candidate, fields[1:], true, nil
		}
	}
	return "", fields[1:], true, &UnrecognizedError{Token: fields[0]}
}

// parameterDoc documents a command's argument for usage text.
type parameterDoc struct {
	example     string
	description string
}

// Description returns the human description shown in help text.
func (w Word) Description() string {
	switch w {
	case WordH:
		return "show a list of available commands"
	case WordInfo:
		return "see information about a command"
	case WordName:
		return "set your preferred name"
	case WordStop:
		return "stop receiving messages and remove yourself from the database"
	case WordContacts:
		return "see a list of your groups and contacts"
	case WordDelete:
		return "delete a group or contact by name"
	case WordConfirm:
		return "confirm pending action(s)"
	case WordGroup:
		return "create a new group from your contacts"
	}
	return ""
}

func (w Word) parameterDoc() *parameterDoc {
	switch w {
	case WordInfo:
		return &parameterDoc{example: string(WordName), description: "a command"}
	case WordName:
		return &parameterDoc{example: "John S.", description: "your name"}
	case WordDelete:
		return &parameterDoc{example: "John", description: "the name of a group or contact to delete"}
	case WordConfirm:
		return &parameterDoc{example: "2,3", description: "number(s) from a list of pending actions"}
	case WordGroup:
		return &parameterDoc{example: "John, Alice", description: "a comma-separated list of contact name fragments"}
	}
	return nil
}

// Usage renders the reply template for the word.
func (w Word) Usage() string {
	if doc := w.parameterDoc(); doc != nil {
		return fmt.Sprintf("Reply %q, where X is %s", string(w)+" X", doc.description)
	}
	return fmt.Sprintf("Reply %q", string(w))
}

// Example renders the example line, or "" when the word takes no parameter.
func (w Word) Example() string {
	doc := w.parameterDoc()
	if doc == nil {
		return ""
	}
	return fmt.Sprintf("\nExample: %q", string(w)+" "+doc.example)
}

// Hint combines usage, description and example into one help line.
func (w Word) Hint() string {
	return fmt.Sprintf("%s, to %s.%s", w.Usage(), w.Description(), w.Example())
}
