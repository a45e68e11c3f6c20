// Package vcard extracts the contact details this service cares about from
// vCard attachments: a display name and the telephone numbers with their
// optional type labels.
package vcard

import (
	"errors"
	"fmt"
	"io"
	"strings"

	govcard "github.com/emersion/go-vcard"
)

// Phone is one telephone entry of a record. Label carries the vCard TYPE
// parameter ("cell", "home", ...) when present.
type Phone struct {
	Number string
	Label  string
}

// Record is one parsed vCard entry.
type Record struct {
	Name   string
	Phones []Phone
}

// Parse decodes every vCard record in r. Records without a usable display
// name are dropped; telephone order within a record is preserved.
func Parse(r io.Reader) ([]Record, error) {
	dec := govcard.NewDecoder(r)
	var records []Record
	for {
		card, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode vcard: %w", err)
		}

		name := strings.TrimSpace(card.PreferredValue(govcard.FieldFormattedName))
		if name == "" {
			if n := card.Name(); n != nil {
				name = strings.TrimSpace(strings.TrimSpace(n.GivenName) + " " + strings.TrimSpace(n.FamilyName))
			}
		}
		if name == "" {
			continue
		}

		record := Record{Name: name}
		for _, field := range card[govcard.FieldTelephone] {
			number := strings.TrimSpace(field.Value)
			if number == "" {
				continue
			}
			record.Phones = append(record.Phones, Phone{
				Number: number,
				Label:  field.Params.Get(govcard.ParamType),
			})
		}
		records = append(records, record)
	}
	return records, nil
}
