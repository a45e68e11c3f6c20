package model

import (
	"time"

	"github.com/google/uuid"
)

// MaxNameLen is the longest display name accepted for users and is the
// bound enforced by the name command.
const MaxNameLen = 20

// User is a registered sender, keyed by canonical E.164 number.
type User struct {
	Number    string
	Name      string
	CreatedAt time.Time
}

// Contact is an entry in a user's address book. ContactUserNumber need not
// belong to a registered user.
type Contact struct {
	ID                uuid.UUID
	SubmitterNumber   string
	ContactName       string
	ContactUserNumber string
	CreatedAt         time.Time
}

// Group is a named set of phone numbers owned by its creator.
type Group struct {
	ID            uuid.UUID
	CreatorNumber string
	Name          string
	MemberCount   int
	CreatedAt     time.Time
}

// GroupMember addresses membership by phone number, not contact id, so
// members need not be contacts of the creator.
type GroupMember struct {
	GroupID      uuid.UUID
	MemberNumber string
}

// ActionKind discriminates the pending-action workflows.
type ActionKind string

const (
	ActionDeletion         ActionKind = "deletion"
	ActionGroup            ActionKind = "group"
	ActionDeferredContacts ActionKind = "deferred_contacts"
)

// PendingAction is the single open workflow slot for a submitter. Setting a
// new one replaces (and cascades away) whatever was there before.
type PendingAction struct {
	SubmitterNumber string
	Kind            ActionKind
	CreatedAt       time.Time
}

// PendingDeletion is one deletion candidate: exactly one of GroupID and
// ContactID is set.
type PendingDeletion struct {
	SubmitterNumber string
	GroupID         *uuid.UUID
	ContactID       *uuid.UUID
}

// PendingGroupMember is one contact shortlisted for group creation.
type PendingGroupMember struct {
	SubmitterNumber string
	ContactID       uuid.UUID
}

// DeferredContact is one candidate number for a vCard contact that carried
// several. ID preserves insertion order, which fixes the letter addressing.
type DeferredContact struct {
	ID               int64
	SubmitterNumber  string
	ContactName      string
	PhoneNumber      string
	PhoneDescription *string
}
