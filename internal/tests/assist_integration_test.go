package tests

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textfolk/server/internal/assist"
	"github.com/textfolk/server/internal/db"
	"github.com/textfolk/server/internal/repo"

	_ "github.com/lib/pq"
)

const (
	numberA     = "+15550001111"
	numberB     = "+15550002222"
	johnNumber  = "+15125550123"
	aliceNumber = "+12065550100"
)

type fixture struct {
	t        *testing.T
	db       *sql.DB
	svc      *assist.Service
	users    repo.UserRepo
	contacts repo.ContactRepo
	groups   repo.GroupRepo
	pending  repo.PendingRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	ctx := context.Background()
	database, err := db.Open(ctx, os.Getenv("DATABASE_URL"))
	require.NoError(t, err, "database open must succeed; check DATABASE_URL and that the test DB exists")
	t.Cleanup(func() { database.Close() })

	require.NoError(t, RunMigrations(database))
	require.NoError(t, TruncateAll(ctx, database))

	users := repo.NewUserRepo(database)
	contacts := repo.NewContactRepo(database)
	groups := repo.NewGroupRepo(database)
	pending := repo.NewPendingRepo(database)
	svc := assist.NewService(users, contacts, groups, pending, "US")

	return &fixture{t: t, db: database, svc: svc, users: users, contacts: contacts, groups: groups, pending: pending}
}

func (f *fixture) send(number, body string) string {
	f.t.Helper()
	reply, err := f.svc.Process(context.Background(), number, body)
	require.NoError(f.t, err)
	return reply
}

func (f *fixture) register(number, name string) {
	f.t.Helper()
	reply := f.send(number, "name "+name)
	require.Contains(f.t, reply, "Hello, "+name+"!")
}

func (f *fixture) addContact(submitter, name, contactNumber string) {
	f.t.Helper()
	_, err := f.contacts.Insert(context.Background(), submitter, name, contactNumber)
	require.NoError(f.t, err)
}

func (f *fixture) count(query string, args ...any) int {
	f.t.Helper()
	var n int
	require.NoError(f.t, f.db.QueryRow(query, args...).Scan(&n))
	return n
}

func (f *fixture) pendingCount(number string) int {
	return f.count("SELECT COUNT(*) FROM pending_actions WHERE submitter_number = $1", number)
}

func TestOnboardingFlow(t *testing.T) {
	f := newFixture(t)

	reply := f.send(numberA, "hi")
	assert.Contains(t, reply, "To participate:")
	assert.Equal(t, 0, f.count("SELECT COUNT(*) FROM users"))

	reply = f.send(numberA, "name")
	assert.Equal(t, `Reply "name X", where X is your name`, reply)
	assert.Equal(t, 0, f.count("SELECT COUNT(*) FROM users"))

	reply = f.send(numberA, "name "+strings.Repeat("x", 21))
	assert.Contains(t, reply, "That name is 21 characters long.")
	assert.Equal(t, 0, f.count("SELECT COUNT(*) FROM users"))

	reply = f.send(numberA, "name Sam C.")
	assert.Contains(t, reply, "Hello, Sam C.!")

	reply = f.send(numberA, "h")
	assert.Contains(t, reply, "Available commands:")
	assert.Contains(t, reply, "- group")

	reply = f.send(numberA, "info name")
	assert.Contains(t, reply, "to set your preferred name.")

	reply = f.send(numberA, "info bogus")
	assert.Equal(t, `Command "bogus" not recognized`, reply)

	reply = f.send(numberA, "yo")
	assert.Contains(t, reply, `We didn't recognize that command word: "yo".`)

	reply = f.send(numberA, "stop")
	assert.Equal(t, "You've been unsubscribed. Goodbye!", reply)
	assert.Equal(t, 0, f.count("SELECT COUNT(*) FROM users"))

	reply = f.send(numberA, "yo")
	assert.Contains(t, reply, "To participate:")
}

func TestNameUpdate(t *testing.T) {
	f := newFixture(t)
	f.register(numberA, "Sam C.")

	reply := f.send(numberA, "name Sam Carey")
	assert.Equal(t, `Your name has been updated to "Sam Carey"`, reply)

	// Rejected names leave the row unchanged.
	f.send(numberA, "name "+strings.Repeat("y", 30))
	user, err := f.users.GetByNumber(context.Background(), numberA)
	require.NoError(t, err)
	assert.Equal(t, "Sam Carey", user.Name)
}

func TestGroupWorkflow(t *testing.T) {
	f := newFixture(t)
	f.register(numberA, "A")
	f.addContact(numberA, "John Smith", johnNumber)
	f.addContact(numberA, "Alice Jones", aliceNumber)

	reply := f.send(numberA, "group John, Alice")
	assert.Contains(t, reply, "1. Alice Jones (206)")
	assert.Contains(t, reply, "2. John Smith (512)")
	assert.Equal(t, 1, f.pendingCount(numberA))

	reply = f.send(numberA, "confirm 1, 2")
	assert.Contains(t, reply, `Created group "group0" with members:`)
	assert.Contains(t, reply, "- Alice Jones (206)")
	assert.Contains(t, reply, "- John Smith (512)")

	assert.Equal(t, 0, f.pendingCount(numberA))
	assert.Equal(t, 1, f.count("SELECT COUNT(*) FROM groups WHERE creator_number = $1 AND name = 'group0'", numberA))
	assert.Equal(t, 2, f.count("SELECT COUNT(*) FROM group_members"))

	// Next group gets the next free auto-number.
	f.send(numberA, "group Alice")
	reply = f.send(numberA, "confirm 1")
	assert.Contains(t, reply, `Created group "group1"`)
}

func TestGroupFuzzyMatchDedup(t *testing.T) {
	f := newFixture(t)
	f.register(numberA, "A")
	f.addContact(numberA, "John Smith", johnNumber)

	// Both fragments match the same contact; it must be listed once.
	reply := f.send(numberA, "group John, Smith")
	assert.Contains(t, reply, "1. John Smith (512)")
	assert.NotContains(t, reply, "2.")
}

func TestGroupConfirmInvalidSelections(t *testing.T) {
	f := newFixture(t)
	f.register(numberA, "A")
	f.addContact(numberA, "John Smith", johnNumber)
	f.send(numberA, "group John")

	// All-invalid selections leave the workflow open.
	reply := f.send(numberA, "confirm 9, x")
	assert.Contains(t, reply, "Invalid selection(s): 9, x.")
	assert.Equal(t, 1, f.pendingCount(numberA))

	// A mixed confirm creates the group and reports the bad token.
	reply = f.send(numberA, "confirm 1, 5")
	assert.Contains(t, reply, `Created group "group0"`)
	assert.Contains(t, reply, "Invalid selection(s): 5.")
	assert.Equal(t, 0, f.pendingCount(numberA))
}

func TestGroupPromptOrderMatchesResolution(t *testing.T) {
	f := newFixture(t)
	f.register(numberA, "A")
	f.addContact(numberA, "alice jones", aliceNumber)
	f.addContact(numberA, "John Smith", johnNumber)

	// A lowercase and an uppercase name sort differently depending on the
	// database collation; whatever the prompt shows at position 1 is what
	// "confirm 1" must resolve to.
	reply := f.send(numberA, "group jones, smith")
	first, firstNumber := "alice jones (206)", aliceNumber
	if strings.Contains(reply, "1. John Smith (512)") {
		first, firstNumber = "John Smith (512)", johnNumber
	} else {
		require.Contains(t, reply, "1. alice jones (206)")
	}

	reply = f.send(numberA, "confirm 1")
	assert.Contains(t, reply, "- "+first)
	assert.Equal(t, 1, f.count("SELECT COUNT(*) FROM group_members"))
	assert.Equal(t, 1, f.count("SELECT COUNT(*) FROM group_members WHERE member_number = $1", firstNumber))
}

func TestDeleteConfirmRepeatedIndex(t *testing.T) {
	f := newFixture(t)
	f.register(numberA, "A")
	f.addContact(numberA, "John Smith", johnNumber)
	f.send(numberA, "delete John")

	// Repeating an index must not repeat the deletion report.
	reply := f.send(numberA, "confirm 1, 1")
	assert.Equal(t, 1, strings.Count(reply, "Deleted contact John Smith (512)."))
	assert.Equal(t, 0, f.count("SELECT COUNT(*) FROM contacts"))
	assert.Equal(t, 0, f.pendingCount(numberA))
}

func TestDeleteCombinedIndexing(t *testing.T) {
	f := newFixture(t)
	f.register(numberA, "A")
	f.addContact(numberA, "John Smith", johnNumber)
	f.addContact(numberA, "Alice Jones", aliceNumber)
	f.send(numberA, "group John, Alice")
	f.send(numberA, "confirm 1, 2")

	// "o" matches the group name and John Smith: combined numbering is
	// groups first, then contacts.
	reply := f.send(numberA, "delete o")
	assert.Contains(t, reply, "1. group group0 (2 members)")
	assert.Contains(t, reply, "2. contact Alice Jones (206)")
	assert.Contains(t, reply, "3. contact John Smith (512)")

	reply = f.send(numberA, "confirm 1")
	assert.Contains(t, reply, "Deleted group group0 (2 members).")
	assert.NotContains(t, reply, "Deleted contact")

	assert.Equal(t, 0, f.pendingCount(numberA))
	assert.Equal(t, 0, f.count("SELECT COUNT(*) FROM groups"))
	assert.Equal(t, 0, f.count("SELECT COUNT(*) FROM group_members"), "members cascade with their group")
	assert.Equal(t, 2, f.count("SELECT COUNT(*) FROM contacts"), "contacts survive a group-only confirm")
}

func TestDeleteContactByIndex(t *testing.T) {
	f := newFixture(t)
	f.register(numberA, "A")
	f.addContact(numberA, "John Smith", johnNumber)

	reply := f.send(numberA, "delete John")
	assert.Contains(t, reply, "1. contact John Smith (512)")

	reply = f.send(numberA, "confirm 1, 7")
	assert.Contains(t, reply, "Deleted contact John Smith (512).")
	assert.Contains(t, reply, "Invalid selection(s): 7.")
	assert.Equal(t, 0, f.count("SELECT COUNT(*) FROM contacts"))
	assert.Equal(t, 0, f.pendingCount(numberA))
}

func TestContactsListing(t *testing.T) {
	f := newFixture(t)
	f.register(numberA, "A")

	reply := f.send(numberA, "contacts")
	assert.Equal(t, "You don't have any groups or contacts yet.", reply)

	f.addContact(numberA, "John Smith", johnNumber)
	f.send(numberA, "group John")
	f.send(numberA, "confirm 1")

	reply = f.send(numberA, "contacts")
	assert.Contains(t, reply, "Your groups:\n- group0 (1 member)")
	assert.Contains(t, reply, "Your contacts:\n- John Smith (512)")
}

func TestDeleteNoMatches(t *testing.T) {
	f := newFixture(t)
	f.register(numberA, "A")

	reply := f.send(numberA, "delete nobody")
	assert.Equal(t, `No groups or contacts matching "nobody" were found.`, reply)
	assert.Equal(t, 0, f.pendingCount(numberA))
}

func TestConfirmWithNothingPending(t *testing.T) {
	f := newFixture(t)
	f.register(numberA, "A")

	for i := 0; i < 2; i++ {
		reply := f.send(numberA, "confirm 1")
		assert.Equal(t, "You have nothing to confirm.", reply)
	}
	assert.Equal(t, 0, f.pendingCount(numberA))
}

func TestNewWorkflowReplacesOld(t *testing.T) {
	f := newFixture(t)
	f.register(numberA, "A")
	f.addContact(numberA, "John Smith", johnNumber)

	f.send(numberA, "delete John")
	assert.Equal(t, 1, f.count("SELECT COUNT(*) FROM pending_deletions"))

	// Starting a group workflow silently discards the deletion one,
	// including its candidate rows.
	f.send(numberA, "group John")
	assert.Equal(t, 1, f.pendingCount(numberA))
	assert.Equal(t, 0, f.count("SELECT COUNT(*) FROM pending_deletions"))
	assert.Equal(t, 1, f.count("SELECT COUNT(*) FROM pending_group_members"))

	var kind string
	require.NoError(t, f.db.QueryRow("SELECT action_type FROM pending_actions WHERE submitter_number = $1", numberA).Scan(&kind))
	assert.Equal(t, "group", kind)
}

func TestWorkflowsAreIndependentAcrossSubmitters(t *testing.T) {
	f := newFixture(t)
	f.register(numberA, "A")
	f.register(numberB, "B")
	f.addContact(numberA, "John Smith", johnNumber)
	f.addContact(numberB, "John Smith", johnNumber)

	f.send(numberA, "delete John")
	f.send(numberB, "group John")

	assert.Equal(t, 1, f.pendingCount(numberA))
	assert.Equal(t, 1, f.pendingCount(numberB))

	f.send(numberA, "confirm 1")
	assert.Equal(t, 0, f.pendingCount(numberA))
	assert.Equal(t, 1, f.pendingCount(numberB), "one submitter's confirm must not touch another's workflow")
}
