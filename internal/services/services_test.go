package services

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"atlas/internal/amqp"
	"atlas/internal/core"
	"atlas/internal/storage"
)

var testNow = time.Date(2024, 2, 24, 9, 30, 0, 0, time.UTC)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "atlas.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	repo.SetClock(func() time.Time { return testNow })
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestUser(t *testing.T, repo *storage.SQLiteRepository, n int) core.User {
	t.Helper()
	suffix := strconv.Itoa(n)
	u, err := repo.CreateUser(context.Background(), core.User{
		Phone:        "2198888000" + suffix,
		Email:        "member" + suffix + "@example.com",
		Name:         "Member " + suffix,
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func expenseInput(name, amount string, date core.Date) core.TransactionInput {
	return core.TransactionInput{
		Type:   core.Expense,
		Amount: core.MustMoney(amount),
		Name:   name,
		Date:   date,
	}
}

func ptr[T any](v T) *T { return &v }

// fakePublisher records ledger events and reminders.
type fakePublisher struct {
	mu        sync.Mutex
	events    []amqp.LedgerEvent
	reminders []amqp.ReminderMessage
	err       error
}

func (p *fakePublisher) PublishLedgerEvent(_ context.Context, e amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) PublishReminder(_ context.Context, m amqp.ReminderMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.reminders = append(p.reminders, m)
	return nil
}

func (p *fakePublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

func assertErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want %v", err, target)
	}
}
