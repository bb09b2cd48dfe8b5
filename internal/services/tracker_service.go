package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"atlas/internal/core"
)

// NotificationStore persists reminder acknowledgements.
type NotificationStore interface {
	MarkRead(ctx context.Context, userID, transactionID int64) error
	MarkAllRead(ctx context.Context, userID int64, from, to core.Date) (int64, error)
	ListUpcoming(ctx context.Context, userID int64, from, to core.Date) ([]core.Reminder, error)
}

// TrackerService records which upcoming-due reminders a user has seen.
type TrackerService struct {
	store NotificationStore
	clock Clock
}

func NewTrackerService(store NotificationStore, clock Clock) *TrackerService {
	return &TrackerService{store: store, clock: clock}
}

// MarkRead acknowledges one reminder. Repeating it is a no-op.
func (s *TrackerService) MarkRead(ctx context.Context, userID, transactionID int64) error {
	if transactionID <= 0 {
		return core.Invalid("transaction_id", "transaction_id is required")
	}
	if err := s.store.MarkRead(ctx, userID, transactionID); err != nil {
		return fmt.Errorf("mark transaction %d read: %w", transactionID, err)
	}
	return nil
}

// MarkAllRead acknowledges every unread, non auto-debit expense due in the
// lookahead window and returns how many were newly acknowledged.
func (s *TrackerService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	from, to := ReminderWindow(s.clock.Today())
	n, err := s.store.MarkAllRead(ctx, userID, from, to)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}

	slog.DebugContext(ctx, "Reminders acknowledged",
		"user_id", userID,
		"from", from.String(),
		"to", to.String(),
		"count", n)
	return n, nil
}

// Upcoming lists the reminders of the current window with their read flag.
func (s *TrackerService) Upcoming(ctx context.Context, userID int64) ([]core.Reminder, error) {
	from, to := ReminderWindow(s.clock.Today())
	reminders, err := s.store.ListUpcoming(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list upcoming: %w", err)
	}
	return reminders, nil
}

// ReminderWindow is [today, today+LookaheadDays], inclusive on both ends.
func ReminderWindow(today core.Date) (core.Date, core.Date) {
	return today, today.AddDays(core.LookaheadDays)
}

// Clock tells the services what day it is in the user's time zone.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// NewClock reads wall time in loc. A nil loc means UTC.
func NewClock(loc *time.Location) Clock {
	return Clock{Now: time.Now, Location: loc}
}

// FixedClock always reports t; tests and one-off jobs use it.
func FixedClock(t time.Time) Clock {
	return Clock{Now: func() time.Time { return t }, Location: t.Location()}
}

func (c Clock) Today() core.Date {
	return c.dateOf(c.now())
}

func (c Clock) dateOf(t time.Time) core.Date {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return core.DateOf(t.In(loc))
}

func (c Clock) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
