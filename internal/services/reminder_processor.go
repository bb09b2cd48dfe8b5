package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"atlas/internal/amqp"
	"atlas/internal/cache"
	"atlas/internal/core"
)

type ReminderStore interface {
	ListPendingReminders(ctx context.Context, from, to core.Date) ([]core.Transaction, error)
}

type ReminderPublisher interface {
	PublishReminder(ctx context.Context, m amqp.ReminderMessage) error
}

// ProcessResult counts what one reminder scan did.
type ProcessResult struct {
	Pending   int
	Published int
	Skipped   int
	Failed    int
}

// ReminderProcessor publishes a message for every unacknowledged upcoming
// expense of every user.
type ReminderProcessor struct {
	store     ReminderStore
	publisher ReminderPublisher
	sent      cache.Cache[time.Time]
	location  *time.Location
}

// NewReminderProcessor builds a processor. sent remembers published
// reminders for its TTL so repeated scans do not resend them.
func NewReminderProcessor(store ReminderStore, publisher ReminderPublisher, sent cache.Cache[time.Time], loc *time.Location) *ReminderProcessor {
	if loc == nil {
		loc = time.UTC
	}
	return &ReminderProcessor{
		store:     store,
		publisher: publisher,
		sent:      sent,
		location:  loc,
	}
}

// Process scans the lookahead window starting at now's calendar day.
func (p *ReminderProcessor) Process(ctx context.Context, now time.Time) (ProcessResult, error) {
	if p.store == nil || p.publisher == nil {
		return ProcessResult{}, fmt.Errorf("processor not properly initialized")
	}

	today := core.DateOf(now.In(p.location))
	from, to := ReminderWindow(today)

	pending, err := p.store.ListPendingReminders(ctx, from, to)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("list pending reminders: %w", err)
	}

	result := ProcessResult{Pending: len(pending)}
	for _, t := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		key := reminderKey(t)
		if p.sent != nil && !p.sent.SetIfAbsent(key, now) {
			result.Skipped++
			continue
		}

		if err := p.publisher.PublishReminder(ctx, amqp.NewReminderMessage(t, today)); err != nil {
			if p.sent != nil {
				p.sent.Delete(key)
			}
			result.Failed++
			slog.ErrorContext(ctx, "Failed to publish reminder",
				"user_id", t.UserID,
				"transaction_id", t.ID,
				"error", err)
			continue
		}
		result.Published++
	}

	slog.InfoContext(ctx, "Reminder scan completed",
		"from", from.String(),
		"to", to.String(),
		"pending", result.Pending,
		"published", result.Published,
		"skipped", result.Skipped,
		"failed", result.Failed)
	return result, nil
}

// reminderKey includes the date so moving a row's date reminds again.
func reminderKey(t core.Transaction) string {
	return fmt.Sprintf("%d:%s", t.ID, t.Date)
}
