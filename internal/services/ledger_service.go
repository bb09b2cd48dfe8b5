// Package services provides business logic and orchestration services.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"atlas/internal/amqp"
	"atlas/internal/core"
)

// LedgerStore is the persistence surface of the transaction ledger.
type LedgerStore interface {
	ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error)
	ListTransactionsByMonth(ctx context.Context, userID int64, year, month int) ([]core.Transaction, error)
	ListSeries(ctx context.Context, userID int64, masterID string) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error)
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id int64) error
}

// EventPublisher announces ledger changes to other processes.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, e amqp.LedgerEvent) error
}

// LedgerService orchestrates ledger operations across SQLite and AMQP.
type LedgerService struct {
	store     LedgerStore
	publisher EventPublisher
}

// NewLedgerService wires the ledger. publisher may be nil, in which case no
// events are sent.
func NewLedgerService(store LedgerStore, publisher EventPublisher) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
	}
}

func (s *LedgerService) List(ctx context.Context, userID int64) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// ListMonth filters on the calendar year and month of the stored date.
func (s *LedgerService) ListMonth(ctx context.Context, userID int64, year, month int) ([]core.Transaction, error) {
	if err := ValidateYearMonth(year, month); err != nil {
		return nil, err
	}
	txs, err := s.store.ListTransactionsByMonth(ctx, userID, year, month)
	if err != nil {
		return nil, fmt.Errorf("list transactions for %04d-%02d: %w", year, month, err)
	}
	return txs, nil
}

// Series returns the rows sharing masterID. It is a read-only filter; no
// operation ever cascades along a series.
func (s *LedgerService) Series(ctx context.Context, userID int64, masterID string) ([]core.Transaction, error) {
	masterID = strings.TrimSpace(masterID)
	if masterID == "" {
		return nil, core.Invalid("master_id", "master_id is required")
	}
	txs, err := s.store.ListSeries(ctx, userID, masterID)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	return txs, nil
}

// Create saves a transaction and publishes a created event.
func (s *LedgerService) Create(ctx context.Context, userID int64, in core.TransactionInput) (core.Transaction, error) {
	t := in.ToTransaction(userID)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	saved, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publish(ctx, amqp.EventTransactionCreated, saved.UserID, saved.ID)
	return saved, nil
}

// Update merges patch onto the caller's row. A row owned by someone else is
// reported as not found.
func (s *LedgerService) Update(ctx context.Context, userID, id int64, patch core.TransactionPatch) (core.Transaction, error) {
	if patch.IsEmpty() {
		return core.Transaction{}, core.Invalid("body", "no fields to update")
	}

	current, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load transaction %d: %w", id, err)
	}

	merged := patch.Apply(current)
	if err := merged.Validate(); err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.store.UpdateTransaction(ctx, merged)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
	}

	s.publish(ctx, amqp.EventTransactionUpdated, userID, id)
	return updated, nil
}

// Delete removes the row together with its reminder acknowledgement.
func (s *LedgerService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}

	s.publish(ctx, amqp.EventTransactionDeleted, userID, id)
	return nil
}

// publish never fails the caller: the row is already committed.
func (s *LedgerService) publish(ctx context.Context, eventType string, userID, id int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, amqp.NewLedgerEvent(eventType, userID, id)); err != nil {
		level := slog.LevelError
		if errors.Is(err, amqp.ErrCircuitOpen) {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "Failed to publish ledger event",
			"type", eventType,
			"user_id", userID,
			"transaction_id", id,
			"error", err)
	}
}

// ValidateYearMonth checks a year/month pair taken from a URL or query.
func ValidateYearMonth(year, month int) error {
	if year < 1 || year > 9999 {
		return core.Invalid("year", "year must be between 1 and 9999")
	}
	if month < 1 || month > 12 {
		return core.Invalid("month", "month must be between 1 and 12")
	}
	return nil
}
