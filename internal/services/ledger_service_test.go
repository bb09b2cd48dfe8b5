package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"atlas/internal/amqp"
	"atlas/internal/core"
)

func TestLedgerService_CreateListUpdateDelete(t *testing.T) {
	repo := newTestRepo(t)
	pub := &fakePublisher{}
	svc := NewLedgerService(repo, pub)
	ctx := context.Background()
	u := newTestUser(t, repo, 1)

	created, err := svc.Create(ctx, u.ID, expenseInput("  Aluguel ", "1500", core.NewDate(2024, 3, 5)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == 0 || created.Name != "Aluguel" || created.Amount.String() != "1500.00" {
		t.Fatalf("created = %+v", created)
	}

	list, err := svc.List(ctx, u.ID)
	if err != nil || len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("List = %v, %v", list, err)
	}

	updated, err := svc.Update(ctx, u.ID, created.ID, core.TransactionPatch{Notes: ptr("boleto")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Notes != "boleto" || updated.Name != "Aluguel" || !updated.Amount.Equal(created.Amount) {
		t.Fatalf("updated = %+v", updated)
	}

	if err := svc.Delete(ctx, u.ID, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	want := []string{amqp.EventTransactionCreated, amqp.EventTransactionUpdated, amqp.EventTransactionDeleted}
	if got := pub.eventTypes(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestLedgerService_Validation(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewLedgerService(repo, nil)
	ctx := context.Background()
	u := newTestUser(t, repo, 1)

	tests := []struct {
		name string
		in   core.TransactionInput
	}{
		{"bad type", core.TransactionInput{Type: "transfer", Name: "x", Date: core.NewDate(2024, 1, 1)}},
		{"missing name", core.TransactionInput{Type: core.Income, Name: "  ", Date: core.NewDate(2024, 1, 1)}},
		{"missing date", core.TransactionInput{Type: core.Income, Name: "x"}},
		{"installment over total", core.TransactionInput{
			Type: core.Expense, Name: "x", Date: core.NewDate(2024, 1, 1),
			CurrentInstallment: ptr(3), TotalInstallments: ptr(2),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, u.ID, tt.in)
			assertErrorIs(t, err, core.ErrValidation)
		})
	}

	t.Run("sign is not checked against type", func(t *testing.T) {
		in := expenseInput("refund", "-20", core.NewDate(2024, 1, 1))
		if _, err := svc.Create(ctx, u.ID, in); err != nil {
			t.Fatalf("Create: %v", err)
		}
	})

	t.Run("empty patch", func(t *testing.T) {
		_, err := svc.Update(ctx, u.ID, 1, core.TransactionPatch{})
		assertErrorIs(t, err, core.ErrValidation)
	})

	t.Run("bad month", func(t *testing.T) {
		_, err := svc.ListMonth(ctx, u.ID, 2024, 13)
		assertErrorIs(t, err, core.ErrValidation)
	})

	t.Run("empty series key", func(t *testing.T) {
		_, err := svc.Series(ctx, u.ID, " ")
		assertErrorIs(t, err, core.ErrValidation)
	})
}

func TestLedgerService_Isolation(t *testing.T) {
	repo := newTestRepo(t)
	pub := &fakePublisher{}
	svc := NewLedgerService(repo, pub)
	ctx := context.Background()
	owner := newTestUser(t, repo, 1)
	intruder := newTestUser(t, repo, 2)

	row, err := svc.Create(ctx, owner.ID, expenseInput("Internet", "120", core.NewDate(2024, 2, 10)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.Update(ctx, intruder.ID, row.ID, core.TransactionPatch{Name: ptr("mine")})
	assertErrorIs(t, err, core.ErrNotFound)
	assertErrorIs(t, svc.Delete(ctx, intruder.ID, row.ID), core.ErrNotFound)

	list, _ := svc.List(ctx, intruder.ID)
	if len(list) != 0 {
		t.Fatalf("intruder sees %d rows", len(list))
	}
	if got := len(pub.eventTypes()); got != 1 {
		t.Errorf("events = %d, want only the create", got)
	}
}

func TestLedgerService_PublishFailureDoesNotFailRequest(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewLedgerService(repo, &fakePublisher{err: errors.New("broker down")})
	u := newTestUser(t, repo, 1)

	if _, err := svc.Create(context.Background(), u.ID, expenseInput("Luz", "95", core.NewDate(2024, 2, 8))); err != nil {
		t.Fatalf("Create should succeed when publishing fails: %v", err)
	}
}

func TestLedgerService_MonthAndSeries(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewLedgerService(repo, nil)
	ctx := context.Background()
	u := newTestUser(t, repo, 1)

	for i, date := range []core.Date{core.NewDate(2024, 2, 15), core.NewDate(2024, 3, 15), core.NewDate(2024, 4, 15)} {
		in := expenseInput("Sofá", "210", date)
		in.MasterID = ptr("sofa")
		in.CurrentInstallment = ptr(i + 1)
		in.TotalInstallments = ptr(10)
		if _, err := svc.Create(ctx, u.ID, in); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	march, err := svc.ListMonth(ctx, u.ID, 2024, 3)
	if err != nil || len(march) != 1 || *march[0].CurrentInstallment != 2 {
		t.Fatalf("ListMonth = %v, %v", march, err)
	}

	series, err := svc.Series(ctx, u.ID, "sofa")
	if err != nil || len(series) != 3 {
		t.Fatalf("Series = %v, %v", series, err)
	}
	for i, row := range series {
		if *row.CurrentInstallment != i+1 {
			t.Errorf("series[%d] installment = %d", i, *row.CurrentInstallment)
		}
	}
}

func TestLedgerService_UpdateClearsSeriesFields(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewLedgerService(repo, nil)
	ctx := context.Background()
	u := newTestUser(t, repo, 1)

	in := expenseInput("Sofá", "210", core.NewDate(2024, 3, 5))
	in.MasterID = ptr("sofa-1")
	in.CurrentInstallment = ptr(2)
	in.TotalInstallments = ptr(10)
	in.DueDay = ptr(5)
	row, err := svc.Create(ctx, u.ID, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.Update(ctx, u.ID, row.ID, core.TransactionPatch{TotalInstallments: core.Null[int]()})
	assertErrorIs(t, err, core.ErrValidation)

	updated, err := svc.Update(ctx, u.ID, row.ID, core.TransactionPatch{
		MasterID:           core.Null[string](),
		CurrentInstallment: core.Null[int](),
		TotalInstallments:  core.Null[int](),
		DueDay:             core.Null[int](),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.IsSeries() || updated.DueDay != nil {
		t.Fatalf("updated = %+v", updated)
	}

	reloaded, err := repo.GetTransaction(ctx, u.ID, row.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if reloaded.MasterID != nil || reloaded.CurrentInstallment != nil ||
		reloaded.TotalInstallments != nil || reloaded.DueDay != nil {
		t.Errorf("reloaded = %+v", reloaded)
	}
	if reloaded.Name != "Sofá" || reloaded.Amount.String() != "210.00" {
		t.Errorf("untouched fields changed: %+v", reloaded)
	}

	rejoined, err := svc.Update(ctx, u.ID, row.ID, core.TransactionPatch{
		MasterID:           core.NullableOf("sofa-2"),
		CurrentInstallment: core.NullableOf(1),
		TotalInstallments:  core.NullableOf(3),
	})
	if err != nil || rejoined.MasterID == nil || *rejoined.MasterID != "sofa-2" {
		t.Fatalf("rejoin = %+v, %v", rejoined, err)
	}
}

func TestLedgerService_RejectsLoneInstallment(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewLedgerService(repo, nil)
	u := newTestUser(t, repo, 1)

	in := expenseInput("Sofá", "210", core.NewDate(2024, 3, 5))
	in.CurrentInstallment = ptr(2)
	_, err := svc.Create(context.Background(), u.ID, in)
	assertErrorIs(t, err, core.ErrValidation)
}
