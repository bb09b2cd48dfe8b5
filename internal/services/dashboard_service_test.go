package services

import (
	"context"
	"testing"

	"atlas/internal/core"
)

func seedDashboard(t *testing.T) (*DashboardService, int64) {
	t.Helper()
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo, 1)
	ledger := NewLedgerService(repo, nil)

	salary := core.TransactionInput{Type: core.Income, Amount: core.MustMoney("4850"), Name: "Salário", Category: "Salário", Date: core.NewDate(2024, 2, 5)}
	rows := []core.TransactionInput{salary}

	rent := expenseInput("Aluguel", "1500", core.NewDate(2024, 2, 5))
	rent.Category = "Moradia"
	rent.RecurrenceType = ptr("monthly")
	rent.MasterID = ptr("rent")
	rows = append(rows, rent)

	market := expenseInput("Mercado", "500", core.NewDate(2024, 2, 24))
	market.Category = "Alimentação"
	rows = append(rows, market)

	gym := expenseInput("Academia", "90", core.NewDate(2024, 2, 3))
	gym.Category = "Saúde"
	gym.AutoDebit = true
	gym.DueDay = ptr(3)
	rows = append(rows, gym)

	phone := expenseInput("Celular", "185", core.NewDate(2024, 2, 28))
	phone.Category = "Compras"
	phone.MasterID = ptr("phone")
	phone.CurrentInstallment = ptr(8)
	phone.TotalInstallments = ptr(12)
	rows = append(rows, phone)

	misc := expenseInput("Presente", "25", core.NewDate(2024, 2, 29))
	rows = append(rows, misc)

	for _, in := range rows {
		if _, err := ledger.Create(ctx, u.ID, in); err != nil {
			t.Fatalf("Create %s: %v", in.Name, err)
		}
	}

	settings := NewSettingsService(repo)
	_, err := settings.Update(ctx, u.ID, core.SettingsPatch{
		TotalSavings:  ptr(core.MustMoney("12580")),
		SavingsGoal:   ptr(core.MustMoney("10000")),
		MonthlyBudget: ptr(core.MustMoney("4600")),
	})
	if err != nil {
		t.Fatalf("Update settings: %v", err)
	}

	return NewDashboardService(repo, FixedClock(testNow)), u.ID
}

func TestDashboardService_Overview(t *testing.T) {
	svc, userID := seedDashboard(t)

	got, err := svc.Overview(context.Background(), userID, 2024, 2)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	checks := map[string][2]string{
		"income":   {got.Income.String(), "4850.00"},
		"expenses": {got.Expenses.String(), "2300.00"},
		"balance":  {got.Balance.String(), "2550.00"},
		"savings":  {got.Savings.String(), "12580.00"},
	}
	for name, c := range checks {
		if c[0] != c[1] {
			t.Errorf("%s = %s, want %s", name, c[0], c[1])
		}
	}
	if got.GoalProgress != 100 || got.BudgetUsed != 50 || got.Transactions != 6 {
		t.Errorf("overview = %+v", got)
	}

	_, err = svc.Overview(context.Background(), userID, 2024, 0)
	assertErrorIs(t, err, core.ErrValidation)
}

func TestDashboardService_Categories(t *testing.T) {
	svc, userID := seedDashboard(t)

	got, err := svc.Categories(context.Background(), userID, 2024, 2)
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("categories = %+v", got)
	}
	if got[0].Name != "Moradia" || got[0].Percentage != 65 {
		t.Errorf("largest = %+v", got[0])
	}
	last := got[len(got)-1]
	if last.Name != uncategorized || last.Amount.String() != "25.00" {
		t.Errorf("smallest = %+v", last)
	}
}

func TestDashboardService_Recurring(t *testing.T) {
	svc, userID := seedDashboard(t)

	got, err := svc.Recurring(context.Background(), userID, 2024, 2)
	if err != nil {
		t.Fatalf("Recurring: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("recurring = %+v", got)
	}
	if got[0].Name != "Aluguel" || got[0].Kind != "fixed" || got[0].DueDay != 5 {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Kind != "parceled" || got[1].Installment != "8/12" {
		t.Errorf("second = %+v", got[1])
	}
}

func TestDashboardService_Calendar(t *testing.T) {
	svc, userID := seedDashboard(t)

	got, err := svc.Calendar(context.Background(), userID, 2024, 2)
	if err != nil {
		t.Fatalf("Calendar: %v", err)
	}

	want := map[int]core.DueStatus{
		3:  core.DuePaid,
		5:  core.DueOverdue,
		24: core.DueToday,
		28: core.DueSoon,
		29: core.DueSoon,
	}
	if len(got) != len(want) {
		t.Fatalf("calendar = %+v", got)
	}
	for _, day := range got {
		if want[day.Day] != day.Status {
			t.Errorf("day %d status = %s, want %s", day.Day, day.Status, want[day.Day])
		}
	}
}
