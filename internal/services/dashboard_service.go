package services

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"atlas/internal/core"
)

const uncategorized = "Outros"

type DashboardStore interface {
	ListTransactionsByMonth(ctx context.Context, userID int64, year, month int) ([]core.Transaction, error)
	GetSettings(ctx context.Context, userID int64) (core.Settings, error)
}

// DashboardService aggregates a month of ledger rows for the dashboard.
type DashboardService struct {
	store DashboardStore
	clock Clock
}

func NewDashboardService(store DashboardStore, clock Clock) *DashboardService {
	return &DashboardService{store: store, clock: clock}
}

// Overview loads the month and the settings concurrently.
func (s *DashboardService) Overview(ctx context.Context, userID int64, year, month int) (core.MonthOverview, error) {
	if err := ValidateYearMonth(year, month); err != nil {
		return core.MonthOverview{}, err
	}

	var (
		txs      []core.Transaction
		settings core.Settings
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.store.ListTransactionsByMonth(gctx, userID, year, month)
		if err != nil {
			return fmt.Errorf("list month: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		settings, err = settingsOrDefault(gctx, s.store, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.MonthOverview{}, err
	}

	income, expenses := totals(txs)
	overview := core.MonthOverview{
		Year:          year,
		Month:         month,
		Income:        income,
		Expenses:      expenses,
		Balance:       income.Sub(expenses),
		Savings:       settings.TotalSavings,
		SavingsGoal:   settings.SavingsGoal,
		GoalProgress:  min(settings.TotalSavings.Percent(settings.SavingsGoal), 100),
		MonthlyBudget: settings.MonthlyBudget,
		BudgetUsed:    expenses.Percent(settings.MonthlyBudget),
		Transactions:  len(txs),
	}
	return overview, nil
}

// Categories totals the month's expenses per category, largest first.
func (s *DashboardService) Categories(ctx context.Context, userID int64, year, month int) ([]core.CategoryAmount, error) {
	txs, err := s.month(ctx, userID, year, month)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]core.Money)
	var total core.Money
	for _, t := range txs {
		if t.Type != core.Expense {
			continue
		}
		name := t.Category
		if name == "" {
			name = uncategorized
		}
		byName[name] = byName[name].Add(t.Amount.Abs())
		total = total.Add(t.Amount.Abs())
	}

	out := make([]core.CategoryAmount, 0, len(byName))
	for name, amount := range byName {
		out = append(out, core.CategoryAmount{
			Name:       name,
			Amount:     amount,
			Percentage: amount.Percent(total),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Amount.Cmp(out[j].Amount.Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Recurring lists the month's rows that belong to a series, by due day.
func (s *DashboardService) Recurring(ctx context.Context, userID int64, year, month int) ([]core.RecurringItem, error) {
	txs, err := s.month(ctx, userID, year, month)
	if err != nil {
		return nil, err
	}

	out := []core.RecurringItem{}
	for _, t := range txs {
		if !t.IsSeries() {
			continue
		}
		item := core.RecurringItem{
			ID:        t.ID,
			Name:      t.Name,
			Amount:    t.Amount,
			Kind:      "fixed",
			DueDay:    dueDayOf(t),
			MasterID:  t.MasterID,
			AutoDebit: t.AutoDebit,
		}
		if t.TotalInstallments != nil {
			item.Kind = "parceled"
			if t.CurrentInstallment != nil {
				item.Installment = fmt.Sprintf("%d/%d", *t.CurrentInstallment, *t.TotalInstallments)
			}
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DueDay != out[j].DueDay {
			return out[i].DueDay < out[j].DueDay
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Calendar groups the month's expenses by due day with a status relative
// to today.
func (s *DashboardService) Calendar(ctx context.Context, userID int64, year, month int) ([]core.CalendarDay, error) {
	txs, err := s.month(ctx, userID, year, month)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		amount        core.Money
		count         int
		autoDebitOnly bool
	}
	buckets := make(map[int]*bucket)
	for _, t := range txs {
		if t.Type != core.Expense {
			continue
		}
		day := dueDayIn(year, month, dueDayOf(t)).Day()
		b, ok := buckets[day]
		if !ok {
			b = &bucket{autoDebitOnly: true}
			buckets[day] = b
		}
		b.amount = b.amount.Add(t.Amount.Abs())
		b.count++
		b.autoDebitOnly = b.autoDebitOnly && t.AutoDebit
	}

	today := s.clock.Today()
	out := make([]core.CalendarDay, 0, len(buckets))
	for day, b := range buckets {
		out = append(out, core.CalendarDay{
			Day:    day,
			Amount: b.amount,
			Count:  b.count,
			Status: classifyDue(core.NewDate(year, month, day), today, b.autoDebitOnly),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

func (s *DashboardService) month(ctx context.Context, userID int64, year, month int) ([]core.Transaction, error) {
	if err := ValidateYearMonth(year, month); err != nil {
		return nil, err
	}
	txs, err := s.store.ListTransactionsByMonth(ctx, userID, year, month)
	if err != nil {
		return nil, fmt.Errorf("list month: %w", err)
	}
	return txs, nil
}

// totals sums income as recorded and expenses by magnitude, since the
// ledger does not check amount signs.
func totals(txs []core.Transaction) (income, expenses core.Money) {
	for _, t := range txs {
		switch t.Type {
		case core.Income:
			income = income.Add(t.Amount)
		case core.Expense:
			expenses = expenses.Add(t.Amount.Abs())
		}
	}
	return income, expenses
}
