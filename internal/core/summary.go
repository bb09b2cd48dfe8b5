package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name       string `json:"name"`
	Amount     Money  `json:"amount"`
	Percentage int    `json:"percentage"`
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year          int   `json:"year"`
	Month         int   `json:"month"` // 1-12
	Income        Money `json:"income"`
	Expenses      Money `json:"expenses"`
	Balance       Money `json:"balance"`
	Savings       Money `json:"savings"`
	SavingsGoal   Money `json:"savings_goal"`
	GoalProgress  int   `json:"goal_progress"`
	MonthlyBudget Money `json:"monthly_budget"`
	BudgetUsed    int   `json:"budget_used"`
	Transactions  int   `json:"transactions"`
}

// RecurringItem is a ledger row that belongs to a series, shaped for the
// dashboard.
type RecurringItem struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Amount      Money   `json:"amount"`
	Kind        string  `json:"kind"` // fixed or parceled
	DueDay      int     `json:"due_day"`
	Installment string  `json:"installment,omitempty"`
	MasterID    *string `json:"master_id,omitempty"`
	AutoDebit   bool    `json:"auto_debit"`
}

type DueStatus string

const (
	DuePaid     DueStatus = "paid"
	DueOverdue  DueStatus = "overdue"
	DueToday    DueStatus = "today"
	DueSoon     DueStatus = "soon"
	DueUpcoming DueStatus = "upcoming"
)

// CalendarDay aggregates the expenses falling on one day of a month.
type CalendarDay struct {
	Day    int       `json:"day"`
	Amount Money     `json:"amount"`
	Count  int       `json:"count"`
	Status DueStatus `json:"status"`
}

// AdminStats is the instance-wide counter set exposed to administrators.
type AdminStats struct {
	Users        int64 `json:"users"`
	Transactions int64 `json:"transactions"`
}
