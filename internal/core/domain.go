package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionKind = "income"
	Expense TransactionKind = "expense"
)

const (
	CategoryIncome     CategoryType = "income"
	CategoryExpense    CategoryType = "expense"
	CategoryInvestment CategoryType = "investment"
)

// LookaheadDays is the width of the upcoming-due reminder window, counted
// from today and inclusive on both ends.
const LookaheadDays = 10

type (
	TransactionKind string

	CategoryType string

	User struct {
		ID           int64     `json:"id"`
		Phone        string    `json:"phone"`
		Email        string    `json:"email"`
		Name         string    `json:"name"`
		PasswordHash string    `json:"-"`
		IsAdmin      bool      `json:"is_admin"`
		CreatedAt    time.Time `json:"created_at"`
	}

	// Transaction is one dated entry of a user's ledger. Rows sharing a
	// MasterID describe one recurring or installment obligation; the link is
	// advisory and never enforced by the ledger.
	Transaction struct {
		ID                 int64           `json:"id"`
		UserID             int64           `json:"user_id"`
		Type               TransactionKind `json:"type"`
		Amount             Money           `json:"amount"`
		Name               string          `json:"name"`
		Category           string          `json:"category"`
		Date               Date            `json:"date"`
		DueDay             *int            `json:"due_day"`
		RecurrenceType     *string         `json:"recurrence_type"`
		MasterID           *string         `json:"master_id"`
		CurrentInstallment *int            `json:"current_installment"`
		TotalInstallments  *int            `json:"total_installments"`
		EndDate            *Date           `json:"end_date"`
		Notes              string          `json:"notes"`
		AutoDebit          bool            `json:"auto_debit"`
		CreatedAt          time.Time       `json:"created_at"`
		UpdatedAt          time.Time       `json:"updated_at"`
	}

	// TransactionInput is the client payload for a new ledger row.
	TransactionInput struct {
		Type               TransactionKind `json:"type"`
		Amount             Money           `json:"amount"`
		Name               string          `json:"name"`
		Category           string          `json:"category"`
		Date               Date            `json:"date"`
		DueDay             *int            `json:"due_day"`
		RecurrenceType     *string         `json:"recurrence_type"`
		MasterID           *string         `json:"master_id"`
		CurrentInstallment *int            `json:"current_installment"`
		TotalInstallments  *int            `json:"total_installments"`
		EndDate            *Date           `json:"end_date"`
		Notes              string          `json:"notes"`
		AutoDebit          bool            `json:"auto_debit"`
	}

	// TransactionPatch lists every updatable field. A nil field is left
	// untouched. The series fields are Nullable so that an explicit JSON
	// null clears them.
	TransactionPatch struct {
		Type               *TransactionKind `json:"type"`
		Amount             *Money           `json:"amount"`
		Name               *string          `json:"name"`
		Category           *string          `json:"category"`
		Date               *Date            `json:"date"`
		DueDay             Nullable[int]    `json:"due_day"`
		RecurrenceType     Nullable[string] `json:"recurrence_type"`
		MasterID           Nullable[string] `json:"master_id"`
		CurrentInstallment Nullable[int]    `json:"current_installment"`
		TotalInstallments  Nullable[int]    `json:"total_installments"`
		EndDate            Nullable[Date]   `json:"end_date"`
		Notes              *string          `json:"notes"`
		AutoDebit          *bool            `json:"auto_debit"`
	}

	Settings struct {
		UserID        int64           `json:"user_id"`
		TotalSavings  Money           `json:"total_savings"`
		SavingsGoal   Money           `json:"savings_goal"`
		MonthlyBudget Money           `json:"monthly_budget"`
		SavingsRate   decimal.Decimal `json:"savings_rate"`
	}

	SettingsPatch struct {
		TotalSavings  *Money `json:"total_savings"`
		SavingsGoal   *Money `json:"savings_goal"`
		MonthlyBudget *Money `json:"monthly_budget"`
		SavingsRate   *Rate  `json:"savings_rate"`
	}

	Category struct {
		ID           int64        `json:"id"`
		UserID       int64        `json:"user_id"`
		Name         string       `json:"name"`
		Type         CategoryType `json:"type"`
		Icon         string       `json:"icon"`
		Color        string       `json:"color"`
		IsDefault    bool         `json:"is_default"`
		IsActive     bool         `json:"is_active"`
		DisplayOrder int          `json:"display_order"`
		CreatedAt    time.Time    `json:"created_at"`
	}

	CategoryPatch struct {
		Name         *string `json:"name"`
		Icon         *string `json:"icon"`
		Color        *string `json:"color"`
		DisplayOrder *int    `json:"display_order"`
	}

	// Reminder is an upcoming expense inside the lookahead window together
	// with its acknowledgement state.
	Reminder struct {
		Transaction Transaction `json:"transaction"`
		DaysUntil   int         `json:"days_until"`
		Read        bool        `json:"read"`
	}
)

func (k TransactionKind) Valid() bool {
	return k == Income || k == Expense
}

func (c CategoryType) Valid() bool {
	switch c {
	case CategoryIncome, CategoryExpense, CategoryInvestment:
		return true
	}
	return false
}

// DefaultSettings is the row every user starts with.
func DefaultSettings(userID int64) Settings {
	return Settings{
		UserID:      userID,
		SavingsRate: decimal.RequireFromString("0.30"),
	}
}

// ToTransaction builds an unsaved ledger row owned by userID.
func (in TransactionInput) ToTransaction(userID int64) Transaction {
	return Transaction{
		UserID:             userID,
		Type:               in.Type,
		Amount:             in.Amount.Rounded(),
		Name:               strings.TrimSpace(in.Name),
		Category:           strings.TrimSpace(in.Category),
		Date:               in.Date,
		DueDay:             in.DueDay,
		RecurrenceType:     in.RecurrenceType,
		MasterID:           in.MasterID,
		CurrentInstallment: in.CurrentInstallment,
		TotalInstallments:  in.TotalInstallments,
		EndDate:            in.EndDate,
		Notes:              in.Notes,
		AutoDebit:          in.AutoDebit,
	}
}

// Apply returns t with every non-nil patch field written over it.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Amount != nil {
		t.Amount = p.Amount.Rounded()
	}
	if p.Name != nil {
		t.Name = strings.TrimSpace(*p.Name)
	}
	if p.Category != nil {
		t.Category = strings.TrimSpace(*p.Category)
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.DueDay.Set {
		t.DueDay = p.DueDay.Value
	}
	if p.RecurrenceType.Set {
		t.RecurrenceType = p.RecurrenceType.Value
	}
	if p.MasterID.Set {
		t.MasterID = p.MasterID.Value
	}
	if p.CurrentInstallment.Set {
		t.CurrentInstallment = p.CurrentInstallment.Value
	}
	if p.TotalInstallments.Set {
		t.TotalInstallments = p.TotalInstallments.Value
	}
	if p.EndDate.Set {
		t.EndDate = p.EndDate.Value
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.AutoDebit != nil {
		t.AutoDebit = *p.AutoDebit
	}
	return t
}

// IsEmpty reports whether the patch carries no field at all.
func (p TransactionPatch) IsEmpty() bool {
	return p == TransactionPatch{}
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidKind
	}
	if t.Name == "" {
		return ErrEmptyName
	}
	if len(t.Name) > 200 {
		return invalid("name", "name too long (max 200 characters)")
	}
	if len(t.Category) > 50 {
		return invalid("category", "category too long (max 50 characters)")
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.DueDay != nil && (*t.DueDay < 1 || *t.DueDay > 31) {
		return invalid("due_day", "due_day must be between 1 and 31")
	}
	if t.TotalInstallments != nil && *t.TotalInstallments < 1 {
		return ErrInvalidInstallment
	}
	if t.CurrentInstallment != nil {
		if t.TotalInstallments == nil {
			return ErrLoneInstallment
		}
		if *t.CurrentInstallment < 1 {
			return ErrInvalidInstallment
		}
		if *t.CurrentInstallment > *t.TotalInstallments {
			return ErrInvalidInstallment
		}
	}
	if t.EndDate != nil && t.EndDate.Before(t.Date.Time) {
		return invalid("end_date", "end_date must not be before date")
	}
	return nil
}

// IsSeries reports whether the row belongs to a recurring or installment
// obligation.
func (t Transaction) IsSeries() bool {
	return (t.MasterID != nil && *t.MasterID != "") ||
		(t.RecurrenceType != nil && *t.RecurrenceType != "") ||
		t.TotalInstallments != nil
}

func (p SettingsPatch) Apply(s Settings) Settings {
	if p.TotalSavings != nil {
		s.TotalSavings = p.TotalSavings.Rounded()
	}
	if p.SavingsGoal != nil {
		s.SavingsGoal = p.SavingsGoal.Rounded()
	}
	if p.MonthlyBudget != nil {
		s.MonthlyBudget = p.MonthlyBudget.Rounded()
	}
	if p.SavingsRate != nil {
		s.SavingsRate = p.SavingsRate.Value.Round(2)
	}
	return s
}

func (s Settings) Validate() error {
	if s.SavingsRate.IsNegative() || s.SavingsRate.GreaterThan(decimal.NewFromInt(1)) {
		return invalid("savings_rate", "savings_rate must be between 0 and 1")
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return invalid("name", "name and type are required")
	}
	if len(c.Name) > 50 {
		return invalid("name", "name too long (max 50 characters)")
	}
	if !c.Type.Valid() {
		return invalid("type", "type must be one of income, expense, investment")
	}
	return nil
}

func (p CategoryPatch) Apply(c Category) Category {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Icon != nil {
		c.Icon = *p.Icon
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.DisplayOrder != nil {
		c.DisplayOrder = *p.DisplayOrder
	}
	return c
}
