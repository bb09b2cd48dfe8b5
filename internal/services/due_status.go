package services

import (
	"time"

	"atlas/internal/core"
)

// dueRule decides a calendar day's status or defers to the next rule.
type dueRule func(day, today core.Date, autoDebitOnly bool) (core.DueStatus, bool)

// dueRules run in order; the first that matches wins.
var dueRules = []dueRule{
	func(_, _ core.Date, autoDebitOnly bool) (core.DueStatus, bool) {
		return core.DuePaid, autoDebitOnly
	},
	func(day, today core.Date, _ bool) (core.DueStatus, bool) {
		return core.DueOverdue, day.Before(today.Time)
	},
	func(day, today core.Date, _ bool) (core.DueStatus, bool) {
		return core.DueToday, day.Equal(today.Time)
	},
	func(day, today core.Date, _ bool) (core.DueStatus, bool) {
		_, end := ReminderWindow(today)
		return core.DueSoon, !day.After(end.Time)
	},
}

// classifyDue labels the expenses due on day as seen from today.
func classifyDue(day, today core.Date, autoDebitOnly bool) core.DueStatus {
	for _, rule := range dueRules {
		if status, ok := rule(day, today, autoDebitOnly); ok {
			return status
		}
	}
	return core.DueUpcoming
}

// dueDayIn places a due day inside year/month, clamping 29..31 to the last
// day of shorter months.
func dueDayIn(year, month, day int) core.Date {
	last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return core.NewDate(year, month, day)
}

// dueDayOf is the explicit due day, or the day of the row's date.
func dueDayOf(t core.Transaction) int {
	if t.DueDay != nil {
		return *t.DueDay
	}
	return t.Date.Day()
}
