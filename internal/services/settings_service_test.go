package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"atlas/internal/core"
)

func TestSettingsService(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewSettingsService(repo)
	ctx := context.Background()
	u := newTestUser(t, repo, 1)
	other := newTestUser(t, repo, 2)

	got, err := svc.Get(ctx, u.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SavingsRate.String() != "0.3" || !got.TotalSavings.IsZero() {
		t.Fatalf("defaults = %+v", got)
	}

	goal := core.MustMoney("20000")
	updated, err := svc.Update(ctx, u.ID, core.SettingsPatch{SavingsGoal: &goal})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.SavingsGoal.String() != "20000.00" || updated.SavingsRate.String() != "0.3" {
		t.Fatalf("updated = %+v", updated)
	}

	otherSettings, _ := svc.Get(ctx, other.ID)
	if !otherSettings.SavingsGoal.IsZero() {
		t.Fatal("settings leaked across users")
	}

	rate := core.MustRate("1.5")
	_, err = svc.Update(ctx, u.ID, core.SettingsPatch{SavingsRate: &rate})
	assertErrorIs(t, err, core.ErrValidation)
}

func TestSettingsService_DefaultsWhenMissing(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewSettingsService(repo)

	// No user 999 exists; reading still answers with defaults.
	got, err := svc.Get(context.Background(), 999)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserID != 999 || !got.SavingsRate.Equal(decimal.RequireFromString("0.30")) {
		t.Fatalf("Get = %+v", got)
	}
}
