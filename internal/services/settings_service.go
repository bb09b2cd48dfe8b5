package services

import (
	"context"
	"errors"
	"fmt"

	"atlas/internal/core"
)

type SettingsStore interface {
	GetSettings(ctx context.Context, userID int64) (core.Settings, error)
	UpsertSettings(ctx context.Context, s core.Settings) (core.Settings, error)
}

type SettingsService struct {
	store SettingsStore
}

func NewSettingsService(store SettingsStore) *SettingsService {
	return &SettingsService{store: store}
}

// Get returns the stored settings, or the defaults without writing them.
func (s *SettingsService) Get(ctx context.Context, userID int64) (core.Settings, error) {
	return settingsOrDefault(ctx, s.store, userID)
}

// Update merges patch onto the current settings and upserts the result.
func (s *SettingsService) Update(ctx context.Context, userID int64, patch core.SettingsPatch) (core.Settings, error) {
	current, err := settingsOrDefault(ctx, s.store, userID)
	if err != nil {
		return core.Settings{}, err
	}

	merged := patch.Apply(current)
	if err := merged.Validate(); err != nil {
		return core.Settings{}, err
	}

	saved, err := s.store.UpsertSettings(ctx, merged)
	if err != nil {
		return core.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return saved, nil
}

type settingsGetter interface {
	GetSettings(ctx context.Context, userID int64) (core.Settings, error)
}

func settingsOrDefault(ctx context.Context, store settingsGetter, userID int64) (core.Settings, error) {
	settings, err := store.GetSettings(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return core.DefaultSettings(userID), nil
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}
