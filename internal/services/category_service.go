package services

import (
	"context"
	"fmt"
	"strings"

	"atlas/internal/core"
)

type CategoryStore interface {
	ListCategories(ctx context.Context, userID int64, typ core.CategoryType) ([]core.Category, error)
	GetCategory(ctx context.Context, userID, id int64) (core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
	DeactivateCategory(ctx context.Context, userID, id int64) error
	DeleteCategory(ctx context.Context, userID, id int64) error
	CountTransactionsByCategory(ctx context.Context, userID int64, category string) (int64, error)
}

// CategoryInput is the client payload for a new category.
type CategoryInput struct {
	Name  string            `json:"name"`
	Type  core.CategoryType `json:"type"`
	Icon  string            `json:"icon"`
	Color string            `json:"color"`
}

// DeleteOutcome tells the caller whether a category was removed or only
// hidden because transactions still use it.
type DeleteOutcome struct {
	Deactivated bool
	InUse       int64
}

type CategoryService struct {
	store CategoryStore
}

func NewCategoryService(store CategoryStore) *CategoryService {
	return &CategoryService{store: store}
}

// List returns active categories; an empty typ lists every type.
func (s *CategoryService) List(ctx context.Context, userID int64, typ core.CategoryType) ([]core.Category, error) {
	if typ != "" && !typ.Valid() {
		return nil, core.Invalid("type", "type must be one of income, expense, investment")
	}
	categories, err := s.store.ListCategories(ctx, userID, typ)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *CategoryService) Create(ctx context.Context, userID int64, in CategoryInput) (core.Category, error) {
	c := core.Category{
		UserID:   userID,
		Name:     strings.TrimSpace(in.Name),
		Type:     in.Type,
		Icon:     strings.TrimSpace(in.Icon),
		Color:    strings.TrimSpace(in.Color),
		IsActive: true,
	}
	if c.Icon == "" {
		c.Icon = core.DefaultCategoryIcon
	}
	if c.Color == "" {
		c.Color = core.DefaultCategoryColor
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	saved, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category %q: %w", c.Name, err)
	}
	return saved, nil
}

func (s *CategoryService) Update(ctx context.Context, userID, id int64, patch core.CategoryPatch) (core.Category, error) {
	current, err := s.store.GetCategory(ctx, userID, id)
	if err != nil {
		return core.Category{}, fmt.Errorf("load category %d: %w", id, err)
	}

	merged := patch.Apply(current)
	if err := merged.Validate(); err != nil {
		return core.Category{}, err
	}

	updated, err := s.store.UpdateCategory(ctx, merged)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category %d: %w", id, err)
	}
	return updated, nil
}

// Delete hard-deletes an unused category and deactivates one that
// transactions still reference by name.
func (s *CategoryService) Delete(ctx context.Context, userID, id int64) (DeleteOutcome, error) {
	c, err := s.store.GetCategory(ctx, userID, id)
	if err != nil {
		return DeleteOutcome{}, fmt.Errorf("load category %d: %w", id, err)
	}

	inUse, err := s.store.CountTransactionsByCategory(ctx, userID, c.Name)
	if err != nil {
		return DeleteOutcome{}, fmt.Errorf("count transactions for category %d: %w", id, err)
	}

	if inUse > 0 {
		if err := s.store.DeactivateCategory(ctx, userID, id); err != nil {
			return DeleteOutcome{}, fmt.Errorf("deactivate category %d: %w", id, err)
		}
		return DeleteOutcome{Deactivated: true, InUse: inUse}, nil
	}

	if err := s.store.DeleteCategory(ctx, userID, id); err != nil {
		return DeleteOutcome{}, fmt.Errorf("delete category %d: %w", id, err)
	}
	return DeleteOutcome{}, nil
}
