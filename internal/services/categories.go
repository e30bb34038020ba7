package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/IvaDonGon/TusGastos/internal/cache"
	"github.com/IvaDonGon/TusGastos/internal/core"
	"github.com/IvaDonGon/TusGastos/internal/icons"
	"github.com/IvaDonGon/TusGastos/internal/ports"
)

const categoryCacheSize = 256

// CategoryService lists and edits categories. Lists are cached per user
// and invalidated on every write through this service.
type CategoryService struct {
	store ports.CategoryStore
	cache *cache.LRUCache[[]core.CategoryDefinition]
}

// NewCategoryService caches category lists for ttl. A ttl of zero disables the cache.
func NewCategoryService(store ports.CategoryStore, ttl time.Duration) *CategoryService {
	return &CategoryService{
		store: store,
		cache: cache.NewLRUCache[[]core.CategoryDefinition](categoryCacheSize, ttl),
	}
}

// Cache exposes the underlying cache so a cache.Manager can sweep it.
func (s *CategoryService) Cache() *cache.LRUCache[[]core.CategoryDefinition] {
	return s.cache
}

// List returns the user's categories with their icon resolved.
func (s *CategoryService) List(ctx context.Context, userID string) ([]core.CategoryDefinition, error) {
	cats, err := s.cache.GetOrLoad(userID, func() ([]core.CategoryDefinition, error) {
		cats, err := s.store.FetchCategories(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("fetch categories: %w", err)
		}
		for i := range cats {
			cats[i].IconName = resolveIcon(cats[i].Name, cats[i].IconName)
		}
		return cats, nil
	})
	if err != nil {
		return nil, err
	}
	// Callers get their own copy so the cached slice stays intact.
	return append([]core.CategoryDefinition(nil), cats...), nil
}

// Get returns one category by id.
func (s *CategoryService) Get(ctx context.Context, userID, id string) (core.CategoryDefinition, error) {
	cats, err := s.List(ctx, userID)
	if err != nil {
		return core.CategoryDefinition{}, err
	}
	for _, c := range cats {
		if c.ID == id {
			return c, nil
		}
	}
	return core.CategoryDefinition{}, &core.NotFoundError{Kind: "category", ID: id}
}

// Create stores a new active category. An empty icon stays empty in storage
// and is resolved from the name when read.
func (s *CategoryService) Create(ctx context.Context, c core.CategoryDefinition) (core.CategoryDefinition, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.IconName = strings.TrimSpace(c.IconName)
	if err := c.Validate(); err != nil {
		return core.CategoryDefinition{}, err
	}
	c.Active = true
	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.CategoryDefinition{}, err
	}
	s.cache.Delete(c.UserID)
	created.IconName = resolveIcon(created.Name, created.IconName)
	return created, nil
}

// Update renames a category, changes its icon or toggles it active.
func (s *CategoryService) Update(ctx context.Context, c core.CategoryDefinition) (core.CategoryDefinition, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.IconName = strings.TrimSpace(c.IconName)
	if err := c.Validate(); err != nil {
		return core.CategoryDefinition{}, err
	}
	updated, err := s.store.UpdateCategory(ctx, c)
	if err != nil {
		return core.CategoryDefinition{}, err
	}
	s.cache.Delete(c.UserID)
	updated.IconName = resolveIcon(updated.Name, updated.IconName)
	return updated, nil
}

// Delete removes a category and its limit. Categories that still have
// expenses are refused with core.ErrCategoryInUse.
func (s *CategoryService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteCategory(ctx, userID, id); err != nil {
		return err
	}
	s.cache.Delete(userID)
	return nil
}

func resolveIcon(name, stored string) string {
	return icons.Resolve(name, stored)
}
