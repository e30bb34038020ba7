package services

import (
	"context"
	"strings"

	"github.com/IvaDonGon/TusGastos/internal/core"
	"github.com/IvaDonGon/TusGastos/internal/ports"
)

// DefinitionStore reads and writes recurring definitions.
type DefinitionStore interface {
	ports.RecurringReader
	ports.RecurringWriter
}

// DefinitionService validates and persists recurring definitions. Removing a
// definition keeps the occurrences it already produced.
type DefinitionService struct {
	store DefinitionStore
}

func NewDefinitionService(store DefinitionStore) *DefinitionService {
	return &DefinitionService{store: store}
}

func (s *DefinitionService) List(ctx context.Context, userID string) ([]core.RecurringDefinition, error) {
	return s.store.ListRecurringDefinitions(ctx, userID)
}

func (s *DefinitionService) Get(ctx context.Context, userID, id string) (core.RecurringDefinition, error) {
	return s.store.GetRecurringDefinition(ctx, userID, id)
}

func (s *DefinitionService) Create(ctx context.Context, def core.RecurringDefinition) (core.RecurringDefinition, error) {
	def.Name = strings.TrimSpace(def.Name)
	if err := def.Validate(); err != nil {
		return core.RecurringDefinition{}, err
	}
	def.ID = ""
	return s.store.CreateRecurringDefinition(ctx, def)
}

// Update replaces name, amount, day and active flag. Occurrences already
// created keep their amount snapshot.
func (s *DefinitionService) Update(ctx context.Context, def core.RecurringDefinition) (core.RecurringDefinition, error) {
	def.Name = strings.TrimSpace(def.Name)
	if err := def.Validate(); err != nil {
		return core.RecurringDefinition{}, err
	}
	if _, err := s.store.GetRecurringDefinition(ctx, def.UserID, def.ID); err != nil {
		return core.RecurringDefinition{}, err
	}
	return s.store.UpdateRecurringDefinition(ctx, def)
}

func (s *DefinitionService) Delete(ctx context.Context, userID, id string) error {
	return s.store.DeleteRecurringDefinition(ctx, userID, id)
}
