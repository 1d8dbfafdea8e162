package scenario

import (
	"context"
	"fmt"
)

// CustomSource lists leader-authored scenarios.
type CustomSource interface {
	ListCustomScenarios(ctx context.Context) ([]Scenario, error)
}

// Catalog merges the builtin scenarios with custom ones. Builtins come first.
type Catalog struct {
	custom CustomSource
}

func NewCatalog(custom CustomSource) *Catalog {
	return &Catalog{custom: custom}
}

func (c *Catalog) List(ctx context.Context) ([]Scenario, error) {
	all := Builtins()
	if c == nil || c.custom == nil {
		return all, nil
	}
	custom, err := c.custom.ListCustomScenarios(ctx)
	if err != nil {
		return nil, fmt.Errorf("list custom scenarios: %w", err)
	}
	for _, s := range custom {
		all = append(all, s.Clone())
	}
	return all, nil
}

func (c *Catalog) Get(ctx context.Context, id string) (Scenario, error) {
	all, err := c.List(ctx)
	if err != nil {
		return Scenario{}, err
	}
	for _, s := range all {
		if s.ID == id {
			return s, nil
		}
	}
	return Scenario{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}
