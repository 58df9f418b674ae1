package seed

import (
	"context"
	"fmt"
	"slices"
)

// Discovery enumerates seeders held by a Repository.
type Discovery struct {
	repo Repository
}

// NewDiscovery returns a Discovery over repo.
func NewDiscovery(repo Repository) *Discovery {
	return &Discovery{repo: repo}
}

// List returns every seeder name in ascending order. The timestamp prefix
// makes this chronological.
func (d *Discovery) List(ctx context.Context) ([]string, error) {
	names, err := d.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list seeders: %w", err)
	}
	names = slices.Clone(names)
	slices.Sort(names)
	return slices.Compact(names), nil
}

// Pending returns names absent from applied, preserving order.
func Pending(names []string, applied map[string]struct{}) []string {
	var pending []string
	for _, name := range names {
		if _, ok := applied[name]; ok {
			continue
		}
		pending = append(pending, name)
	}
	return pending
}
