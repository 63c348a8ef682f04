package filtering

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/havewant/internal/domain"
)

type activeFilter struct{}

// NewActive creates a filter that removes inactive listings.
func NewActive() Filter {
	return &activeFilter{}
}

func (f *activeFilter) Name() string { return "active" }

func (f *activeFilter) Disable(string) {}

func (f *activeFilter) IsEnabled() bool { return true }

func (f *activeFilter) Validate(*Config) error { return nil }

func (f *activeFilter) Apply(_ context.Context, deps Deps, c *Candidates) (*Candidates, Step, error) {
	initial := c.Len()
	excluded := c.Exclude(func(l *domain.Listing) bool { return l.Status != domain.StatusActive })
	if len(excluded) > 0 {
		deps.Logger.Info("excluding inactive listings", zap.Strings("excluded_listings", excluded))
	}

	return c, Step{Initial: initial, Dropped: len(excluded), Left: c.Len()}, nil
}
