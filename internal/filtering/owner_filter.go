package filtering

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/havewant/internal/domain"
)

type notOwnFilter struct {
	requester string
}

// NewNotOwn creates a filter that removes listings owned by the requesting user.
func NewNotOwn() Filter {
	return &notOwnFilter{}
}

func (f *notOwnFilter) Name() string { return "not_own" }

func (f *notOwnFilter) Disable(string) {}

func (f *notOwnFilter) IsEnabled() bool { return true }

func (f *notOwnFilter) Validate(cfg *Config) error {
	if cfg == nil || strings.TrimSpace(cfg.RequesterID) == "" {
		return errors.New("requesting user is required")
	}
	f.requester = cfg.RequesterID
	return nil
}

func (f *notOwnFilter) Apply(_ context.Context, deps Deps, c *Candidates) (*Candidates, Step, error) {
	initial := c.Len()
	excluded := c.Exclude(func(l *domain.Listing) bool { return l.OwnerID == f.requester })
	if len(excluded) > 0 {
		deps.Logger.Info("excluding own listings", zap.Strings("excluded_listings", excluded))
	}

	return c, Step{Initial: initial, Dropped: len(excluded), Left: c.Len()}, nil
}
