package filtering

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spigell/havewant/internal/domain"
)

type modeFilter struct {
	want domain.Mode
}

// NewMode creates a filter that keeps only listings complementary to the source.
func NewMode() Filter {
	return &modeFilter{}
}

func (f *modeFilter) Name() string { return "mode" }

func (f *modeFilter) Disable(string) {}

func (f *modeFilter) IsEnabled() bool { return true }

func (f *modeFilter) Validate(cfg *Config) error {
	if cfg == nil || cfg.Source == nil {
		return errors.New("source listing is required")
	}
	if !cfg.Source.Mode.Valid() {
		return errors.New("source listing has no valid mode")
	}
	f.want = cfg.Source.Mode.Opposite()
	return nil
}

func (f *modeFilter) Apply(_ context.Context, deps Deps, c *Candidates) (*Candidates, Step, error) {
	initial := c.Len()
	excluded := c.Exclude(func(l *domain.Listing) bool { return l.Mode != f.want })
	if len(excluded) > 0 {
		deps.Logger.Info("excluding listings of the same mode",
			zap.String("kept_mode", string(f.want)),
			zap.Strings("excluded_listings", excluded),
		)
	}

	return c, Step{Initial: initial, Dropped: len(excluded), Left: c.Len()}, nil
}

func (f *modeFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: true, Details: map[string]string{"mode": string(f.want)}}
}
