package filtering

import (
	"context"
	"strconv"
)

type limitFilter struct {
	disabled bool
	reason   string
	limit    int
}

// NewLimit creates a filter that keeps only the first N candidates.
func NewLimit() Filter {
	return &limitFilter{}
}

func (f *limitFilter) Name() string { return "limit" }

func (f *limitFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *limitFilter) IsEnabled() bool { return !f.disabled }

func (f *limitFilter) Validate(cfg *Config) error {
	f.limit = 0
	if cfg != nil {
		f.limit = cfg.Limit
	}
	return nil
}

func (f *limitFilter) Apply(_ context.Context, _ Deps, c *Candidates) (*Candidates, Step, error) {
	initial := c.Len()
	if f.limit > 0 && initial > f.limit {
		c.Items = c.Items[:f.limit]
	}

	return c, Step{Initial: initial, Dropped: initial - c.Len(), Left: c.Len()}, nil
}

func (f *limitFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"limit": strconv.Itoa(f.limit)},
	}
}
