package filtering

import "github.com/spigell/havewant/internal/domain"

// Candidates is the ordered list of listings considered for a match run.
type Candidates struct {
	Items []*domain.Listing
}

func (c *Candidates) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}

// Exclude drops every listing for which drop returns true, keeping order,
// and returns the ids that were removed.
func (c *Candidates) Exclude(drop func(l *domain.Listing) bool) []string {
	kept := c.Items[:0]
	var excluded []string
	for _, l := range c.Items {
		if l == nil || drop(l) {
			if l != nil {
				excluded = append(excluded, l.ID.String())
			}
			continue
		}
		kept = append(kept, l)
	}
	c.Items = kept
	return excluded
}

// IDs returns the listing ids in order.
func (c *Candidates) IDs() []string {
	ids := make([]string, 0, c.Len())
	for _, l := range c.Items {
		ids = append(ids, l.ID.String())
	}
	return ids
}
