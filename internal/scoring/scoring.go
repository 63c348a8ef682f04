// Package scoring implements the deterministic rule-based compatibility score
// between a HAVE listing and a WANT listing.
package scoring

import (
	"github.com/shopspring/decimal"

	"github.com/spigell/havewant/internal/domain"
)

var (
	base = decimal.RequireFromString("0.6")
	ceil = decimal.NewFromInt(1)

	categoryBonus = map[Tier]decimal.Decimal{
		TierPrimary:   decimal.RequireFromString("0.25"),
		TierSecondary: decimal.RequireFromString("0.15"),
		TierWildcard:  decimal.RequireFromString("0.1"),
	}

	sameRegionBonus     = decimal.RequireFromString("0.1")
	adjacentRegionBonus = decimal.RequireFromString("0.05")

	closePriceRatio = decimal.RequireFromString("0.8")
	closePriceBonus = decimal.RequireFromString("0.1")
	nearPriceRatio  = decimal.RequireFromString("0.5")
	nearPriceBonus  = decimal.RequireFromString("0.05")
)

// Breakdown is the per-rule contribution to a score.
type Breakdown struct {
	Base     decimal.Decimal
	Category decimal.Decimal
	Region   decimal.Decimal
	Price    decimal.Decimal
}

// Total is the capped sum of all contributions.
func (b Breakdown) Total() float64 {
	sum := b.Base.Add(b.Category).Add(b.Region).Add(b.Price)
	if sum.GreaterThan(ceil) {
		sum = ceil
	}
	return sum.InexactFloat64()
}

// Score returns the compatibility of two listings in [0.6, 1.0]. The order of
// the arguments does not matter.
func Score(a, b *domain.Listing) float64 {
	return Explain(a, b).Total()
}

// Explain returns the contribution of every rule for the pair. Pairs that are
// not one HAVE and one WANT only receive the base score.
func Explain(a, b *domain.Listing) Breakdown {
	out := Breakdown{Base: base}

	have, want := sides(a, b)
	if have == nil || want == nil {
		return out
	}

	out.Category = categoryBonus[Compatibility(have.Type, want.Category)]
	out.Region = regionBonus(have.Terms.Region(), want.Constraints.Region())
	out.Price = priceBonus(have.EstimatedValue, want.TargetValue)

	return out
}

func sides(a, b *domain.Listing) (*domain.Asset, *domain.Want) {
	if a == nil || b == nil {
		return nil, nil
	}
	if a.Mode == domain.ModeWant {
		a, b = b, a
	}
	if a.Mode != domain.ModeHave || b.Mode != domain.ModeWant {
		return nil, nil
	}
	return a.Asset, b.Want
}

func regionBonus(have, want string) decimal.Decimal {
	if have == "" || want == "" {
		return decimal.Zero
	}
	if have == want {
		return sameRegionBonus
	}
	if Adjacent(have, want) {
		return adjacentRegionBonus
	}
	return decimal.Zero
}

func priceBonus(estimated, target decimal.NullDecimal) decimal.Decimal {
	if !estimated.Valid || !target.Valid {
		return decimal.Zero
	}
	if !estimated.Decimal.IsPositive() || !target.Decimal.IsPositive() {
		return decimal.Zero
	}

	low := decimal.Min(estimated.Decimal, target.Decimal)
	high := decimal.Max(estimated.Decimal, target.Decimal)
	ratio := low.DivRound(high, 16)

	switch {
	case ratio.GreaterThanOrEqual(closePriceRatio):
		return closePriceBonus
	case ratio.GreaterThanOrEqual(nearPriceRatio):
		return nearPriceBonus
	}
	return decimal.Zero
}
