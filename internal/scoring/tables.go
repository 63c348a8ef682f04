package scoring

import "github.com/spigell/havewant/internal/domain"

// Tier is the strength of the category fit between an asset type and a want category.
type Tier int

const (
	TierNone Tier = iota
	TierWildcard
	TierSecondary
	TierPrimary
)

func (t Tier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierWildcard:
		return "wildcard"
	}
	return "none"
}

type categoryPair struct {
	asset domain.AssetType
	want  domain.WantCategory
}

var compatibility = map[categoryPair]Tier{
	{domain.AssetEquity, domain.WantBuyer}:        TierPrimary,
	{domain.AssetEquity, domain.WantPartner}:      TierPrimary,
	{domain.AssetCashflow, domain.WantCash}:       TierPrimary,
	{domain.AssetEquipment, domain.WantEquipment}: TierPrimary,
	{domain.AssetCredit, domain.WantCash}:         TierPrimary,
	{domain.AssetSkill, domain.WantPartner}:       TierPrimary,
	{domain.AssetCredit, domain.WantBuyer}:        TierSecondary,
	{domain.AssetCashflow, domain.WantBuyer}:      TierSecondary,
	{domain.AssetEquity, domain.WantCash}:         TierSecondary,
	{domain.AssetCredit, domain.WantPartner}:      TierSecondary,
	{domain.AssetCashflow, domain.WantPartner}:    TierSecondary,
	{domain.AssetEquipment, domain.WantCash}:      TierSecondary,
}

// Compatibility returns the tier for an asset type offered against a want category.
// OTHER on either side is a wildcard unless the pair is listed explicitly.
func Compatibility(asset domain.AssetType, want domain.WantCategory) Tier {
	if tier, ok := compatibility[categoryPair{asset, want}]; ok {
		return tier
	}
	if asset == domain.AssetOther || want == domain.WantOther {
		return TierWildcard
	}
	return TierNone
}

// adjacency lists neighbouring states. It is made symmetric in init.
var adjacency = map[string][]string{
	"ga": {"fl", "al", "tn", "nc", "sc"},
	"fl": {"ga", "al"},
	"al": {"ga", "fl", "tn", "ms"},
	"nc": {"ga", "tn", "va", "sc"},
	"sc": {"ga", "nc"},
	"tn": {"ga", "al", "nc", "va", "ky", "ms", "ar", "mo"},
}

var neighbours = map[string]map[string]bool{}

func init() {
	link := func(a, b string) {
		if neighbours[a] == nil {
			neighbours[a] = map[string]bool{}
		}
		neighbours[a][b] = true
	}
	for state, list := range adjacency {
		for _, other := range list {
			link(state, other)
			link(other, state)
		}
	}
}

// Adjacent reports whether two normalized regions share a border.
func Adjacent(a, b string) bool {
	return neighbours[a][b]
}
