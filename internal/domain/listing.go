package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mode says whether a listing offers something or asks for something.
type Mode string

const (
	ModeHave Mode = "HAVE"
	ModeWant Mode = "WANT"
)

// Opposite returns the complementary mode: HAVE for WANT and vice versa.
func (m Mode) Opposite() Mode {
	if m == ModeHave {
		return ModeWant
	}
	return ModeHave
}

func (m Mode) Valid() bool {
	return m == ModeHave || m == ModeWant
}

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// AssetType classifies what a HAVE listing offers.
type AssetType string

const (
	AssetEquity    AssetType = "EQUITY"
	AssetCashflow  AssetType = "CASHFLOW"
	AssetEquipment AssetType = "EQUIPMENT"
	AssetCredit    AssetType = "CREDIT"
	AssetSkill     AssetType = "SKILL"
	AssetOther     AssetType = "OTHER"
)

func (a AssetType) Valid() bool {
	switch a {
	case AssetEquity, AssetCashflow, AssetEquipment, AssetCredit, AssetSkill, AssetOther:
		return true
	}
	return false
}

// WantCategory classifies what a WANT listing asks for.
type WantCategory string

const (
	WantBuyer     WantCategory = "BUYER"
	WantPartner   WantCategory = "PARTNER"
	WantCash      WantCategory = "CASH"
	WantEquipment WantCategory = "EQUIPMENT"
	WantOther     WantCategory = "OTHER"
)

func (w WantCategory) Valid() bool {
	switch w {
	case WantBuyer, WantPartner, WantCash, WantEquipment, WantOther:
		return true
	}
	return false
}

// MaxPhotos is the number of photo URLs a listing may carry.
const MaxPhotos = 10

// Asset is the offer side of a HAVE listing.
type Asset struct {
	Type           AssetType           `json:"type"`
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	EstimatedValue decimal.NullDecimal `json:"estimatedValue"`
	Terms          Terms               `json:"terms"`
}

// Want is the request side of a WANT listing.
type Want struct {
	Category    WantCategory        `json:"category"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	TargetValue decimal.NullDecimal `json:"targetValue"`
	Constraints Terms               `json:"constraints"`
}

// Listing is a user's post. Exactly one of Asset (HAVE) or Want (WANT) is set.
type Listing struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   string    `json:"ownerId"`
	OwnerName string    `json:"ownerName,omitempty"`
	Mode      Mode      `json:"mode"`
	Status    Status    `json:"status"`
	Photos    []string  `json:"photos"`
	CreatedAt time.Time `json:"createdAt"`
	Asset     *Asset    `json:"asset,omitempty"`
	Want      *Want     `json:"want,omitempty"`
}

// Title returns the title of whichever side the listing carries.
func (l *Listing) Title() string {
	switch {
	case l.Asset != nil:
		return l.Asset.Title
	case l.Want != nil:
		return l.Want.Title
	}
	return ""
}

// Summary is the "title: description" text handed to the rationale generator.
func (l *Listing) Summary() string {
	switch {
	case l.Asset != nil:
		return l.Asset.Title + ": " + l.Asset.Description
	case l.Want != nil:
		return l.Want.Title + ": " + l.Want.Description
	}
	return ""
}

// Validate checks the listing invariants. Errors wrap ErrInvalidListing.
func (l *Listing) Validate() error {
	if strings.TrimSpace(l.OwnerID) == "" {
		return invalid("owner is required")
	}
	if !l.Mode.Valid() {
		return invalid("mode must be HAVE or WANT, got %q", l.Mode)
	}
	if !l.Status.Valid() {
		return invalid("status must be ACTIVE or INACTIVE, got %q", l.Status)
	}

	switch l.Mode {
	case ModeHave:
		if l.Asset == nil || l.Want != nil {
			return invalid("a HAVE listing must carry an asset and no want")
		}
		if !l.Asset.Type.Valid() {
			return invalid("unknown asset type %q", l.Asset.Type)
		}
		if strings.TrimSpace(l.Asset.Title) == "" {
			return invalid("asset title is required")
		}
		if negative(l.Asset.EstimatedValue) {
			return invalid("estimated value must not be negative")
		}
	case ModeWant:
		if l.Want == nil || l.Asset != nil {
			return invalid("a WANT listing must carry a want and no asset")
		}
		if !l.Want.Category.Valid() {
			return invalid("unknown want category %q", l.Want.Category)
		}
		if strings.TrimSpace(l.Want.Title) == "" {
			return invalid("want title is required")
		}
		if negative(l.Want.TargetValue) {
			return invalid("target value must not be negative")
		}
	}

	if len(l.Photos) > MaxPhotos {
		return invalid("at most %d photos are allowed", MaxPhotos)
	}
	for _, photo := range l.Photos {
		u, err := url.Parse(photo)
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid("photo %q is not an absolute http(s) url", photo)
		}
	}

	return nil
}

func negative(v decimal.NullDecimal) bool {
	return v.Valid && v.Decimal.IsNegative()
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidListing, fmt.Sprintf(format, args...))
}
