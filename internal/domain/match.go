package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DealStructure is one suggested way to structure a deal between two listings.
type DealStructure struct {
	Name       string   `json:"name"`
	HowItWorks string   `json:"howItWorks"`
	KeyTerms   []string `json:"keyTerms"`
	Risks      []string `json:"risks"`
	NextSteps  []string `json:"nextSteps"`
}

// Structures is the persisted suggestedStructures document.
type Structures struct {
	Structures []DealStructure `json:"structures"`
}

// EmptyStructures is what a match carries when no suggestions could be produced.
func EmptyStructures() Structures {
	return Structures{Structures: []DealStructure{}}
}

func (s Structures) MarshalJSON() ([]byte, error) {
	type plain Structures
	if s.Structures == nil {
		s.Structures = []DealStructure{}
	}
	return json.Marshal(plain(s))
}

func (s Structures) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *Structures) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*s = EmptyStructures()
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("structures: unsupported column type %T", src)
	}

	type plain Structures
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("structures: %w", err)
	}
	if decoded.Structures == nil {
		decoded.Structures = []DealStructure{}
	}
	*s = Structures(decoded)
	return nil
}

// Match is a scored pairing of a HAVE and a WANT listing. ListingAID is always
// the lexically smaller id of the pair.
type Match struct {
	ID                  uuid.UUID  `json:"id" db:"id"`
	ListingAID          uuid.UUID  `json:"listingAId" db:"listing_a_id"`
	ListingBID          uuid.UUID  `json:"listingBId" db:"listing_b_id"`
	Score               float64    `json:"score" db:"score"`
	Rationale           string     `json:"rationale" db:"rationale"`
	SuggestedStructures Structures `json:"suggestedStructures" db:"suggested_structures"`
	CreatedAt           time.Time  `json:"createdAt" db:"created_at"`
}

// NewMatch builds a match for the unordered pair (a, b) in canonical order.
func NewMatch(a, b uuid.UUID, score float64, rationale string, structures Structures) *Match {
	first, second := CanonicalPair(a, b)
	return &Match{
		ID:                  uuid.New(),
		ListingAID:          first,
		ListingBID:          second,
		Score:               score,
		Rationale:           rationale,
		SuggestedStructures: structures,
		CreatedAt:           time.Now().UTC(),
	}
}

// CanonicalPair orders two listing ids so that the unordered pair has exactly
// one representation.
func CanonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if b.String() < a.String() {
		return b, a
	}
	return a, b
}

// HasListing reports whether id is one side of the match.
func (m *Match) HasListing(id uuid.UUID) bool {
	return m.ListingAID == id || m.ListingBID == id
}

// OtherListing returns the id on the opposite side of id.
func (m *Match) OtherListing(id uuid.UUID) uuid.UUID {
	if m.ListingAID == id {
		return m.ListingBID
	}
	return m.ListingAID
}

// MatchDetail is a match with both listings hydrated for presentation.
type MatchDetail struct {
	*Match
	ListingA *Listing `json:"listingA"`
	ListingB *Listing `json:"listingB"`
}
