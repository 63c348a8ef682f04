package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestCanonicalPair(t *testing.T) {
	t.Parallel()

	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("ffffffff-0000-0000-0000-000000000001")

	first, second := CanonicalPair(b, a)
	if first != a || second != b {
		t.Fatalf("expected (%s, %s), got (%s, %s)", a, b, first, second)
	}

	first, second = CanonicalPair(a, b)
	if first != a || second != b {
		t.Fatalf("expected order to be stable")
	}
}

func TestNewMatchOrdersPair(t *testing.T) {
	t.Parallel()

	a := uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000000")
	b := uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000000")

	m := NewMatch(b, a, 0.85, "fits", EmptyStructures())
	if m.ListingAID != a || m.ListingBID != b {
		t.Fatalf("expected canonical order, got %s/%s", m.ListingAID, m.ListingBID)
	}
	if !m.HasListing(a) || !m.HasListing(b) {
		t.Fatalf("expected match to contain both listings")
	}
	if m.OtherListing(a) != b || m.OtherListing(b) != a {
		t.Fatalf("unexpected other listing")
	}
}

func TestStructuresMarshalEmpty(t *testing.T) {
	t.Parallel()

	out, err := json.Marshal(Structures{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `{"structures":[]}` {
		t.Fatalf("unexpected json %s", out)
	}

	var s Structures
	if err := s.Scan(`{"structures":[{"name":"Seller carry","keyTerms":["5%"]}]}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Structures) != 1 || s.Structures[0].Name != "Seller carry" {
		t.Fatalf("unexpected structures %+v", s)
	}
}
