package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/havewant/internal/ai"
	"github.com/spigell/havewant/internal/domain"
	"github.com/spigell/havewant/internal/store"
)

type fakeListings struct {
	mu       sync.Mutex
	items    map[uuid.UUID]*domain.Listing
	order    []uuid.UUID
	lastFind store.ListingFilter
	findErr  error
}

func newFakeListings(ls ...*domain.Listing) *fakeListings {
	f := &fakeListings{items: map[uuid.UUID]*domain.Listing{}}
	for _, l := range ls {
		f.items[l.ID] = l
		f.order = append(f.order, l.ID)
	}
	return f
}

func (f *fakeListings) Get(_ context.Context, id uuid.UUID) (*domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.items[id]
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	return l, nil
}

func (f *fakeListings) GetMany(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[uuid.UUID]*domain.Listing{}
	for _, id := range ids {
		if l, ok := f.items[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

// Find deliberately ignores the filter so the in-memory pipeline is exercised.
func (f *fakeListings) Find(_ context.Context, filter store.ListingFilter) ([]*domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFind = filter
	if f.findErr != nil {
		return nil, f.findErr
	}
	out := make([]*domain.Listing, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.items[id])
	}
	return out, nil
}

type fakeMatches struct {
	mu        sync.Mutex
	byPair    map[[2]uuid.UUID]*domain.Match
	created   int
	createErr map[uuid.UUID]error
}

func newFakeMatches() *fakeMatches {
	return &fakeMatches{byPair: map[[2]uuid.UUID]*domain.Match{}, createErr: map[uuid.UUID]error{}}
}

func pairKey(a, b uuid.UUID) [2]uuid.UUID {
	first, second := domain.CanonicalPair(a, b)
	return [2]uuid.UUID{first, second}
}

func (f *fakeMatches) FindByPair(_ context.Context, a, b uuid.UUID) (*domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.byPair[pairKey(a, b)]; ok {
		return m, nil
	}
	return nil, domain.ErrMatchNotFound
}

func (f *fakeMatches) Create(_ context.Context, m *domain.Match) (*domain.Match, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range []uuid.UUID{m.ListingAID, m.ListingBID} {
		if err := f.createErr[id]; err != nil {
			return nil, false, err
		}
	}
	key := pairKey(m.ListingAID, m.ListingBID)
	if existing, ok := f.byPair[key]; ok {
		return existing, false, nil
	}
	f.byPair[key] = m
	f.created++
	return m, true, nil
}

func (f *fakeMatches) FindForUser(context.Context, string) ([]*domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.Match, 0, len(f.byPair))
	for _, m := range f.byPair {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type countingGenerator struct {
	calls    atomic.Int32
	fallback bool
}

func (g *countingGenerator) Generate(_ context.Context, have, want string) *ai.Rationale {
	g.calls.Add(1)
	if g.fallback {
		return ai.Fallback()
	}
	return &ai.Rationale{Text: "fit: " + have + " / " + want, Structures: domain.EmptyStructures()}
}

func haveListing(owner string, t domain.AssetType, state string, value int64) *domain.Listing {
	l := &domain.Listing{
		ID: uuid.New(), OwnerID: owner, Mode: domain.ModeHave, Status: domain.StatusActive,
		Asset: &domain.Asset{Type: t, Title: "Have", Description: owner, Terms: domain.Terms{State: state}},
	}
	if value > 0 {
		l.Asset.EstimatedValue = decimal.NewNullDecimal(decimal.NewFromInt(value))
	}
	return l
}

func wantListing(owner string, c domain.WantCategory, state string, value int64) *domain.Listing {
	l := &domain.Listing{
		ID: uuid.New(), OwnerID: owner, Mode: domain.ModeWant, Status: domain.StatusActive,
		Want: &domain.Want{Category: c, Title: "Want", Description: owner, Constraints: domain.Terms{State: state}},
	}
	if value > 0 {
		l.Want.TargetValue = decimal.NewNullDecimal(decimal.NewFromInt(value))
	}
	return l
}

func TestFindMatchesCreatesAndScores(t *testing.T) {
	source := haveListing("alice", domain.AssetEquity, "GA", 1_000_000)
	perfect := wantListing("bob", domain.WantBuyer, "GA", 1_000_000)
	noSignal := wantListing("carol", domain.WantEquipment, "", 0)

	listings := newFakeListings(source, perfect, noSignal)
	matches := newFakeMatches()
	gen := &countingGenerator{}

	svc := NewService(listings, matches, gen, Config{}, zap.NewNop())

	out, err := svc.FindMatches(context.Background(), source.ID, "alice")
	require.NoError(t, err)
	require.Len(t, out, 2)

	require.Equal(t, domain.ModeWant, listings.lastFind.Mode)
	require.Equal(t, domain.StatusActive, listings.lastFind.Status)
	require.Equal(t, "alice", listings.lastFind.ExcludeOwnerID)
	require.Equal(t, DefaultCandidateLimit, listings.lastFind.Limit)

	require.InDelta(t, 1.0, out[0].Score, 1e-9)
	require.True(t, out[0].HasListing(perfect.ID))
	require.Equal(t, "fit: Have: alice / Want: bob", out[0].Rationale)

	// no category, region or price signal still clears the threshold
	require.InDelta(t, 0.6, out[1].Score, 1e-9)
	require.True(t, out[1].HasListing(noSignal.ID))

	for _, d := range out {
		require.True(t, d.ListingA.ID == d.ListingAID && d.ListingB.ID == d.ListingBID)
	}

	require.Equal(t, int32(2), gen.calls.Load())
	require.Equal(t, 2, matches.created)
}

func TestFindMatchesIsIdempotent(t *testing.T) {
	source := wantListing("alice", domain.WantCash, "nc", 100_000)
	c1 := haveListing("bob", domain.AssetCredit, "ga", 200_000)
	c2 := haveListing("carol", domain.AssetSkill, "", 0)

	listings := newFakeListings(source, c1, c2)
	matches := newFakeMatches()
	gen := &countingGenerator{}
	svc := NewService(listings, matches, gen, Config{Parallelism: 2}, zap.NewNop())

	first, err := svc.FindMatches(context.Background(), source.ID, "alice")
	require.NoError(t, err)
	second, err := svc.FindMatches(context.Background(), source.ID, "alice")
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		require.Equal(t, first[i].ID, second[i].ID)
	}
	require.Equal(t, len(first), matches.created)
	require.Equal(t, int32(len(first)), gen.calls.Load())
}

func TestFindMatchesExcludesOwnAndSameMode(t *testing.T) {
	source := haveListing("alice", domain.AssetEquity, "GA", 0)
	own := wantListing("alice", domain.WantBuyer, "GA", 0)
	sameMode := haveListing("bob", domain.AssetEquity, "GA", 0)
	inactive := wantListing("carol", domain.WantBuyer, "GA", 0)
	inactive.Status = domain.StatusInactive
	other := wantListing("dave", domain.WantBuyer, "GA", 0)

	listings := newFakeListings(source, own, sameMode, inactive, other)
	svc := NewService(listings, newFakeMatches(), &countingGenerator{}, Config{}, zap.NewNop())

	out, err := svc.FindMatches(context.Background(), source.ID, "alice")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.True(t, out[0].HasListing(other.ID))
}

func TestFindMatchesThreshold(t *testing.T) {
	source := haveListing("alice", domain.AssetSkill, "", 0)
	candidate := wantListing("bob", domain.WantCash, "", 0)

	matches := newFakeMatches()
	gen := &countingGenerator{}
	svc := NewService(newFakeListings(source, candidate), matches, gen, Config{MinScore: 0.7}, zap.NewNop())

	out, err := svc.FindMatches(context.Background(), source.ID, "alice")
	require.NoError(t, err)
	require.Empty(t, out)
	require.Zero(t, matches.created)
	require.Zero(t, gen.calls.Load())
}

func TestFindMatchesSourceNotFound(t *testing.T) {
	listings := newFakeListings()
	svc := NewService(listings, newFakeMatches(), &countingGenerator{}, Config{}, zap.NewNop())

	_, err := svc.FindMatches(context.Background(), uuid.New(), "alice")
	require.ErrorIs(t, err, domain.ErrListingNotFound)
	require.True(t, domain.IsNotFound(err))
	require.Empty(t, listings.lastFind.Mode)
}

func TestFindMatchesCandidateLookupFails(t *testing.T) {
	source := haveListing("alice", domain.AssetEquity, "GA", 0)
	listings := newFakeListings(source)
	listings.findErr = errors.New("db down")

	svc := NewService(listings, newFakeMatches(), &countingGenerator{}, Config{}, zap.NewNop())
	_, err := svc.FindMatches(context.Background(), source.ID, "alice")
	require.Error(t, err)
}

func TestFindMatchesDegradedGenerator(t *testing.T) {
	source := haveListing("alice", domain.AssetEquity, "GA", 0)
	a := wantListing("bob", domain.WantBuyer, "GA", 0)
	b := wantListing("carol", domain.WantOther, "", 0)

	svc := NewService(newFakeListings(source, a, b), newFakeMatches(), &countingGenerator{fallback: true}, Config{}, zap.NewNop())

	out, err := svc.FindMatches(context.Background(), source.ID, "alice")
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, d := range out {
		require.Equal(t, ai.FallbackRationale, d.Rationale)
		require.NotNil(t, d.SuggestedStructures.Structures)
		require.Empty(t, d.SuggestedStructures.Structures)
	}
}

func TestFindMatchesSkipsFailingCandidate(t *testing.T) {
	source := haveListing("alice", domain.AssetEquity, "GA", 0)
	broken := wantListing("bob", domain.WantBuyer, "GA", 0)
	ok := wantListing("carol", domain.WantBuyer, "GA", 0)

	matches := newFakeMatches()
	matches.createErr[broken.ID] = errors.New("constraint violated")

	svc := NewService(newFakeListings(source, broken, ok), matches, &countingGenerator{}, Config{}, zap.NewNop())

	out, err := svc.FindMatches(context.Background(), source.ID, "alice")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.True(t, out[0].HasListing(ok.ID))
}

func TestFindMatchesCapsCandidatePool(t *testing.T) {
	source := haveListing("alice", domain.AssetEquity, "GA", 0)
	all := []*domain.Listing{source}
	for i := 0; i < 80; i++ {
		all = append(all, wantListing(fmt.Sprintf("buyer-%d", i), domain.WantBuyer, "GA", 0))
	}

	listings := newFakeListings(all...)
	gen := &countingGenerator{}
	svc := NewService(listings, newFakeMatches(), gen, Config{CandidateLimit: 80}, zap.NewNop())

	out, err := svc.FindMatches(context.Background(), source.ID, "alice")
	require.NoError(t, err)

	require.Equal(t, DefaultCandidateLimit, listings.lastFind.Limit)
	require.Len(t, out, DefaultCandidateLimit)
	require.Equal(t, int32(DefaultCandidateLimit), gen.calls.Load())
}

type panickingGenerator struct {
	countingGenerator
	owner string
}

func (g *panickingGenerator) Generate(ctx context.Context, have, want string) *ai.Rationale {
	if strings.HasSuffix(want, g.owner) {
		panic("sdk exploded")
	}
	return g.countingGenerator.Generate(ctx, have, want)
}

func TestFindMatchesRecoversFromPanickingCandidate(t *testing.T) {
	source := haveListing("alice", domain.AssetEquity, "GA", 0)
	boom := wantListing("bob", domain.WantBuyer, "GA", 0)
	fine := wantListing("carol", domain.WantBuyer, "GA", 0)

	core, observed := observer.New(zapcore.ErrorLevel)
	svc := NewService(newFakeListings(source, boom, fine), newFakeMatches(), &panickingGenerator{owner: "bob"}, Config{}, zap.New(core))

	out, err := svc.FindMatches(context.Background(), source.ID, "alice")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.True(t, out[0].HasListing(fine.ID))

	entries := observed.FilterMessage("candidate panicked, skipping").All()
	require.Len(t, entries, 1)
	require.Equal(t, boom.ID.String(), entries[0].ContextMap()["candidate_listing_id"])
}

func TestFindMatchesReturnsExistingWithoutRegenerating(t *testing.T) {
	source := haveListing("alice", domain.AssetSkill, "", 0)
	candidate := wantListing("bob", domain.WantCash, "", 0)

	matches := newFakeMatches()
	stored := domain.NewMatch(source.ID, candidate.ID, 0.9, "stored earlier", domain.EmptyStructures())
	_, _, _ = matches.Create(context.Background(), stored)

	gen := &countingGenerator{}
	svc := NewService(newFakeListings(source, candidate), matches, gen, Config{MinScore: 0.95}, zap.NewNop())

	out, err := svc.FindMatches(context.Background(), source.ID, "alice")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, stored.ID, out[0].ID)
	require.Equal(t, "stored earlier", out[0].Rationale)
	require.Zero(t, gen.calls.Load())
}

func TestFindMatchesConcurrentCallsCreateOnce(t *testing.T) {
	source := haveListing("alice", domain.AssetEquity, "GA", 0)
	var candidates []*domain.Listing
	for i := 0; i < 10; i++ {
		candidates = append(candidates, wantListing("bob", domain.WantBuyer, "GA", 0))
	}

	listings := newFakeListings(append([]*domain.Listing{source}, candidates...)...)
	matches := newFakeMatches()
	svc := NewService(listings, matches, &countingGenerator{}, Config{Parallelism: 3}, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := svc.FindMatches(context.Background(), source.ID, "alice")
			if err != nil {
				t.Errorf("find matches: %v", err)
				return
			}
			if len(out) != len(candidates) {
				t.Errorf("expected %d matches, got %d", len(candidates), len(out))
			}
		}()
	}
	wg.Wait()

	require.Equal(t, len(candidates), matches.created)
	require.Len(t, matches.byPair, len(candidates))
}

func TestFindMatchesCancelledBeforeStart(t *testing.T) {
	source := haveListing("alice", domain.AssetEquity, "GA", 0)
	candidate := wantListing("bob", domain.WantBuyer, "GA", 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	matches := newFakeMatches()
	svc := NewService(newFakeListings(source, candidate), matches, &countingGenerator{}, Config{}, zap.NewNop())

	out, err := svc.FindMatches(ctx, source.ID, "alice")
	require.NoError(t, err)
	require.Empty(t, out)
	require.Zero(t, matches.created)
}

func TestListMatchesForUser(t *testing.T) {
	h := haveListing("alice", domain.AssetEquity, "GA", 0)
	w1 := wantListing("bob", domain.WantBuyer, "GA", 0)
	w2 := wantListing("carol", domain.WantBuyer, "GA", 0)

	matches := newFakeMatches()
	older := domain.NewMatch(h.ID, w1.ID, 0.8, "older", domain.EmptyStructures())
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := domain.NewMatch(h.ID, w2.ID, 0.9, "newer", domain.EmptyStructures())
	orphan := domain.NewMatch(h.ID, uuid.New(), 0.9, "orphan", domain.EmptyStructures())
	orphan.CreatedAt = time.Now().Add(-2 * time.Hour)
	for _, m := range []*domain.Match{older, newer, orphan} {
		_, _, _ = matches.Create(context.Background(), m)
	}

	svc := NewService(newFakeListings(h, w1, w2), matches, nil, Config{}, zap.NewNop())

	out, err := svc.ListMatchesForUser(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, newer.ID, out[0].ID)
	require.Equal(t, older.ID, out[1].ID)
	require.Equal(t, out[0].ListingAID, out[0].ListingA.ID)
	require.Equal(t, out[0].ListingBID, out[0].ListingB.ID)
}
