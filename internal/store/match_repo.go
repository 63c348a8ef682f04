package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/spigell/havewant/internal/domain"
)

// MatchRepository stores at most one match per unordered listing pair.
type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

const matchColumns = `m.id, m.listing_a_id, m.listing_b_id, m.score, m.rationale, m.suggested_structures, m.created_at`

// FindByPair returns the match for the unordered pair (a, b).
func (r *MatchRepository) FindByPair(ctx context.Context, a, b uuid.UUID) (*domain.Match, error) {
	first, second := domain.CanonicalPair(a, b)

	var m domain.Match
	err := r.db.GetContext(ctx, &m, r.db.Rebind(`
		SELECT `+matchColumns+` FROM matches m
		WHERE m.listing_a_id = ? AND m.listing_b_id = ?`), first, second)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMatchNotFound
		}
		return nil, fmt.Errorf("match_repo.FindByPair: %w", err)
	}
	return &m, nil
}

// Create inserts m unless a match for the same pair already exists. It returns
// the stored match and whether this call created it. A concurrent insert of the
// same pair resolves to the row that won.
func (r *MatchRepository) Create(ctx context.Context, m *domain.Match) (*domain.Match, bool, error) {
	m.ListingAID, m.ListingBID = domain.CanonicalPair(m.ListingAID, m.ListingBID)
	if m.SuggestedStructures.Structures == nil {
		m.SuggestedStructures = domain.EmptyStructures()
	}

	res, err := r.db.NamedExecContext(ctx, `
		INSERT INTO matches
			(id, listing_a_id, listing_b_id, score, rationale, suggested_structures, created_at)
		VALUES
			(:id, :listing_a_id, :listing_b_id, :score, :rationale, :suggested_structures, :created_at)
		ON CONFLICT (listing_a_id, listing_b_id) DO NOTHING`, m)
	if err != nil {
		return nil, false, fmt.Errorf("match_repo.Create: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("match_repo.Create rows affected: %w", err)
	}
	if n == 1 {
		return m, true, nil
	}

	existing, err := r.FindByPair(ctx, m.ListingAID, m.ListingBID)
	if err != nil {
		return nil, false, fmt.Errorf("match_repo.Create read existing: %w", err)
	}
	return existing, false, nil
}

// FindForUser returns matches where userID owns either listing, newest first.
func (r *MatchRepository) FindForUser(ctx context.Context, userID string) ([]*domain.Match, error) {
	var matches []*domain.Match
	err := r.db.SelectContext(ctx, &matches, r.db.Rebind(`
		SELECT `+matchColumns+` FROM matches m
		JOIN listings la ON la.id = m.listing_a_id
		JOIN listings lb ON lb.id = m.listing_b_id
		WHERE la.owner_id = ? OR lb.owner_id = ?
		ORDER BY m.created_at DESC, m.id`), userID, userID)
	if err != nil {
		return nil, fmt.Errorf("match_repo.FindForUser: %w", err)
	}
	return matches, nil
}
