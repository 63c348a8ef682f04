// Package matching pairs a listing with complementary listings, scores every
// pair and persists the ones worth showing together with an AI rationale.
package matching

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/havewant/internal/ai"
	"github.com/spigell/havewant/internal/domain"
	"github.com/spigell/havewant/internal/filtering"
	"github.com/spigell/havewant/internal/logger"
	"github.com/spigell/havewant/internal/scoring"
	"github.com/spigell/havewant/internal/store"
)

const (
	DefaultMinScore = 0.4
	// DefaultCandidateLimit is also the ceiling: one request never evaluates
	// more candidates, so it never makes more AI calls than this.
	DefaultCandidateLimit = 50
	DefaultParallelism    = 4
)

type ListingStore interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Listing, error)
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Listing, error)
	Find(ctx context.Context, f store.ListingFilter) ([]*domain.Listing, error)
}

type MatchStore interface {
	FindByPair(ctx context.Context, a, b uuid.UUID) (*domain.Match, error)
	Create(ctx context.Context, m *domain.Match) (*domain.Match, bool, error)
	FindForUser(ctx context.Context, userID string) ([]*domain.Match, error)
}

type Config struct {
	MinScore       float64
	CandidateLimit int
	Parallelism    int
}

type Service struct {
	listings  ListingStore
	matches   MatchStore
	generator ai.RationaleGenerator
	cfg       Config
	logger    *zap.Logger
}

func NewService(listings ListingStore, matches MatchStore, generator ai.RationaleGenerator, cfg Config, logger *zap.Logger) *Service {
	if cfg.MinScore <= 0 {
		cfg.MinScore = DefaultMinScore
	}
	if cfg.CandidateLimit <= 0 || cfg.CandidateLimit > DefaultCandidateLimit {
		cfg.CandidateLimit = DefaultCandidateLimit
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = DefaultParallelism
	}
	if generator == nil {
		generator = ai.Disabled{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		listings:  listings,
		matches:   matches,
		generator: generator,
		cfg:       cfg,
		logger:    logger,
	}
}

// FindMatches returns the matches of the source listing with every active,
// complementary listing not owned by the requester: previously stored matches
// as they are, new ones scored and persisted when they reach the minimum score.
// Results follow candidate order (newest candidate first).
func (s *Service) FindMatches(ctx context.Context, sourceID uuid.UUID, requesterID string) ([]*domain.MatchDetail, error) {
	source, err := s.listings.Get(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("matching.FindMatches: %w", err)
	}

	log := logger.WithMatching(s.logger, source.ID.String(), requesterID)

	found, err := s.listings.Find(ctx, store.ListingFilter{
		Mode:           source.Mode.Opposite(),
		Status:         domain.StatusActive,
		ExcludeOwnerID: requesterID,
		Limit:          s.cfg.CandidateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("matching.FindMatches candidates: %w", err)
	}

	candidates, err := filtering.Run(ctx,
		&filtering.Config{Source: source, RequesterID: requesterID, Limit: s.cfg.CandidateLimit},
		filtering.Deps{Logger: log},
		filtering.Default(),
		&filtering.Candidates{Items: found},
	)
	if err != nil {
		return nil, fmt.Errorf("matching.FindMatches filter: %w", err)
	}

	log.Info("evaluating candidates", zap.Int("count", candidates.Len()))
	log.Debug("candidate pool", zap.Strings("candidate_ids", candidates.IDs()))

	results := make([]*domain.MatchDetail, candidates.Len())

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Parallelism)

	for i, candidate := range candidates.Items {
		if ctx.Err() != nil {
			log.Warn("request cancelled, skipping remaining candidates", zap.Int("skipped", candidates.Len()-i))
			break
		}

		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					log.Error("candidate panicked, skipping",
						zap.String(logger.FieldCandidateListing, candidate.ID.String()),
						zap.Any("panic", r),
						zap.Stack("stack"),
					)
				}
			}()

			// started work finishes even if the caller goes away
			m, err := s.matchCandidate(context.WithoutCancel(ctx), log, source, candidate)
			if err != nil {
				log.Warn("candidate failed, skipping",
					zap.String(logger.FieldCandidateListing, candidate.ID.String()),
					zap.Error(err),
				)
				return nil
			}
			if m != nil {
				results[i] = detail(m, source, candidate)
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*domain.MatchDetail, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}

	log.Info("matching finished", zap.Int("candidates", candidates.Len()), zap.Int("matches", len(out)))
	return out, nil
}

// matchCandidate returns the stored match for the pair, a newly created one,
// or nil when the pair scores below the threshold.
func (s *Service) matchCandidate(ctx context.Context, log *zap.Logger, source, candidate *domain.Listing) (*domain.Match, error) {
	log = log.With(zap.String(logger.FieldCandidateListing, candidate.ID.String()))

	existing, err := s.matches.FindByPair(ctx, source.ID, candidate.ID)
	if err == nil {
		log.Debug("match already exists", zap.String(logger.FieldMatch, existing.ID.String()))
		return existing, nil
	}
	if !errors.Is(err, domain.ErrMatchNotFound) {
		return nil, fmt.Errorf("lookup existing match: %w", err)
	}

	score := scoring.Score(source, candidate)
	if score < s.cfg.MinScore {
		log.Debug("score below threshold", zap.Float64("score", score), zap.Float64("threshold", s.cfg.MinScore))
		return nil, nil
	}

	have, want := source, candidate
	if have.Mode != domain.ModeHave {
		have, want = want, have
	}

	rationale := s.generator.Generate(ctx, have.Summary(), want.Summary())

	m, created, err := s.matches.Create(ctx, domain.NewMatch(source.ID, candidate.ID, score, rationale.Text, rationale.Structures))
	if err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}

	if created {
		log.Info("match created", zap.String(logger.FieldMatch, m.ID.String()), zap.Float64("score", score))
	} else {
		log.Info("match created concurrently, using stored one", zap.String(logger.FieldMatch, m.ID.String()))
	}

	return m, nil
}

// ListMatchesForUser returns every match involving a listing owned by userID,
// newest first, with both listings hydrated.
func (s *Service) ListMatchesForUser(ctx context.Context, userID string) ([]*domain.MatchDetail, error) {
	matches, err := s.matches.FindForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("matching.ListMatchesForUser: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(matches)*2)
	seen := make(map[uuid.UUID]bool, len(matches)*2)
	for _, m := range matches {
		for _, id := range []uuid.UUID{m.ListingAID, m.ListingBID} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	listings, err := s.listings.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("matching.ListMatchesForUser hydrate: %w", err)
	}

	out := make([]*domain.MatchDetail, 0, len(matches))
	for _, m := range matches {
		a, b := listings[m.ListingAID], listings[m.ListingBID]
		if a == nil || b == nil {
			s.logger.Warn("match references a missing listing", zap.String(logger.FieldMatch, m.ID.String()))
			continue
		}
		out = append(out, &domain.MatchDetail{Match: m, ListingA: a, ListingB: b})
	}
	return out, nil
}

func detail(m *domain.Match, x, y *domain.Listing) *domain.MatchDetail {
	if x.ID != m.ListingAID {
		x, y = y, x
	}
	return &domain.MatchDetail{Match: m, ListingA: x, ListingB: y}
}
