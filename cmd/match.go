package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/havewant/internal/domain"
	"github.com/spigell/havewant/internal/store"
)

const promptListingLimit = 50

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Find matches for a listing, or print the matches of a user",
	Run: func(cmd *cobra.Command, _ []string) {
		runMatch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("listing", "l", "", "source listing id. When empty, a listing is chosen interactively.")
	matchCmd.Flags().StringP("user", "u", "", "acting user id; their own listings are never candidates")
	matchCmd.Flags().Bool("list", false, "print the stored matches of --user instead of matching")
}

func runMatch(cmd *cobra.Command) {
	ctx := context.Background()

	cfg, logger := setup()
	defer logger.Sync()

	userID := strings.TrimSpace(cmd.Flag("user").Value.String())
	if userID == "" {
		logger.Fatal("--user is required")
	}

	svc, err := buildServices(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("building services", zap.Error(err))
	}
	defer svc.db.Close()

	var (
		details []*domain.MatchDetail
		// own picks the user's side of a match so the other side can be reported.
		own func(d *domain.MatchDetail) uuid.UUID
	)

	if list, _ := cmd.Flags().GetBool("list"); list {
		details, err = svc.matching.ListMatchesForUser(ctx, userID)
		if err != nil {
			logger.Fatal("listing matches", zap.Error(err))
		}
		own = func(d *domain.MatchDetail) uuid.UUID { return ownSide(d, userID) }
	} else {
		sourceID, err := resolveListing(ctx, svc.listings, cmd.Flag("listing").Value.String(), userID)
		if err != nil {
			logger.Fatal("choosing a listing", zap.Error(err))
		}

		details, err = svc.matching.FindMatches(ctx, sourceID, userID)
		if err != nil {
			logger.Fatal("finding matches", zap.Error(err))
		}
		own = func(*domain.MatchDetail) uuid.UUID { return sourceID }
	}

	for _, d := range details {
		logger.Info("match",
			zap.String("match_id", d.ID.String()),
			zap.Float64("score", d.Score),
			zap.String("counterpart_listing_id", d.OtherListing(own(d)).String()),
		)
	}
	logger.Info("matches", zap.Int("count", len(details)))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if details == nil {
		details = []*domain.MatchDetail{}
	}
	if err := enc.Encode(details); err != nil {
		logger.Fatal("printing matches", zap.Error(err))
	}
}

// resolveListing parses the flag value or lets the user pick one of their
// active listings.
func resolveListing(ctx context.Context, listings *store.ListingRepository, flag, userID string) (uuid.UUID, error) {
	if flag = strings.TrimSpace(flag); flag != "" {
		id, err := uuid.Parse(flag)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid listing id %q: %w", flag, err)
		}
		return id, nil
	}

	items, err := listings.Find(ctx, store.ListingFilter{
		Status:  domain.StatusActive,
		OwnerID: userID,
		Limit:   promptListingLimit,
	})
	if err != nil {
		return uuid.Nil, err
	}
	if len(items) == 0 {
		return uuid.Nil, errors.New("user has no active listings")
	}

	labels := make([]string, 0, len(items))
	for _, l := range items {
		labels = append(labels, fmt.Sprintf("%s %s / %s", l.ID, l.Mode, l.Title()))
	}

	listingPrompt := promptui.Select{
		Label: "Choose a listing and press ENTER",
		Items: labels,
	}

	idx, _, err := listingPrompt.Run()
	if err != nil {
		return uuid.Nil, err
	}

	return items[idx].ID, nil
}

// ownSide returns the listing of d owned by userID, or side A when the user
// owns both or neither.
func ownSide(d *domain.MatchDetail, userID string) uuid.UUID {
	if d.ListingB != nil && d.ListingB.OwnerID == userID && (d.ListingA == nil || d.ListingA.OwnerID != userID) {
		return d.ListingBID
	}
	return d.ListingAID
}
