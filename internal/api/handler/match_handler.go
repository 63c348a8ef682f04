package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/spigell/havewant/internal/api/middleware"
	"github.com/spigell/havewant/internal/domain"
)

type MatchService interface {
	FindMatches(ctx context.Context, sourceID uuid.UUID, requesterID string) ([]*domain.MatchDetail, error)
	ListMatchesForUser(ctx context.Context, userID string) ([]*domain.MatchDetail, error)
}

type MatchHandler struct {
	svc MatchService
}

func NewMatchHandler(svc MatchService) *MatchHandler {
	return &MatchHandler{svc: svc}
}

type findMatchesRequest struct {
	ListingID string `json:"listingId" binding:"required"`
}

// FindMatches handles POST /api/match.
func (h *MatchHandler) FindMatches(c *gin.Context) {
	var req findMatchesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "listingId is required")
		return
	}

	id, err := uuid.Parse(req.ListingID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "listingId must be a uuid")
		return
	}

	matches, err := h.svc.FindMatches(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, nonNil(matches))
}

// ListMatches handles GET /api/match.
func (h *MatchHandler) ListMatches(c *gin.Context) {
	matches, err := h.svc.ListMatchesForUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, nonNil(matches))
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
