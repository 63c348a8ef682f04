package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spigell/havewant/internal/api/middleware"
	"github.com/spigell/havewant/internal/domain"
	"github.com/spigell/havewant/internal/store"
)

const maxPageSize = 100

type ListingService interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Listing, error)
	Find(ctx context.Context, f store.ListingFilter) ([]*domain.Listing, error)
	Create(ctx context.Context, l *domain.Listing) error
	SetStatus(ctx context.Context, id uuid.UUID, ownerID string, status domain.Status) error
}

type ListingHandler struct {
	svc ListingService
}

func NewListingHandler(svc ListingService) *ListingHandler {
	return &ListingHandler{svc: svc}
}

type assetRequest struct {
	Type           string              `json:"type"`
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	EstimatedValue decimal.NullDecimal `json:"estimatedValue"`
	Terms          map[string]any      `json:"terms"`
}

type wantRequest struct {
	Category    string              `json:"category"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	TargetValue decimal.NullDecimal `json:"targetValue"`
	Constraints map[string]any      `json:"constraints"`
}

type createListingRequest struct {
	Mode   string        `json:"mode" binding:"required"`
	Photos []string      `json:"photos"`
	Asset  *assetRequest `json:"asset"`
	Want   *wantRequest  `json:"want"`
}

func (r *createListingRequest) toListing(ownerID string) (*domain.Listing, error) {
	l := &domain.Listing{
		OwnerID: ownerID,
		Mode:    domain.Mode(strings.ToUpper(strings.TrimSpace(r.Mode))),
		Status:  domain.StatusActive,
		Photos:  r.Photos,
	}

	if r.Asset != nil {
		terms, err := domain.DecodeTerms(r.Asset.Terms)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidListing, err)
		}
		l.Asset = &domain.Asset{
			Type:           domain.AssetType(strings.ToUpper(strings.TrimSpace(r.Asset.Type))),
			Title:          strings.TrimSpace(r.Asset.Title),
			Description:    strings.TrimSpace(r.Asset.Description),
			EstimatedValue: r.Asset.EstimatedValue,
			Terms:          terms,
		}
	}

	if r.Want != nil {
		constraints, err := domain.DecodeTerms(r.Want.Constraints)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidListing, err)
		}
		l.Want = &domain.Want{
			Category:    domain.WantCategory(strings.ToUpper(strings.TrimSpace(r.Want.Category))),
			Title:       strings.TrimSpace(r.Want.Title),
			Description: strings.TrimSpace(r.Want.Description),
			TargetValue: r.Want.TargetValue,
			Constraints: constraints,
		}
	}

	return l, nil
}

// Create handles POST /api/listings.
func (h *ListingHandler) Create(c *gin.Context) {
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	listing, err := req.toListing(middleware.GetUserID(c))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	if err := h.svc.Create(c.Request.Context(), listing); err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, listing)
}

// Get handles GET /api/listings/:id.
func (h *ListingHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "id must be a uuid")
		return
	}

	listing, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, listing)
}

// List handles GET /api/listings?mode=&status=&mine=&limit=&offset=.
func (h *ListingHandler) List(c *gin.Context) {
	filter := store.ListingFilter{
		Mode:   domain.Mode(strings.ToUpper(c.Query("mode"))),
		Status: domain.Status(strings.ToUpper(c.DefaultQuery("status", string(domain.StatusActive)))),
		Limit:  queryInt(c, "limit", 20),
		Offset: queryInt(c, "offset", 0),
	}
	if filter.Mode != "" && !filter.Mode.Valid() {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "mode must be HAVE or WANT")
		return
	}
	if !filter.Status.Valid() {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "status must be ACTIVE or INACTIVE")
		return
	}
	if filter.Limit <= 0 || filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if mine, _ := strconv.ParseBool(c.Query("mine")); mine {
		filter.OwnerID = middleware.GetUserID(c)
	}

	listings, err := h.svc.Find(c.Request.Context(), filter)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, nonNil(listings))
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetStatus handles PATCH /api/listings/:id/status.
func (h *ListingHandler) SetStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "id must be a uuid")
		return
	}

	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "status is required")
		return
	}

	status := domain.Status(strings.ToUpper(strings.TrimSpace(req.Status)))
	if err := h.svc.SetStatus(c.Request.Context(), id, middleware.GetUserID(c), status); err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{"id": id, "status": status})
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
