package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/spigell/havewant/internal/domain"
)

// ListingFilter narrows FindListings. Zero values mean "any".
type ListingFilter struct {
	Mode           domain.Mode
	Status         domain.Status
	OwnerID        string
	ExcludeOwnerID string
	Limit          int
	Offset         int
}

// ListingRepository handles listings together with their asset or want row.
type ListingRepository struct {
	db *sqlx.DB
}

func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

type photoList []string

func (p photoList) Value() (driver.Value, error) {
	if p == nil {
		p = photoList{}
	}
	b, err := json.Marshal([]string(p))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *photoList) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*p = photoList{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("photos: unsupported column type %T", src)
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("photos: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*p = out
	return nil
}

type listingRow struct {
	ID        uuid.UUID      `db:"id"`
	OwnerID   string         `db:"owner_id"`
	OwnerName sql.NullString `db:"owner_name"`
	Mode      string         `db:"mode"`
	Status    string         `db:"status"`
	Photos    photoList      `db:"photos"`
	CreatedAt time.Time      `db:"created_at"`

	AssetType        sql.NullString      `db:"asset_type"`
	AssetTitle       sql.NullString      `db:"asset_title"`
	AssetDescription sql.NullString      `db:"asset_description"`
	EstimatedValue   decimal.NullDecimal `db:"estimated_value"`
	Terms            domain.Terms        `db:"terms"`

	WantCategory    sql.NullString      `db:"want_category"`
	WantTitle       sql.NullString      `db:"want_title"`
	WantDescription sql.NullString      `db:"want_description"`
	TargetValue     decimal.NullDecimal `db:"target_value"`
	Constraints     domain.Terms        `db:"want_constraints"`
}

func (r listingRow) toDomain() *domain.Listing {
	l := &domain.Listing{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		OwnerName: r.OwnerName.String,
		Mode:      domain.Mode(r.Mode),
		Status:    domain.Status(r.Status),
		Photos:    []string(r.Photos),
		CreatedAt: r.CreatedAt,
	}
	if r.AssetType.Valid {
		l.Asset = &domain.Asset{
			Type:           domain.AssetType(r.AssetType.String),
			Title:          r.AssetTitle.String,
			Description:    r.AssetDescription.String,
			EstimatedValue: r.EstimatedValue,
			Terms:          r.Terms,
		}
	}
	if r.WantCategory.Valid {
		l.Want = &domain.Want{
			Category:    domain.WantCategory(r.WantCategory.String),
			Title:       r.WantTitle.String,
			Description: r.WantDescription.String,
			TargetValue: r.TargetValue,
			Constraints: r.Constraints,
		}
	}
	return l
}

const selectListings = `
	SELECT l.id, l.owner_id, u.name AS owner_name, l.mode, l.status, l.photos, l.created_at,
	       a.type AS asset_type, a.title AS asset_title, a.description AS asset_description,
	       a.estimated_value, a.terms,
	       w.category AS want_category, w.title AS want_title, w.description AS want_description,
	       w.target_value, w.want_constraints
	FROM listings l
	LEFT JOIN users u ON u.id = l.owner_id
	LEFT JOIN assets a ON a.listing_id = l.id
	LEFT JOIN wants w ON w.listing_id = l.id`

// Get fetches one listing with its asset or want and owner name.
func (r *ListingRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	var row listingRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(selectListings+` WHERE l.id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrListingNotFound
		}
		return nil, fmt.Errorf("listing_repo.Get: %w", err)
	}
	return row.toDomain(), nil
}

// GetMany fetches listings by id. Missing ids are absent from the result.
func (r *ListingRepository) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Listing, error) {
	out := make(map[uuid.UUID]*domain.Listing, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(selectListings+` WHERE l.id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("listing_repo.GetMany: %w", err)
	}

	var rows []listingRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("listing_repo.GetMany: %w", err)
	}

	for _, row := range rows {
		out[row.ID] = row.toDomain()
	}
	return out, nil
}

// Find returns listings matching the filter, newest first.
func (r *ListingRepository) Find(ctx context.Context, f ListingFilter) ([]*domain.Listing, error) {
	var (
		where []string
		args  []any
	)
	if f.Mode != "" {
		where = append(where, "l.mode = ?")
		args = append(args, string(f.Mode))
	}
	if f.Status != "" {
		where = append(where, "l.status = ?")
		args = append(args, string(f.Status))
	}
	if f.OwnerID != "" {
		where = append(where, "l.owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.ExcludeOwnerID != "" {
		where = append(where, "l.owner_id <> ?")
		args = append(args, f.ExcludeOwnerID)
	}

	query := selectListings
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY l.created_at DESC, l.id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
		if f.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, f.Offset)
		}
	}

	var rows []listingRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("listing_repo.Find: %w", err)
	}

	out := make([]*domain.Listing, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// Create validates and inserts a listing and its asset or want in one transaction.
func (r *ListingRepository) Create(ctx context.Context, l *domain.Listing) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Status == "" {
		l.Status = domain.StatusActive
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if l.Photos == nil {
		l.Photos = []string{}
	}
	if err := l.Validate(); err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("listing_repo.Create begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO listings (id, owner_id, mode, status, photos, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		l.ID, l.OwnerID, string(l.Mode), string(l.Status), photoList(l.Photos), l.CreatedAt)
	if err != nil {
		return fmt.Errorf("listing_repo.Create listing: %w", err)
	}

	switch {
	case l.Asset != nil:
		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO assets (listing_id, type, title, description, estimated_value, terms)
			VALUES (?, ?, ?, ?, ?, ?)`),
			l.ID, string(l.Asset.Type), l.Asset.Title, l.Asset.Description, l.Asset.EstimatedValue, l.Asset.Terms)
		if err != nil {
			return fmt.Errorf("listing_repo.Create asset: %w", err)
		}
	case l.Want != nil:
		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO wants (listing_id, category, title, description, target_value, want_constraints)
			VALUES (?, ?, ?, ?, ?, ?)`),
			l.ID, string(l.Want.Category), l.Want.Title, l.Want.Description, l.Want.TargetValue, l.Want.Constraints)
		if err != nil {
			return fmt.Errorf("listing_repo.Create want: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("listing_repo.Create commit: %w", err)
	}
	return nil
}

// SetStatus activates or deactivates a listing owned by ownerID.
func (r *ListingRepository) SetStatus(ctx context.Context, id uuid.UUID, ownerID string, status domain.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: status must be ACTIVE or INACTIVE", domain.ErrInvalidListing)
	}

	var owner string
	err := r.db.GetContext(ctx, &owner, r.db.Rebind(`SELECT owner_id FROM listings WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrListingNotFound
		}
		return fmt.Errorf("listing_repo.SetStatus: %w", err)
	}
	if owner != ownerID {
		return domain.ErrForbidden
	}

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE listings SET status = ? WHERE id = ?`), string(status), id); err != nil {
		return fmt.Errorf("listing_repo.SetStatus: %w", err)
	}
	return nil
}
