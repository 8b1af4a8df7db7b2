package parcels

import (
	"context"
	"errors"
	"fmt"

	"parcel-tracking/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the contract for the parcel repository.
type RepositoryInterface interface {
	FindByID(ctx context.Context, parcelID string) (*models.Parcel, error)
	UpdateStatus(ctx context.Context, parcelID string, status models.ParcelStatus, driverID *string) (*models.Parcel, error)
}

// Repository implements the RepositoryInterface.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new parcel repository.
func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const parcelColumns = `id, seller_id, driver_id, status,
        pickup_lat, pickup_lng, delivery_lat, delivery_lng,
        COALESCE(recipient_email, ''), created_at, updated_at`

func scanParcel(row pgx.Row) (*models.Parcel, error) {
	p := &models.Parcel{}
	err := row.Scan(
		&p.ID,
		&p.SellerID,
		&p.DriverID,
		&p.Status,
		&p.Pickup.Latitude,
		&p.Pickup.Longitude,
		&p.Delivery.Latitude,
		&p.Delivery.Longitude,
		&p.RecipientEmail,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// FindByID retrieves a single parcel by its ID.
func (r *Repository) FindByID(ctx context.Context, parcelID string) (*models.Parcel, error) {
	query := `SELECT ` + parcelColumns + ` FROM parcels WHERE id = $1`
	p, err := scanParcel(r.db.QueryRow(ctx, query, parcelID))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("repo.FindByID: %w", err)
	}
	return p, err
}

// UpdateStatus sets the status and driver binding of a parcel.
// A nil driverID clears the binding.
func (r *Repository) UpdateStatus(ctx context.Context, parcelID string, status models.ParcelStatus, driverID *string) (*models.Parcel, error) {
	query := `
        UPDATE parcels
        SET status = $2, driver_id = $3, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + parcelColumns
	p, err := scanParcel(r.db.QueryRow(ctx, query, parcelID, status, driverID))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("repo.UpdateStatus: %w", err)
	}
	return p, err
}
