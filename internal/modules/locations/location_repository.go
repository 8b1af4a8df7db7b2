package locations

import (
	"context"
	"errors"
	"fmt"

	"parcel-tracking/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LocationRepositoryInterface stores the last known location of each driver.
type LocationRepositoryInterface interface {
	UpsertLocation(ctx context.Context, loc *models.DriverLocation) error
	GetLocation(ctx context.Context, driverID string) (*models.DriverLocation, error)
}

// LocationRepository is a PostgreSQL implementation of LocationRepositoryInterface.
type LocationRepository struct {
	db *pgxpool.Pool
}

func NewLocationRepository(db *pgxpool.Pool) LocationRepositoryInterface {
	return &LocationRepository{db: db}
}

// UpsertLocation replaces the driver's row and stamps updated_at.
func (r *LocationRepository) UpsertLocation(ctx context.Context, loc *models.DriverLocation) error {
	query := `
        INSERT INTO driver_locations (driver_id, latitude, longitude, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (driver_id) DO UPDATE
        SET latitude = EXCLUDED.latitude,
            longitude = EXCLUDED.longitude,
            updated_at = EXCLUDED.updated_at
        RETURNING updated_at`
	if err := r.db.QueryRow(ctx, query, loc.DriverID, loc.Latitude, loc.Longitude).Scan(&loc.UpdatedAt); err != nil {
		return fmt.Errorf("repo.UpsertLocation: %w", err)
	}
	return nil
}

func (r *LocationRepository) GetLocation(ctx context.Context, driverID string) (*models.DriverLocation, error) {
	query := `
        SELECT driver_id, latitude, longitude, updated_at
        FROM driver_locations
        WHERE driver_id = $1`
	loc := &models.DriverLocation{}
	err := r.db.QueryRow(ctx, query, driverID).Scan(&loc.DriverID, &loc.Latitude, &loc.Longitude, &loc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repo.GetLocation: %w", err)
	}
	return loc, nil
}
