package parcels

import (
	"context"
	"errors"
	"fmt"

	"parcel-tracking/internal/models"

	"github.com/labstack/echo/v4"
)

// ServiceInterface defines the business logic for parcels.
type ServiceInterface interface {
	GetTrackedEntity(ctx context.Context, parcelID, userID, role string) (*models.TrackedEntity, error)
	UpdateStatus(ctx context.Context, parcelID, userID, role string, req models.UpdateParcelStatusRequest) (*models.Parcel, error)
}

// LocationReader returns a driver's last known location.
type LocationReader interface {
	GetLocation(ctx context.Context, driverID string) (*models.DriverLocation, error)
}

// Notifier tells the recipient about a terminal status.
type Notifier interface {
	NotifyStatus(ctx context.Context, to, parcelID string, status models.ParcelStatus) error
}

// Service implements the ServiceInterface.
type Service struct {
	repo      RepositoryInterface
	locations LocationReader
	notifier  Notifier
	log       echo.Logger
}

// NewService creates a new parcel service. notifier may be nil.
func NewService(repo RepositoryInterface, locations LocationReader, notifier Notifier, log echo.Logger) ServiceInterface {
	return &Service{repo: repo, locations: locations, notifier: notifier, log: log}
}

// GetTrackedEntity loads a parcel as the tracking widget sees it. Sellers
// only see their own parcels and drivers only the ones bound to them.
func (s *Service) GetTrackedEntity(ctx context.Context, parcelID, userID, role string) (*models.TrackedEntity, error) {
	p, err := s.repo.FindByID(ctx, parcelID)
	if err != nil {
		return nil, err
	}
	switch role {
	case models.RoleSeller:
		if p.SellerID != userID {
			return nil, fmt.Errorf("service.GetTrackedEntity: %w", models.ErrNotFound)
		}
	case models.RoleDriver:
		if p.DriverID == nil || *p.DriverID != userID {
			return nil, fmt.Errorf("service.GetTrackedEntity: %w", models.ErrNotFound)
		}
	}

	entity := &models.TrackedEntity{
		ParcelID: p.ID,
		Status:   p.Status,
		Pickup:   p.Pickup,
		Delivery: p.Delivery,
	}
	if p.DriverID == nil {
		return entity, nil
	}
	entity.DriverID = *p.DriverID

	loc, err := s.locations.GetLocation(ctx, entity.DriverID)
	switch {
	case err == nil:
		c := loc.Coordinate()
		entity.CurrentPosition = &c
	case !errors.Is(err, models.ErrNotFound):
		// The widget falls back to the pickup point.
		s.log.Warnf("last location for driver %s: %v", entity.DriverID, err)
	}
	return entity, nil
}

// UpdateStatus moves a parcel along its lifecycle. Drivers may only move
// parcels bound to them and may not hand them to another driver.
func (s *Service) UpdateStatus(ctx context.Context, parcelID, userID, role string, req models.UpdateParcelStatusRequest) (*models.Parcel, error) {
	p, err := s.repo.FindByID(ctx, parcelID)
	if err != nil {
		return nil, err
	}
	if role == models.RoleDriver {
		if p.DriverID == nil || *p.DriverID != userID {
			return nil, fmt.Errorf("service.UpdateStatus parcel %s: %w", parcelID, models.ErrForbidden)
		}
		if req.DriverID != nil && *req.DriverID != userID {
			return nil, fmt.Errorf("service.UpdateStatus reassign: %w", models.ErrForbidden)
		}
	}
	if !p.Status.CanTransitionTo(req.Status) {
		return nil, fmt.Errorf("service.UpdateStatus %s -> %s: %w", p.Status, req.Status, models.ErrInvalidStatusTransition)
	}

	driverID := p.DriverID
	if req.DriverID != nil {
		driverID = req.DriverID
	}
	switch req.Status {
	case models.StatusPending:
		driverID = nil
	case models.StatusAssigned, models.StatusOngoing:
		if driverID == nil || *driverID == "" {
			return nil, fmt.Errorf("service.UpdateStatus: %w", models.ErrDriverRequired)
		}
	}

	updated, err := s.repo.UpdateStatus(ctx, parcelID, req.Status, driverID)
	if err != nil {
		return nil, err
	}

	if updated.Status.Terminal() && s.notifier != nil && updated.RecipientEmail != "" {
		// The status change stands even if the email fails.
		if err := s.notifier.NotifyStatus(ctx, updated.RecipientEmail, updated.ID, updated.Status); err != nil {
			s.log.Errorf("notify %s about parcel %s: %v", updated.RecipientEmail, updated.ID, err)
		}
	}
	return updated, nil
}
