package locations

import (
	"context"
	"encoding/json"
	"fmt"

	"parcel-tracking/internal/models"
)

// LocationServiceInterface is the business logic around driver positions.
type LocationServiceInterface interface {
	ReportLocation(ctx context.Context, driverID string, req models.LocationReportRequest) (*models.DriverLocation, error)
	GetLocation(ctx context.Context, driverID string) (*models.DriverLocation, error)
}

// Publisher fans a driver's feed message out to its subscribers.
type Publisher interface {
	Publish(driverID string, msg []byte)
}

// LocationService implements LocationServiceInterface.
type LocationService struct {
	repo LocationRepositoryInterface
	pub  Publisher
}

func NewLocationService(repo LocationRepositoryInterface, pub Publisher) *LocationService {
	return &LocationService{repo: repo, pub: pub}
}

// ReportLocation persists a position and pushes it to live subscribers.
func (s *LocationService) ReportLocation(ctx context.Context, driverID string, req models.LocationReportRequest) (*models.DriverLocation, error) {
	c := models.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}
	if driverID == "" || !c.Valid() {
		return nil, fmt.Errorf("service.ReportLocation: %w", models.ErrInvalidCoordinate)
	}

	loc := &models.DriverLocation{DriverID: driverID, Latitude: c.Latitude, Longitude: c.Longitude}
	if err := s.repo.UpsertLocation(ctx, loc); err != nil {
		return nil, err
	}

	if s.pub != nil {
		msg, err := json.Marshal(models.NewDriverUpdate(driverID, c))
		if err != nil {
			return nil, fmt.Errorf("service.ReportLocation marshal: %w", err)
		}
		s.pub.Publish(driverID, msg)
	}
	return loc, nil
}

func (s *LocationService) GetLocation(ctx context.Context, driverID string) (*models.DriverLocation, error) {
	return s.repo.GetLocation(ctx, driverID)
}
