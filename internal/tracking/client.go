package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"parcel-tracking/internal/models"
)

// LocationFetcher returns a driver's last known location.
type LocationFetcher interface {
	FetchLocation(ctx context.Context, driverID string) (models.Coordinate, error)
}

// APIClient talks to the parcel-tracking service over HTTP. It serves as the
// widget's poll fallback and directions source, and lets hosts load a parcel.
type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAPIClient creates a client for baseURL authenticated with a bearer token.
func NewAPIClient(baseURL, token string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchLocation calls GET /drivers/{driverID}/location.
func (c *APIClient) FetchLocation(ctx context.Context, driverID string) (models.Coordinate, error) {
	var loc models.LocationResponse
	if err := c.getJSON(ctx, "/drivers/"+url.PathEscape(driverID)+"/location", &loc); err != nil {
		return models.Coordinate{}, fmt.Errorf("client.FetchLocation: %w", err)
	}
	coord := models.Coordinate{Latitude: loc.Latitude, Longitude: loc.Longitude}
	if !coord.Valid() {
		return models.Coordinate{}, fmt.Errorf("client.FetchLocation: %w", models.ErrInvalidCoordinate)
	}
	return coord, nil
}

// Route calls GET /routes?origin=..&destination=..
func (c *APIClient) Route(ctx context.Context, origin, destination models.Coordinate) (models.RouteInfo, error) {
	q := url.Values{}
	q.Set("origin", origin.String())
	q.Set("destination", destination.String())
	var info models.RouteInfo
	if err := c.getJSON(ctx, "/routes?"+q.Encode(), &info); err != nil {
		return models.RouteInfo{}, fmt.Errorf("client.Route: %w", err)
	}
	return info, nil
}

// FetchParcel calls GET /parcels/{parcelID}.
func (c *APIClient) FetchParcel(ctx context.Context, parcelID string) (models.TrackedEntity, error) {
	var entity models.TrackedEntity
	if err := c.getJSON(ctx, "/parcels/"+url.PathEscape(parcelID), &entity); err != nil {
		return models.TrackedEntity{}, fmt.Errorf("client.FetchParcel: %w", err)
	}
	return entity, nil
}

func (c *APIClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return models.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		var body models.ErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)
		return fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, path, body.Message)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
