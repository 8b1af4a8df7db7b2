package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"parcel-tracking/internal/models"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/twpayne/go-polyline"
)

// RouteServiceInterface resolves a driving route between two points.
type RouteServiceInterface interface {
	Route(ctx context.Context, origin, destination models.Coordinate) (models.RouteInfo, error)
}

// DefaultDirectionsURL is the Google Maps Directions API endpoint.
const DefaultDirectionsURL = "https://maps.googleapis.com/maps/api/directions/json"

// GoogleDirections calls the Google Maps Directions API.
type GoogleDirections struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGoogleDirections creates a provider. An empty baseURL means the public API.
func NewGoogleDirections(apiKey, baseURL string) *GoogleDirections {
	if baseURL == "" {
		baseURL = DefaultDirectionsURL
	}
	return &GoogleDirections{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// googleDirectionsResponse holds the parts of the Directions API response
// that we care about.
type googleDirectionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
		Legs []struct {
			Distance struct {
				Text  string `json:"text"`
				Value int    `json:"value"`
			} `json:"distance"`
			Duration struct {
				Text  string `json:"text"`
				Value int    `json:"value"`
			} `json:"duration"`
		} `json:"legs"`
	} `json:"routes"`
}

func (g *GoogleDirections) Route(ctx context.Context, origin, destination models.Coordinate) (models.RouteInfo, error) {
	q := url.Values{}
	q.Set("origin", origin.String())
	q.Set("destination", destination.String())
	q.Set("mode", "driving")
	q.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return models.RouteInfo{}, fmt.Errorf("service.Route build request: %w", err)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return models.RouteInfo{}, fmt.Errorf("service.Route call directions: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.RouteInfo{}, fmt.Errorf("service.Route read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return models.RouteInfo{}, fmt.Errorf("service.Route: directions returned HTTP %d", resp.StatusCode)
	}

	var directions googleDirectionsResponse
	if err := json.Unmarshal(body, &directions); err != nil {
		return models.RouteInfo{}, fmt.Errorf("service.Route unmarshal: %w", err)
	}
	switch directions.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return models.RouteInfo{}, models.ErrNoRoute
	default:
		return models.RouteInfo{}, fmt.Errorf("service.Route: directions status %s: %s", directions.Status, directions.ErrorMessage)
	}
	if len(directions.Routes) == 0 || len(directions.Routes[0].Legs) == 0 {
		return models.RouteInfo{}, models.ErrNoRoute
	}

	route := directions.Routes[0]
	info := models.RouteInfo{}
	for _, leg := range route.Legs {
		info.DistanceMeters += leg.Distance.Value
		info.DurationSeconds += leg.Duration.Value
	}
	if len(route.Legs) == 1 && route.Legs[0].Distance.Text != "" && route.Legs[0].Duration.Text != "" {
		info.DistanceText = route.Legs[0].Distance.Text
		info.DurationText = route.Legs[0].Duration.Text
	} else {
		info.DistanceText = FormatDistance(info.DistanceMeters)
		info.DurationText = FormatDuration(info.DurationSeconds)
	}

	path, err := decodePath(route.OverviewPolyline.Points)
	if err != nil {
		return models.RouteInfo{}, fmt.Errorf("service.Route decode polyline: %w", err)
	}
	if len(path) == 0 {
		path = []models.Coordinate{origin, destination}
	}
	info.Path = path
	return info, nil
}

func decodePath(encoded string) ([]models.Coordinate, error) {
	if encoded == "" {
		return nil, nil
	}
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, err
	}
	path := make([]models.Coordinate, 0, len(coords))
	for _, c := range coords {
		path = append(path, models.Coordinate{Latitude: c[0], Longitude: c[1]})
	}
	return path, nil
}

// StraightLine estimates routes from great-circle distance and an average
// driving speed. It serves deployments without a directions API key.
type StraightLine struct {
	speedKMH float64
}

func NewStraightLine(averageSpeedKMH float64) *StraightLine {
	if averageSpeedKMH <= 0 {
		averageSpeedKMH = 30
	}
	return &StraightLine{speedKMH: averageSpeedKMH}
}

func (s *StraightLine) Route(ctx context.Context, origin, destination models.Coordinate) (models.RouteInfo, error) {
	if err := ctx.Err(); err != nil {
		return models.RouteInfo{}, err
	}
	meters := geo.DistanceHaversine(
		orb.Point{origin.Longitude, origin.Latitude},
		orb.Point{destination.Longitude, destination.Latitude},
	)
	secs := meters / (s.speedKMH * 1000 / 3600)
	info := models.RouteInfo{
		DistanceMeters:  int(math.Round(meters)),
		DurationSeconds: int(math.Round(secs)),
		Path:            []models.Coordinate{origin, destination},
	}
	info.DistanceText = FormatDistance(info.DistanceMeters)
	info.DurationText = FormatDuration(info.DurationSeconds)
	return info, nil
}

// NewRouteService picks the Directions API when a key is configured.
func NewRouteService(apiKey string, averageSpeedKMH float64) RouteServiceInterface {
	if apiKey != "" {
		return NewGoogleDirections(apiKey, "")
	}
	return NewStraightLine(averageSpeedKMH)
}
