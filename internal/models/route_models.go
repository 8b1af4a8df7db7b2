package models

// RouteInfo is the distance-to-go overlay data.
type RouteInfo struct {
	DistanceText    string       `json:"distance_text"`
	DurationText    string       `json:"duration_text"`
	DistanceMeters  int          `json:"distance_meters"`
	DurationSeconds int          `json:"duration_seconds"`
	Path            []Coordinate `json:"path,omitempty"`
}

// RouteQuery is bound from GET /routes.
type RouteQuery struct {
	Origin      string `query:"origin" validate:"required"`
	Destination string `query:"destination" validate:"required"`
}
