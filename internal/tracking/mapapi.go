package tracking

import (
	"context"

	"parcel-tracking/internal/models"

	"github.com/paulmach/orb"
)

// MarkerKind identifies the three markers the viewport draws.
type MarkerKind string

const (
	MarkerPickup   MarkerKind = "pickup"
	MarkerDelivery MarkerKind = "delivery"
	MarkerDriver   MarkerKind = "driver"
)

// MarkerStyle is the visual style of a marker.
type MarkerStyle struct {
	Color     string `json:"color"`
	Label     string `json:"label,omitempty"`
	Draggable bool   `json:"draggable,omitempty"`
}

// LineStyle is the visual style of a polyline.
type LineStyle struct {
	Color string  `json:"color"`
	Width float64 `json:"width"`
}

// MapEvent names a user interaction the viewport listens for.
type MapEvent string

const EventDragEnd MapEvent = "dragend"

// MapOptions configures a new map instance.
type MapOptions struct {
	Center models.Coordinate
	Zoom   int
}

// MapProvider creates map instances. A failure (missing credentials, provider
// outage) is fatal to the widget's map only.
type MapProvider interface {
	CreateMap(ctx context.Context, opts MapOptions) (Map, error)
}

// Map is the capability set the widget needs from a map renderer.
type Map interface {
	CreateMarker(kind MarkerKind, pos models.Coordinate, style MarkerStyle) Marker
	FitBounds(bounds orb.Bound, paddingPx int)
	PanTo(c models.Coordinate)
	DrawPolyline(path []models.Coordinate, style LineStyle) Polyline
	// On registers fn for event and returns a function that detaches it.
	On(event MapEvent, fn func()) (detach func())
}

// Marker is a placed map marker.
type Marker interface {
	Position() models.Coordinate
	SetPosition(c models.Coordinate)
	SetStyle(style MarkerStyle)
	Remove()
}

// Polyline is a drawn route path.
type Polyline interface {
	Remove()
}

// Directions resolves a driving route between two points.
type Directions interface {
	Route(ctx context.Context, origin, destination models.Coordinate) (models.RouteInfo, error)
}

func point(c models.Coordinate) orb.Point {
	return orb.Point{c.Longitude, c.Latitude}
}

// boundsOf returns the smallest bound covering all coordinates.
func boundsOf(cs ...models.Coordinate) orb.Bound {
	mp := make(orb.MultiPoint, 0, len(cs))
	for _, c := range cs {
		mp = append(mp, point(c))
	}
	return mp.Bound()
}
