package models

import "time"

// ConnectionState is the live-feed state of one tracking widget.
type ConnectionState int

const (
	StateConnecting ConnectionState = iota
	StateLive
	StateDegraded
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateLive:
		return "live"
	case StateDegraded:
		return "degraded"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MessageTypeDriverUpdate tags location pushes on the driver feed.
const MessageTypeDriverUpdate = "driver_update"

// DriverUpdateMessage is the push channel payload.
type DriverUpdateMessage struct {
	Type   string         `json:"type"`
	Driver DriverPosition `json:"driver"`
}

// DriverPosition carries coordinates that may arrive as numbers or strings.
type DriverPosition struct {
	ID  string    `json:"id"`
	Lat FlexFloat `json:"lat"`
	Lng FlexFloat `json:"lng"`
}

// NewDriverUpdate builds the push message for a stored location.
func NewDriverUpdate(driverID string, c Coordinate) DriverUpdateMessage {
	return DriverUpdateMessage{
		Type:   MessageTypeDriverUpdate,
		Driver: DriverPosition{ID: driverID, Lat: Float(c.Latitude), Lng: Float(c.Longitude)},
	}
}

// LocationResponse is returned by the poll endpoint.
type LocationResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DriverLocation is the last known location of a driver.
type DriverLocation struct {
	DriverID  string    `json:"driver_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Coordinate returns the location as a Coordinate.
func (l DriverLocation) Coordinate() Coordinate {
	return Coordinate{Latitude: l.Latitude, Longitude: l.Longitude}
}

// LocationReportRequest contains the data a driver device reports.
type LocationReportRequest struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// LocationEvent is the AMQP ingest payload.
type LocationEvent struct {
	DriverID  string  `json:"driver_id" validate:"required"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}
