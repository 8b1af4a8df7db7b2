package models

import "time"

// ParcelStatus is the lifecycle state of a parcel.
type ParcelStatus string

const (
	StatusPending   ParcelStatus = "pending"
	StatusAssigned  ParcelStatus = "assigned"
	StatusOngoing   ParcelStatus = "ongoing"
	StatusDelivered ParcelStatus = "delivered"
	StatusCancelled ParcelStatus = "cancelled"
	StatusReturned  ParcelStatus = "returned"
)

// Valid reports whether s is a known status.
func (s ParcelStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusOngoing, StatusDelivered, StatusCancelled, StatusReturned:
		return true
	}
	return false
}

// Trackable reports whether a parcel in this status has a moving driver worth
// opening a live channel for.
func (s ParcelStatus) Trackable() bool {
	return s == StatusAssigned || s == StatusOngoing
}

// EnRoute reports whether the map should keep following the driver.
func (s ParcelStatus) EnRoute() bool {
	return s == StatusAssigned || s == StatusOngoing
}

// ShowsDriver reports whether the driver marker is drawn for this status.
func (s ParcelStatus) ShowsDriver() bool {
	return s == StatusPending || s == StatusAssigned || s == StatusOngoing
}

// Terminal reports whether no further transitions are allowed.
func (s ParcelStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusReturned
}

// CanTransitionTo encodes the allowed parcel status moves.
func (s ParcelStatus) CanTransitionTo(next ParcelStatus) bool {
	if !next.Valid() || s.Terminal() || s == next {
		return false
	}
	switch s {
	case StatusPending:
		return next == StatusAssigned || next == StatusCancelled
	case StatusAssigned:
		return next == StatusOngoing || next == StatusPending || next == StatusCancelled
	case StatusOngoing:
		return next == StatusDelivered || next == StatusCancelled || next == StatusReturned
	}
	return false
}

// TrackedEntity is one parcel's live trip as seen by a tracking widget.
type TrackedEntity struct {
	ParcelID        string       `json:"parcel_id"`
	DriverID        string       `json:"driver_id,omitempty"`
	Status          ParcelStatus `json:"status"`
	Pickup          Coordinate   `json:"pickup"`
	Delivery        Coordinate   `json:"delivery"`
	CurrentPosition *Coordinate  `json:"current_position,omitempty"`
}

// HasDriver reports whether a driver is bound to the parcel.
func (e TrackedEntity) HasDriver() bool { return e.DriverID != "" }

// Seed is the position shown before any live data arrives: the last known
// position, or the pickup point when there is none.
func (e TrackedEntity) Seed() Coordinate {
	if e.CurrentPosition != nil {
		return *e.CurrentPosition
	}
	return e.Pickup
}

// Parcel is the persisted parcel row.
type Parcel struct {
	ID             string       `json:"id"`
	SellerID       string       `json:"seller_id"`
	DriverID       *string      `json:"driver_id,omitempty"`
	Status         ParcelStatus `json:"status"`
	Pickup         Coordinate   `json:"pickup"`
	Delivery       Coordinate   `json:"delivery"`
	RecipientEmail string       `json:"recipient_email,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// UpdateParcelStatusRequest is the body of PUT /parcels/:parcelId/status.
type UpdateParcelStatusRequest struct {
	Status   ParcelStatus `json:"status" validate:"required,oneof=pending assigned ongoing delivered cancelled returned"`
	DriverID *string      `json:"driver_id,omitempty" validate:"omitempty,min=1"`
}
