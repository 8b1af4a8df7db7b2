package models

import "errors"

var (
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidStatusTransition is returned when a parcel cannot move to the
	// requested status from its current one.
	ErrInvalidStatusTransition = errors.New("invalid parcel status transition")

	// ErrDriverRequired is returned when a parcel is assigned without a driver.
	ErrDriverRequired = errors.New("a driver is required for this status")

	// ErrInvalidCoordinate is returned for out of range or unparsable coordinates.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrForbidden is returned when the caller may not act on a resource.
	ErrForbidden = errors.New("not allowed for this user")

	// ErrNoRoute is returned when the directions provider finds no route.
	ErrNoRoute = errors.New("no route between the given points")
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Message string `json:"message"`
}
