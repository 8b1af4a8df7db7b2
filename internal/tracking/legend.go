package tracking

import (
	"parcel-tracking/internal/models"
)

// Badge texts.
const (
	BadgeLive     = "Live Tracking Active"
	BadgeUpdating = "Updating..."
)

// LegendDot is one colored entry of the map legend.
type LegendDot struct {
	Kind  MarkerKind `json:"kind"`
	Label string     `json:"label"`
	Color string     `json:"color"`
}

// Legend is the status overlay drawn on top of the map.
type Legend struct {
	Badge        string      `json:"badge,omitempty"`
	StatusLabel  string      `json:"status_label"`
	Dots         []LegendDot `json:"dots"`
	RecenterHint bool        `json:"recenter_hint"`
}

var statusLabels = map[models.ParcelStatus]string{
	models.StatusPending:   "Pending",
	models.StatusAssigned:  "Driver Assigned",
	models.StatusOngoing:   "On the Way",
	models.StatusDelivered: "Delivered",
	models.StatusCancelled: "Cancelled",
	models.StatusReturned:  "Returned",
}

// BuildLegend derives the overlay from its inputs alone.
func BuildLegend(status models.ParcelStatus, driverAssigned bool, state models.ConnectionState, userMoved bool) Legend {
	l := Legend{StatusLabel: statusLabels[status], RecenterHint: userMoved}
	switch state {
	case models.StateLive:
		l.Badge = BadgeLive
	case models.StateConnecting, models.StateDegraded:
		l.Badge = BadgeUpdating
	}

	pickup := markerStyle(MarkerPickup, status)
	delivery := markerStyle(MarkerDelivery, status)
	l.Dots = []LegendDot{
		{Kind: MarkerPickup, Label: pickup.Label, Color: pickup.Color},
		{Kind: MarkerDelivery, Label: delivery.Label, Color: delivery.Color},
	}
	if driverAssigned && status.ShowsDriver() {
		driver := markerStyle(MarkerDriver, status)
		l.Dots = append(l.Dots, LegendDot{Kind: MarkerDriver, Label: driver.Label, Color: driver.Color})
	}
	return l
}
