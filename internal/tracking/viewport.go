package tracking

import (
	"parcel-tracking/internal/models"

	"github.com/paulmach/orb"
)

// Marker and legend colors.
const (
	ColorPickup    = "#2563eb"
	ColorDelivery  = "#dc2626"
	ColorDelivered = "#16a34a"
	ColorDriver    = "#f59e0b"
	ColorRoute     = "#4f46e5"
)

// DefaultFitPadding is the padding, in pixels, around fitted bounds.
const DefaultFitPadding = 100

func markerStyle(kind MarkerKind, status models.ParcelStatus) MarkerStyle {
	switch kind {
	case MarkerPickup:
		return MarkerStyle{Color: ColorPickup, Label: "Pickup"}
	case MarkerDelivery:
		if status == models.StatusDelivered {
			return MarkerStyle{Color: ColorDelivered, Label: "Delivered"}
		}
		return MarkerStyle{Color: ColorDelivery, Label: "Delivery"}
	default:
		return MarkerStyle{Color: ColorDriver, Label: "Driver"}
	}
}

// viewport owns marker existence and camera framing. It never moves the
// driver marker; that is the animator's job.
type viewport struct {
	m       Map
	anim    *animator
	post    func(event) bool
	padding int

	pickup         models.Coordinate
	delivery       models.Coordinate
	driverAssigned bool
	status         models.ParcelStatus

	pickupMarker   Marker
	deliveryMarker Marker
	driverMarker   Marker
	detachers      []func()

	fitted orb.Bound
	hasFit bool
	frozen bool
}

func newViewport(m Map, anim *animator, post func(event) bool, padding int, entity models.TrackedEntity) *viewport {
	if padding <= 0 {
		padding = DefaultFitPadding
	}
	return &viewport{
		m:              m,
		anim:           anim,
		post:           post,
		padding:        padding,
		pickup:         entity.Pickup,
		delivery:       entity.Delivery,
		driverAssigned: entity.HasDriver(),
		status:         entity.Status,
	}
}

// mount draws the markers, frames the trip and starts listening for drags.
func (v *viewport) mount(target models.Coordinate) {
	v.pickupMarker = v.m.CreateMarker(MarkerPickup, v.pickup, markerStyle(MarkerPickup, v.status))
	v.deliveryMarker = v.m.CreateMarker(MarkerDelivery, v.delivery, markerStyle(MarkerDelivery, v.status))
	v.syncDriver()
	v.frame(target)

	post := v.post
	v.detachers = append(v.detachers, v.m.On(EventDragEnd, func() { post(mapDragged{}) }))
}

// frame fits the trip's relevant points: the driver and the destination
// while en route, otherwise both endpoints.
func (v *viewport) frame(target models.Coordinate) {
	if v.status.EnRoute() {
		v.fit(target, v.delivery)
		return
	}
	v.fit(v.pickup, v.delivery)
}

func (v *viewport) fit(cs ...models.Coordinate) {
	b := boundsOf(cs...)
	v.m.FitBounds(b, v.padding)
	v.fitted = b
	v.hasFit = true
}

// follow keeps a new target in view while the parcel is en route.
func (v *viewport) follow(target models.Coordinate) {
	if v.frozen || !v.status.EnRoute() {
		return
	}
	if v.hasFit && !v.fitted.Contains(point(target)) {
		v.fit(target, v.delivery)
		return
	}
	v.m.PanTo(target)
}

// recenter reframes on demand, even when automatic framing is frozen.
func (v *viewport) recenter(target models.Coordinate) {
	v.frame(target)
}

func (v *viewport) setStatus(s models.ParcelStatus) {
	if v.status.EnRoute() && !s.EnRoute() {
		v.frozen = true
	}
	v.status = s
	if v.deliveryMarker != nil {
		v.deliveryMarker.SetStyle(markerStyle(MarkerDelivery, s))
	}
	v.syncDriver()
}

// syncDriver makes driver marker presence a function of driver assignment
// and status only.
func (v *viewport) syncDriver() {
	want := v.driverAssigned && v.status.ShowsDriver()
	switch {
	case want && v.driverMarker == nil:
		v.driverMarker = v.m.CreateMarker(MarkerDriver, v.anim.rendered, markerStyle(MarkerDriver, v.status))
		v.anim.attach(v.driverMarker)
	case !want && v.driverMarker != nil:
		v.anim.detach()
		v.driverMarker.Remove()
		v.driverMarker = nil
	}
}

// teardown detaches listeners and removes every marker. It is idempotent.
func (v *viewport) teardown() {
	for _, detach := range v.detachers {
		detach()
	}
	v.detachers = nil
	v.anim.detach()
	for _, mk := range []*Marker{&v.driverMarker, &v.pickupMarker, &v.deliveryMarker} {
		if *mk != nil {
			(*mk).Remove()
			*mk = nil
		}
	}
}
