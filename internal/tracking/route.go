package tracking

import (
	"context"

	"parcel-tracking/internal/models"
)

var routeLine = LineStyle{Color: ColorRoute, Width: 4}

// routeOverlay keeps the distance-to-go for the latest target. It is fed
// target positions only, never animation frames.
type routeOverlay struct {
	dir  Directions
	m    Map
	post func(event) bool
	log  Logger

	ctx    context.Context
	cancel context.CancelFunc

	seq        int
	reqCancel  context.CancelFunc
	requested  bool
	lastOrigin models.Coordinate
	lastDest   models.Coordinate

	info *models.RouteInfo
	line Polyline
}

func newRouteOverlay(dir Directions, m Map, post func(event) bool, log Logger) *routeOverlay {
	ctx, cancel := context.WithCancel(context.Background())
	return &routeOverlay{dir: dir, m: m, post: post, log: log, ctx: ctx, cancel: cancel}
}

// request asks for a route unless one for the same endpoints is already
// pending or known.
func (r *routeOverlay) request(origin, dest models.Coordinate) {
	if r.dir == nil || r.ctx.Err() != nil {
		return
	}
	if !origin.Valid() || !dest.Valid() {
		return
	}
	if r.requested && origin.Equal(r.lastOrigin) && dest.Equal(r.lastDest) {
		return
	}
	r.requested = true
	r.lastOrigin, r.lastDest = origin, dest

	if r.reqCancel != nil {
		r.reqCancel()
	}
	ctx, cancel := context.WithCancel(r.ctx)
	r.reqCancel = cancel
	r.seq++
	seq, dir, post := r.seq, r.dir, r.post
	go func() {
		info, err := dir.Route(ctx, origin, dest)
		post(routeResult{seq: seq, info: info, err: err})
	}()
}

func (r *routeOverlay) result(ev routeResult) {
	if ev.seq != r.seq || r.ctx.Err() != nil {
		return
	}
	if r.reqCancel != nil {
		r.reqCancel()
		r.reqCancel = nil
	}
	if ev.err != nil {
		r.log.Warnf("route %s -> %s failed: %v", r.lastOrigin, r.lastDest, ev.err)
		r.requested = false
		return
	}
	info := ev.info
	r.info = &info
	r.redraw()
}

func (r *routeOverlay) redraw() {
	if r.m == nil {
		return
	}
	if r.line != nil {
		r.line.Remove()
		r.line = nil
	}
	if len(r.info.Path) > 1 {
		r.line = r.m.DrawPolyline(r.info.Path, routeLine)
	}
}

// current returns a copy of the latest route, or nil.
func (r *routeOverlay) current() *models.RouteInfo {
	if r.info == nil {
		return nil
	}
	info := *r.info
	info.Path = append([]models.Coordinate(nil), r.info.Path...)
	return &info
}

func (r *routeOverlay) teardown() {
	r.cancel()
	if r.line != nil {
		r.line.Remove()
		r.line = nil
	}
}
