package tracking

import (
	"time"

	"parcel-tracking/internal/models"
)

// animator is the only writer of the driver marker's position. It moves the
// marker toward the latest target with an ease-out curve, one step per frame.
type animator struct {
	frames   FrameSource
	post     func(event) bool
	duration time.Duration

	marker   Marker
	rendered models.Coordinate

	seq     int
	running bool
	from    models.Coordinate
	to      models.Coordinate
	start   time.Time
	started bool
	cancel  Cancel
}

func newAnimator(frames FrameSource, post func(event) bool, duration time.Duration, at models.Coordinate) *animator {
	return &animator{frames: frames, post: post, duration: duration, rendered: at}
}

// easeOut maps linear progress p in [0,1] to 1-(1-p)^2.
func easeOut(p float64) float64 {
	q := 1 - p
	return 1 - q*q
}

func lerp(a, b models.Coordinate, t float64) models.Coordinate {
	return models.Coordinate{
		Latitude:  a.Latitude + (b.Latitude-a.Latitude)*t,
		Longitude: a.Longitude + (b.Longitude-a.Longitude)*t,
	}
}

// animateTo starts a new animation from the currently rendered position,
// abandoning any animation still in flight.
func (a *animator) animateTo(to models.Coordinate) {
	a.cancelFrame()
	if a.marker == nil || a.duration <= 0 || a.frames == nil {
		a.snap(to)
		return
	}
	a.seq++
	a.running = true
	a.from = a.rendered
	a.to = to
	a.started = false
	a.request()
}

func (a *animator) request() {
	seq, post := a.seq, a.post
	a.cancel = a.frames.RequestFrame(func(now time.Time) {
		post(frameTick{anim: seq, now: now})
	})
}

func (a *animator) frame(ev frameTick) {
	if !a.running || ev.anim != a.seq {
		return
	}
	a.cancel = nil
	if !a.started {
		a.start = ev.now
		a.started = true
	}
	p := float64(ev.now.Sub(a.start)) / float64(a.duration)
	if p >= 1 {
		a.running = false
		a.render(a.to)
		return
	}
	if p < 0 {
		p = 0
	}
	a.render(lerp(a.from, a.to, easeOut(p)))
	a.request()
}

// snap jumps straight to c with no interpolation.
func (a *animator) snap(c models.Coordinate) {
	a.cancelFrame()
	a.running = false
	a.render(c)
}

func (a *animator) render(c models.Coordinate) {
	a.rendered = c
	if a.marker != nil {
		a.marker.SetPosition(c)
	}
}

func (a *animator) cancelFrame() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.running = false
}

func (a *animator) attach(m Marker) {
	a.marker = m
}

// detach stops any animation and forgets the marker. The rendered position
// is kept so a re-attached marker resumes from it.
func (a *animator) detach() {
	a.cancelFrame()
	a.marker = nil
}
