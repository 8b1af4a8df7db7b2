package tracking

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"parcel-tracking/internal/models"

	"github.com/paulmach/orb"
)

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// --- map ---

type fakeMarker struct {
	mu      sync.Mutex
	kind    MarkerKind
	pos     models.Coordinate
	history []models.Coordinate
	style   MarkerStyle
	removed bool
}

func (m *fakeMarker) Position() models.Coordinate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}

func (m *fakeMarker) SetPosition(c models.Coordinate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos = c
	m.history = append(m.history, c)
}

func (m *fakeMarker) SetStyle(s MarkerStyle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.style = s
}

func (m *fakeMarker) Remove() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = true
}

func (m *fakeMarker) snapshot() (models.Coordinate, []models.Coordinate, MarkerStyle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos, append([]models.Coordinate(nil), m.history...), m.style, m.removed
}

type fakeLine struct {
	mu      sync.Mutex
	path    []models.Coordinate
	removed bool
}

func (l *fakeLine) Remove() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removed = true
}

type fakeMap struct {
	mu        sync.Mutex
	markers   []*fakeMarker
	fits      []orb.Bound
	pans      []models.Coordinate
	lines     []*fakeLine
	listeners map[MapEvent]map[int]func()
	nextID    int
}

func newFakeMap() *fakeMap {
	return &fakeMap{listeners: map[MapEvent]map[int]func(){}}
}

func (m *fakeMap) CreateMarker(kind MarkerKind, pos models.Coordinate, style MarkerStyle) Marker {
	m.mu.Lock()
	defer m.mu.Unlock()
	mk := &fakeMarker{kind: kind, pos: pos, style: style}
	m.markers = append(m.markers, mk)
	return mk
}

func (m *fakeMap) FitBounds(b orb.Bound, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fits = append(m.fits, b)
}

func (m *fakeMap) PanTo(c models.Coordinate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pans = append(m.pans, c)
}

func (m *fakeMap) DrawPolyline(path []models.Coordinate, _ LineStyle) Polyline {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := &fakeLine{path: path}
	m.lines = append(m.lines, l)
	return l
}

func (m *fakeMap) On(ev MapEvent, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	if m.listeners[ev] == nil {
		m.listeners[ev] = map[int]func(){}
	}
	m.listeners[ev][id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners[ev], id)
	}
}

func (m *fakeMap) emit(ev MapEvent) {
	m.mu.Lock()
	var fns []func()
	for _, fn := range m.listeners[ev] {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (m *fakeMap) listenerCount(ev MapEvent) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners[ev])
}

// live returns the markers of kind that have not been removed.
func (m *fakeMap) live(kind MarkerKind) []*fakeMarker {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*fakeMarker
	for _, mk := range m.markers {
		mk.mu.Lock()
		if mk.kind == kind && !mk.removed {
			out = append(out, mk)
		}
		mk.mu.Unlock()
	}
	return out
}

func (m *fakeMap) fitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fits)
}

func (m *fakeMap) lastFit() orb.Bound {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fits[len(m.fits)-1]
}

type fakeProvider struct {
	m   *fakeMap
	err error
}

func (p *fakeProvider) CreateMap(context.Context, MapOptions) (Map, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.m, nil
}

// --- push channel ---

var errConnClosed = errors.New("connection closed")

type fakeConn struct {
	msgs      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{msgs: make(chan []byte, 16), done: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case b := <-c.msgs:
		return b, nil
	case <-c.done:
		return nil, errConnClosed
	}
}

func (c *fakeConn) send(s string) { c.msgs <- []byte(s) }

// drop simulates the server closing the channel.
func (c *fakeConn) drop() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.drop()
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeDialer hands out queued connections, then refuses.
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	dials []string
	block bool
}

func (d *fakeDialer) Dial(ctx context.Context, driverID string) (PushConn, error) {
	d.mu.Lock()
	d.dials = append(d.dials, driverID)
	block := d.block
	var c *fakeConn
	if len(d.conns) > 0 {
		c, d.conns = d.conns[0], d.conns[1:]
	}
	d.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if c == nil {
		return nil, errors.New("connection refused")
	}
	return c, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dials)
}

// --- poll endpoint ---

type fakeFetcher struct {
	mu    sync.Mutex
	pos   models.Coordinate
	err   error
	calls int
	// gate, when set, holds every response until it is closed, even past
	// cancellation, like a slow server.
	gate chan struct{}
}

func (f *fakeFetcher) FetchLocation(context.Context, string) (models.Coordinate, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos, f.err
}

func (f *fakeFetcher) set(pos models.Coordinate, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos, f.err = pos, err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// --- directions ---

type routeCall struct{ origin, dest models.Coordinate }

type fakeDirections struct {
	mu    sync.Mutex
	calls []routeCall
	fn    func(origin, dest models.Coordinate) (models.RouteInfo, error)
}

func (d *fakeDirections) Route(_ context.Context, origin, dest models.Coordinate) (models.RouteInfo, error) {
	d.mu.Lock()
	d.calls = append(d.calls, routeCall{origin, dest})
	fn := d.fn
	d.mu.Unlock()
	if fn == nil {
		return models.RouteInfo{DistanceText: "1 km", DurationText: "2 mins", Path: []models.Coordinate{origin, dest}}, nil
	}
	return fn(origin, dest)
}

func (d *fakeDirections) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

// --- time ---

type manualTimer struct {
	at        time.Duration
	every     time.Duration
	fn        func()
	cancelled bool
}

// manualScheduler fires timers only when the test advances its clock.
type manualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

func (s *manualScheduler) add(d, every time.Duration, fn func()) Cancel {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{at: s.now + d, every: every, fn: fn}
	s.timers = append(s.timers, t)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		t.cancelled = true
	}
}

func (s *manualScheduler) AfterFunc(d time.Duration, fn func()) Cancel { return s.add(d, 0, fn) }
func (s *manualScheduler) Every(d time.Duration, fn func()) Cancel     { return s.add(d, d, fn) }

// Advance moves the clock forward, firing due timers in time order.
func (s *manualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	end := s.now + d
	s.mu.Unlock()
	for {
		s.mu.Lock()
		var due []*manualTimer
		for _, t := range s.timers {
			if !t.cancelled && t.at <= end {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			s.now = end
			s.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool { return due[i].at < due[j].at })
		t := due[0]
		s.now = t.at
		if t.every > 0 {
			t.at += t.every
		} else {
			t.cancelled = true
		}
		s.mu.Unlock()
		t.fn()
	}
}

// active counts live timers; periodic ones when every is true.
func (s *manualScheduler) active(every bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.cancelled && (t.every > 0) == every {
			n++
		}
	}
	return n
}

// manualFrames runs frame callbacks when the test steps it.
type manualFrames struct {
	mu      sync.Mutex
	next    int
	pending map[int]func(time.Time)
}

func newManualFrames() *manualFrames {
	return &manualFrames{pending: map[int]func(time.Time){}}
}

func (f *manualFrames) RequestFrame(fn func(time.Time)) Cancel {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := f.next
	f.pending[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.pending, id)
	}
}

func (f *manualFrames) Step(now time.Time) {
	f.mu.Lock()
	fns := make([]func(time.Time), 0, len(f.pending))
	for id, fn := range f.pending {
		fns = append(fns, fn)
		delete(f.pending, id)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(now)
	}
}

func (f *manualFrames) pendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}
