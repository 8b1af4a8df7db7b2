// Package mapview is a headless map surface. It records what a browser map
// would draw for a tracking widget and exports it as GeoJSON.
package mapview

import (
	"context"
	"sort"
	"sync"

	"parcel-tracking/internal/models"
	"parcel-tracking/internal/tracking"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Provider creates headless maps.
type Provider struct {
	mu   sync.Mutex
	maps []*Map
}

func NewProvider() *Provider {
	return &Provider{}
}

func (p *Provider) CreateMap(_ context.Context, opts tracking.MapOptions) (tracking.Map, error) {
	m := &Map{
		center:    opts.Center,
		zoom:      opts.Zoom,
		markers:   map[int]*marker{},
		lines:     map[int]*line{},
		listeners: map[tracking.MapEvent]map[int]func(){},
	}
	p.mu.Lock()
	p.maps = append(p.maps, m)
	p.mu.Unlock()
	return m, nil
}

// Latest returns the most recently created map, or nil.
func (p *Provider) Latest() *Map {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.maps) == 0 {
		return nil
	}
	return p.maps[len(p.maps)-1]
}

// Map implements tracking.Map in memory.
type Map struct {
	mu      sync.Mutex
	center  models.Coordinate
	zoom    int
	bounds  orb.Bound
	padding int
	fitted  bool

	nextID    int
	markers   map[int]*marker
	lines     map[int]*line
	listeners map[tracking.MapEvent]map[int]func()
}

type marker struct {
	m     *Map
	id    int
	kind  tracking.MarkerKind
	pos   models.Coordinate
	style tracking.MarkerStyle
}

type line struct {
	m     *Map
	id    int
	path  []models.Coordinate
	style tracking.LineStyle
}

func (m *Map) CreateMarker(kind tracking.MarkerKind, pos models.Coordinate, style tracking.MarkerStyle) tracking.Marker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	mk := &marker{m: m, id: m.nextID, kind: kind, pos: pos, style: style}
	m.markers[mk.id] = mk
	return mk
}

func (m *Map) FitBounds(b orb.Bound, paddingPx int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bounds = b
	m.padding = paddingPx
	m.fitted = true
	c := b.Center()
	m.center = models.Coordinate{Latitude: c.Lat(), Longitude: c.Lon()}
}

func (m *Map) PanTo(c models.Coordinate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.center = c
}

func (m *Map) DrawPolyline(path []models.Coordinate, style tracking.LineStyle) tracking.Polyline {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	l := &line{m: m, id: m.nextID, path: append([]models.Coordinate(nil), path...), style: style}
	m.lines[l.id] = l
	return l
}

func (m *Map) On(ev tracking.MapEvent, fn func()) func() {
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

// Emit delivers a user interaction to the registered listeners.
func (m *Map) Emit(ev tracking.MapEvent) {
	m.mu.Lock()
	fns := make([]func(), 0, len(m.listeners[ev]))
	for _, fn := range m.listeners[ev] {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Listeners counts the handlers attached for ev.
func (m *Map) Listeners(ev tracking.MapEvent) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners[ev])
}

// Center returns the camera center.
func (m *Map) Center() models.Coordinate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.center
}

// Marker returns the position of the first marker of kind.
func (m *Map) Marker(kind tracking.MarkerKind) (models.Coordinate, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	best := 0
	var pos models.Coordinate
	for id, mk := range m.markers {
		if mk.kind == kind && (best == 0 || id < best) {
			best, pos = id, mk.pos
		}
	}
	return pos, best != 0
}

// FeatureCollection exports markers, route lines and the fitted viewport.
func (m *Map) FeatureCollection() *geojson.FeatureCollection {
	m.mu.Lock()
	defer m.mu.Unlock()

	fc := geojson.NewFeatureCollection()
	for _, id := range sortedKeys(m.markers) {
		mk := m.markers[id]
		f := geojson.NewFeature(orb.Point{mk.pos.Longitude, mk.pos.Latitude})
		f.Properties["kind"] = string(mk.kind)
		f.Properties["color"] = mk.style.Color
		if mk.style.Label != "" {
			f.Properties["label"] = mk.style.Label
		}
		fc.Append(f)
	}
	for _, id := range sortedKeys(m.lines) {
		l := m.lines[id]
		ls := make(orb.LineString, 0, len(l.path))
		for _, c := range l.path {
			ls = append(ls, orb.Point{c.Longitude, c.Latitude})
		}
		f := geojson.NewFeature(ls)
		f.Properties["kind"] = "route"
		f.Properties["color"] = l.style.Color
		f.Properties["width"] = l.style.Width
		fc.Append(f)
	}
	if m.fitted {
		f := geojson.NewFeature(m.bounds.ToPolygon())
		f.Properties["kind"] = "viewport"
		f.Properties["padding_px"] = m.padding
		fc.Append(f)
	}
	return fc
}

func (mk *marker) Position() models.Coordinate {
	mk.m.mu.Lock()
	defer mk.m.mu.Unlock()
	return mk.pos
}

func (mk *marker) SetPosition(c models.Coordinate) {
	mk.m.mu.Lock()
	defer mk.m.mu.Unlock()
	mk.pos = c
}

func (mk *marker) SetStyle(s tracking.MarkerStyle) {
	mk.m.mu.Lock()
	defer mk.m.mu.Unlock()
	mk.style = s
}

func (mk *marker) Remove() {
	mk.m.mu.Lock()
	defer mk.m.mu.Unlock()
	delete(mk.m.markers, mk.id)
}

func (l *line) Remove() {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	delete(l.m.lines, l.id)
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
