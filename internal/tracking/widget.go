package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"parcel-tracking/internal/models"

	"github.com/google/uuid"
)

// MapLoadError is shown in place of the map when the provider fails.
const MapLoadError = "failed to load map"

const (
	DefaultPollInterval      = 5 * time.Second
	DefaultReconnectBackoff  = 5 * time.Second
	DefaultAnimationDuration = time.Second
	defaultZoom              = 14
	eventBuffer              = 64
)

var (
	ErrAlreadyMounted = errors.New("tracking: widget already mounted")
	ErrInvalidEntity  = errors.New("tracking: invalid tracked entity")
)

// Options wires a widget to its collaborators. Every field is optional.
type Options struct {
	Maps       MapProvider
	Dialer     PushDialer
	Fetcher    LocationFetcher
	Directions Directions
	Scheduler  Scheduler
	Frames     FrameSource
	Logger     Logger

	PollInterval     time.Duration
	ReconnectBackoff time.Duration
	// MaxReconnectAttempts caps consecutive reconnects; 0 retries forever.
	MaxReconnectAttempts int
	// AnimationDuration is the marker glide time; a negative value disables
	// animation.
	AnimationDuration time.Duration
	FitPaddingPx      int

	// OnChange is called on the widget goroutine after every state change.
	// It must not call Unmount.
	OnChange func(View)
}

func (o *Options) setDefaults() {
	if o.Scheduler == nil {
		o.Scheduler = realScheduler{}
	}
	if o.Frames == nil {
		o.Frames = tickerFrames{}
	}
	if o.Logger == nil {
		o.Logger = defaultLogger()
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.ReconnectBackoff <= 0 {
		o.ReconnectBackoff = DefaultReconnectBackoff
	}
	if o.AnimationDuration == 0 {
		o.AnimationDuration = DefaultAnimationDuration
	}
	if o.FitPaddingPx <= 0 {
		o.FitPaddingPx = DefaultFitPadding
	}
}

// View is a snapshot of everything the widget renders.
type View struct {
	SessionID string                 `json:"session_id"`
	ParcelID  string                 `json:"parcel_id"`
	Status    models.ParcelStatus    `json:"status"`
	Target    models.Coordinate      `json:"target"`
	Rendered  models.Coordinate      `json:"rendered"`
	State     models.ConnectionState `json:"state"`
	Route     *models.RouteInfo      `json:"route,omitempty"`
	Legend    Legend                 `json:"legend"`
	MapError  string                 `json:"map_error,omitempty"`
	UserMoved bool                   `json:"user_moved"`
}

// Widget tracks one parcel for the lifetime of a mount. All state is owned by
// a single goroutine; transports, timers and frames only post events to it.
type Widget struct {
	opts Options
	log  Logger
	id   string

	events   chan event
	quit     chan struct{}
	done     chan struct{}
	postMu   sync.RWMutex
	closed   bool
	stopOnce sync.Once

	mu      sync.Mutex
	mounted bool
	view    View

	// Owned by the widget goroutine.
	entity    models.TrackedEntity
	status    models.ParcelStatus
	target    models.Coordinate
	m         Map
	mapErr    string
	source    *sourceManager
	anim      *animator
	vp        *viewport
	route     *routeOverlay
	userMoved bool
	torndown  bool
}

func New(opts Options) *Widget {
	opts.setDefaults()
	return &Widget{
		opts:   opts,
		log:    opts.Logger,
		id:     uuid.NewString(),
		events: make(chan event, eventBuffer),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func validateEntity(e models.TrackedEntity) error {
	if e.ParcelID == "" {
		return fmt.Errorf("%w: missing parcel id", ErrInvalidEntity)
	}
	if !e.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEntity, e.Status)
	}
	if !e.Pickup.Valid() || !e.Delivery.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, models.ErrInvalidCoordinate)
	}
	if e.CurrentPosition != nil && !e.CurrentPosition.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, models.ErrInvalidCoordinate)
	}
	return nil
}

// Mount draws the parcel and starts tracking it. The seeded position is
// visible as soon as Mount returns. A widget can be mounted once.
func (w *Widget) Mount(ctx context.Context, entity models.TrackedEntity) error {
	if err := validateEntity(entity); err != nil {
		return err
	}
	w.mu.Lock()
	if w.mounted {
		w.mu.Unlock()
		return ErrAlreadyMounted
	}
	w.mounted = true
	w.mu.Unlock()

	w.mount(ctx, entity)
	w.publish()
	go w.loop()
	return nil
}

// SetStatus reports a parcel status change from the host.
func (w *Widget) SetStatus(s models.ParcelStatus) {
	if w.isMounted() {
		w.post(statusChanged{status: s})
	}
}

// Recenter reframes the map on the trip.
func (w *Widget) Recenter() {
	if w.isMounted() {
		w.post(recenterRequested{})
	}
}

// Unmount releases the push channel, poll timer, animation frame and map
// listeners before returning. It is safe to call more than once.
func (w *Widget) Unmount() {
	if !w.isMounted() {
		return
	}
	w.stopOnce.Do(func() { w.post(unmountRequested{}) })
	<-w.done
}

// View returns the latest snapshot.
func (w *Widget) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	v := w.view
	if v.Route != nil {
		r := *v.Route
		v.Route = &r
	}
	return v
}

func (w *Widget) isMounted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mounted
}

// post hands ev to the widget goroutine. It reports false once the widget
// has stopped.
func (w *Widget) post(ev event) bool {
	w.postMu.RLock()
	defer w.postMu.RUnlock()
	if w.closed {
		return false
	}
	select {
	case w.events <- ev:
		return true
	case <-w.quit:
		return false
	}
}

func (w *Widget) loop() {
	defer close(w.done)
	for {
		ev := <-w.events
		w.handle(ev)
		w.publish()
		if _, ok := ev.(unmountRequested); ok {
			break
		}
	}

	close(w.quit)
	w.postMu.Lock()
	w.closed = true
	w.postMu.Unlock()
	for {
		select {
		case ev := <-w.events:
			if o, ok := ev.(pushOpened); ok {
				_ = o.conn.Close()
			}
		default:
			return
		}
	}
}

func (w *Widget) mount(ctx context.Context, entity models.TrackedEntity) {
	w.entity = entity
	w.status = entity.Status
	w.target = entity.Seed()
	w.anim = newAnimator(w.opts.Frames, w.post, w.opts.AnimationDuration, w.target)

	if w.opts.Maps != nil {
		m, err := w.opts.Maps.CreateMap(ctx, MapOptions{Center: w.target, Zoom: defaultZoom})
		if err != nil {
			w.log.Errorf("parcel %s: create map: %v", entity.ParcelID, err)
			w.mapErr = MapLoadError
		} else {
			w.m = m
			w.vp = newViewport(m, w.anim, w.post, w.opts.FitPaddingPx, entity)
			w.vp.mount(w.target)
		}
	}

	w.route = newRouteOverlay(w.opts.Directions, w.m, w.post, w.log)
	w.route.request(w.target, entity.Delivery)

	w.source = newSourceManager(entity.DriverID, &w.opts, w.post, w.log)
	if entity.HasDriver() && entity.Status.Trackable() {
		w.source.start()
	} else {
		w.log.Debugf("parcel %s: not tracking (status %s, driver %q)", entity.ParcelID, entity.Status, entity.DriverID)
	}
}

func (w *Widget) handle(ev event) {
	switch e := ev.(type) {
	case pushOpened:
		w.source.opened(e)
	case pushFailed:
		w.source.failed(e.gen, e.err)
	case pushClosed:
		w.source.failed(e.gen, e.err)
	case pushMessage:
		if c, ok := w.source.message(e); ok {
			w.setTarget(c, true)
		}
	case reconnectDue:
		w.source.reconnectDue(e)
	case connectTimeout:
		w.source.connectTimedOut(e)
	case pollTick:
		w.source.tick()
	case pollResult:
		if c, ok := w.source.polled(e); ok {
			w.setTarget(c, false)
		}
	case frameTick:
		w.anim.frame(e)
	case routeResult:
		w.route.result(e)
	case statusChanged:
		w.setStatus(e.status)
	case recenterRequested:
		if w.vp != nil && !w.torndown {
			w.vp.recenter(w.target)
		}
		w.userMoved = false
	case mapDragged:
		w.userMoved = true
	case unmountRequested:
		w.teardown()
	}
}

// setTarget applies a new position. Push updates glide, polled ones snap.
func (w *Widget) setTarget(c models.Coordinate, animate bool) {
	if w.torndown {
		return
	}
	w.target = c
	if animate {
		w.anim.animateTo(c)
	} else {
		w.anim.snap(c)
	}
	if w.vp != nil {
		w.vp.follow(c)
	}
	w.route.request(c, w.entity.Delivery)
}

func (w *Widget) setStatus(s models.ParcelStatus) {
	if w.torndown || !s.Valid() || s == w.status {
		return
	}
	if w.status.Terminal() {
		w.log.Warnf("parcel %s: ignoring status %s after %s", w.entity.ParcelID, s, w.status)
		return
	}
	w.log.Infof("parcel %s: status %s -> %s", w.entity.ParcelID, w.status, s)
	w.status = s
	if w.vp != nil {
		w.vp.setStatus(s)
	}
	if !s.Trackable() {
		w.source.stop()
	}
}

func (w *Widget) teardown() {
	if w.torndown {
		return
	}
	w.torndown = true
	w.source.stop()
	w.anim.detach()
	if w.vp != nil {
		w.vp.teardown()
	}
	w.route.teardown()
	w.log.Debugf("parcel %s: widget %s unmounted", w.entity.ParcelID, w.id)
}

func (w *Widget) publish() {
	v := View{
		SessionID: w.id,
		ParcelID:  w.entity.ParcelID,
		Status:    w.status,
		Target:    w.target,
		Rendered:  w.anim.rendered,
		State:     w.source.state,
		Route:     w.route.current(),
		Legend:    BuildLegend(w.status, w.entity.HasDriver(), w.source.state, w.userMoved),
		MapError:  w.mapErr,
		UserMoved: w.userMoved,
	}
	w.mu.Lock()
	w.view = v
	w.mu.Unlock()
	if w.opts.OnChange != nil {
		w.opts.OnChange(v)
	}
}
