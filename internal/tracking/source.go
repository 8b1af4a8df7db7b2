package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"parcel-tracking/internal/models"
)

var (
	errNoPushChannel  = errors.New("no push channel configured")
	errConnectTimeout = errors.New("push channel not open after one poll interval")
)

// dialTimeout bounds a single dial attempt, handshake included.
const dialTimeout = 30 * time.Second

type sourceConfig struct {
	pollInterval time.Duration
	backoff      time.Duration
	// maxAttempts bounds consecutive reconnects without a live message; 0 is unbounded.
	maxAttempts int
}

// sourceManager produces target positions for one driver and owns the
// connection state. It prefers the push channel and polls only while push is
// unavailable. Its methods run on the widget loop; the goroutines it starts
// only post events.
type sourceManager struct {
	driverID string
	dialer   PushDialer
	fetcher  LocationFetcher
	sched    Scheduler
	post     func(event) bool
	log      Logger
	cfg      sourceConfig

	state   models.ConnectionState
	active  bool
	stopped bool

	gen        int
	dialCancel context.CancelFunc
	connectBy  Cancel
	conn       PushConn
	reconnect  Cancel
	attempts   int

	pollStop     Cancel
	pollCancel   context.CancelFunc
	pollSeq      int
	pollInFlight bool
}

func newSourceManager(driverID string, opts *Options, post func(event) bool, log Logger) *sourceManager {
	return &sourceManager{
		driverID: driverID,
		dialer:   opts.Dialer,
		fetcher:  opts.Fetcher,
		sched:    opts.Scheduler,
		post:     post,
		log:      log,
		cfg: sourceConfig{
			pollInterval: opts.PollInterval,
			backoff:      opts.ReconnectBackoff,
			maxAttempts:  opts.MaxReconnectAttempts,
		},
		state: models.StateClosed,
	}
}

// start opens the push channel. Only the first call has an effect.
func (m *sourceManager) start() {
	if m.active || m.stopped {
		return
	}
	m.active = true
	m.state = models.StateConnecting
	if m.dialer == nil {
		m.lost(errNoPushChannel)
		return
	}
	m.dial()

	// Poll while a slow first dial is still pending.
	gen, post := m.gen, m.post
	m.connectBy = m.sched.AfterFunc(m.cfg.pollInterval, func() { post(connectTimeout{gen: gen}) })
}

func (m *sourceManager) dial() {
	m.gen++
	gen := m.gen
	if m.dialCancel != nil {
		m.dialCancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	m.dialCancel = cancel

	dialer, driverID, post := m.dialer, m.driverID, m.post
	go func() {
		conn, err := dialer.Dial(ctx, driverID)
		if err != nil {
			post(pushFailed{gen: gen, err: err})
			return
		}
		if !post(pushOpened{gen: gen, conn: conn}) {
			_ = conn.Close()
			return
		}
		for {
			data, err := conn.ReadMessage()
			if err != nil {
				post(pushClosed{gen: gen, err: err})
				return
			}
			if !post(pushMessage{gen: gen, data: data}) {
				_ = conn.Close()
				return
			}
		}
	}()
}

func (m *sourceManager) current(gen int) bool {
	return m.active && gen == m.gen
}

func (m *sourceManager) opened(ev pushOpened) {
	if !m.current(ev.gen) {
		_ = ev.conn.Close()
		return
	}
	m.cancelConnectBy()
	m.conn = ev.conn
	m.log.Infof("push channel open for driver %s", m.driverID)
}

func (m *sourceManager) failed(gen int, err error) {
	if !m.current(gen) {
		return
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.lost(err)
}

// connectTimedOut falls back to polling when the first dial is still
// pending. The dial keeps running; a later open still goes live.
func (m *sourceManager) connectTimedOut(ev connectTimeout) {
	m.connectBy = nil
	if !m.current(ev.gen) || m.state != models.StateConnecting {
		return
	}
	m.state = models.StateDegraded
	m.log.Warnf("push channel for driver %s: %v", m.driverID, errConnectTimeout)
	m.startPoller()
}

func (m *sourceManager) cancelConnectBy() {
	if m.connectBy != nil {
		m.connectBy()
		m.connectBy = nil
	}
}

// lost moves to degraded, starts polling and schedules one reconnect.
func (m *sourceManager) lost(err error) {
	m.cancelConnectBy()
	m.state = models.StateDegraded
	m.log.Warnf("push channel unavailable for driver %s: %v", m.driverID, err)
	m.startPoller()
	m.scheduleReconnect()
}

func (m *sourceManager) scheduleReconnect() {
	if m.dialer == nil || m.reconnect != nil {
		return
	}
	if m.cfg.maxAttempts > 0 && m.attempts >= m.cfg.maxAttempts {
		m.log.Warnf("giving up on push channel for driver %s after %d attempts, polling only", m.driverID, m.attempts)
		return
	}
	m.attempts++
	gen, post := m.gen, m.post
	m.reconnect = m.sched.AfterFunc(m.cfg.backoff, func() { post(reconnectDue{gen: gen}) })
}

func (m *sourceManager) reconnectDue(ev reconnectDue) {
	m.reconnect = nil
	if !m.current(ev.gen) {
		return
	}
	m.log.Infof("reconnecting push channel for driver %s (attempt %d)", m.driverID, m.attempts)
	m.dial()
}

// message returns the position carried by a push message, if it is a
// well-formed update for the tracked driver.
func (m *sourceManager) message(ev pushMessage) (models.Coordinate, bool) {
	if !m.current(ev.gen) {
		return models.Coordinate{}, false
	}
	c, ok := parseDriverUpdate(ev.data, m.driverID)
	if !ok {
		m.log.Debugf("dropped push message for driver %s: %.120s", m.driverID, ev.data)
		return models.Coordinate{}, false
	}
	if m.state != models.StateLive {
		m.log.Infof("live tracking active for driver %s", m.driverID)
	}
	m.state = models.StateLive
	m.attempts = 0
	m.stopPoller()
	return c, true
}

func (m *sourceManager) startPoller() {
	if m.fetcher == nil || m.pollStop != nil {
		return
	}
	post := m.post
	m.pollStop = m.sched.Every(m.cfg.pollInterval, func() { post(pollTick{}) })
}

// tick issues a poll unless one is still in flight.
func (m *sourceManager) tick() {
	if !m.active || m.pollStop == nil || m.pollInFlight {
		return
	}
	m.pollInFlight = true
	m.pollSeq++
	seq := m.pollSeq
	ctx, cancel := context.WithCancel(context.Background())
	m.pollCancel = cancel

	fetcher, driverID, post := m.fetcher, m.driverID, m.post
	go func() {
		pos, err := fetcher.FetchLocation(ctx, driverID)
		post(pollResult{seq: seq, pos: pos, err: err})
	}()
}

// polled returns the position of the current poll. Results of polls
// issued before the poller last stopped are dropped.
func (m *sourceManager) polled(ev pollResult) (models.Coordinate, bool) {
	if ev.seq != m.pollSeq {
		return models.Coordinate{}, false
	}
	m.pollInFlight = false
	if m.pollCancel != nil {
		m.pollCancel()
		m.pollCancel = nil
	}
	if !m.active || m.state == models.StateLive {
		return models.Coordinate{}, false
	}
	if ev.err != nil {
		m.log.Warnf("location poll for driver %s failed: %v", m.driverID, ev.err)
		return models.Coordinate{}, false
	}
	if !ev.pos.Valid() {
		return models.Coordinate{}, false
	}
	return ev.pos, true
}

func (m *sourceManager) stopPoller() {
	if m.pollStop != nil {
		m.pollStop()
		m.pollStop = nil
	}
	if m.pollCancel != nil {
		m.pollCancel()
		m.pollCancel = nil
	}
	m.pollInFlight = false
	m.pollSeq++
}

// stop tears down every transport. It is idempotent.
func (m *sourceManager) stop() {
	if m.stopped {
		return
	}
	m.stopped = true
	m.active = false
	m.state = models.StateClosed
	m.gen++
	if m.dialCancel != nil {
		m.dialCancel()
		m.dialCancel = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	if m.reconnect != nil {
		m.reconnect()
		m.reconnect = nil
	}
	m.cancelConnectBy()
	m.stopPoller()
}

func parseDriverUpdate(data []byte, driverID string) (models.Coordinate, bool) {
	var msg models.DriverUpdateMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return models.Coordinate{}, false
	}
	if msg.Type != models.MessageTypeDriverUpdate || msg.Driver.ID != driverID {
		return models.Coordinate{}, false
	}
	if !msg.Driver.Lat.Valid || !msg.Driver.Lng.Valid {
		return models.Coordinate{}, false
	}
	c := models.Coordinate{Latitude: msg.Driver.Lat.Value, Longitude: msg.Driver.Lng.Value}
	if !c.Valid() {
		return models.Coordinate{}, false
	}
	return c, true
}
