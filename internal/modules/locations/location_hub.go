package locations

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 1024
	sendBuffer     = 32
)

// Hub fans driver location messages out to websocket subscribers, keyed by
// driver id. It implements Publisher.
type Hub struct {
	mu       sync.RWMutex
	subs     map[string]map[string]*subscriber
	closed   bool
	log      echo.Logger
	upgrader websocket.Upgrader
}

type subscriber struct {
	id       string
	driverID string
	conn     *websocket.Conn
	send     chan []byte
	hub      *Hub
	once     sync.Once
}

// NewHub creates a hub. When allowedOrigin is set, browser handshakes from
// other origins are refused; clients that send no Origin are accepted.
func NewHub(log echo.Logger, allowedOrigin string) *Hub {
	return &Hub{
		subs: make(map[string]map[string]*subscriber),
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "" || origin == "" || origin == allowedOrigin
			},
		},
	}
}

// Serve upgrades the request and streams the driver's feed until the client
// goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, driverID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	s := &subscriber{
		id:       uuid.NewString(),
		driverID: driverID,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		hub:      h,
	}
	if !h.add(s) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		return conn.Close()
	}
	h.log.Infof("feed subscriber %s joined driver %s", s.id, driverID)

	go s.writePump()
	s.readPump()
	return nil
}

func (h *Hub) add(s *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if h.subs[s.driverID] == nil {
		h.subs[s.driverID] = make(map[string]*subscriber)
	}
	h.subs[s.driverID][s.id] = s
	return true
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	if byID, ok := h.subs[s.driverID]; ok {
		if byID[s.id] == s {
			delete(byID, s.id)
		}
		if len(byID) == 0 {
			delete(h.subs, s.driverID)
		}
	}
	h.mu.Unlock()
	s.close()
}

// Publish queues msg for every subscriber of driverID. Subscribers that
// cannot keep up are disconnected.
func (h *Hub) Publish(driverID string, msg []byte) {
	var slow []*subscriber
	h.mu.RLock()
	for _, s := range h.subs[driverID] {
		select {
		case s.send <- msg:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		h.log.Warnf("dropping slow feed subscriber %s of driver %s", s.id, driverID)
		h.remove(s)
	}
}

// Subscribers counts the live subscribers of driverID.
func (h *Hub) Subscribers(driverID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[driverID])
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*subscriber
	for _, byID := range h.subs {
		for _, s := range byID {
			all = append(all, s)
		}
	}
	h.subs = make(map[string]map[string]*subscriber)
	h.mu.Unlock()

	for _, s := range all {
		s.close()
	}
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

// readPump discards client frames; it exists to process pongs and notice
// the client leaving.
func (s *subscriber) readPump() {
	defer func() {
		s.hub.remove(s)
		_ = s.conn.Close()
		s.hub.log.Infof("feed subscriber %s left driver %s", s.id, s.driverID)
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.hub.log.Warnf("feed subscriber %s read error: %v", s.id, err)
			}
			return
		}
	}
}

func (s *subscriber) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
