package watch

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	mferrors "github.com/gomanifold/manifold/pkg/errors"
)

// Event types pushed to subscribers.
const (
	EventBuilding = "building"
	EventRebuilt  = "rebuilt"
	EventFailed   = "failed"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 5 * time.Second
)

// Event describes one registry rebuild step.
type Event struct {
	Type      string        `json:"type"`
	Timestamp int64         `json:"timestamp"`
	Files     []string      `json:"files,omitempty"`
	Endpoints int           `json:"endpoints,omitempty"`
	Duration  float64       `json:"duration,omitempty"` // milliseconds
	Error     string        `json:"error,omitempty"`
	Issues    mferrors.List `json:"issues,omitempty"`
}

// Notifier fans rebuild events out to websocket clients.
type Notifier struct {
	connections map[*websocket.Conn]bool
	broadcast   chan *Event
	register    chan *websocket.Conn
	unregister  chan *websocket.Conn
	done        chan struct{}
	closeOnce   sync.Once
	mutex       sync.RWMutex
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// NewNotifier creates a notifier and starts its dispatch loop.
func NewNotifier(logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Notifier{
		connections: make(map[*websocket.Conn]bool),
		broadcast:   make(chan *Event, 64),
		register:    make(chan *websocket.Conn),
		unregister:  make(chan *websocket.Conn),
		done:        make(chan struct{}),
		logger:      logger,
		upgrader: websocket.Upgrader{
			CheckOrigin:     localOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	go n.run()
	return n
}

// localOrigin admits same-origin requests and local tools only.
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, prefix := range []string{"http://localhost", "https://localhost", "http://127.0.0.1", "https://127.0.0.1"} {
		if strings.HasPrefix(origin, prefix) {
			return true
		}
	}
	return false
}

func (n *Notifier) run() {
	for {
		select {
		case <-n.done:
			return

		case conn := <-n.register:
			n.mutex.Lock()
			n.connections[conn] = true
			count := len(n.connections)
			n.mutex.Unlock()
			n.logger.Debug("subscriber connected", zap.Int("total", count))

		case conn := <-n.unregister:
			n.drop(conn)

		case event := <-n.broadcast:
			n.sendToAll(event)
		}
	}
}

func (n *Notifier) drop(conn *websocket.Conn) {
	n.mutex.Lock()
	if _, ok := n.connections[conn]; ok {
		delete(n.connections, conn)
		conn.Close()
	}
	count := len(n.connections)
	n.mutex.Unlock()
	n.logger.Debug("subscriber disconnected", zap.Int("total", count))
}

func (n *Notifier) sendToAll(event *Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("cannot encode event", zap.Error(err))
		return
	}

	n.mutex.RLock()
	var failed []*websocket.Conn
	for conn := range n.connections {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			n.logger.Debug("send failed", zap.Error(err))
			failed = append(failed, conn)
		}
	}
	n.mutex.RUnlock()

	for _, conn := range failed {
		n.drop(conn)
	}
}

// HandleWebSocket upgrades an HTTP request into an event subscription.
func (n *Notifier) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := n.upgrader.Upgrade(w, r, nil)
	if err != nil {
		n.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	select {
	case n.register <- conn:
	case <-n.done:
		conn.Close()
		return
	}
	go n.readLoop(conn)
}

// readLoop only exists to notice disconnects and answer pings.
func (n *Notifier) readLoop(conn *websocket.Conn) {
	defer func() {
		select {
		case n.unregister <- conn:
		case <-n.done:
		}
	}()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				n.logger.Debug("websocket closed", zap.Error(err))
			}
			return
		}
	}
}

// Publish queues an event for every subscriber. Events are dropped once the
// notifier is closed.
func (n *Notifier) Publish(event *Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	select {
	case n.broadcast <- event:
	case <-n.done:
	}
}

// NotifyBuilding announces a rebuild triggered by files.
func (n *Notifier) NotifyBuilding(files []string) {
	n.Publish(&Event{Type: EventBuilding, Files: files})
}

// NotifyRebuilt announces a written registry.
func (n *Notifier) NotifyRebuilt(endpoints int, duration time.Duration, issues mferrors.List) {
	n.Publish(&Event{
		Type:      EventRebuilt,
		Endpoints: endpoints,
		Duration:  float64(duration.Milliseconds()),
		Issues:    issues,
	})
}

// NotifyFailed announces a build that did not write a registry.
func (n *Notifier) NotifyFailed(err error) {
	n.Publish(&Event{Type: EventFailed, Error: err.Error()})
}

// ConnectionCount returns the number of active connections
func (n *Notifier) ConnectionCount() int {
	n.mutex.RLock()
	defer n.mutex.RUnlock()
	return len(n.connections)
}

// Close disconnects every subscriber and stops the dispatch loop.
func (n *Notifier) Close() {
	n.closeOnce.Do(func() {
		close(n.done)

		n.mutex.Lock()
		defer n.mutex.Unlock()
		for conn := range n.connections {
			conn.Close()
		}
		n.connections = make(map[*websocket.Conn]bool)
	})
}
