// Package notify fans book update events out to live listener connections.
package notify

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

const DefaultQueueSize = 16

// ErrHubClosed is returned by Register after Close.
var ErrHubClosed = errors.New("notify: hub closed")

type EventType string

const (
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Event is the message pushed to listeners, serialized as
// {"type": "...", "book": {...}}.
type Event struct {
	Type EventType `json:"type"`
	Book any       `json:"book"`
}

// Conn is a live connection the hub can push messages to. Conns are used as
// registry keys and must be comparable, typically pointers. Implementations
// need not be safe for concurrent writes; the hub serializes writes per
// connection.
type Conn interface {
	WriteMessage(data []byte) error
	Close() error
}

// Hub is the registry of live listeners. Broadcast never blocks on a slow
// listener: each listener has its own bounded queue and writer goroutine, and
// a listener that overflows its queue or fails a write is disconnected.
type Hub struct {
	mu        sync.RWMutex
	listeners map[Conn]*listener
	closed    bool

	queueSize int
	logger    *slog.Logger
	wg        sync.WaitGroup
}

func NewHub(queueSize int, logger *slog.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		listeners: make(map[Conn]*listener),
		queueSize: queueSize,
		logger:    logger,
	}
}

// Register adds conn to the live set. Registering the same conn again is a
// no-op. After Close, conn is closed and ErrHubClosed is returned.
func (h *Hub) Register(conn Conn) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return ErrHubClosed
	}
	if _, ok := h.listeners[conn]; ok {
		h.mu.Unlock()
		return nil
	}
	l := newListener(conn, h.queueSize)
	h.listeners[conn] = l
	h.wg.Add(1)
	h.mu.Unlock()

	go h.writeLoop(l)
	return nil
}

// Unregister removes conn and closes it. It is safe to call for unknown
// connections and more than once.
func (h *Hub) Unregister(conn Conn) {
	h.mu.Lock()
	l, ok := h.listeners[conn]
	if ok {
		delete(h.listeners, conn)
	}
	h.mu.Unlock()

	if ok {
		l.shutdown()
	}
}

// Broadcast serializes event once and queues it for every open listener.
// Delivery is best effort; failures only affect the failing listener.
func (h *Hub) Broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshal broadcast event", "type", event.Type, "error", err)
		return
	}

	h.mu.RLock()
	var overflowed []Conn
	for conn, l := range h.listeners {
		if !l.enqueue(data) {
			overflowed = append(overflowed, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range overflowed {
		h.logger.Warn("listener queue full, disconnecting", "queue_size", h.queueSize)
		h.Unregister(conn)
	}
}

// Len reports the number of registered listeners.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

// Close disconnects every listener and waits for their writers to exit.
// Later Register calls fail with ErrHubClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	listeners := h.listeners
	h.listeners = make(map[Conn]*listener)
	h.mu.Unlock()

	for _, l := range listeners {
		l.shutdown()
	}
	h.wg.Wait()
}

func (h *Hub) writeLoop(l *listener) {
	defer h.wg.Done()
	defer l.closeConn()

	for {
		select {
		case <-l.done:
			return
		case msg := <-l.queue:
			if err := l.conn.WriteMessage(msg); err != nil {
				h.logger.Warn("listener write failed, disconnecting", "error", err)
				h.Unregister(l.conn)
				return
			}
		}
	}
}

type state int32

const (
	stateOpen state = iota
	stateClosing
	stateClosed
)

type listener struct {
	conn  Conn
	queue chan []byte
	done  chan struct{}
	state atomic.Int32
	once  sync.Once
}

func newListener(conn Conn, size int) *listener {
	return &listener{
		conn:  conn,
		queue: make(chan []byte, size),
		done:  make(chan struct{}),
	}
}

// enqueue reports false only when the queue is full.
func (l *listener) enqueue(msg []byte) bool {
	if state(l.state.Load()) != stateOpen {
		return true
	}
	select {
	case l.queue <- msg:
		return true
	default:
		return false
	}
}

func (l *listener) shutdown() {
	l.once.Do(func() {
		l.state.CompareAndSwap(int32(stateOpen), int32(stateClosing))
		close(l.done)
	})
}

func (l *listener) closeConn() {
	l.shutdown()
	_ = l.conn.Close()
	l.state.Store(int32(stateClosed))
}
