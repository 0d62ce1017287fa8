package reporters

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketReporter fans join.Reporter events out to every connected
// WebSocket client as JSON-encoded Event values. Adapted from
// internal/achem/notifiers/websocket.go's register/unregister/broadcast
// goroutine, generalized from a single NotificationEvent shape to the
// eight reaction-site event kinds.
type WebSocketReporter struct {
	mu         sync.RWMutex
	clients    map[*websocket.Conn]bool
	upgrader   websocket.Upgrader
	broadcast  chan Event
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	wg         sync.WaitGroup
}

// NewWebSocketReporter starts the broadcaster goroutine and returns a
// ready-to-use reporter.
func NewWebSocketReporter() *WebSocketReporter {
	r := &WebSocketReporter{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// ServeHTTP upgrades the request to a WebSocket connection and registers it
// as a reporter subscriber, for mounting directly on an http.ServeMux.
func (r *WebSocketReporter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	select {
	case r.register <- conn:
	case <-r.done:
		conn.Close()
	}
	go r.drainClient(conn)
}

// drainClient discards any inbound traffic from a subscriber so the
// connection's read deadline and pong handling stay serviced until it
// disconnects, then unregisters it.
func (r *WebSocketReporter) drainClient(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	select {
	case r.unregister <- conn:
	case <-r.done:
	}
}

func (r *WebSocketReporter) emit(e Event) {
	e.Timestamp = time.Now()
	select {
	case r.broadcast <- e:
	case <-r.done:
	default:
		// Drop rather than block the reaction-site caller (spec's
		// reporters must never slow down scheduling); mirrors the
		// teacher's "notification queue full" fallback but non-blocking
		// since Reporter methods have no context/deadline to race.
	}
}

func (r *WebSocketReporter) run() {
	defer r.wg.Done()
	for {
		select {
		case <-r.done:
			return
		case conn := <-r.register:
			if conn == nil {
				continue
			}
			r.mu.Lock()
			r.clients[conn] = true
			r.mu.Unlock()
		case conn := <-r.unregister:
			if conn == nil {
				continue
			}
			r.mu.Lock()
			if _, ok := r.clients[conn]; ok {
				delete(r.clients, conn)
				conn.Close()
			}
			r.mu.Unlock()
		case event, ok := <-r.broadcast:
			if !ok {
				return
			}
			r.broadcastTo(event)
		}
	}
}

func (r *WebSocketReporter) broadcastTo(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	r.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(r.clients))
	for conn := range r.clients {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	var toRemove []*websocket.Conn
	for _, conn := range conns {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					toRemove = append(toRemove, conn)
				}
			}()
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				toRemove = append(toRemove, conn)
				conn.Close()
			}
		}()
	}

	if len(toRemove) > 0 {
		r.mu.Lock()
		for _, conn := range toRemove {
			delete(r.clients, conn)
		}
		r.mu.Unlock()
	}
}

// Close stops the broadcaster goroutine and closes every client connection.
func (r *WebSocketReporter) Close() error {
	close(r.done)

	r.mu.Lock()
	for conn := range r.clients {
		conn.Close()
		delete(r.clients, conn)
	}
	r.mu.Unlock()

	r.wg.Wait()
	return nil
}

func (r *WebSocketReporter) SchedulerAssigned(site, reaction string) {
	r.emit(Event{Kind: KindSchedulerAssigned, Site: site, Molecule: reaction})
}

func (r *WebSocketReporter) ReactionScheduled(site, reaction string) {
	r.emit(Event{Kind: KindReactionScheduled, Site: site, Reaction: reaction})
}

func (r *WebSocketReporter) ReactionStarted(site, reaction string) {
	r.emit(Event{Kind: KindReactionStarted, Site: site, Reaction: reaction})
}

func (r *WebSocketReporter) ReactionFinished(site, reaction string) {
	r.emit(Event{Kind: KindReactionFinished, Site: site, Reaction: reaction})
}

func (r *WebSocketReporter) ReactionException(site, reaction string, err error, retried bool) {
	r.emit(Event{Kind: KindReactionException, Site: site, Reaction: reaction, Error: err.Error(), Retried: retried})
}

func (r *WebSocketReporter) ReplyNeverSent(site, reaction string) {
	r.emit(Event{Kind: KindReplyNeverSent, Site: site, Reaction: reaction})
}

func (r *WebSocketReporter) PipelinedEmissionRefused(site, molecule string) {
	r.emit(Event{Kind: KindPipelinedEmissionRefused, Site: site, Molecule: molecule})
}

func (r *WebSocketReporter) LivelockDetected(site, reactionA, reactionB string) {
	r.emit(Event{Kind: KindLivelockDetected, Site: site, Reaction: reactionA, ReactionB: reactionB})
}
