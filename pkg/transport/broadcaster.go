package transport

import (
	"context"
	"encoding/json"
	"sync"

	"nhooyr.io/websocket"
)

// EventKind distinguishes the live session events the supervisor (§4.H)
// publishes: a turn landing in a session, a pool update mid-run, or a
// run starting/stopping.
type EventKind string

const (
	EventTurnCommitted EventKind = "turn_committed"
	EventPoolUpdated    EventKind = "pool_updated"
	EventRunStarted     EventKind = "run_started"
	EventRunStopped     EventKind = "run_stopped"
)

// Event is one live session notification. Payload carries whatever shape
// is natural for Kind (a turn, a pool length, a run's exit status) —
// the orchestrator only owns the publish side, so it doesn't need to
// give the web UI consuming these anything beyond serialized JSON.
type Event struct {
	SessionID string          `json:"session_id"`
	Kind      EventKind       `json:"kind"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// EventBroadcaster is the publish side of the supervisor's live event
// feed. The orchestrator only ever calls Publish; the subscribe side is
// WebSocketBroadcaster.ServeConn, which fans events out to external
// consumers.
type EventBroadcaster interface {
	Publish(Event)
}

// WebSocketBroadcaster fans Publish calls out to every subscribed
// websocket connection, each wrapped in a WebSocketTransport so a
// slow or dead consumer can't block Publish for the others — writes to a
// disconnected subscriber just fail silently and get garbage-collected
// on their next failed write.
type WebSocketBroadcaster struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func NewWebSocketBroadcaster() *WebSocketBroadcaster {
	return &WebSocketBroadcaster{subs: make(map[int]chan Event)}
}

// Publish fans e out to every current subscriber without blocking on any
// one of them — a subscriber whose buffer is full simply misses this
// event rather than stalling the publisher.
func (b *WebSocketBroadcaster) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// ServeConn pumps every event published from here on out to conn as a
// JSON text frame, until ctx is done or the connection errors. Intended
// to back one HTTP handler's websocket upgrade per subscriber.
func (b *WebSocketBroadcaster) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	ch := make(chan Event, 64)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}()

	wt := NewWebSocketTransport(ctx, conn)
	defer wt.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			data, err := json.Marshal(e)
			if err != nil {
				continue
			}
			if err := wt.Write(data); err != nil {
				return err
			}
		}
	}
}
