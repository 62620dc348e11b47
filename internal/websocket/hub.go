// Package websocket fans render-job events out to connected clients. Each
// connection subscribes to exactly one job id; the worker and dispatcher
// publish stage checkpoints and terminal events through the Hub.
package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/stillmind/api/internal/model"
)

const (
	// sendBuffer bounds the per-subscriber backlog. A render emits a handful
	// of checkpoints, so a full buffer means the peer stopped reading.
	sendBuffer = 64

	keepAliveInterval = 30 * time.Second
)

type subscriber struct {
	jobID string
	send  chan []byte
}

type event struct {
	jobID string
	data  []byte
}

// Hub routes published events to the subscribers of the matching job.
// Publishing never blocks a render: when the event buffer or a subscriber's
// send buffer is full the event is dropped, because the job row remains the
// source of truth and clients can always poll it.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*subscriber]struct{}
	events      chan event
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[*subscriber]struct{}),
		events:      make(chan event, 256),
	}
}

// Run drains the event queue. It blocks and is meant for its own goroutine.
func (h *Hub) Run() {
	for ev := range h.events {
		h.mu.RLock()
		for sub := range h.subscribers[ev.jobID] {
			select {
			case sub.send <- ev.data:
			default:
				// Slow reader; skip this event for them.
			}
		}
		h.mu.RUnlock()
	}
}

func (h *Hub) subscribe(jobID string) *subscriber {
	sub := &subscriber{jobID: jobID, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[jobID] == nil {
		h.subscribers[jobID] = make(map[*subscriber]struct{})
	}
	h.subscribers[jobID][sub] = struct{}{}
	return sub
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.subscribers[sub.jobID]
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.subscribers, sub.jobID)
	}
	close(sub.send)
}

func (h *Hub) publish(jobID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal event for job %s: %v", jobID, err)
		return
	}
	select {
	case h.events <- event{jobID: jobID, data: data}:
	default:
		log.Printf("Event queue full, dropping update for job %s", jobID)
	}
}

// BroadcastProgress publishes a stage checkpoint.
func (h *Hub) BroadcastProgress(jobID string, progress int, status model.JobStatus, stage string) {
	h.publish(jobID, model.ProgressEvent{
		Type:     model.EventTypeProgress,
		JobID:    jobID,
		Progress: progress,
		Status:   status,
		Stage:    stage,
	})
}

// BroadcastComplete publishes the finished artifact.
func (h *Hub) BroadcastComplete(jobID string, result interface{}) {
	h.publish(jobID, model.CompleteEvent{
		Type:   model.EventTypeComplete,
		JobID:  jobID,
		Result: result,
	})
}

// BroadcastError publishes a render failure.
func (h *Hub) BroadcastError(jobID string, code, message string) {
	h.publish(jobID, model.ErrorEvent{
		Type:  model.EventTypeError,
		JobID: jobID,
		Error: model.EventDetail{Code: code, Message: message},
	})
}

// HandleConnection serves one subscriber connection until the peer goes
// away. Inbound messages are ignored; the stream is server-push only, with
// protocol-level pings for keep-alive.
func (h *Hub) HandleConnection(c *websocket.Conn, jobID string) {
	sub := h.subscribe(jobID)
	defer h.unsubscribe(sub)

	go func() {
		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()

		for {
			select {
			case data, ok := <-sub.send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error on job %s: %v", jobID, err)
			}
			return
		}
	}
}
