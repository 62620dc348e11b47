package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stillmind/api/internal/model"
)

func recv(t *testing.T, ch chan []byte) []byte {
	t.Helper()
	select {
	case data := <-ch:
		return data
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestHubRoutesEventsByJob(t *testing.T) {
	h := NewHub()
	go h.Run()

	subA := h.subscribe("job-a")
	subB := h.subscribe("job-b")
	defer h.unsubscribe(subA)
	defer h.unsubscribe(subB)

	h.BroadcastProgress("job-a", 50, model.JobStatusProcessing, "Mixing layers")

	var ev model.ProgressEvent
	if err := json.Unmarshal(recv(t, subA.send), &ev); err != nil {
		t.Fatalf("bad event payload: %v", err)
	}
	if ev.Type != model.EventTypeProgress || ev.JobID != "job-a" || ev.Progress != 50 || ev.Stage != "Mixing layers" {
		t.Errorf("unexpected event: %+v", ev)
	}

	select {
	case data := <-subB.send:
		t.Errorf("subscriber of another job received %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubTerminalEvents(t *testing.T) {
	h := NewHub()
	go h.Run()

	sub := h.subscribe("job-1")
	defer h.unsubscribe(sub)

	h.BroadcastComplete("job-1", map[string]string{"outputUrl": "https://cdn.example.com/a.wav"})
	var done model.CompleteEvent
	if err := json.Unmarshal(recv(t, sub.send), &done); err != nil {
		t.Fatalf("bad complete payload: %v", err)
	}
	if done.Type != model.EventTypeComplete || done.JobID != "job-1" {
		t.Errorf("unexpected complete event: %+v", done)
	}

	h.BroadcastError("job-1", "RENDER_FAILED", "voice synthesis: provider timeout")
	var failed model.ErrorEvent
	if err := json.Unmarshal(recv(t, sub.send), &failed); err != nil {
		t.Fatalf("bad error payload: %v", err)
	}
	if failed.Error.Code != "RENDER_FAILED" || failed.Error.Message == "" {
		t.Errorf("unexpected error event: %+v", failed)
	}
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	h := NewHub()
	go h.Run()

	sub := h.subscribe("job-1")
	h.unsubscribe(sub)
	if _, ok := <-sub.send; ok {
		t.Error("send channel not closed on unsubscribe")
	}

	// Publishing after the last subscriber left must not panic or block.
	h.BroadcastProgress("job-1", 75, model.JobStatusProcessing, "Normalizing")
	h.unsubscribe(sub) // double unsubscribe is a no-op
}
