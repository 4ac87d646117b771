package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

// fakeClient builds a Client without a connection; only the send channel is used.
func fakeClient(h *Hub, filter string) *Client {
	return &Client{hub: h, send: make(chan []byte, 16), log: h.log, Filter: filter}
}

func recv(t *testing.T, c *Client) Event {
	t.Helper()

	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed")
		}

		var evt Event
		if err := json.Unmarshal(msg, &evt); err != nil {
			t.Fatalf("decode: %v", err)
		}

		return evt
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	return Event{}
}

func TestHub_PublishRespectsFilter(t *testing.T) {
	h := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)

	all := fakeClient(h, "")
	only := fakeClient(h, "P02")
	h.Register(all)
	h.Register(only)

	deadline := time.Now().Add(time.Second)
	for h.ClientCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	h.Publish(EventTrialRecorded, "P01", json.RawMessage(`{"trial_id":"t1"}`))
	h.Publish(EventSurveyRecorded, "P02", json.RawMessage(`{"task":"A"}`))

	if evt := recv(t, all); evt.ID != 1 || evt.ParticipantID != "P01" {
		t.Errorf("first event = %+v", evt)
	}

	if evt := recv(t, all); evt.ID != 2 {
		t.Errorf("second event = %+v", evt)
	}

	if evt := recv(t, only); evt.Type != EventSurveyRecorded || evt.ParticipantID != "P02" {
		t.Errorf("filtered client got %+v", evt)
	}

	select {
	case msg := <-only.send:
		t.Errorf("filtered client got extra %s", msg)
	default:
	}
}

func TestHub_ReplaySince(t *testing.T) {
	h := NewHub(testLogger())

	for _, pid := range []string{"P01", "P02", "P01"} {
		h.Publish(EventTrialRecorded, pid, json.RawMessage(`{}`))
	}

	c := fakeClient(h, "P01")
	if !h.ReplayEvents(c, 1) {
		t.Fatal("replay should succeed")
	}

	if evt := recv(t, c); evt.ID != 3 {
		t.Errorf("replayed %+v, want id 3", evt)
	}

	if len(c.send) != 0 {
		t.Errorf("unexpected extra replayed events: %d", len(c.send))
	}
}

func TestEventBuffer_Limits(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	eb := NewEventBuffer(3, time.Hour)
	eb.now = func() time.Time { return now }

	eb.Append(&Event{ID: 1, Time: now.Add(-2 * time.Hour)})
	eb.Append(&Event{ID: 2, Time: now})

	if eb.OldestID() != 2 {
		t.Errorf("expired event kept: oldest = %d", eb.OldestID())
	}

	for id := uint64(3); id <= 5; id++ {
		eb.Append(&Event{ID: id, Time: now})
	}

	if eb.Len() != 3 || eb.OldestID() != 3 {
		t.Errorf("len=%d oldest=%d, want 3/3", eb.Len(), eb.OldestID())
	}

	if got := eb.Since(4); len(got) != 1 || got[0].ID != 5 {
		t.Errorf("Since(4) = %+v", got)
	}

	if got := eb.Since(5); got != nil {
		t.Errorf("Since(5) = %+v", got)
	}
}

func TestHub_ReplayTooOld(t *testing.T) {
	h := NewHub(testLogger())
	h.buffer = NewEventBuffer(2, time.Hour)

	for range 5 {
		h.Publish(EventTrialRecorded, "P01", json.RawMessage(`{}`))
	}

	if h.ReplayEvents(fakeClient(h, ""), 1) {
		t.Error("replay from evicted id should report reset")
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	h := NewHub(testLogger())
	go h.Run(context.Background())

	c := fakeClient(h, "")
	h.Register(c)

	deadline := time.Now().Add(time.Second)
	for h.ClientCount() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	go func() {
		// Drain like a write pump would.
		for range c.send {
		}
	}()

	h.Shutdown()

	if h.ClientCount() != 0 {
		t.Errorf("clients after shutdown = %d", h.ClientCount())
	}
}
