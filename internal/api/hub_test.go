package api

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/authorsim/internal/authors"
	"github.com/talgya/authorsim/internal/engine"
)

func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for h.Clients() != want {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", h.Clients(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func dialStream(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	sim := engine.NewSimulation(engine.DefaultOptions(), rand.New(rand.NewSource(1)))
	s := &Server{Sim: sim, Clock: engine.NewClock(sim.Step, time.Hour), Hub: h}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcastsEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub()
	go h.Run(ctx)

	conn := dialStream(t, h)
	waitForClients(t, h, 1)

	h.TickCompleted(engine.TickEvent{Year: 7, Generation: 0, Population: 100})
	h.GenerationChanged(engine.GenerationEvent{
		Year:       20,
		Generation: 1,
		Candidates: 3,
		Born:       []authors.Author{{ID: 4, Power: 5}, {ID: 5, Power: 4}},
		Discarded:  []authors.Author{{ID: 1}, {ID: 2}},
	})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	want := []string{"tick", "generation_changed"}
	for _, typ := range want {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var env struct {
			Type  string          `json:"type"`
			Event json.RawMessage `json:"event"`
		}
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if env.Type != typ {
			t.Fatalf("type = %q, want %q", env.Type, typ)
		}
		if typ == "generation_changed" {
			var ev engine.GenerationEvent
			if err := json.Unmarshal(env.Event, &ev); err != nil {
				t.Fatalf("decode event: %v", err)
			}
			if len(ev.Born) != 2 || ev.Born[0].ID != 4 || len(ev.Discarded) != 2 || ev.Candidates != 3 {
				t.Fatalf("unexpected event %+v", ev)
			}
		}
	}
}

func TestHubDropsClientOnDisconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub()
	go h.Run(ctx)

	conn := dialStream(t, h)
	waitForClients(t, h, 1)

	conn.Close()
	waitForClients(t, h, 0)
}

func TestHubShutdownClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub()
	go h.Run(ctx)

	conn := dialStream(t, h)
	waitForClients(t, h, 1)

	cancel()
	<-h.done
	if h.Clients() != 0 {
		t.Fatalf("clients after shutdown = %d", h.Clients())
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the connection to close")
	}

	// Publishing after shutdown must not block.
	h.TickCompleted(engine.TickEvent{Year: 1})
}
