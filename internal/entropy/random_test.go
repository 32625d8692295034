package entropy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClientWithoutKeyIsDisabled(t *testing.T) {
	c := NewClient("")
	if c != nil {
		t.Fatal("expected nil client for empty key")
	}
	if c.Enabled() {
		t.Fatal("nil client must report disabled")
	}
	for i := 0; i < 100; i++ {
		if v := c.Float64(); v < 0 || v >= 1 {
			t.Fatalf("crypto fallback out of range: %v", v)
		}
	}
}

func TestFromConfigFallsBackToSeeded(t *testing.T) {
	a := FromConfig(7, "")
	b := FromConfig(7, "")
	for i := 0; i < 10; i++ {
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("draw %d differs for equal seeds: %v vs %v", i, x, y)
		}
	}
}

func TestClientDrawsFromPool(t *testing.T) {
	reqs := make(chan rpcRequest, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		reqs <- req
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","result":{"random":{"data":[0.25,0.5,1.0,0.75,0.1,0.2,0.3,0.4,0.6,0.7,0.8,0.9]}},"id":1}`))
	}))
	defer srv.Close()

	c := NewClient("key")
	c.endpoint = srv.URL

	if got := c.Float64(); got != 0.25 {
		t.Fatalf("first draw = %v, want 0.25", got)
	}
	// 1.0 is dropped from the pool.
	if got := c.Float64(); got != 0.5 {
		t.Fatalf("second draw = %v, want 0.5", got)
	}
	if got := c.Float64(); got != 0.75 {
		t.Fatalf("third draw = %v, want 0.75", got)
	}
	if n := len(reqs); n != 1 {
		t.Fatalf("random.org called %d times, want 1 while the pool lasts", n)
	}
	got := <-reqs
	if got.Method != "generateDecimalFractions" || got.Params.APIKey != "key" || got.Params.N != poolSize {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestClientFallsBackOnHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient("key")
	c.endpoint = srv.URL
	for i := 0; i < 20; i++ {
		if v := c.Float64(); v < 0 || v >= 1 {
			t.Fatalf("fallback draw out of range: %v", v)
		}
	}
	if len(c.pool) != 0 {
		t.Fatalf("pool should stay empty, has %d", len(c.pool))
	}
}

func TestClientIntnAndShuffle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer srv.Close()

	c := NewClient("key")
	c.endpoint = srv.URL

	for i := 0; i < 50; i++ {
		if v := c.Intn(3); v < 0 || v > 2 {
			t.Fatalf("Intn(3) out of range: %d", v)
		}
	}

	items := []int{0, 1, 2, 3, 4, 5}
	c.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	seen := map[int]bool{}
	for _, v := range items {
		seen[v] = true
	}
	if len(seen) != 6 {
		t.Fatalf("shuffle lost elements: %v", items)
	}
}
