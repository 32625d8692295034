// Package entropy provides the random sources the simulation draws from.
// A seeded math/rand generator is the default; random.org is available as an
// optional true-random source that falls back to crypto/rand.
package entropy

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	mrand "math/rand"
	"net/http"
	"sync"
	"time"
)

// Source is the single random source every phase of the simulation uses.
// *math/rand.Rand satisfies it.
type Source interface {
	Float64() float64
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// NewSeeded returns a deterministic source for the given seed.
func NewSeeded(seed int64) *mrand.Rand {
	return mrand.New(mrand.NewSource(seed))
}

const randomOrgURL = "https://api.random.org/json-rpc/4/invoke"

// Client provides true random numbers from random.org with a local pool.
type Client struct {
	apiKey   string
	endpoint string
	client   *http.Client

	mu   sync.Mutex
	pool []float64
}

// NewClient creates a random.org client. Returns nil if apiKey is empty.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey:   apiKey,
		endpoint: randomOrgURL,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Float64 returns a fraction in [0, 1) from the pool, refilling it from
// random.org when empty. Draws come from crypto/rand while the API fails.
func (c *Client) Float64() float64 {
	if c == nil {
		return cryptoFloat64()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pool) == 0 {
		if err := c.refill(); err != nil {
			slog.Debug("random.org unavailable, using crypto/rand", "error", err)
		}
	}
	if len(c.pool) == 0 {
		return cryptoFloat64()
	}

	val := c.pool[0]
	c.pool = c.pool[1:]
	return val
}

// Intn returns an int in [0, n). Panics if n <= 0, like math/rand.
func (c *Client) Intn(n int) int {
	if n <= 0 {
		panic("entropy: invalid argument to Intn")
	}
	v := int(math.Floor(c.Float64() * float64(n)))
	if v >= n {
		v = n - 1
	}
	return v
}

// Shuffle is a Fisher-Yates shuffle driven by Intn.
func (c *Client) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		swap(i, c.Intn(i+1))
	}
}

// poolSize is how many fractions one random.org call fetches. A default
// generation advance of 150 children draws a few hundred values.
const poolSize = 500

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int       `json:"id"`
}

type rpcParams struct {
	APIKey        string `json:"apiKey"`
	N             int    `json:"n"`
	DecimalPlaces int    `json:"decimalPlaces"`
}

type rpcResponse struct {
	Result struct {
		Random struct {
			Data []float64 `json:"data"`
		} `json:"random"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// refill appends up to poolSize fractions in [0,1) to the pool. Callers hold
// c.mu.
func (c *Client) refill() error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "generateDecimalFractions",
		Params:  rpcParams{APIKey: c.apiKey, N: poolSize, DecimalPlaces: 10},
		ID:      1,
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	resp, err := c.client.Post(c.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("random.org returned %d", resp.StatusCode)
	}

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if out.Error != nil {
		return fmt.Errorf("random.org error %d: %s", out.Error.Code, out.Error.Message)
	}

	before := len(c.pool)
	for _, v := range out.Result.Random.Data {
		// Rounding can produce exactly 1, which Float64 must never return.
		if v >= 0 && v < 1 {
			c.pool = append(c.pool, v)
		}
	}
	slog.Debug("random.org pool refilled", "added", len(c.pool)-before)
	return nil
}

var mantissa = big.NewInt(1 << 53)

// cryptoFloat64 draws a uniform fraction with 53 bits from crypto/rand, or
// from math/rand if the system source fails.
func cryptoFloat64() float64 {
	n, err := rand.Int(rand.Reader, mantissa)
	if err != nil {
		return mrand.Float64()
	}
	return float64(n.Int64()) / (1 << 53)
}

// Enabled returns true if the client has a valid API key.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// FromConfig picks the source for a run: random.org when a key is set,
// otherwise a generator seeded with seed.
func FromConfig(seed int64, randomOrgKey string) Source {
	if c := NewClient(randomOrgKey); c.Enabled() {
		return c
	}
	return NewSeeded(seed)
}
