// Command authorwatch follows a running authorsim instance over its HTTP API
// and logs a summary line per poll until the run finishes.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/authorsim/internal/watch"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	apiURL := envOrDefault("AUTHORSIM_API_URL", "http://localhost:8080")
	intervalSec := envIntOrDefault("AUTHORWATCH_INTERVAL", 2)
	interval := time.Duration(intervalSec) * time.Second

	slog.Info("authorwatch starting", "api_url", apiURL, "interval", interval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	observer := watch.NewObserver(apiURL)

	slog.Info("waiting for authorsim API...")
	if !waitForAPI(ctx, observer) {
		slog.Error("authorsim API did not become ready")
		os.Exit(1)
	}

	started := time.Now()
	last, err := observer.Watch(ctx, interval)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("watch ended", "error", err)
	}
	if last == nil {
		fmt.Println("No snapshot observed.")
		return
	}

	if last.Status.Finished {
		fmt.Printf("Run %s finished: %s (watched since %s).\n",
			last.Status.RunID, last.Summary(), humanize.Time(started))
	} else {
		fmt.Printf("Stopped watching run %s at year %s.\n",
			last.Status.RunID, humanize.Comma(int64(last.Status.Year)))
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultVal
}

// waitForAPI polls the status endpoint with exponential backoff until it
// responds. Gives up after 5 minutes or when ctx ends.
func waitForAPI(ctx context.Context, observer *watch.Observer) bool {
	backoff := time.Second
	maxBackoff := 30 * time.Second
	deadline := time.Now().Add(5 * time.Minute)

	for {
		if observer.Ready(ctx) {
			slog.Info("authorsim API is ready")
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		slog.Info("authorsim not ready, retrying...", "backoff", backoff)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
