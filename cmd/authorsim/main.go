// Command authorsim runs the author evolution simulation in real time.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/talgya/authorsim/internal/api"
	"github.com/talgya/authorsim/internal/config"
	"github.com/talgya/authorsim/internal/engine"
	"github.com/talgya/authorsim/internal/entropy"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "authorsim: %v\n", err)
		os.Exit(1)
	}
	level, err := cfg.Level()
	if err != nil {
		fmt.Fprintf(os.Stderr, "authorsim: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// ── Randomness ────────────────────────────────────────────────────
	rng := entropy.FromConfig(cfg.Seed, cfg.RandomOrgKey)
	if _, ok := rng.(*entropy.Client); ok {
		slog.Info("using random.org entropy (seed ignored)")
	} else {
		slog.Info("using seeded entropy", "seed", cfg.Seed)
	}

	// ── Simulation ────────────────────────────────────────────────────
	sim := engine.NewSimulation(cfg.Options(), rng)
	sim.Subscribe(engine.NewLogObserver(logger))
	clock := engine.NewClock(sim.Step, cfg.Interval)

	slog.Info("run configured",
		"run", sim.RunID,
		"population", cfg.Population,
		"generation_length", cfg.GenerationLength,
		"generation_limit", cfg.GenerationLimit,
		"interval", cfg.Interval,
		"pause_each_generation", cfg.PauseEachGeneration,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.Port > 0 {
		if cfg.AdminKey == "" {
			slog.Warn("AUTHORSIM_ADMIN_KEY not set, admin POST endpoints will be disabled")
		}
		hub := api.NewHub()
		go hub.Run(ctx)
		sim.Subscribe(hub)

		apiServer := &api.Server{
			Sim:         sim,
			Clock:       clock,
			Hub:         hub,
			Port:        cfg.Port,
			AdminKey:    cfg.AdminKey,
			CORSOrigins: cfg.CORSOrigins,
			Ctx:         ctx,
		}
		apiServer.Start(ctx)
		fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Port)
	} else if cfg.PauseEachGeneration {
		slog.Warn("pause_each_generation without the HTTP API: the run will stop at the first generation")
	}

	// ── Start ─────────────────────────────────────────────────────────
	fmt.Println("Starting simulation... (Ctrl+C to stop)")
	clock.Resume(ctx)

	select {
	case <-clock.Done():
	case <-ctx.Done():
		slog.Info("received signal, shutting down")
	}
	clock.Stop()

	st := sim.Status()
	stats := sim.Stats()
	if st.Finished {
		fmt.Printf("\nRun %s finished after %s years: %s authors in the %s generation, mean power %.2f.\n",
			st.RunID, humanize.Comma(int64(st.Year)), humanize.Comma(int64(stats.Population)),
			humanize.Ordinal(st.Generation), stats.MeanPower)
	} else {
		fmt.Printf("\nSimulation stopped at year %s (%s generation).\n",
			humanize.Comma(int64(st.Year)), humanize.Ordinal(st.Generation))
	}
}
