package engine

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"
)

func TestClockRunsUntilFinished(t *testing.T) {
	var steps int32
	clock := NewClock(func() StepResult {
		if atomic.AddInt32(&steps, 1) == 5 {
			return StepFinished
		}
		return StepContinue
	}, time.Millisecond)

	if !clock.Resume(context.Background()) {
		t.Fatal("first resume should start the clock")
	}
	select {
	case <-clock.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("clock never finished")
	}
	clock.Wait()

	if got := atomic.LoadInt32(&steps); got != 5 {
		t.Fatalf("steps = %d, want 5", got)
	}
	if clock.Running() || !clock.Finished() || clock.Ticks() != 5 {
		t.Fatalf("running=%v finished=%v ticks=%d", clock.Running(), clock.Finished(), clock.Ticks())
	}
	if clock.Resume(context.Background()) {
		t.Fatal("resume after finish must be a no-op")
	}
	time.Sleep(10 * time.Millisecond)
	if got := atomic.LoadInt32(&steps); got != 5 {
		t.Fatalf("clock ticked after finish: %d", got)
	}
}

func TestClockResumeIsIdempotent(t *testing.T) {
	var concurrent, maxConcurrent int32
	clock := NewClock(func() StepResult {
		n := atomic.AddInt32(&concurrent, 1)
		for {
			m := atomic.LoadInt32(&maxConcurrent)
			if n <= m || atomic.CompareAndSwapInt32(&maxConcurrent, m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&concurrent, -1)
		return StepContinue
	}, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !clock.Resume(ctx) {
		t.Fatal("first resume should start the clock")
	}
	for i := 0; i < 10; i++ {
		if clock.Resume(ctx) {
			t.Fatal("resume on a running clock must not start a second loop")
		}
	}
	time.Sleep(30 * time.Millisecond)
	clock.Stop()

	if got := atomic.LoadInt32(&maxConcurrent); got != 1 {
		t.Fatalf("max concurrent steps = %d, want 1", got)
	}
	if clock.Running() {
		t.Fatal("clock still running after Stop")
	}
}

func TestClockPauseAndResume(t *testing.T) {
	var steps int32
	clock := NewClock(func() StepResult {
		if atomic.AddInt32(&steps, 1)%3 == 0 {
			return StepPause
		}
		return StepContinue
	}, time.Millisecond)

	clock.Resume(context.Background())
	clock.Wait()
	if got := atomic.LoadInt32(&steps); got != 3 {
		t.Fatalf("steps before pause = %d, want 3", got)
	}
	if clock.Running() || clock.Finished() {
		t.Fatal("paused clock should be idle but not finished")
	}

	if !clock.Resume(context.Background()) {
		t.Fatal("resume after pause should restart")
	}
	clock.Wait()
	if got := atomic.LoadInt32(&steps); got != 6 {
		t.Fatalf("steps after second pause = %d, want 6", got)
	}
}

func TestClockStopsOnContextCancel(t *testing.T) {
	clock := NewClock(func() StepResult { return StepContinue }, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	clock.Resume(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		clock.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("clock ignored context cancellation")
	}
}

func TestClockSpeed(t *testing.T) {
	clock := NewClock(nil, 0)
	if clock.Interval != DefaultInterval {
		t.Fatalf("interval = %v, want default", clock.Interval)
	}
	clock.SetSpeed(-3)
	if clock.Speed() != 0 {
		t.Fatalf("negative speed should clamp to 0, got %v", clock.Speed())
	}
	clock.SetSpeed(4)
	if clock.Speed() != 4 {
		t.Fatalf("speed = %v, want 4", clock.Speed())
	}
}

func TestClockDrivesSimulationToCompletion(t *testing.T) {
	opts := Options{Population: 12, GenerationLength: 3, Fertility: 3, SurvivalRatio: 0.7, GenerationLimit: 2}
	sim := NewSimulation(opts, rand.New(rand.NewSource(4)))
	clock := NewClock(sim.Step, time.Microsecond)
	clock.Resume(context.Background())

	select {
	case <-clock.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("simulation never finished")
	}
	clock.Wait()
	if !sim.Finished() || sim.Status().Year != 9 || clock.Ticks() != 9 {
		t.Fatalf("unexpected end state: %+v ticks=%d", sim.Status(), clock.Ticks())
	}
}
