package engine

import (
	"github.com/google/uuid"

	"github.com/talgya/authorsim/internal/authors"
)

// SeededEvent is emitted once, on the first tick, with the founding authors.
type SeededEvent struct {
	RunID   uuid.UUID        `json:"run_id"`
	Year    uint64           `json:"year"`
	Authors []authors.Author `json:"authors"`
}

// TickEvent is emitted after every processed tick.
type TickEvent struct {
	RunID      uuid.UUID `json:"run_id"`
	Year       uint64    `json:"year"`
	Generation int       `json:"generation"`
	Population int       `json:"population"`
}

// GenerationEvent is emitted when a generation advance replaces the
// population. Born holds the survivors now live, Culled the children that
// ranked below the survival cutoff, and Discarded every member of the
// previous generation.
type GenerationEvent struct {
	RunID      uuid.UUID        `json:"run_id"`
	Year       uint64           `json:"year"`
	Generation int              `json:"generation"`
	Candidates int              `json:"candidates"`
	Born       []authors.Author `json:"born"`
	Culled     []authors.Author `json:"culled"`
	Discarded  []authors.Author `json:"discarded"`
	Finished   bool             `json:"finished"`
}

// Observer receives simulation notifications. Events carry value copies;
// observers cannot reach the live population through them. Calls happen on
// the stepping goroutine, so observers should return quickly.
type Observer interface {
	PopulationSeeded(ev SeededEvent)
	TickCompleted(ev TickEvent)
	GenerationChanged(ev GenerationEvent)
}

// ObserverFuncs adapts plain callbacks to Observer. Nil callbacks are
// skipped.
type ObserverFuncs struct {
	OnSeeded     func(SeededEvent)
	OnTick       func(TickEvent)
	OnGeneration func(GenerationEvent)
}

func (f ObserverFuncs) PopulationSeeded(ev SeededEvent) {
	if f.OnSeeded != nil {
		f.OnSeeded(ev)
	}
}

func (f ObserverFuncs) TickCompleted(ev TickEvent) {
	if f.OnTick != nil {
		f.OnTick(ev)
	}
}

func (f ObserverFuncs) GenerationChanged(ev GenerationEvent) {
	if f.OnGeneration != nil {
		f.OnGeneration(ev)
	}
}
