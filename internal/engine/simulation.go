// Simulation ties the author population to the generation clock and runs
// the phases each tick.
package engine

import (
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/talgya/authorsim/internal/authors"
	"github.com/talgya/authorsim/internal/entropy"
	"github.com/talgya/authorsim/internal/population"
)

// Options controls the evolutionary parameters of a run.
type Options struct {
	Population          int     // Founding population size
	GenerationLength    int     // Ticks per generation
	Fertility           int     // Children per couple
	SurvivalRatio       float64 // Share of the ranked candidates that survive
	GenerationLimit     int     // Run finishes once this many advances are exceeded
	PauseEachGeneration bool    // Pause the clock after every advance
}

// DefaultOptions returns the classic parameters: 100 founders, a generation
// every 20 ticks, 3 children per couple, top 70% survive, 9 generations.
func DefaultOptions() Options {
	return Options{
		Population:       100,
		GenerationLength: 20,
		Fertility:        3,
		SurvivalRatio:    0.7,
		GenerationLimit:  9,
	}
}

// StepResult tells the clock what to do after a tick.
type StepResult int

const (
	StepContinue StepResult = iota
	StepPause               // Stop ticking until resumed
	StepFinished            // Terminal; never tick again
)

// Status is a point-in-time summary of a run.
type Status struct {
	RunID      uuid.UUID `json:"run_id"`
	Year       uint64    `json:"year"`
	Generation int       `json:"generation"`
	Limit      int       `json:"limit"`
	Population int       `json:"population"`
	NextID     uint64    `json:"next_id"`
	Finished   bool      `json:"finished"`
}

// Stats are aggregate trait statistics over the live population.
type Stats struct {
	Population         int                   `json:"population"`
	MeanPower          float64               `json:"mean_power"`
	MinPower           float64               `json:"min_power"`
	MaxPower           float64               `json:"max_power"`
	MeanTalent         float64               `json:"mean_talent"`
	MeanResponsiveness float64               `json:"mean_responsiveness"`
	Classes            map[authors.Class]int `json:"classes"`
}

// Simulation owns the population, the id counter (via its spawner), the year
// and the generation counter. Step is the only mutator.
type Simulation struct {
	RunID uuid.UUID

	opts    Options
	rng     entropy.Source
	spawner *authors.Spawner
	store   *population.Store

	stepMu sync.Mutex   // serialises Step, including observer dispatch
	mu     sync.RWMutex // guards the fields below

	year       uint64
	generation int
	finished   bool
	observers  []Observer
}

// NewSimulation creates a simulation that draws all randomness from rng.
func NewSimulation(opts Options, rng entropy.Source) *Simulation {
	return &Simulation{
		RunID:   uuid.New(),
		opts:    opts,
		rng:     rng,
		spawner: authors.NewSpawner(rng),
		store:   population.New(),
	}
}

// Options returns the run parameters.
func (s *Simulation) Options() Options {
	return s.opts
}

// Subscribe registers an observer for all future notifications.
func (s *Simulation) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Step advances the simulation by one tick: tick 1 seeds the population,
// later ticks run an interaction pass, and every GenerationLength-th tick
// also advances the generation. Once finished, Step does nothing.
func (s *Simulation) Step() StepResult {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()

	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return StepFinished
	}

	s.year++
	result := StepContinue
	var (
		seeded    *SeededEvent
		generated *GenerationEvent
	)

	if s.year == 1 {
		ev, err := s.populate()
		if err != nil {
			slog.Error("seeding failed", "run", s.RunID, "error", err)
		} else {
			seeded = &ev
		}
	} else {
		s.interact()

		if s.opts.GenerationLength > 0 && s.year%uint64(s.opts.GenerationLength) == 0 {
			ev, err := s.advanceGeneration()
			if err != nil {
				slog.Error("generation advance failed", "run", s.RunID, "year", s.year, "error", err)
			} else {
				if s.generation > s.opts.GenerationLimit {
					s.finished = true
					ev.Finished = true
					result = StepFinished
				} else if s.opts.PauseEachGeneration {
					result = StepPause
				}
				generated = &ev
			}
		}
	}

	tick := TickEvent{
		RunID:      s.RunID,
		Year:       s.year,
		Generation: s.generation,
		Population: s.store.Len(),
	}
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()

	for _, o := range observers {
		if seeded != nil {
			o.PopulationSeeded(*seeded)
		}
		if generated != nil {
			o.GenerationChanged(*generated)
		}
		o.TickCompleted(tick)
	}
	return result
}

// Status returns the current run status.
func (s *Simulation) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		RunID:      s.RunID,
		Year:       s.year,
		Generation: s.generation,
		Limit:      s.opts.GenerationLimit,
		Population: s.store.Len(),
		NextID:     uint64(s.spawner.NextID()),
		Finished:   s.finished,
	}
}

// Finished reports whether the generation limit has been exceeded.
func (s *Simulation) Finished() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.finished
}

// Authors returns a snapshot of the live population in id order.
func (s *Simulation) Authors() []authors.Author {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Snapshot()
}

// Author returns a snapshot of one live author.
func (s *Simulation) Author(id authors.AuthorID) (authors.Author, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.store.Get(id)
	if !ok {
		return authors.Author{}, false
	}
	return *a, true
}

// Stats computes aggregate statistics over the live population.
func (s *Simulation) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return computeStats(s.store.Snapshot())
}

func computeStats(list []authors.Author) Stats {
	st := Stats{
		Population: len(list),
		Classes: map[authors.Class]int{
			authors.ClassGifted: 0,
			authors.ClassCritic: 0,
			authors.ClassBanal:  0,
		},
	}
	if len(list) == 0 {
		return st
	}

	st.MinPower = math.Inf(1)
	st.MaxPower = math.Inf(-1)
	var power, talent, res float64
	for _, a := range list {
		power += a.Power
		talent += a.Talent
		res += a.Responsiveness
		st.MinPower = math.Min(st.MinPower, a.Power)
		st.MaxPower = math.Max(st.MaxPower, a.Power)
		st.Classes[a.Class()]++
	}
	n := float64(len(list))
	st.MeanPower = power / n
	st.MeanTalent = talent / n
	st.MeanResponsiveness = res / n
	return st
}
