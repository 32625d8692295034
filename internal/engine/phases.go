// The three simulation phases: seeding, interaction, generation advance.
package engine

import (
	"fmt"
	"sort"

	"github.com/talgya/authorsim/internal/authors"
	"github.com/talgya/authorsim/internal/population"
)

// CriticalThreshold: a reaction is critical when its roll exceeds this,
// roughly one time in three.
const CriticalThreshold = 0.666

// FeedbackScale divides talent into the power change of one reaction.
const FeedbackScale = 10.0

// populate seeds the founding generation.
func (s *Simulation) populate() (SeededEvent, error) {
	founders := s.spawner.SpawnPopulation(s.opts.Population)
	if err := s.store.Add(founders...); err != nil {
		return SeededEvent{}, fmt.Errorf("seed population: %w", err)
	}
	return SeededEvent{
		RunID:   s.RunID,
		Year:    s.year,
		Authors: population.Values(founders),
	}, nil
}

// interact runs one pass of peer feedback. Each author considers every other
// author once; whether it reacts is gated by its own responsiveness and the
// size of the effect by its own talent. The summed effect lands on the
// evaluating author's power.
func (s *Simulation) interact() {
	members := s.store.Members()
	for _, a := range members {
		point := 0.0
		for _, b := range members {
			if a.ID == b.ID {
				continue
			}
			if s.rng.Float64() > a.Responsiveness {
				continue
			}
			sign := 1.0
			if s.rng.Float64() > CriticalThreshold {
				sign = -1.0
			}
			point += sign * a.Talent / FeedbackScale
		}
		a.Power += point
	}
}

// Couples pairs neighbours in id order: (m[0],m[1]), (m[1],m[2]), ... for
// floor(len/2) couples. Couples overlap; every inner member sits in two.
func Couples(members []*authors.Author) [][2]*authors.Author {
	n := len(members) / 2
	out := make([][2]*authors.Author, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, [2]*authors.Author{members[i], members[i+1]})
	}
	return out
}

// SurvivorCount returns how many of the top candidates survive: the walk
// down the power ranking keeps each candidate and stops once the kept
// fraction reaches ratio. For ratio 0.7 this is ceil(0.7 * candidates).
// A strict "fraction > ratio" walk would keep up to two more (107 of 150).
func SurvivorCount(candidates int, ratio float64) int {
	for i := 0; i < candidates; i++ {
		if float64(i+1)/float64(candidates) >= ratio {
			return i + 1
		}
	}
	return candidates
}

// advanceGeneration breeds, culls and replaces the whole population.
func (s *Simulation) advanceGeneration() (GenerationEvent, error) {
	var pool []*authors.Author
	for _, c := range Couples(s.store.Members()) {
		for j := 0; j < s.opts.Fertility; j++ {
			pool = append(pool, s.spawner.Child(c[0], c[1]))
		}
	}

	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Power > pool[j].Power
	})
	cut := SurvivorCount(len(pool), s.opts.SurvivalRatio)
	survivors, culled := pool[:cut], population.Values(pool[cut:])

	// Install order is random; the store keeps members sorted by id.
	s.rng.Shuffle(len(survivors), func(i, j int) {
		survivors[i], survivors[j] = survivors[j], survivors[i]
	})

	discarded, err := s.store.Reset(survivors)
	if err != nil {
		return GenerationEvent{}, fmt.Errorf("replace generation: %w", err)
	}
	s.generation++

	return GenerationEvent{
		RunID:      s.RunID,
		Year:       s.year,
		Generation: s.generation,
		Candidates: len(pool),
		Born:       s.store.Snapshot(),
		Culled:     culled,
		Discarded:  population.Values(discarded),
	}, nil
}
