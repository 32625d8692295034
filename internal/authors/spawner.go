// Author spawning: the founding population and children of a couple.
package authors

import (
	"math"

	"github.com/talgya/authorsim/internal/entropy"
)

const (
	// MutationRate is the chance that talent and responsiveness are drawn
	// independently instead of following the inverse rule.
	MutationRate = 0.02

	// MaxInitialPower bounds the power of a founding author.
	MaxInitialPower = 10.0
)

// Spawner creates authors and owns the id counter.
type Spawner struct {
	rng    entropy.Source
	nextID AuthorID
}

// NewSpawner creates a spawner drawing from rng. IDs start at 0.
func NewSpawner(rng entropy.Source) *Spawner {
	return &Spawner{rng: rng}
}

// NextID returns the id the next author will get.
func (s *Spawner) NextID() AuthorID {
	return s.nextID
}

// SpawnPopulation creates count founding authors with sequential ids.
func (s *Spawner) SpawnPopulation(count int) []*Author {
	if count <= 0 {
		return nil
	}
	out := make([]*Author, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, s.spawnOne())
	}
	return out
}

func (s *Spawner) spawnOne() *Author {
	resRatio := s.rng.Float64()
	giftRoll := s.rng.Float64()

	// Most authors trade talent for responsiveness; a few are drawn freely.
	talent := 1 - resRatio
	if giftRoll < MutationRate {
		talent = s.rng.Float64()
	}

	power := MaxInitialPower * s.rng.Float64()
	return &Author{
		ID:             s.issueID(),
		Responsiveness: resRatio,
		Talent:         talent,
		Power:          power,
		InitialPower:   power,
	}
}

// Child creates one child of father and mother. The child starts with the
// mean of its parents' current power and inherits the lower, the mean, or
// the higher of their talents with equal probability.
func (s *Spawner) Child(father, mother *Author) *Author {
	power := (father.Power + mother.Power) / 2

	var talent float64
	switch s.rng.Intn(3) + 1 {
	case 3:
		talent = math.Max(father.Talent, mother.Talent)
	case 2:
		talent = (father.Talent + mother.Talent) / 2
	default:
		talent = math.Min(father.Talent, mother.Talent)
	}

	res := 1 - talent
	if s.rng.Float64() < MutationRate {
		res = s.rng.Float64()
	}

	return &Author{
		ID:             s.issueID(),
		Responsiveness: res,
		Talent:         talent,
		Power:          power,
		InitialPower:   power,
	}
}

func (s *Spawner) issueID() AuthorID {
	id := s.nextID
	s.nextID++
	return id
}
