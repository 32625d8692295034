package authors

import (
	"math"
	"math/rand"
	"testing"
)

// scripted replays fixed draws so a test can pin each branch.
type scripted struct {
	floats []float64
	ints   []int
}

func (s *scripted) Float64() float64 {
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func (s *scripted) Intn(n int) int {
	v := s.ints[0]
	s.ints = s.ints[1:]
	return v % n
}

func (s *scripted) Shuffle(int, func(i, j int)) {}

func TestSpawnPopulationTraits(t *testing.T) {
	sp := NewSpawner(rand.New(rand.NewSource(1)))
	pop := sp.SpawnPopulation(5000)
	if len(pop) != 5000 {
		t.Fatalf("expected 5000 authors, got %d", len(pop))
	}

	inverse := 0
	for i, a := range pop {
		if a.ID != AuthorID(i) {
			t.Fatalf("author %d has id %d", i, a.ID)
		}
		if a.Responsiveness < 0 || a.Responsiveness > 1 {
			t.Fatalf("responsiveness out of range: %v", a.Responsiveness)
		}
		if a.Talent < 0 || a.Talent > 1 {
			t.Fatalf("talent out of range: %v", a.Talent)
		}
		if a.Power != a.InitialPower {
			t.Fatalf("power %v != initial %v", a.Power, a.InitialPower)
		}
		if a.Power < 0 || a.Power >= MaxInitialPower {
			t.Fatalf("power out of range: %v", a.Power)
		}
		if math.Abs(a.Talent-(1-a.Responsiveness)) < 1e-12 {
			inverse++
		}
	}
	ratio := float64(inverse) / float64(len(pop))
	if ratio < 0.96 || ratio > 0.995 {
		t.Fatalf("inverse-trait ratio %.3f, want about 0.98", ratio)
	}
	if sp.NextID() != 5000 {
		t.Fatalf("next id = %d, want 5000", sp.NextID())
	}
}

func TestSpawnPopulationEmpty(t *testing.T) {
	sp := NewSpawner(rand.New(rand.NewSource(1)))
	if got := sp.SpawnPopulation(0); len(got) != 0 {
		t.Fatalf("expected no authors, got %d", len(got))
	}
	if sp.NextID() != 0 {
		t.Fatalf("id counter moved: %d", sp.NextID())
	}
}

func TestSpawnMutantDrawsTalentIndependently(t *testing.T) {
	// resRatio, giftRoll (< 0.02), talent, power
	sp := NewSpawner(&scripted{floats: []float64{0.3, 0.01, 0.9, 0.5}})
	a := sp.SpawnPopulation(1)[0]
	if a.Responsiveness != 0.3 || a.Talent != 0.9 {
		t.Fatalf("unexpected traits: %+v", a)
	}
	if a.Power != 5 || a.InitialPower != 5 {
		t.Fatalf("unexpected power: %+v", a)
	}
}

func TestChildTalentInheritance(t *testing.T) {
	father := &Author{Talent: 0.2, Power: 4}
	mother := &Author{Talent: 0.6, Power: 8}

	tests := []struct {
		name   string
		roll   int
		talent float64
	}{
		{"min", 0, 0.2},
		{"mean", 1, 0.4},
		{"max", 2, 0.6},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sp := NewSpawner(&scripted{ints: []int{tc.roll}, floats: []float64{0.5}})
			c := sp.Child(father, mother)
			if math.Abs(c.Talent-tc.talent) > 1e-12 {
				t.Fatalf("talent = %v, want %v", c.Talent, tc.talent)
			}
			if math.Abs(c.Responsiveness-(1-tc.talent)) > 1e-12 {
				t.Fatalf("responsiveness = %v, want %v", c.Responsiveness, 1-tc.talent)
			}
			if c.Power != 6 || c.InitialPower != 6 {
				t.Fatalf("power = %v/%v, want 6", c.Power, c.InitialPower)
			}
		})
	}
}

func TestChildResponsivenessMutation(t *testing.T) {
	sp := NewSpawner(&scripted{ints: []int{0}, floats: []float64{0.001, 0.77}})
	c := sp.Child(&Author{Talent: 0.5}, &Author{Talent: 0.5})
	if c.Responsiveness != 0.77 {
		t.Fatalf("responsiveness = %v, want mutated 0.77", c.Responsiveness)
	}
}

func TestChildTalentWithinParents(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	sp := NewSpawner(rng)
	for i := 0; i < 2000; i++ {
		f := &Author{Talent: rng.Float64(), Power: rng.Float64() * 10}
		m := &Author{Talent: rng.Float64(), Power: rng.Float64() * 10}
		c := sp.Child(f, m)
		lo, hi := math.Min(f.Talent, m.Talent), math.Max(f.Talent, m.Talent)
		if c.Talent < lo || c.Talent > hi {
			t.Fatalf("child talent %v outside [%v, %v]", c.Talent, lo, hi)
		}
		if c.Responsiveness < 0 || c.Responsiveness > 1 {
			t.Fatalf("child responsiveness out of range: %v", c.Responsiveness)
		}
	}
}

func TestChildIDsContinueSequence(t *testing.T) {
	sp := NewSpawner(rand.New(rand.NewSource(3)))
	pop := sp.SpawnPopulation(4)
	c := sp.Child(pop[0], pop[1])
	if c.ID != 4 {
		t.Fatalf("child id = %d, want 4", c.ID)
	}
}

func TestClass(t *testing.T) {
	tests := []struct {
		a    Author
		want Class
	}{
		{Author{Talent: 0.9, Responsiveness: 0.9}, ClassGifted},
		{Author{Talent: 0.1, Responsiveness: 0.85}, ClassCritic},
		{Author{Talent: 0.8, Responsiveness: 0.2}, ClassBanal},
	}
	for _, tc := range tests {
		if got := tc.a.Class(); got != tc.want {
			t.Errorf("Class(%+v) = %s, want %s", tc.a, got, tc.want)
		}
	}
	if _, ok := ParseClass("critic"); !ok {
		t.Error("critic should parse")
	}
	if _, ok := ParseClass("poet"); ok {
		t.Error("poet should not parse")
	}
}
