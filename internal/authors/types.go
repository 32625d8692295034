// Package authors provides the author data model and the spawner that
// creates authors, either as a seeded founding population or as children of
// two parents.
package authors

// AuthorID is a unique identifier for an author. IDs are issued
// monotonically by a Spawner and never reused.
type AuthorID uint64

// Class is the coarse label renderers use to colour an author.
type Class string

const (
	ClassGifted Class = "gifted" // Talent above ClassThreshold
	ClassCritic Class = "critic" // Responsiveness above ClassThreshold
	ClassBanal  Class = "banal"
)

// ClassThreshold is the trait level above which an author stands out.
const ClassThreshold = 0.8

// Author is one simulated writer.
type Author struct {
	ID AuthorID `json:"id"`

	// Responsiveness is the probability, in [0,1], that the author reacts
	// to another author during an interaction tick.
	Responsiveness float64 `json:"responsiveness"`

	// Talent, in [0,1], scales the feedback the author hands out.
	Talent float64 `json:"talent"`

	Power        float64 `json:"power"`         // Accumulated reputation, unbounded
	InitialPower float64 `json:"initial_power"` // Power at birth, never mutated
}

// Class reports whether the author is gifted, a critic, or neither.
// Talent wins when both traits are high.
func (a Author) Class() Class {
	switch {
	case a.Talent > ClassThreshold:
		return ClassGifted
	case a.Responsiveness > ClassThreshold:
		return ClassCritic
	default:
		return ClassBanal
	}
}

// ParseClass maps a class name to a Class. The second result is false for
// unknown names.
func ParseClass(s string) (Class, bool) {
	switch Class(s) {
	case ClassGifted, ClassCritic, ClassBanal:
		return Class(s), true
	}
	return "", false
}
