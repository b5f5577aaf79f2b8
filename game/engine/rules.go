package engine

import (
	"encoding/json"
	"fmt"
)

// Rules holds the per-level knobs that the reference games disagree on
type Rules struct {
	// ScorpionLethal makes a scorpion moving onto the player lose the game
	// (stung_by_scorpion). Walking into a scorpion always loses.
	ScorpionLethal bool `json:"scorpion_lethal"`
	// Precedence breaks ties between equally good pursuer moves
	Precedence [4]Direction `json:"precedence"`
}

// DefaultRules returns scorpions that never attack and N, S, E, W precedence
func DefaultRules() Rules {
	return Rules{Precedence: Directions}
}

// Validate checks that the precedence is a permutation of the four directions
func (r Rules) Validate() error {
	var seen [4]bool
	for _, d := range r.Precedence {
		if !d.Valid() {
			return fmt.Errorf("precedence contains invalid direction %d", int(d))
		}
		if seen[d] {
			return fmt.Errorf("precedence repeats %s", d)
		}
		seen[d] = true
	}
	return nil
}

// UnmarshalJSON fills missing fields with defaults
func (r *Rules) UnmarshalJSON(data []byte) error {
	var raw struct {
		ScorpionLethal bool        `json:"scorpion_lethal"`
		Precedence     []Direction `json:"precedence"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = DefaultRules()
	r.ScorpionLethal = raw.ScorpionLethal
	if len(raw.Precedence) == 0 {
		return nil
	}
	if len(raw.Precedence) != 4 {
		return fmt.Errorf("precedence must list 4 directions, got %d", len(raw.Precedence))
	}
	copy(r.Precedence[:], raw.Precedence)
	return r.Validate()
}
