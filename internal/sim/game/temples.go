package game

import (
	"fmt"

	"corruptioncrypts.gg/internal/sim/rng"
)

// deriveTemples places templeCount temples from the round seed by
// rejection sampling: each temple draws candidate coordinates until one
// misses the scratch used-set. Pure function of the seed.
func deriveTemples(seed rng.Seed, templeCount int) []Coordinate {
	used := map[Coordinate]bool{}
	out := make([]Coordinate, templeCount)
	for i := 0; i < templeCount; i++ {
		out[i] = pickCoordinate(seed, fmt.Sprintf("temple:%d", i), used)
	}
	return out
}

// deriveTreasure derives the board treasure's coordinate and affinity
// from the same seed, rejecting temple positions.
func deriveTreasure(seed rng.Seed, temples []Coordinate) (Coordinate, uint8) {
	used := map[Coordinate]bool{}
	for _, t := range temples {
		used[t] = true
	}
	coord := pickCoordinate(seed, "treasure", used)
	aff := uint8(rng.Range(rng.Derive(seed, "treasure:affinity"), 0, 5))
	return coord, aff
}

func pickCoordinate(seed rng.Seed, context string, used map[Coordinate]bool) Coordinate {
	for attempt := uint64(0); ; attempt++ {
		h := rng.DeriveIndexed(seed, context, attempt)
		c := Coordinate{
			X: int(rng.Range(rng.Derive(h, "x"), 0, BoardWidth-1)),
			Y: int(rng.Range(rng.Derive(h, "y"), 0, BoardHeight-1)),
		}
		if used[c] {
			continue
		}
		used[c] = true
		return c
	}
}
