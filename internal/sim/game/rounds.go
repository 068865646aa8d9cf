package game

import (
	"fmt"

	"corruptioncrypts.gg/internal/protocol"
	"corruptioncrypts.gg/internal/sim/rng"
)

// CurrentEpoch is the number of whole epochs elapsed since round start.
func (g *Game) CurrentEpoch() uint64 {
	elapsed := g.clock.Now().Sub(g.round.StartTime)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed.Seconds()) / uint64(g.cfg.EpochSeconds)
}

// roundSeed reveals the round's oracle request on first use and derives
// the round's temple and treasure positions exactly once. Positions stay
// fixed for the rest of the round and match the uncached derivation
// bit for bit.
func (g *Game) roundSeed() (rng.Seed, error) {
	if g.round.revealed {
		return g.round.seed, nil
	}
	seed, err := g.oracle.Reveal(g.round.Request)
	if err != nil {
		if err == rng.ErrNotReady {
			return rng.Seed{}, ruleErr(protocol.ErrRandNotReady, "round seed not revealed yet")
		}
		return rng.Seed{}, err
	}
	g.round.revealed = true
	g.round.seed = seed
	g.round.temples = deriveTemples(seed, g.cfg.TempleCount)
	g.round.treasureCoord, g.round.treasureAffinity = deriveTreasure(seed, g.round.temples)
	return seed, nil
}

// temples returns this round's temple positions, deriving them if the
// seed just became readable.
func (g *Game) temples() ([]Coordinate, error) {
	if _, err := g.roundSeed(); err != nil {
		return nil, err
	}
	return g.round.temples, nil
}

func (g *Game) templeCoord(id uint8) (Coordinate, error) {
	ts, err := g.temples()
	if err != nil {
		return Coordinate{}, err
	}
	if int(id) >= len(ts) {
		return Coordinate{}, ruleErr(protocol.ErrNotFound, fmt.Sprintf("no temple %d", id))
	}
	return ts[id], nil
}

// advanceRound starts the next round: fresh randomness request, reset
// treasure supply and the legions-at-temple counter, new round clock.
// Only the enter-temple threshold triggers this.
func (g *Game) advanceRound(eff *turnEffects) {
	prev := g.round.Round
	g.round = &RoundState{
		Round:     prev + 1,
		StartTime: g.clock.Now(),
		Request:   g.oracle.Request(),
	}
	g.treasure.NumClaimed = 0
	g.legionsAtTemple = 0
	eff.audit = append(eff.audit, AuditEntry{
		Turn:   g.turn.Load(),
		Action: "ROUND_ADVANCE",
		Round:  g.round.Round,
	})
}
