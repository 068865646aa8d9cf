package game

import (
	"testing"

	"corruptioncrypts.gg/internal/protocol"
)

// parkOnTreasure moves the squad straight onto the treasure cell,
// bypassing pathing. Internal state surgery for focused claim tests.
func parkOnTreasure(t *testing.T, g *Game, p *PlayerState, s *LegionSquad) {
	t.Helper()
	tc, _, err := g.treasureSpot()
	if err != nil {
		t.Fatalf("treasure spot: %v", err)
	}
	p.cellAt(s.Coord).SquadID = 0
	s.Coord = tc
}

func TestClaimTreasure_OncePerOwnerPerRound(t *testing.T) {
	g, _, _, _ := newTestGame(t, nil)
	p := joinTestPlayer(t, g, "alice")
	s := spawnSquad(t, g, p, []uint64{101})

	eff := &turnEffects{}
	if err := g.claimTreasure(p, s, false, eff); errCode(err) != protocol.ErrNotOnTreasure {
		t.Fatalf("claim away from treasure: %v", err)
	}

	parkOnTreasure(t, g, p, s)
	if err := g.claimTreasure(p, s, false, eff); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if g.treasure.NumClaimed != 1 || p.LastTreasureClaimRound != 1 {
		t.Fatalf("claimed=%d lastRound=%d", g.treasure.NumClaimed, p.LastTreasureClaimRound)
	}
	if err := g.claimTreasure(p, s, false, eff); errCode(err) != protocol.ErrAlreadyClaimed {
		t.Fatalf("second claim same round: %v", err)
	}

	// The claim buffered a reward mint for the commit phase.
	var mint bool
	for _, op := range eff.assets {
		if op.kind == assetOpMint && op.to == p.ID && op.rewardID == RewardAssetID {
			mint = true
		}
	}
	if !mint {
		t.Fatal("no reward mint buffered")
	}
}

func TestClaimTreasure_SupplyExhausts(t *testing.T) {
	g, _, _, _ := newTestGame(t, func(c *Config) {
		c.TreasureMaxSupply = 1
	})
	alice := joinTestPlayer(t, g, "alice")
	bob := joinTestPlayer(t, g, "bob")
	sa := spawnSquad(t, g, alice, []uint64{101})
	sb := spawnSquad(t, g, bob, []uint64{201})

	eff := &turnEffects{}
	parkOnTreasure(t, g, alice, sa)
	if err := g.claimTreasure(alice, sa, false, eff); err != nil {
		t.Fatalf("first claim: %v", err)
	}

	parkOnTreasure(t, g, bob, sb)
	if err := g.claimTreasure(bob, sb, false, eff); errCode(err) != protocol.ErrSupplyExhausted {
		t.Fatalf("claim past supply: %v", err)
	}
}

func TestMoveSquad_AutoClaimsTreasureOnPassThrough(t *testing.T) {
	g, _, _, _ := newTestGame(t, nil)
	p := joinTestPlayer(t, g, "alice")
	s := spawnSquad(t, g, p, []uint64{101})
	start := s.Coord

	// Re-aim the derived treasure at a cell the corridor will cross.
	// The round seed is already revealed, so the override sticks.
	mid := Coordinate{X: start.X, Y: (start.Y + 1) % BoardHeight}
	end := Coordinate{X: start.X, Y: (start.Y + 2) % BoardHeight}
	if end.Y < mid.Y || mid.Y < start.Y {
		t.Skip("corridor would wrap the board edge")
	}
	g.round.treasureCoord = mid

	giveTile(p, 3000, 1, true, true, true, true)
	mustPlace(t, g, p, 3000, mid)
	giveTile(p, 3001, 1, true, true, true, true)
	mustPlace(t, g, p, 3001, end)

	burn := giveTile(p, 3002, 2, true, true, true, true)
	eff := &turnEffects{}
	if err := g.moveSquad(p, s.ID, burn.ID, start, []Coordinate{mid, end}, eff); err != nil {
		t.Fatalf("move: %v", err)
	}
	if s.Coord != end {
		t.Fatalf("squad at %v", s.Coord)
	}
	if g.treasure.NumClaimed != 1 || s.LastRoundTreasureClaimed != 1 {
		t.Fatalf("pass-through claim missing: claimed=%d squadRound=%d",
			g.treasure.NumClaimed, s.LastRoundTreasureClaimed)
	}

	// Passing through again the same round is a silent no-op, never an
	// error.
	burn2 := giveTile(p, 3003, 2, true, true, true, true)
	if err := g.moveSquad(p, s.ID, burn2.ID, end, []Coordinate{mid, start}, eff); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if g.treasure.NumClaimed != 1 {
		t.Fatalf("double-claimed: %d", g.treasure.NumClaimed)
	}
}

func TestMoveSquad_FinalCellNeedsExplicitClaim(t *testing.T) {
	g, _, _, _ := newTestGame(t, nil)
	p := joinTestPlayer(t, g, "alice")
	s := spawnSquad(t, g, p, []uint64{101})
	start := s.Coord

	dest := Coordinate{X: start.X, Y: (start.Y + 1) % BoardHeight}
	if dest.Y < start.Y {
		t.Skip("corridor would wrap the board edge")
	}
	g.round.treasureCoord = dest

	giveTile(p, 3000, 1, true, true, true, true)
	mustPlace(t, g, p, 3000, dest)
	burn := giveTile(p, 3001, 1, true, true, true, true)
	eff := &turnEffects{}
	if err := g.moveSquad(p, s.ID, burn.ID, start, []Coordinate{dest}, eff); err != nil {
		t.Fatalf("move: %v", err)
	}
	if g.treasure.NumClaimed != 0 {
		t.Fatal("destination should not auto-claim")
	}
	if err := g.claimTreasure(p, s, false, eff); err != nil {
		t.Fatalf("explicit claim while parked: %v", err)
	}
	if g.treasure.NumClaimed != 1 {
		t.Fatalf("claimed: %d", g.treasure.NumClaimed)
	}
}
