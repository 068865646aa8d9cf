package game

import (
	"testing"
	"time"

	"corruptioncrypts.gg/internal/protocol"
)

func TestAddSquad_Validations(t *testing.T) {
	g, _, _, custody := newTestGame(t, func(c *Config) {
		c.MaxSquadSize = 2
		c.MaxSquadsPerPlayer = 1
	})
	p := joinTestPlayer(t, g, "alice")
	custody.Grant("P1", 1, 2, 3)
	c := farFromTemples(t, g)
	eff := &turnEffects{}

	if _, err := g.addSquad(p, nil, 0, c, eff); errCode(err) != protocol.ErrBadRequest {
		t.Fatalf("empty squad: %v", err)
	}
	if _, err := g.addSquad(p, []uint64{1, 2, 3}, 0, c, eff); errCode(err) != protocol.ErrSquadTooBig {
		t.Fatalf("oversized squad: %v", err)
	}
	if _, err := g.addSquad(p, []uint64{1}, 0, c, eff); errCode(err) != protocol.ErrNoTile {
		t.Fatalf("spawn without tile: %v", err)
	}

	giveTile(p, 1000, 1, true, true, true, true)
	mustPlace(t, g, p, 1000, c)

	custody.Recruits[7] = true
	if _, err := g.addSquad(p, []uint64{7}, 0, c, eff); errCode(err) != protocol.ErrRecruitBarred {
		t.Fatalf("recruit asset: %v", err)
	}
	if _, err := g.addSquad(p, []uint64{1}, 9, c, eff); errCode(err) != protocol.ErrNotFound {
		t.Fatalf("bad temple id: %v", err)
	}

	id, err := g.addSquad(p, []uint64{1}, 0, c, eff)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if g.squads[id] == nil || !g.squads[id].Alive || p.ActiveSquads != 1 {
		t.Fatalf("squad state: %+v active=%d", g.squads[id], p.ActiveSquads)
	}
	if _, err := g.addSquad(p, []uint64{2}, 0, c, eff); errCode(err) != protocol.ErrSquadLimit {
		t.Fatalf("over squad limit: %v", err)
	}
}

func TestAddSquad_RequiresHeldAssets(t *testing.T) {
	g, _, _, custody := newTestGame(t, nil)
	p := joinTestPlayer(t, g, "alice")
	custody.Grant("P1", 101)

	spawn := farFromTemples(t, g)
	giveTile(p, 1000, 1, true, true, true, true)
	mustPlace(t, g, p, 1000, spawn)

	// Asset 102 is not held, so the stake is rejected at move time and
	// the held asset never reaches custody.
	res := g.applyTurn("P1", turnMsg(protocol.Move{
		Type:     protocol.MoveAddLegionSquad,
		AssetIDs: []uint64{101, 102},
		Coord:    [2]int{spawn.X, spawn.Y},
	}))
	if res.OK || res.Results[0].Code != protocol.ErrNotOwner {
		t.Fatalf("unheld asset staked: %+v", res)
	}
	if custody.Owners[101] != "P1" {
		t.Fatalf("asset 101 left the player on a rejected batch: %q", custody.Owners[101])
	}
	if got := g.players["P1"].ActiveSquads; got != 0 || len(g.squads) != 0 {
		t.Fatalf("squad survived rejection: active=%d squads=%d", got, len(g.squads))
	}
}

func TestAddSquad_TooCloseToTemple(t *testing.T) {
	g, _, _, custody := newTestGame(t, func(c *Config) {
		c.MinDistanceFromTemple = 3
	})
	p := joinTestPlayer(t, g, "alice")
	custody.Grant("P1", 1)

	temples, err := g.temples()
	if err != nil {
		t.Fatalf("temples: %v", err)
	}
	spawn := temples[0]
	giveTile(p, 1000, 1, true, true, true, true)
	mustPlace(t, g, p, 1000, spawn)

	eff := &turnEffects{}
	if _, err := g.addSquad(p, []uint64{1}, 0, spawn, eff); errCode(err) != protocol.ErrTooCloseToTemple {
		t.Fatalf("spawn on temple: %v", err)
	}
}

func TestMoveSquad_WalksBurnedTileBudget(t *testing.T) {
	g, _, _, _ := newTestGame(t, nil)
	p := joinTestPlayer(t, g, "alice")
	s := spawnSquad(t, g, p, []uint64{101})
	start := s.Coord

	// Two-cell corridor east of the spawn tile.
	next := Coordinate{X: start.X + 1, Y: start.Y}
	if !next.InBounds() {
		next = Coordinate{X: start.X - 1, Y: start.Y}
	}
	giveTile(p, 2000, 1, true, true, true, true)
	mustPlace(t, g, p, 2000, next)

	// Burn tile carries the step budget.
	burn := giveTile(p, 2001, 1, true, true, true, true)
	eff := &turnEffects{}

	if err := g.moveSquad(p, s.ID, burn.ID, next, []Coordinate{start}, eff); errCode(err) != protocol.ErrWrongStart {
		t.Fatalf("wrong start: %v", err)
	}
	if err := g.moveSquad(p, s.ID, burn.ID, start, []Coordinate{next}, eff); err != nil {
		t.Fatalf("move: %v", err)
	}
	if s.Coord != next {
		t.Fatalf("squad at %v", s.Coord)
	}
	if p.cellAt(start).SquadID != 0 || p.cellAt(next).SquadID != s.ID {
		t.Fatal("cell occupancy not updated")
	}
	// The burned tile is gone from the hand.
	for _, tl := range p.Hand {
		if tl.ID == burn.ID {
			t.Fatal("burned tile still in hand")
		}
	}
}

func TestMoveSquad_OwnerAndLivenessChecks(t *testing.T) {
	g, _, _, _ := newTestGame(t, nil)
	alice := joinTestPlayer(t, g, "alice")
	bob := joinTestPlayer(t, g, "bob")
	s := spawnSquad(t, g, alice, []uint64{101})

	burn := giveTile(bob, 2001, 1, true, true, true, true)
	eff := &turnEffects{}
	err := g.moveSquad(bob, s.ID, burn.ID, s.Coord, []Coordinate{s.Coord}, eff)
	if errCode(err) != protocol.ErrNotOwner {
		t.Fatalf("foreign squad: %v", err)
	}

	if err := g.removeSquad(alice, s.ID, eff); err != nil {
		t.Fatalf("remove: %v", err)
	}
	burn2 := giveTile(alice, 2002, 1, true, true, true, true)
	err = g.moveSquad(alice, s.ID, burn2.ID, s.Coord, []Coordinate{s.Coord}, eff)
	if errCode(err) != protocol.ErrNotFound {
		t.Fatalf("dead squad: %v", err)
	}
}

func TestRemoveSquad_StartsUnstakeCooldown(t *testing.T) {
	g, _, clock, _ := newTestGame(t, func(c *Config) {
		c.UnstakeCooldownSeconds = 600
	})
	p := joinTestPlayer(t, g, "alice")
	s := spawnSquad(t, g, p, []uint64{101})
	spot := s.Coord

	eff := &turnEffects{}
	if err := g.removeSquad(p, s.ID, eff); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if s.Alive || p.ActiveSquads != 0 {
		t.Fatalf("squad alive=%v active=%d", s.Alive, p.ActiveSquads)
	}
	if p.cellAt(spot).SquadID != 0 {
		t.Fatal("cell occupancy not cleared")
	}

	// Restaking is barred until the cooldown elapses.
	if _, err := g.addSquad(p, []uint64{101}, 0, spot, eff); errCode(err) != protocol.ErrCooldown {
		t.Fatalf("during cooldown: %v", err)
	}
	clock.Advance(601 * time.Second)
	if _, err := g.addSquad(p, []uint64{101}, 0, spot, eff); err != nil {
		t.Fatalf("after cooldown: %v", err)
	}
}

func TestEnterTemple_RequiresTargetTempleCell(t *testing.T) {
	g, _, _, _ := newTestGame(t, nil)
	p := joinTestPlayer(t, g, "alice")
	s := spawnSquad(t, g, p, []uint64{101})

	eff := &turnEffects{}
	if err := g.enterTemple(p, s.ID, eff); errCode(err) != protocol.ErrNotAtTemple {
		t.Fatalf("away from temple: %v", err)
	}

	tc, err := g.templeCoord(s.TargetTemple)
	if err != nil {
		t.Fatalf("temple coord: %v", err)
	}
	p.cellAt(s.Coord).SquadID = 0
	s.Coord = tc

	if err := g.enterTemple(p, s.ID, eff); err != nil {
		t.Fatalf("enter: %v", err)
	}
	if !s.InTemple || s.LastRoundEnteredTemple != 1 {
		t.Fatalf("squad: %+v", s)
	}
	if g.legionsAtTemple != 1 {
		t.Fatalf("legions at temple: %d", g.legionsAtTemple)
	}
	if err := g.enterTemple(p, s.ID, eff); errCode(err) != protocol.ErrTempleEntered {
		t.Fatalf("re-enter same round: %v", err)
	}
}

func TestEnterTemple_ThresholdAdvancesRound(t *testing.T) {
	g, _, _, _ := newTestGame(t, func(c *Config) {
		c.RoundAdvanceThreshold = 2
	})
	p := joinTestPlayer(t, g, "alice")
	s := spawnSquad(t, g, p, []uint64{101, 102})
	g.treasure.NumClaimed = 3

	tc, err := g.templeCoord(s.TargetTemple)
	if err != nil {
		t.Fatalf("temple coord: %v", err)
	}
	p.cellAt(s.Coord).SquadID = 0
	s.Coord = tc
	prevRequest := g.round.Request

	eff := &turnEffects{}
	if err := g.enterTemple(p, s.ID, eff); err != nil {
		t.Fatalf("enter: %v", err)
	}
	if g.round.Round != 2 {
		t.Fatalf("round: %d", g.round.Round)
	}
	if g.legionsAtTemple != 0 || g.treasure.NumClaimed != 0 {
		t.Fatalf("round reset: legions=%d claimed=%d", g.legionsAtTemple, g.treasure.NumClaimed)
	}
	if g.round.revealed || g.round.Request == prevRequest {
		t.Fatal("new round did not take a fresh randomness request")
	}
}

func TestEnterTemple_CrossPlayerThresholdAdvancesOnce(t *testing.T) {
	g, _, _, _ := newTestGame(t, func(c *Config) {
		c.RoundAdvanceThreshold = 5
	})
	alice := joinTestPlayer(t, g, "alice")
	bob := joinTestPlayer(t, g, "bob")
	sa := spawnSquad(t, g, alice, []uint64{101, 102})
	sb := spawnSquad(t, g, bob, []uint64{201, 202, 203})
	g.treasure.NumClaimed = 4

	park := func(p *PlayerState, s *LegionSquad) {
		t.Helper()
		tc, err := g.templeCoord(s.TargetTemple)
		if err != nil {
			t.Fatalf("temple coord: %v", err)
		}
		p.cellAt(s.Coord).SquadID = 0
		s.Coord = tc
	}
	park(alice, sa)
	park(bob, sb)

	eff := &turnEffects{}
	if err := g.enterTemple(alice, sa.ID, eff); err != nil {
		t.Fatalf("alice enter: %v", err)
	}
	// 2 of 5 legions in: same round.
	if g.round.Round != 1 || g.legionsAtTemple != 2 {
		t.Fatalf("premature advance: round=%d legions=%d", g.round.Round, g.legionsAtTemple)
	}

	if err := g.enterTemple(bob, sb.ID, eff); err != nil {
		t.Fatalf("bob enter: %v", err)
	}
	// Bob's 3 legions reach the threshold exactly; one advance only.
	if g.round.Round != 2 {
		t.Fatalf("round: %d", g.round.Round)
	}
	if g.legionsAtTemple != 0 || g.treasure.NumClaimed != 0 {
		t.Fatalf("round reset: legions=%d claimed=%d", g.legionsAtTemple, g.treasure.NumClaimed)
	}
}
