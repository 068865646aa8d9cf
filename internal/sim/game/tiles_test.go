package game

import (
	"testing"
	"time"

	"corruptioncrypts.gg/internal/protocol"
)

func TestPendingEntitlement_AccruesPerEpoch(t *testing.T) {
	g, _, clock, _ := newTestGame(t, func(c *Config) {
		c.EpochSeconds = 60
		c.MaxHand = 4
	})
	p := joinTestPlayer(t, g, "alice")

	if got := g.PendingEntitlement(p); got != 0 {
		t.Fatalf("pending at round start: %d", got)
	}
	clock.Advance(61 * time.Second)
	if got := g.PendingEntitlement(p); got != 1 {
		t.Fatalf("pending after one epoch: %d", got)
	}
	clock.Advance(2 * time.Minute)
	if got := g.PendingEntitlement(p); got != 3 {
		t.Fatalf("pending after three epochs: %d", got)
	}
	// Entitlement caps at MaxHand no matter how long the idle stretch.
	clock.Advance(24 * time.Hour)
	if got := g.PendingEntitlement(p); got != 4 {
		t.Fatalf("pending cap: %d", got)
	}
}

func TestClaimTiles_ConsumesEntitlement(t *testing.T) {
	g, _, clock, _ := newTestGame(t, nil)
	p := joinTestPlayer(t, g, "alice")

	eff := &turnEffects{}
	if _, err := g.claimTiles(p, eff); errCode(err) != protocol.ErrNothingToDo {
		t.Fatalf("claim with nothing pending: %v", err)
	}

	clock.Advance(3 * time.Minute)
	ids, err := g.claimTiles(p, eff)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(ids) != 3 || len(p.Hand) != 3 {
		t.Fatalf("claimed %d, hand %d", len(ids), len(p.Hand))
	}
	for _, tl := range p.Hand {
		if tl.Moves == 0 || (!tl.North && !tl.East && !tl.South && !tl.West) {
			t.Fatalf("generated degenerate tile %+v", tl)
		}
	}
	if got := g.PendingEntitlement(p); got != 0 {
		t.Fatalf("pending after claim: %d", got)
	}
}

func TestClaimTiles_FullHandReimburses(t *testing.T) {
	g, _, clock, _ := newTestGame(t, func(c *Config) {
		c.MaxHand = 2
	})
	p := joinTestPlayer(t, g, "alice")

	clock.Advance(2 * time.Minute)
	eff := &turnEffects{}
	if _, err := g.claimTiles(p, eff); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if len(p.Hand) != 2 {
		t.Fatalf("hand: %d", len(p.Hand))
	}

	// Hand is full; a later claim admits nothing and the entitlement
	// survives in full for after the hand drains.
	clock.Advance(5 * time.Minute)
	ids, err := g.claimTiles(p, eff)
	if err != nil {
		t.Fatalf("claim with full hand: %v", err)
	}
	if len(ids) != 0 || len(p.Hand) != 2 {
		t.Fatalf("full-hand claim admitted %d", len(ids))
	}
	if got := g.PendingEntitlement(p); got == 0 {
		t.Fatal("entitlement lost on full-hand claim")
	}

	// Drain one slot: the reimbursed backlog claims normally.
	mustPlace(t, g, p, p.Hand[0].ID, Coordinate{X: 0, Y: 0})
	ids, err = g.claimTiles(p, eff)
	if err != nil {
		t.Fatalf("claim after drain: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("claimed after drain: %d", len(ids))
	}
}

func TestClaimTiles_RandomnessNotReady(t *testing.T) {
	g, oracle, clock, _ := newTestGame(t, nil)
	oracle.Hold = true
	p := joinTestPlayer(t, g, "alice")

	clock.Advance(2 * time.Minute)
	eff := &turnEffects{}
	if _, err := g.claimTiles(p, eff); errCode(err) != protocol.ErrRandNotReady {
		t.Fatalf("held oracle: %v", err)
	}

	oracle.Release()
	if _, err := g.claimTiles(p, eff); err != nil {
		t.Fatalf("after release: %v", err)
	}
}

func TestClaimTiles_DeterministicAcrossEngines(t *testing.T) {
	build := func() []MapTile {
		g, _, clock, _ := newTestGame(t, nil)
		p := joinTestPlayer(t, g, "alice")
		clock.Advance(5 * time.Minute)
		eff := &turnEffects{}
		if _, err := g.claimTiles(p, eff); err != nil {
			t.Fatalf("claim: %v", err)
		}
		return p.Hand
	}
	h1 := build()
	h2 := build()
	if len(h1) != len(h2) {
		t.Fatalf("hand sizes differ: %d vs %d", len(h1), len(h2))
	}
	for i := range h1 {
		if h1[i] != h2[i] {
			t.Fatalf("tile %d differs: %+v vs %+v", i, h1[i], h2[i])
		}
	}
}

func TestPlaceTile_Basic(t *testing.T) {
	g, _, _, _ := newTestGame(t, nil)
	p := joinTestPlayer(t, g, "alice")

	giveTile(p, 1000, 2, true, true, true, true)
	eff := &turnEffects{}

	if err := g.placeTile(p, 1000, Coordinate{X: -1, Y: 0}, eff); errCode(err) != protocol.ErrOutOfBounds {
		t.Fatalf("out of bounds: %v", err)
	}
	if err := g.placeTile(p, 42, Coordinate{X: 1, Y: 1}, eff); errCode(err) != protocol.ErrNotFound {
		t.Fatalf("not in hand: %v", err)
	}
	if err := g.placeTile(p, 1000, Coordinate{X: 1, Y: 1}, eff); err != nil {
		t.Fatalf("place: %v", err)
	}
	if len(p.Hand) != 0 {
		t.Fatalf("hand after place: %d", len(p.Hand))
	}
	cell := p.cellAt(Coordinate{X: 1, Y: 1})
	if !cell.HasTile || cell.Tile.ID != 1000 {
		t.Fatalf("cell: %+v", cell)
	}

	giveTile(p, 1001, 2, true, true, true, true)
	if err := g.placeTile(p, 1001, Coordinate{X: 1, Y: 1}, eff); errCode(err) != protocol.ErrCellHasTile {
		t.Fatalf("occupied cell: %v", err)
	}
}

func TestPlaceTile_EvictsOldestBeyondCapacity(t *testing.T) {
	g, _, _, _ := newTestGame(t, func(c *Config) {
		c.MaxOnBoard = 2
	})
	p := joinTestPlayer(t, g, "alice")

	for i := 0; i < 3; i++ {
		id := uint32(1000 + i)
		giveTile(p, id, 1, true, true, true, true)
		mustPlace(t, g, p, id, Coordinate{X: i, Y: 0})
	}

	// First tile evicted; its cell is empty again.
	if cell := p.cellAt(Coordinate{X: 0, Y: 0}); cell.HasTile {
		t.Fatalf("oldest tile not evicted: %+v", cell)
	}
	if _, ok := p.TileCoords[1000]; ok {
		t.Fatal("evicted tile still indexed")
	}
	if got := p.History.items(); len(got) != 2 || got[0] != 1002 || got[1] != 1001 {
		t.Fatalf("history: %v", got)
	}
}

func TestPlaceTile_EvictionNeverDisplacesSquad(t *testing.T) {
	g, _, _, custody := newTestGame(t, func(c *Config) {
		c.MaxOnBoard = 1
	})
	p := joinTestPlayer(t, g, "alice")
	custody.Grant("P1", 101)

	c := farFromTemples(t, g)
	giveTile(p, 1000, 1, true, true, true, true)
	mustPlace(t, g, p, 1000, c)
	eff := &turnEffects{}
	if _, err := g.addSquad(p, []uint64{101}, 0, c, eff); err != nil {
		t.Fatalf("add squad: %v", err)
	}

	giveTile(p, 1001, 1, true, true, true, true)
	err := g.placeTile(p, 1001, Coordinate{X: (c.X + 1) % BoardWidth, Y: c.Y}, eff)
	if errCode(err) != protocol.ErrEvictOccupied {
		t.Fatalf("eviction under squad: %v", err)
	}
	// The failed placement left everything alone.
	if !p.cellAt(c).HasTile || len(p.Hand) != 1 {
		t.Fatalf("state disturbed by failed place: hand=%d", len(p.Hand))
	}
}
