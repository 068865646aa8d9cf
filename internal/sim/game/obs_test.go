package game

import (
	"testing"
	"time"
)

func TestBuildState_HidesRoundFeaturesUntilRevealed(t *testing.T) {
	g, oracle, _, _ := newTestGame(t, nil)
	oracle.Hold = true
	joinTestPlayer(t, g, "alice")

	st := g.buildState("P1")
	if st.Temples != nil || st.Treasure != nil {
		t.Fatalf("unrevealed round leaks positions: %+v", st)
	}
	if st.Round != 1 {
		t.Fatalf("round: %d", st.Round)
	}

	oracle.Release()
	if _, err := g.temples(); err != nil {
		t.Fatalf("derive: %v", err)
	}
	st = g.buildState("P1")
	if len(st.Temples) != g.cfg.TempleCount || st.Treasure == nil {
		t.Fatalf("revealed round: temples=%d treasure=%v", len(st.Temples), st.Treasure)
	}
	if st.Treasure.MaxSupply != g.treasure.MaxSupply {
		t.Fatalf("treasure supply: %+v", st.Treasure)
	}
}

func TestBuildState_OwnViewOnly(t *testing.T) {
	g, _, clock, _ := newTestGame(t, nil)
	alice := joinTestPlayer(t, g, "alice")
	joinTestPlayer(t, g, "bob")
	sa := spawnSquad(t, g, alice, []uint64{101})

	clock.Advance(2 * time.Minute)

	st := g.buildState("P2")
	if len(st.Squads) != 0 || len(st.Board) != 0 || len(st.Hand) != 0 {
		t.Fatalf("bob sees alice's state: %+v", st)
	}
	if st.PendingTiles != 2 {
		t.Fatalf("bob's entitlement: %d", st.PendingTiles)
	}

	st = g.buildState("P1")
	if len(st.Squads) != 1 || st.Squads[0].SquadID != sa.ID {
		t.Fatalf("alice's squads: %+v", st.Squads)
	}
	if len(st.Board) != 1 || st.Board[0].SquadID != sa.ID {
		t.Fatalf("alice's board: %+v", st.Board)
	}

	st = g.buildState("P99")
	if st.PendingTiles != 0 || st.Hand != nil {
		t.Fatalf("unknown player view: %+v", st)
	}
}
