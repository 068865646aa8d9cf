package game

import (
	"testing"

	"corruptioncrypts.gg/internal/protocol"
)

func stepCode(t *testing.T, p *PlayerState, from, to Coordinate) string {
	t.Helper()
	err := p.canStep(from, to)
	if err == nil {
		return ""
	}
	return errCode(err)
}

func TestCanStep_RequiresBothConnectors(t *testing.T) {
	g, _, _, _ := newTestGame(t, nil)
	p := joinTestPlayer(t, g, "alice")

	// East-open tile at (3,3), west-open tile at (4,3): passage works.
	giveTile(p, 1000, 1, false, true, false, false)
	giveTile(p, 1001, 1, false, false, false, true)
	mustPlace(t, g, p, 1000, Coordinate{X: 3, Y: 3})
	mustPlace(t, g, p, 1001, Coordinate{X: 4, Y: 3})

	if code := stepCode(t, p, Coordinate{X: 3, Y: 3}, Coordinate{X: 4, Y: 3}); code != "" {
		t.Fatalf("east step blocked: %s", code)
	}
	// Walked back westward the step fails: the (3,3) tile has no east
	// connector to receive through.
	if code := stepCode(t, p, Coordinate{X: 4, Y: 3}, Coordinate{X: 3, Y: 3}); code != protocol.ErrNoConnectorWest {
		t.Fatalf("west step: got %q", code)
	}
}

func TestCanStep_NorthSouthPair(t *testing.T) {
	g, _, _, _ := newTestGame(t, nil)
	p := joinTestPlayer(t, g, "alice")

	// North points at y-1, south at y+1.
	giveTile(p, 1000, 1, false, false, true, false) // south-open at (5,2)
	giveTile(p, 1001, 1, true, false, false, false) // north-open at (5,3)
	mustPlace(t, g, p, 1000, Coordinate{X: 5, Y: 2})
	mustPlace(t, g, p, 1001, Coordinate{X: 5, Y: 3})

	if code := stepCode(t, p, Coordinate{X: 5, Y: 2}, Coordinate{X: 5, Y: 3}); code != "" {
		t.Fatalf("south step blocked: %s", code)
	}
	if code := stepCode(t, p, Coordinate{X: 5, Y: 3}, Coordinate{X: 5, Y: 2}); code != "" {
		t.Fatalf("north step blocked: %s", code)
	}
}

func TestCanStep_Failures(t *testing.T) {
	g, _, _, _ := newTestGame(t, nil)
	p := joinTestPlayer(t, g, "alice")

	giveTile(p, 1000, 1, true, true, true, true)
	mustPlace(t, g, p, 1000, Coordinate{X: 0, Y: 0})

	cases := []struct {
		from, to Coordinate
		code     string
	}{
		{Coordinate{X: 0, Y: 0}, Coordinate{X: -1, Y: 0}, protocol.ErrOutOfBounds},
		{Coordinate{X: 0, Y: 0}, Coordinate{X: 1, Y: 1}, protocol.ErrNotAdjacent},
		{Coordinate{X: 0, Y: 0}, Coordinate{X: 0, Y: 2}, protocol.ErrNotAdjacent},
		{Coordinate{X: 0, Y: 0}, Coordinate{X: 1, Y: 0}, protocol.ErrNoTile},
		{Coordinate{X: 2, Y: 2}, Coordinate{X: 2, Y: 3}, protocol.ErrNoTile},
	}
	for i, c := range cases {
		if code := stepCode(t, p, c.from, c.to); code != c.code {
			t.Errorf("case %d: got %q want %q", i, code, c.code)
		}
	}
}

func TestValidatePath_BudgetAndShape(t *testing.T) {
	g, _, _, _ := newTestGame(t, nil)
	p := joinTestPlayer(t, g, "alice")

	// Corridor of all-open tiles along y=4.
	for i := 0; i < 4; i++ {
		id := uint32(1000 + i)
		giveTile(p, id, 1, true, true, true, true)
		mustPlace(t, g, p, id, Coordinate{X: i, Y: 4})
	}
	start := Coordinate{X: 0, Y: 4}
	path3 := []Coordinate{{X: 1, Y: 4}, {X: 2, Y: 4}, {X: 3, Y: 4}}

	if err := p.validatePath(start, path3, 3); err != nil {
		t.Fatalf("budget 3 over 3 steps: %v", err)
	}
	if err := p.validatePath(start, path3, 2); errCode(err) != protocol.ErrInsufficientMoves {
		t.Fatalf("budget 2 over 3 steps: %v", err)
	}
	if err := p.validatePath(start, nil, 3); errCode(err) != protocol.ErrBadRequest {
		t.Fatalf("empty path: %v", err)
	}
	// A path step onto an empty cell fails on that step.
	bad := []Coordinate{{X: 1, Y: 4}, {X: 1, Y: 5}}
	if err := p.validatePath(start, bad, 3); errCode(err) != protocol.ErrNoTile {
		t.Fatalf("step onto empty cell: %v", err)
	}
}
