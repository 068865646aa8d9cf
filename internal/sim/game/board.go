package game

import "corruptioncrypts.gg/internal/protocol"

func (p *PlayerState) cellAt(c Coordinate) *Cell {
	return &p.Grid[c.X][c.Y]
}

// canStep checks a single step from one cell to an orthogonal neighbor:
// both cells must hold tiles, and the facing connector on each side must
// be open. Failures carry the direction that was blocked.
func (p *PlayerState) canStep(from, to Coordinate) error {
	if !from.InBounds() || !to.InBounds() {
		return ruleErr(protocol.ErrOutOfBounds, "step outside the board")
	}
	src := p.cellAt(from)
	dst := p.cellAt(to)
	if !src.HasTile {
		return ruleErr(protocol.ErrNoTile, "no tile at step origin")
	}
	if !dst.HasTile {
		return ruleErr(protocol.ErrNoTile, "no tile at step target")
	}

	dx := to.X - from.X
	dy := to.Y - from.Y
	switch {
	case dx == 1 && dy == 0:
		if !src.Tile.East || !dst.Tile.West {
			return ruleErr(protocol.ErrNoConnectorEast, "no east passage")
		}
	case dx == -1 && dy == 0:
		if !src.Tile.West || !dst.Tile.East {
			return ruleErr(protocol.ErrNoConnectorWest, "no west passage")
		}
	case dx == 0 && dy == 1:
		if !src.Tile.South || !dst.Tile.North {
			return ruleErr(protocol.ErrNoConnectorSouth, "no south passage")
		}
	case dx == 0 && dy == -1:
		if !src.Tile.North || !dst.Tile.South {
			return ruleErr(protocol.ErrNoConnectorNorth, "no north passage")
		}
	default:
		return ruleErr(protocol.ErrNotAdjacent, "step is not to an orthogonal neighbor")
	}
	return nil
}

// validatePath checks every consecutive step from start through path.
// The move budget of the burned tile bounds the path length.
func (p *PlayerState) validatePath(start Coordinate, path []Coordinate, budget uint8) error {
	if len(path) == 0 {
		return ruleErr(protocol.ErrBadRequest, "empty path")
	}
	if len(path) > int(budget) {
		return ruleErr(protocol.ErrInsufficientMoves, "path exceeds tile move budget")
	}
	prev := start
	for _, c := range path {
		if err := p.canStep(prev, c); err != nil {
			return err
		}
		prev = c
	}
	return nil
}
