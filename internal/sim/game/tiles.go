package game

import (
	"fmt"

	"corruptioncrypts.gg/internal/protocol"
	"corruptioncrypts.gg/internal/sim/catalogs"
	"corruptioncrypts.gg/internal/sim/rng"
)

// PendingEntitlement is the number of tiles the player is owed: epochs
// elapsed since the last claim in the current round, capped at MaxHand.
func (g *Game) PendingEntitlement(p *PlayerState) uint64 {
	epoch := g.CurrentEpoch()
	last := p.LastClaimedEpoch[g.round.Round]
	if epoch <= last {
		return 0
	}
	pending := epoch - last
	if pending > uint64(g.cfg.MaxHand) {
		pending = uint64(g.cfg.MaxHand)
	}
	return pending
}

// claimTiles converts pending entitlement into hand tiles. Entitlement
// beyond hand capacity is reimbursed: the claim epoch moves forward only
// by what was actually admitted, so a full hand loses nothing.
func (g *Game) claimTiles(p *PlayerState, eff *turnEffects) ([]uint32, error) {
	pending := g.PendingEntitlement(p)
	if pending == 0 {
		return nil, ruleErr(protocol.ErrNothingToDo, "no tile entitlement pending")
	}

	room := g.cfg.MaxHand - len(p.Hand)
	if room < 0 {
		room = 0
	}
	capacity := uint64(room)
	toClaim := pending
	if toClaim > capacity {
		toClaim = capacity
	}
	reimbursed := pending - toClaim
	p.LastClaimedEpoch[g.round.Round] = g.CurrentEpoch() - reimbursed

	if toClaim == 0 {
		// Full hand: nothing admitted, full reimbursement.
		return nil, nil
	}

	seed, err := g.oracle.Reveal(p.RandRequest)
	if err != nil {
		if err == rng.ErrNotReady {
			return nil, ruleErr(protocol.ErrRandNotReady, "player randomness not revealed yet")
		}
		return nil, err
	}

	ids := make([]uint32, 0, toClaim)
	for i := uint64(0); i < toClaim; i++ {
		g.nextTileID++
		id := uint32(g.nextTileID)
		arch := uint8(rng.Range(rng.DeriveIndexed(seed, "tile", uint64(id)), 0, catalogs.TileArchetypeCount-1))
		def := g.catalogs.Tiles.Defs[arch]
		p.Hand = append(p.Hand, MapTile{
			ID:        id,
			Archetype: arch,
			Moves:     def.Moves,
			North:     def.North,
			East:      def.East,
			South:     def.South,
			West:      def.West,
		})
		ids = append(ids, id)
	}
	eff.audit = append(eff.audit, AuditEntry{
		Turn:   g.turn.Load(),
		Actor:  p.ID,
		Action: "CLAIM_MAP_TILES",
		Round:  g.round.Round,
		Count:  len(ids),
	})
	return ids, nil
}

// placeTile moves a hand tile onto the board. Placing beyond MaxOnBoard
// evicts the oldest on-board tile; eviction never displaces a squad —
// the whole operation fails instead.
func (g *Game) placeTile(p *PlayerState, tileID uint32, coord Coordinate, eff *turnEffects) error {
	if !coord.InBounds() {
		return ruleErr(protocol.ErrOutOfBounds, "placement outside the board")
	}
	cell := p.cellAt(coord)
	if cell.HasTile {
		return ruleErr(protocol.ErrCellHasTile, "cell already has a tile")
	}

	idx := -1
	for i, t := range p.Hand {
		if t.ID == tileID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ruleErr(protocol.ErrNotFound, fmt.Sprintf("tile %d not in hand", tileID))
	}
	tile := p.Hand[idx]

	// Evict down to capacity before pushing. Hand order is not
	// significant: swap-with-last and pop.
	for p.History.len() >= g.cfg.MaxOnBoard {
		oldest := p.History.back()
		oldCoord, ok := p.TileCoords[oldest]
		if !ok {
			return ruleErr(protocol.ErrInternal, fmt.Sprintf("history tile %d has no coordinate", oldest))
		}
		oldCell := p.cellAt(oldCoord)
		if oldCell.SquadID != 0 {
			return ruleErr(protocol.ErrEvictOccupied, "oldest tile's cell holds a squad")
		}
		p.History.popBack()
		oldCell.HasTile = false
		oldCell.Tile = MapTile{}
		delete(p.TileCoords, oldest)
		eff.audit = append(eff.audit, AuditEntry{
			Turn:   g.turn.Load(),
			Actor:  p.ID,
			Action: "EVICT_MAP_TILE",
			Round:  g.round.Round,
			TileID: oldest,
			Coord:  [2]int{oldCoord.X, oldCoord.Y},
		})
	}
	if p.History.capacity() != g.cfg.MaxOnBoard {
		p.History.resize(g.cfg.MaxOnBoard)
	}

	p.Hand[idx] = p.Hand[len(p.Hand)-1]
	p.Hand = p.Hand[:len(p.Hand)-1]

	cell.HasTile = true
	cell.Tile = tile
	p.History.pushFront(tile.ID)
	p.TileCoords[tile.ID] = coord

	eff.audit = append(eff.audit, AuditEntry{
		Turn:   g.turn.Load(),
		Actor:  p.ID,
		Action: "PLACE_MAP_TILE",
		Round:  g.round.Round,
		TileID: tile.ID,
		Coord:  [2]int{coord.X, coord.Y},
	})
	return nil
}

// removeFromHand discards a hand tile by id (swap-with-last and pop).
func (g *Game) removeFromHand(p *PlayerState, tileID uint32) (MapTile, error) {
	for i, t := range p.Hand {
		if t.ID == tileID {
			p.Hand[i] = p.Hand[len(p.Hand)-1]
			p.Hand = p.Hand[:len(p.Hand)-1]
			return t, nil
		}
	}
	return MapTile{}, ruleErr(protocol.ErrNotFound, fmt.Sprintf("tile %d not in hand", tileID))
}
