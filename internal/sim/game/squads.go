package game

import (
	"fmt"
	"time"

	"corruptioncrypts.gg/internal/protocol"
)

func (g *Game) squadOwnedBy(p *PlayerState, squadID uint64) (*LegionSquad, error) {
	s := g.squads[squadID]
	if s == nil || !s.Alive {
		return nil, ruleErr(protocol.ErrNotFound, fmt.Sprintf("no squad %d", squadID))
	}
	if s.Owner != p.ID {
		return nil, ruleErr(protocol.ErrNotOwner, "squad belongs to another player")
	}
	return s, nil
}

// addSquad stakes a group of assets as a new squad on the player's board.
func (g *Game) addSquad(p *PlayerState, assetIDs []uint64, targetTemple uint8, coord Coordinate, eff *turnEffects) (uint64, error) {
	if len(assetIDs) == 0 {
		return 0, ruleErr(protocol.ErrBadRequest, "empty squad")
	}
	if len(assetIDs) > g.cfg.MaxSquadSize {
		return 0, ruleErr(protocol.ErrSquadTooBig, fmt.Sprintf("squad size over %d", g.cfg.MaxSquadSize))
	}
	if int(p.ActiveSquads) >= g.cfg.MaxSquadsPerPlayer {
		return 0, ruleErr(protocol.ErrSquadLimit, fmt.Sprintf("already %d active squads", p.ActiveSquads))
	}
	if now := g.clock.Now(); now.Before(p.SquadCooldownEnd) {
		return 0, ruleErr(protocol.ErrCooldown, "unstake cooldown not elapsed")
	}
	for _, id := range assetIDs {
		if g.custody.Recruit(id) {
			return 0, ruleErr(protocol.ErrRecruitBarred, fmt.Sprintf("asset %d is a recruit", id))
		}
		if !g.custody.Holds(p.ID, id) {
			return 0, ruleErr(protocol.ErrNotOwner, fmt.Sprintf("asset %d is not held by the player", id))
		}
	}
	if !coord.InBounds() {
		return 0, ruleErr(protocol.ErrOutOfBounds, "spawn outside the board")
	}
	cell := p.cellAt(coord)
	if !cell.HasTile {
		return 0, ruleErr(protocol.ErrNoTile, "spawn cell has no tile")
	}
	if cell.SquadID != 0 {
		return 0, ruleErr(protocol.ErrCellOccupied, "spawn cell already occupied")
	}

	temples, err := g.temples()
	if err != nil {
		return 0, err
	}
	if int(targetTemple) >= len(temples) {
		return 0, ruleErr(protocol.ErrNotFound, fmt.Sprintf("no temple %d", targetTemple))
	}
	for i, tc := range temples {
		if Manhattan(coord, tc) < g.cfg.MinDistanceFromTemple {
			return 0, ruleErr(protocol.ErrTooCloseToTemple, fmt.Sprintf("within %d of temple %d", g.cfg.MinDistanceFromTemple, i))
		}
	}

	g.nextSquadID++
	id := g.nextSquadID
	s := &LegionSquad{
		ID:           id,
		Owner:        p.ID,
		Coord:        coord,
		TargetTemple: targetTemple,
		AssetIDs:     append([]uint64(nil), assetIDs...),
		Alive:        true,
	}
	g.squads[id] = s
	cell.SquadID = id
	p.ActiveSquads++

	for _, aid := range assetIDs {
		eff.assets = append(eff.assets, assetOp{kind: assetOpTransfer, from: p.ID, to: CustodyAccount, assetID: aid})
	}
	eff.audit = append(eff.audit, AuditEntry{
		Turn:    g.turn.Load(),
		Actor:   p.ID,
		Action:  "ADD_LEGION_SQUAD",
		Round:   g.round.Round,
		SquadID: id,
		Count:   len(assetIDs),
		Coord:   [2]int{coord.X, coord.Y},
	})
	return id, nil
}

// moveSquad burns a hand tile for its move budget and walks the squad
// along path. Intermediate coordinates that sit on the treasure are
// auto-claimed in passing.
func (g *Game) moveSquad(p *PlayerState, squadID uint64, burnTileID uint32, start Coordinate, path []Coordinate, eff *turnEffects) error {
	s, err := g.squadOwnedBy(p, squadID)
	if err != nil {
		return err
	}
	if s.InTemple {
		if s.LastRoundEnteredTemple >= g.round.Round {
			return ruleErr(protocol.ErrTempleEntered, "squad already entered a temple this round")
		}
		// Entry was in a previous round: movement re-enabled.
		s.InTemple = false
	}
	if s.Coord != start {
		return ruleErr(protocol.ErrWrongStart, "squad is not at the given start coordinate")
	}
	if !start.InBounds() || p.cellAt(start).SquadID != squadID {
		return ruleErr(protocol.ErrWrongStart, "start cell is not occupied by this squad")
	}

	tile, err := g.removeFromHand(p, burnTileID)
	if err != nil {
		return err
	}
	if err := p.validatePath(start, path, tile.Moves); err != nil {
		return err
	}

	// Auto-claim the treasure on pass-through for every intermediate
	// coordinate (the final cell needs an explicit claim while parked).
	tc, _, err := g.treasureSpot()
	if err != nil {
		return err
	}
	for i := 0; i < len(path)-1; i++ {
		if path[i] != tc || s.LastRoundTreasureClaimed >= g.round.Round {
			continue
		}
		if !g.treasureClaimable(p) {
			continue
		}
		if err := g.claimTreasure(p, s, true, eff); err != nil {
			return err
		}
	}

	dest := path[len(path)-1]
	destCell := p.cellAt(dest)
	if destCell.SquadID != 0 && destCell.SquadID != squadID {
		return ruleErr(protocol.ErrCellOccupied, "destination cell already occupied")
	}
	p.cellAt(start).SquadID = 0
	destCell.SquadID = squadID
	s.Coord = dest

	eff.audit = append(eff.audit, AuditEntry{
		Turn:    g.turn.Load(),
		Actor:   p.ID,
		Action:  "MOVE_LEGION_SQUAD",
		Round:   g.round.Round,
		SquadID: squadID,
		TileID:  burnTileID,
		Coord:   [2]int{dest.X, dest.Y},
	})
	return nil
}

// enterTemple parks the squad inside its target temple and counts its
// members toward the round-advance threshold.
func (g *Game) enterTemple(p *PlayerState, squadID uint64, eff *turnEffects) error {
	s, err := g.squadOwnedBy(p, squadID)
	if err != nil {
		return err
	}
	if s.InTemple && s.LastRoundEnteredTemple >= g.round.Round {
		return ruleErr(protocol.ErrTempleEntered, "squad already entered a temple this round")
	}
	tc, err := g.templeCoord(s.TargetTemple)
	if err != nil {
		return err
	}
	if s.Coord != tc {
		return ruleErr(protocol.ErrNotAtTemple, "squad is not at its target temple")
	}

	s.InTemple = true
	s.LastRoundEnteredTemple = g.round.Round
	g.legionsAtTemple += len(s.AssetIDs)

	eff.audit = append(eff.audit, AuditEntry{
		Turn:    g.turn.Load(),
		Actor:   p.ID,
		Action:  "ENTER_TEMPLE",
		Round:   g.round.Round,
		SquadID: squadID,
		Count:   len(s.AssetIDs),
	})

	if g.legionsAtTemple >= g.cfg.RoundAdvanceThreshold {
		g.advanceRound(eff)
	}
	return nil
}

// removeSquad unstakes every member and starts the owner's cooldown.
// The squad id is retired for good.
func (g *Game) removeSquad(p *PlayerState, squadID uint64, eff *turnEffects) error {
	s, err := g.squadOwnedBy(p, squadID)
	if err != nil {
		return err
	}

	s.Alive = false
	if s.Coord.InBounds() {
		cell := p.cellAt(s.Coord)
		if cell.SquadID == squadID {
			cell.SquadID = 0
		}
	}
	if p.ActiveSquads > 0 {
		p.ActiveSquads--
	}
	p.SquadCooldownEnd = g.clock.Now().Add(time.Duration(g.cfg.UnstakeCooldownSeconds) * time.Second)

	for _, aid := range s.AssetIDs {
		eff.assets = append(eff.assets, assetOp{kind: assetOpTransfer, from: CustodyAccount, to: p.ID, assetID: aid})
	}
	eff.audit = append(eff.audit, AuditEntry{
		Turn:    g.turn.Load(),
		Actor:   p.ID,
		Action:  "REMOVE_LEGION_SQUAD",
		Round:   g.round.Round,
		SquadID: squadID,
		Count:   len(s.AssetIDs),
	})
	return nil
}
