package game

import "corruptioncrypts.gg/internal/protocol"

func (g *Game) handleStateReq(req StateRequest) {
	if req.Resp != nil {
		req.Resp <- g.buildState(req.PlayerID)
	}
}

// buildState renders the caller's full view: hand, occupied cells, own
// squads, and the shared round features. Temple and treasure positions
// appear only once the round seed has been revealed.
func (g *Game) buildState(playerID string) protocol.StateMsg {
	msg := protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		PlayerID:        playerID,
		Round:           g.round.Round,
		Epoch:           g.CurrentEpoch(),
	}
	p := g.players[playerID]
	if p == nil {
		return msg
	}
	msg.PendingTiles = g.PendingEntitlement(p)

	msg.Hand = make([]protocol.TileObs, 0, len(p.Hand))
	for _, t := range p.Hand {
		msg.Hand = append(msg.Hand, tileObs(t))
	}

	for x := 0; x < BoardWidth; x++ {
		for y := 0; y < BoardHeight; y++ {
			c := p.Grid[x][y]
			if !c.HasTile {
				continue
			}
			msg.Board = append(msg.Board, protocol.CellObs{
				Coord:   [2]int{x, y},
				Tile:    tileObs(c.Tile),
				SquadID: c.SquadID,
			})
		}
	}

	for _, s := range g.sortedSquads() {
		if !s.Alive || s.Owner != playerID {
			continue
		}
		msg.Squads = append(msg.Squads, protocol.SquadObs{
			SquadID:      s.ID,
			Coord:        [2]int{s.Coord.X, s.Coord.Y},
			TargetTemple: s.TargetTemple,
			InTemple:     s.InTemple,
			AssetIDs:     append([]uint64(nil), s.AssetIDs...),
		})
	}

	if g.round.revealed {
		for i, t := range g.round.temples {
			msg.Temples = append(msg.Temples, protocol.TempleObs{
				TempleID: uint8(i),
				Coord:    [2]int{t.X, t.Y},
			})
		}
		msg.Treasure = &protocol.TreasureObs{
			Coord:      [2]int{g.round.treasureCoord.X, g.round.treasureCoord.Y},
			Affinity:   g.round.treasureAffinity,
			Tier:       uint8(g.cfg.TreasureTier),
			NumClaimed: g.treasure.NumClaimed,
			MaxSupply:  g.treasure.MaxSupply,
		}
	}
	return msg
}

func tileObs(t MapTile) protocol.TileObs {
	return protocol.TileObs{
		TileID:    t.ID,
		Archetype: t.Archetype,
		Moves:     t.Moves,
		North:     t.North,
		East:      t.East,
		South:     t.South,
		West:      t.West,
	}
}
