package game

import (
	"fmt"
	"time"

	"corruptioncrypts.gg/internal/persistence/snapshot"
	"corruptioncrypts.gg/internal/sim/rng"
)

// ExportSnapshot captures the full engine state. Must run on the game
// loop goroutine.
func (g *Game) ExportSnapshot() snapshot.GameV1 {
	snap := snapshot.GameV1{
		Header: snapshot.Header{Version: 1, GameID: g.cfg.ID, Turn: g.turn.Load()},

		EpochSeconds:           g.cfg.EpochSeconds,
		MaxHand:                g.cfg.MaxHand,
		MaxOnBoard:             g.cfg.MaxOnBoard,
		MaxSquadSize:           g.cfg.MaxSquadSize,
		MaxSquadsPerPlayer:     g.cfg.MaxSquadsPerPlayer,
		UnstakeCooldownSeconds: g.cfg.UnstakeCooldownSeconds,
		TempleCount:            g.cfg.TempleCount,
		MinDistanceFromTemple:  g.cfg.MinDistanceFromTemple,
		RoundAdvanceThreshold:  g.cfg.RoundAdvanceThreshold,
		TreasureMaxSupply:      g.cfg.TreasureMaxSupply,
		TreasureTier:           g.cfg.TreasureTier,
		SnapshotEveryTurns:     g.cfg.SnapshotEveryTurns,
		StarterAssets:          g.cfg.StarterAssets,

		Treasure:        snapshot.TreasureV1{NumClaimed: g.treasure.NumClaimed, MaxSupply: g.treasure.MaxSupply},
		LegionsAtTemple: g.legionsAtTemple,
		Counters: snapshot.CountersV1{
			NextPlayer: g.nextPlayerNum.Load(),
			NextSquad:  g.nextSquadID,
			NextTile:   g.nextTileID,
		},
	}

	r := snapshot.RoundV1{
		Round:     g.round.Round,
		StartUnix: g.round.StartTime.Unix(),
		Request:   uint64(g.round.Request),
		Revealed:  g.round.revealed,
	}
	if g.round.revealed {
		r.Seed = append([]byte(nil), g.round.seed[:]...)
		for _, t := range g.round.temples {
			r.Temples = append(r.Temples, [2]int{t.X, t.Y})
		}
		r.TreasureCoord = [2]int{g.round.treasureCoord.X, g.round.treasureCoord.Y}
		r.TreasureAff = g.round.treasureAffinity
	}
	snap.Round = r

	for _, p := range g.sortedPlayers() {
		pv := snapshot.PlayerV1{
			ID:                     p.ID,
			Name:                   p.Name,
			History:                p.History.items(),
			ActiveSquads:           p.ActiveSquads,
			LastTreasureClaimRound: p.LastTreasureClaimRound,
			RandRequest:            uint64(p.RandRequest),
			ResumeToken:            p.ResumeToken,
		}
		if !p.SquadCooldownEnd.IsZero() {
			pv.SquadCooldownEndUnix = p.SquadCooldownEnd.Unix()
		}
		if len(p.LastClaimedEpoch) > 0 {
			pv.LastClaimedEpoch = make(map[uint64]uint64, len(p.LastClaimedEpoch))
			for k, v := range p.LastClaimedEpoch {
				pv.LastClaimedEpoch[k] = v
			}
		}
		for _, t := range p.Hand {
			pv.Hand = append(pv.Hand, tileV1(t))
		}
		for x := 0; x < BoardWidth; x++ {
			for y := 0; y < BoardHeight; y++ {
				c := p.Grid[x][y]
				if !c.HasTile {
					continue
				}
				pv.Cells = append(pv.Cells, snapshot.CellV1{
					Coord:   [2]int{x, y},
					Tile:    tileV1(c.Tile),
					SquadID: c.SquadID,
				})
			}
		}
		snap.Players = append(snap.Players, pv)
	}

	for _, s := range g.sortedSquads() {
		snap.Squads = append(snap.Squads, snapshot.SquadV1{
			ID:                       s.ID,
			Owner:                    s.Owner,
			Coord:                    [2]int{s.Coord.X, s.Coord.Y},
			TargetTemple:             s.TargetTemple,
			InTemple:                 s.InTemple,
			LastRoundEnteredTemple:   s.LastRoundEnteredTemple,
			LastRoundTreasureClaimed: s.LastRoundTreasureClaimed,
			AssetIDs:                 append([]uint64(nil), s.AssetIDs...),
			Alive:                    s.Alive,
		})
	}
	return snap
}

// ImportSnapshot replaces all engine state with the capture. Call before
// Run; the oracle must be the one the snapshot's request ids belong to,
// or a fresh one whose pending ids will simply read as unknown until the
// next round advance or claim re-request.
func (g *Game) ImportSnapshot(s snapshot.GameV1) error {
	if s.Header.Version != 1 {
		return fmt.Errorf("unsupported snapshot version %d", s.Header.Version)
	}

	cfg := Config{
		ID:                     s.Header.GameID,
		EpochSeconds:           s.EpochSeconds,
		MaxHand:                s.MaxHand,
		MaxOnBoard:             s.MaxOnBoard,
		MaxSquadSize:           s.MaxSquadSize,
		MaxSquadsPerPlayer:     s.MaxSquadsPerPlayer,
		UnstakeCooldownSeconds: s.UnstakeCooldownSeconds,
		TempleCount:            s.TempleCount,
		MinDistanceFromTemple:  s.MinDistanceFromTemple,
		RoundAdvanceThreshold:  s.RoundAdvanceThreshold,
		TreasureMaxSupply:      s.TreasureMaxSupply,
		TreasureTier:           s.TreasureTier,
		SnapshotEveryTurns:     s.SnapshotEveryTurns,
		StarterAssets:          s.StarterAssets,
	}
	cfg.applyDefaults()
	g.cfg = cfg

	g.turn.Store(s.Header.Turn)
	g.committed = 0
	g.treasure = BoardTreasure{NumClaimed: s.Treasure.NumClaimed, MaxSupply: s.Treasure.MaxSupply}
	g.legionsAtTemple = s.LegionsAtTemple
	g.nextPlayerNum.Store(s.Counters.NextPlayer)
	g.nextSquadID = s.Counters.NextSquad
	g.nextTileID = s.Counters.NextTile

	r := &RoundState{
		Round:     s.Round.Round,
		StartTime: time.Unix(s.Round.StartUnix, 0),
		Request:   rng.RequestID(s.Round.Request),
		revealed:  s.Round.Revealed,
	}
	if s.Round.Revealed {
		if len(s.Round.Seed) != len(r.seed) {
			return fmt.Errorf("bad round seed length %d", len(s.Round.Seed))
		}
		copy(r.seed[:], s.Round.Seed)
		for _, t := range s.Round.Temples {
			r.temples = append(r.temples, Coordinate{X: t[0], Y: t[1]})
		}
		r.treasureCoord = Coordinate{X: s.Round.TreasureCoord[0], Y: s.Round.TreasureCoord[1]}
		r.treasureAffinity = s.Round.TreasureAff
	}
	g.round = r

	g.players = make(map[string]*PlayerState, len(s.Players))
	for _, pv := range s.Players {
		p := &PlayerState{
			ID:                     pv.ID,
			Name:                   pv.Name,
			History:                newTileRing(g.cfg.MaxOnBoard),
			TileCoords:             map[uint32]Coordinate{},
			LastClaimedEpoch:       map[uint64]uint64{},
			ActiveSquads:           pv.ActiveSquads,
			LastTreasureClaimRound: pv.LastTreasureClaimRound,
			RandRequest:            rng.RequestID(pv.RandRequest),
			ResumeToken:            pv.ResumeToken,
		}
		if pv.SquadCooldownEndUnix != 0 {
			p.SquadCooldownEnd = time.Unix(pv.SquadCooldownEndUnix, 0)
		}
		for k, v := range pv.LastClaimedEpoch {
			p.LastClaimedEpoch[k] = v
		}
		for _, t := range pv.Hand {
			p.Hand = append(p.Hand, tileFromV1(t))
		}
		for _, cv := range pv.Cells {
			c := Coordinate{X: cv.Coord[0], Y: cv.Coord[1]}
			if !c.InBounds() {
				return fmt.Errorf("player %s: cell out of bounds %v", pv.ID, cv.Coord)
			}
			cell := p.cellAt(c)
			cell.HasTile = true
			cell.Tile = tileFromV1(cv.Tile)
			cell.SquadID = cv.SquadID
			p.TileCoords[cv.Tile.ID] = c
		}
		// History is stored most-recent-first; pushFront in reverse
		// rebuilds the same ordering.
		if len(pv.History) > len(p.History.buf) {
			p.History.resize(len(pv.History))
		}
		for i := len(pv.History) - 1; i >= 0; i-- {
			p.History.pushFront(pv.History[i])
		}
		g.players[pv.ID] = p
	}

	g.squads = make(map[uint64]*LegionSquad, len(s.Squads))
	for _, sv := range s.Squads {
		g.squads[sv.ID] = &LegionSquad{
			ID:                       sv.ID,
			Owner:                    sv.Owner,
			Coord:                    Coordinate{X: sv.Coord[0], Y: sv.Coord[1]},
			TargetTemple:             sv.TargetTemple,
			InTemple:                 sv.InTemple,
			LastRoundEnteredTemple:   sv.LastRoundEnteredTemple,
			LastRoundTreasureClaimed: sv.LastRoundTreasureClaimed,
			AssetIDs:                 append([]uint64(nil), sv.AssetIDs...),
			Alive:                    sv.Alive,
		}
	}
	return nil
}

func tileV1(t MapTile) snapshot.TileV1 {
	return snapshot.TileV1{
		ID: t.ID, Archetype: t.Archetype, Moves: t.Moves,
		North: t.North, East: t.East, South: t.South, West: t.West,
	}
}

func tileFromV1(t snapshot.TileV1) MapTile {
	return MapTile{
		ID: t.ID, Archetype: t.Archetype, Moves: t.Moves,
		North: t.North, East: t.East, South: t.South, West: t.West,
	}
}
