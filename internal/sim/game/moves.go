package game

import (
	"fmt"
	"log"

	"corruptioncrypts.gg/internal/protocol"
)

// turnEffects buffers the side effects of a turn while its moves run
// against live state. Asset custody ops and audit entries apply only
// when the whole batch commits; a rejected batch discards them with the
// rolled-back state.
type turnEffects struct {
	assets []assetOp
	audit  []AuditEntry

	// Set when a CLAIM_MAP_TILES move actually generated tiles. The
	// batch issues at most one fresh randomness request, at commit,
	// however many claims ran.
	claimedTiles bool
}

// savedState is everything a turn can touch, captured before the first
// move. Restoring it undoes the batch exactly.
type savedState struct {
	playerID string
	player   *PlayerState
	squads   map[uint64]*LegionSquad
	round    *RoundState

	treasure        BoardTreasure
	legionsAtTemple int
	nextSquadID     uint64
	nextTileID      uint64
}

func (g *Game) begin(p *PlayerState) savedState {
	sq := make(map[uint64]*LegionSquad, len(g.squads))
	for id, s := range g.squads {
		sq[id] = s.clone()
	}
	return savedState{
		playerID:        p.ID,
		player:          p.clone(),
		squads:          sq,
		round:           g.round.clone(),
		treasure:        g.treasure,
		legionsAtTemple: g.legionsAtTemple,
		nextSquadID:     g.nextSquadID,
		nextTileID:      g.nextTileID,
	}
}

func (g *Game) rollback(s savedState) {
	g.players[s.playerID] = s.player
	g.squads = s.squads
	g.round = s.round
	g.treasure = s.treasure
	g.legionsAtTemple = s.legionsAtTemple
	g.nextSquadID = s.nextSquadID
	g.nextTileID = s.nextTileID
}

// applyTurn runs an ordered batch of moves for one player. Moves see the
// mutations of earlier moves in the same batch; the first failure rejects
// the whole batch and restores the pre-batch state. Runs on the game
// goroutine only.
func (g *Game) applyTurn(playerID string, t protocol.TurnMsg) protocol.TurnResultMsg {
	out := protocol.TurnResultMsg{
		Type:            protocol.TypeTurnResult,
		ProtocolVersion: protocol.Version,
		TurnID:          t.TurnID,
	}
	p := g.players[playerID]
	if p == nil {
		out.Round = g.round.Round
		out.Results = []protocol.MoveResult{{
			OK: false, Code: protocol.ErrNotFound, Message: "unknown player",
		}}
		return out
	}
	if len(t.Moves) == 0 {
		out.Round = g.round.Round
		out.Results = []protocol.MoveResult{{
			OK: false, Code: protocol.ErrBadRequest, Message: "empty move list",
		}}
		return out
	}

	g.turn.Add(1)
	saved := g.begin(p)
	eff := &turnEffects{}
	results := make([]protocol.MoveResult, 0, len(t.Moves))

	for i, mv := range t.Moves {
		res := g.applyMove(p, mv, eff)
		res.Index = i
		res.Type = mv.Type
		results = append(results, res)
		if !res.OK {
			g.rollback(saved)
			out.OK = false
			out.Round = g.round.Round
			out.Results = results
			g.logTurn(playerID, t, false, res.Code)
			return out
		}
	}

	if eff.claimedTiles {
		p.RandRequest = g.oracle.Request()
	}
	if err := applyAssetOps(g.custody, eff.assets); err != nil {
		g.rollback(saved)
		out.OK = false
		out.Round = g.round.Round
		out.Results = []protocol.MoveResult{{
			OK: false, Code: protocol.ErrInternal, Message: err.Error(),
		}}
		g.logTurn(playerID, t, false, protocol.ErrInternal)
		return out
	}
	g.flushAudit(eff)
	g.committed++

	out.OK = true
	out.Round = g.round.Round
	out.Results = results
	out.Digest = g.StateDigest()
	g.logTurn(playerID, t, true, "")
	return out
}

// applyMove dispatches one tagged move. A nil error from the handler is
// reported as OK; rule errors carry their code through to the result.
func (g *Game) applyMove(p *PlayerState, mv protocol.Move, eff *turnEffects) protocol.MoveResult {
	switch mv.Type {
	case protocol.MoveClaimMapTiles:
		ids, err := g.claimTiles(p, eff)
		if err != nil {
			return failMove(err)
		}
		if len(ids) > 0 {
			eff.claimedTiles = true
		}
		return protocol.MoveResult{OK: true, ClaimedTileIDs: ids}

	case protocol.MovePlaceMapTile:
		coord := Coordinate{X: mv.Coord[0], Y: mv.Coord[1]}
		if err := g.placeTile(p, mv.TileID, coord, eff); err != nil {
			return failMove(err)
		}
		return protocol.MoveResult{OK: true}

	case protocol.MoveAddLegionSquad:
		coord := Coordinate{X: mv.Coord[0], Y: mv.Coord[1]}
		id, err := g.addSquad(p, mv.AssetIDs, mv.TargetTemple, coord, eff)
		if err != nil {
			return failMove(err)
		}
		return protocol.MoveResult{OK: true, SquadID: id}

	case protocol.MoveMoveLegionSquad:
		start := Coordinate{X: mv.StartCoord[0], Y: mv.StartCoord[1]}
		path := make([]Coordinate, len(mv.Path))
		for i, c := range mv.Path {
			path[i] = Coordinate{X: c[0], Y: c[1]}
		}
		if err := g.moveSquad(p, mv.SquadID, mv.BurnTileID, start, path, eff); err != nil {
			return failMove(err)
		}
		return protocol.MoveResult{OK: true, SquadID: mv.SquadID}

	case protocol.MoveEnterTemple:
		if err := g.enterTemple(p, mv.SquadID, eff); err != nil {
			return failMove(err)
		}
		return protocol.MoveResult{OK: true, SquadID: mv.SquadID}

	case protocol.MoveRemoveLegionSquad:
		if err := g.removeSquad(p, mv.SquadID, eff); err != nil {
			return failMove(err)
		}
		return protocol.MoveResult{OK: true, SquadID: mv.SquadID}

	case protocol.MoveClaimTreasure:
		s, err := g.squadOwnedBy(p, mv.SquadID)
		if err != nil {
			return failMove(err)
		}
		if err := g.claimTreasure(p, s, false, eff); err != nil {
			return failMove(err)
		}
		return protocol.MoveResult{OK: true, SquadID: mv.SquadID}

	default:
		return failMove(ruleErr(protocol.ErrBadRequest,
			fmt.Sprintf("unknown move type %q", mv.Type)))
	}
}

func failMove(err error) protocol.MoveResult {
	return protocol.MoveResult{OK: false, Code: errCode(err), Message: err.Error()}
}

func (g *Game) flushAudit(eff *turnEffects) {
	if g.auditLogger == nil {
		return
	}
	for _, e := range eff.audit {
		if err := g.auditLogger.WriteAudit(e); err != nil {
			log.Printf("audit write failed: %v", err)
			return
		}
	}
}

func (g *Game) logTurn(playerID string, t protocol.TurnMsg, ok bool, code string) {
	if g.turnLogger == nil {
		return
	}
	entry := TurnLogEntry{
		Turn:     g.turn.Load(),
		PlayerID: playerID,
		TurnID:   t.TurnID,
		Moves:    t.Moves,
		OK:       ok,
		Code:     code,
		Round:    g.round.Round,
	}
	if ok {
		entry.Digest = g.StateDigest()
	}
	if err := g.turnLogger.WriteTurn(entry); err != nil {
		log.Printf("turn log write failed: %v", err)
	}
}
