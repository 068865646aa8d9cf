package game

import "corruptioncrypts.gg/internal/protocol"

// RewardAssetID identifies the minted treasure fragment in the external
// reward asset's id space.
const RewardAssetID = 1

// treasureSpot returns this round's treasure coordinate and affinity.
func (g *Game) treasureSpot() (Coordinate, uint8, error) {
	if _, err := g.roundSeed(); err != nil {
		return Coordinate{}, 0, err
	}
	return g.round.treasureCoord, g.round.treasureAffinity, nil
}

// treasureClaimable reports whether a claim by this owner could succeed
// right now (supply remains and the owner has not claimed this round).
// Used to decide pass-through auto-claims without failing the move.
func (g *Game) treasureClaimable(p *PlayerState) bool {
	return g.treasure.NumClaimed < g.treasure.MaxSupply &&
		p.LastTreasureClaimRound < g.round.Round
}

// claimTreasure awards one treasure fragment to the squad's owner.
// bypassCoordinateCheck is set for pass-through claims during movement;
// a direct claim requires the squad to be parked on the treasure.
func (g *Game) claimTreasure(p *PlayerState, s *LegionSquad, bypassCoordinateCheck bool, eff *turnEffects) error {
	tc, _, err := g.treasureSpot()
	if err != nil {
		return err
	}
	if !bypassCoordinateCheck && s.Coord != tc {
		return ruleErr(protocol.ErrNotOnTreasure, "squad is not on the treasure")
	}
	if g.treasure.NumClaimed >= g.treasure.MaxSupply {
		return ruleErr(protocol.ErrSupplyExhausted, "treasure supply exhausted this round")
	}
	if p.LastTreasureClaimRound >= g.round.Round {
		return ruleErr(protocol.ErrAlreadyClaimed, "owner already claimed this round")
	}

	g.treasure.NumClaimed++
	p.LastTreasureClaimRound = g.round.Round
	s.LastRoundTreasureClaimed = g.round.Round

	eff.assets = append(eff.assets, assetOp{kind: assetOpMint, to: p.ID, rewardID: RewardAssetID, amount: 1})
	eff.audit = append(eff.audit, AuditEntry{
		Turn:    g.turn.Load(),
		Actor:   p.ID,
		Action:  "CLAIM_TREASURE",
		Round:   g.round.Round,
		SquadID: s.ID,
		Coord:   [2]int{tc.X, tc.Y},
	})
	return nil
}
