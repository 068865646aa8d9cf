package game

import (
	"time"

	"corruptioncrypts.gg/internal/sim/rng"
)

// Board dimensions are fixed.
const (
	BoardWidth  = 16
	BoardHeight = 10
)

type Coordinate struct {
	X int `json:"x"` // 0..15
	Y int `json:"y"` // 0..9
}

func (c Coordinate) InBounds() bool {
	return c.X >= 0 && c.X < BoardWidth && c.Y >= 0 && c.Y < BoardHeight
}

func Manhattan(a, b Coordinate) int {
	return absInt(a.X-b.X) + absInt(a.Y-b.Y)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// MapTile is one generated tile instance. Immutable once generated;
// ID is unique per instance, not per archetype.
type MapTile struct {
	ID        uint32
	Archetype uint8
	Moves     uint8
	North     bool
	East      bool
	South     bool
	West      bool
}

// Cell is one board position. A cell with no tile never holds a squad.
type Cell struct {
	HasTile bool
	Tile    MapTile
	SquadID uint64 // 0 = unoccupied
}

// LegionSquad is a group of staked assets moving as one board entity.
// Squad ids are never reused; removal flips Alive instead of deleting.
type LegionSquad struct {
	ID                       uint64
	Owner                    string
	Coord                    Coordinate
	TargetTemple             uint8
	InTemple                 bool
	LastRoundEnteredTemple   uint64
	LastRoundTreasureClaimed uint64
	AssetIDs                 []uint64
	Alive                    bool
}

type Temple struct {
	ID    uint8
	Coord Coordinate
}

// BoardTreasure holds the only durable treasure fields; coordinate,
// affinity and tier come from the round derivation.
type BoardTreasure struct {
	NumClaimed uint16
	MaxSupply  uint16
}

// RoundState is the game-wide session. The seed is revealed lazily from
// the randomness oracle; temple and treasure positions are derived once
// per round when the seed first becomes readable and reused afterwards.
type RoundState struct {
	Round     uint64
	StartTime time.Time
	Request   rng.RequestID

	// Derived once per round from the revealed seed.
	revealed bool
	seed     rng.Seed
	temples  []Coordinate
	treasureCoord    Coordinate
	treasureAffinity uint8
}

func (r *RoundState) clone() *RoundState {
	cp := *r
	cp.temples = append([]Coordinate(nil), r.temples...)
	return &cp
}

// PlayerState is the per-player aggregate: grid, hand, on-board tile
// history and entitlement bookkeeping. Mutated only by the owner's turns.
type PlayerState struct {
	ID   string
	Name string

	Grid [BoardWidth][BoardHeight]Cell
	Hand []MapTile

	// Most-recent-first bounded history of on-board tile ids, with a
	// reverse index to the coordinate each tile occupies.
	History    tileRing
	TileCoords map[uint32]Coordinate

	LastClaimedEpoch map[uint64]uint64 // round -> epoch
	SquadCooldownEnd time.Time
	ActiveSquads     uint8

	// Round of the owner's last treasure claim (one claim per owner
	// per round, regardless of squad).
	LastTreasureClaimRound uint64

	// Personal randomness capability, re-requested once per turn that
	// claimed tiles.
	RandRequest rng.RequestID

	ResumeToken string
}

func (p *PlayerState) clone() *PlayerState {
	cp := *p
	cp.Hand = append([]MapTile(nil), p.Hand...)
	cp.History = p.History.clone()
	cp.TileCoords = make(map[uint32]Coordinate, len(p.TileCoords))
	for k, v := range p.TileCoords {
		cp.TileCoords[k] = v
	}
	cp.LastClaimedEpoch = make(map[uint64]uint64, len(p.LastClaimedEpoch))
	for k, v := range p.LastClaimedEpoch {
		cp.LastClaimedEpoch[k] = v
	}
	return &cp
}

func (s *LegionSquad) clone() *LegionSquad {
	cp := *s
	cp.AssetIDs = append([]uint64(nil), s.AssetIDs...)
	return &cp
}
