package game

import "corruptioncrypts.gg/internal/protocol"

// TurnLogger receives one entry per processed turn (committed or
// rejected). Implemented in internal/persistence.
type TurnLogger interface {
	WriteTurn(entry TurnLogEntry) error
}

// AuditLogger receives one entry per durable mutation of a committed
// turn. Rejected turns contribute nothing.
type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type TurnLogEntry struct {
	Turn     uint64           `json:"turn"`
	PlayerID string           `json:"player_id"`
	TurnID   string           `json:"turn_id,omitempty"`
	Moves    []protocol.Move  `json:"moves,omitempty"`
	Joins    []RecordedJoin   `json:"joins,omitempty"`
	OK       bool             `json:"ok"`
	Code     string           `json:"code,omitempty"`
	Round    uint64           `json:"round"`
	Digest   string           `json:"digest"`
}

type RecordedJoin struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

type AuditEntry struct {
	Turn    uint64 `json:"turn"`
	Actor   string `json:"actor,omitempty"`
	Action  string `json:"action"` // e.g. "PLACE_MAP_TILE"
	Round   uint64 `json:"round"`
	SquadID uint64 `json:"squad_id,omitempty"`
	TileID  uint32 `json:"tile_id,omitempty"`
	Coord   [2]int `json:"coord,omitempty"`
	Count   int    `json:"count,omitempty"`
}
