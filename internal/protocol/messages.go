package protocol

// Move types carried in a TURN batch.
const (
	MoveClaimMapTiles     = "CLAIM_MAP_TILES"
	MovePlaceMapTile      = "PLACE_MAP_TILE"
	MoveEnterTemple       = "ENTER_TEMPLE"
	MoveMoveLegionSquad   = "MOVE_LEGION_SQUAD"
	MoveRemoveLegionSquad = "REMOVE_LEGION_SQUAD"
	MoveAddLegionSquad    = "ADD_LEGION_SQUAD"
	MoveClaimTreasure     = "CLAIM_TREASURE"
)

// HELLO (client -> server)
type HelloMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	PlayerName      string     `json:"player_name"`
	Auth            *HelloAuth `json:"auth,omitempty"`
}

type HelloAuth struct {
	Token string `json:"token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	PlayerID        string     `json:"player_id"`
	SessionID       string     `json:"session_id"`
	ResumeToken     string     `json:"resume_token"`
	GameParams      GameParams `json:"game_params"`
	Catalogs        Digests    `json:"catalogs"`

	// Demo assets granted on first join (absent on resume and when the
	// custody backend does not issue starters).
	StarterAssetIDs []uint64 `json:"starter_asset_ids,omitempty"`
}

type GameParams struct {
	GameID       string `json:"game_id"`
	BoardWidth   int    `json:"board_width"`
	BoardHeight  int    `json:"board_height"`
	Round        uint64 `json:"round"`
	EpochSeconds int    `json:"epoch_seconds"`
	MaxHand      int    `json:"max_hand"`
	MaxOnBoard   int    `json:"max_on_board"`
}

type Digests struct {
	TileArchetypes DigestRef `json:"tile_archetypes"`
	TuningDigest   string    `json:"tuning_digest,omitempty"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// CATALOG (server -> client)
type CatalogMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Name            string `json:"name"`
	Digest          string `json:"digest"`
	Data            any    `json:"data"`
}

// TURN (client -> server): an ordered batch of tagged moves.
// Moves apply strictly in order; any failure rejects the whole batch.
type TurnMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	TurnID          string `json:"turn_id"`
	PlayerID        string `json:"player_id,omitempty"`
	Moves           []Move `json:"moves"`
}

// Move is a tagged union; the populated fields depend on Type.
type Move struct {
	Type string `json:"type"`

	// PLACE_MAP_TILE
	TileID uint32 `json:"tile_id,omitempty"`
	Coord  [2]int `json:"coord,omitempty"`

	// ADD_LEGION_SQUAD
	AssetIDs     []uint64 `json:"asset_ids,omitempty"`
	TargetTemple uint8    `json:"target_temple,omitempty"`

	// MOVE_LEGION_SQUAD / ENTER_TEMPLE / REMOVE_LEGION_SQUAD / CLAIM_TREASURE
	SquadID    uint64   `json:"squad_id,omitempty"`
	BurnTileID uint32   `json:"burn_tile_id,omitempty"`
	StartCoord [2]int   `json:"start_coord,omitempty"`
	Path       [][2]int `json:"path,omitempty"`
}

// TURN_RESULT (server -> client)
type TurnResultMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	TurnID          string       `json:"turn_id"`
	OK              bool         `json:"ok"`
	Round           uint64       `json:"round"`
	Results         []MoveResult `json:"results"`
	Digest          string       `json:"digest,omitempty"`
}

type MoveResult struct {
	Index   int    `json:"index"`
	Type    string `json:"type"`
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`

	// CLAIM_MAP_TILES
	ClaimedTileIDs []uint32 `json:"claimed_tile_ids,omitempty"`
	// ADD_LEGION_SQUAD
	SquadID uint64 `json:"squad_id,omitempty"`
}

// ERROR (server -> client): rejection of a frame that never reached the
// engine (unparseable, unknown type, wrong protocol version).
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}

// STATE_REQ (client -> server)
type StateReqMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}

// STATE (server -> client): the caller's board view.
type StateMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	PlayerID        string       `json:"player_id"`
	Round           uint64       `json:"round"`
	Epoch           uint64       `json:"epoch"`
	PendingTiles    uint64       `json:"pending_tiles"`
	Hand            []TileObs    `json:"hand"`
	Board           []CellObs    `json:"board"`
	Squads          []SquadObs   `json:"squads"`
	Temples         []TempleObs  `json:"temples,omitempty"`
	Treasure        *TreasureObs `json:"treasure,omitempty"`
}

type TileObs struct {
	TileID    uint32 `json:"tile_id"`
	Archetype uint8  `json:"archetype"`
	Moves     uint8  `json:"moves"`
	North     bool   `json:"north"`
	East      bool   `json:"east"`
	South     bool   `json:"south"`
	West      bool   `json:"west"`
}

type CellObs struct {
	Coord   [2]int  `json:"coord"`
	Tile    TileObs `json:"tile"`
	SquadID uint64  `json:"squad_id,omitempty"`
}

type SquadObs struct {
	SquadID      uint64   `json:"squad_id"`
	Coord        [2]int   `json:"coord"`
	TargetTemple uint8    `json:"target_temple"`
	InTemple     bool     `json:"in_temple"`
	AssetIDs     []uint64 `json:"asset_ids"`
}

type TempleObs struct {
	TempleID uint8  `json:"temple_id"`
	Coord    [2]int `json:"coord"`
}

type TreasureObs struct {
	Coord      [2]int `json:"coord"`
	Affinity   uint8  `json:"affinity"`
	Tier       uint8  `json:"tier"`
	NumClaimed uint16 `json:"num_claimed"`
	MaxSupply  uint16 `json:"max_supply"`
}
