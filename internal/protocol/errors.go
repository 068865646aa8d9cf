package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Generic rule layer.
	ErrBadRequest   = "E_BAD_REQUEST"
	ErrNotOwner     = "E_NOT_OWNER"
	ErrNotFound     = "E_NOT_FOUND"
	ErrOutOfBounds  = "E_OUT_OF_BOUNDS"
	ErrRandNotReady = "E_RAND_NOT_READY"
	ErrInternal     = "E_INTERNAL"

	// Board / connectivity.
	ErrNoTile           = "E_NO_TILE"
	ErrCellOccupied     = "E_CELL_OCCUPIED"
	ErrCellHasTile      = "E_CELL_HAS_TILE"
	ErrNotAdjacent      = "E_NOT_ADJACENT"
	ErrNoConnectorNorth = "E_NO_CONNECTOR_NORTH"
	ErrNoConnectorEast  = "E_NO_CONNECTOR_EAST"
	ErrNoConnectorSouth = "E_NO_CONNECTOR_SOUTH"
	ErrNoConnectorWest  = "E_NO_CONNECTOR_WEST"

	// Tile economy. A full hand is not an error: claims admit what fits
	// and keep the rest owed.
	ErrNothingToDo   = "E_NOTHING_TO_DO"
	ErrEvictOccupied = "E_EVICT_OCCUPIED"

	// Squads.
	ErrSquadLimit        = "E_SQUAD_LIMIT"
	ErrSquadTooBig       = "E_SQUAD_TOO_BIG"
	ErrRecruitBarred     = "E_RECRUIT_BARRED"
	ErrCooldown          = "E_COOLDOWN"
	ErrTooCloseToTemple  = "E_TOO_CLOSE_TO_TEMPLE"
	ErrInsufficientMoves = "E_INSUFFICIENT_MOVES"
	ErrWrongStart        = "E_WRONG_START"
	ErrNotAtTemple       = "E_NOT_AT_TEMPLE"
	ErrTempleEntered     = "E_TEMPLE_ENTERED"

	// Treasure.
	ErrNotOnTreasure   = "E_NOT_ON_TREASURE"
	ErrSupplyExhausted = "E_SUPPLY_EXHAUSTED"
	ErrAlreadyClaimed  = "E_ALREADY_CLAIMED"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:   {},
	ErrBadRequest:        {},
	ErrNotOwner:          {},
	ErrNotFound:          {},
	ErrOutOfBounds:       {},
	ErrRandNotReady:      {},
	ErrInternal:          {},
	ErrNoTile:            {},
	ErrCellOccupied:      {},
	ErrCellHasTile:       {},
	ErrNotAdjacent:       {},
	ErrNoConnectorNorth:  {},
	ErrNoConnectorEast:   {},
	ErrNoConnectorSouth:  {},
	ErrNoConnectorWest:   {},
	ErrNothingToDo:       {},
	ErrEvictOccupied:     {},
	ErrSquadLimit:        {},
	ErrSquadTooBig:       {},
	ErrRecruitBarred:     {},
	ErrCooldown:          {},
	ErrTooCloseToTemple:  {},
	ErrInsufficientMoves: {},
	ErrWrongStart:        {},
	ErrNotAtTemple:       {},
	ErrTempleEntered:     {},
	ErrNotOnTreasure:     {},
	ErrSupplyExhausted:   {},
	ErrAlreadyClaimed:    {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
