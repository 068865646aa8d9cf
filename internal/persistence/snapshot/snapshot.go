package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

type Header struct {
	Version int    `json:"version"`
	GameID  string `json:"game_id"`
	Turn    uint64 `json:"turn"`
}

// GameV1 is a full engine state capture: every field an engine needs to
// resume and keep producing the same digests.
type GameV1 struct {
	Header Header `json:"header"`

	// Engine config captured for deterministic resume.
	EpochSeconds           int `json:"epoch_seconds"`
	MaxHand                int `json:"max_hand"`
	MaxOnBoard             int `json:"max_on_board"`
	MaxSquadSize           int `json:"max_squad_size"`
	MaxSquadsPerPlayer     int `json:"max_squads_per_player"`
	UnstakeCooldownSeconds int `json:"unstake_cooldown_seconds"`
	TempleCount            int `json:"temple_count"`
	MinDistanceFromTemple  int `json:"min_distance_from_temple"`
	RoundAdvanceThreshold  int `json:"round_advance_threshold"`
	TreasureMaxSupply      int `json:"treasure_max_supply"`
	TreasureTier           int `json:"treasure_tier"`
	SnapshotEveryTurns     int `json:"snapshot_every_turns,omitempty"`
	StarterAssets          int `json:"starter_assets,omitempty"`

	Round    RoundV1    `json:"round"`
	Treasure TreasureV1 `json:"treasure"`

	Players []PlayerV1 `json:"players"`
	Squads  []SquadV1  `json:"squads"`

	LegionsAtTemple int        `json:"legions_at_temple"`
	Counters        CountersV1 `json:"counters"`
}

type CountersV1 struct {
	NextPlayer uint64 `json:"next_player"`
	NextSquad  uint64 `json:"next_squad"`
	NextTile   uint64 `json:"next_tile"`
}

type RoundV1 struct {
	Round         uint64   `json:"round"`
	StartUnix     int64    `json:"start_unix"`
	Request       uint64   `json:"request"`
	Revealed      bool     `json:"revealed"`
	Seed          []byte   `json:"seed,omitempty"`
	Temples       [][2]int `json:"temples,omitempty"`
	TreasureCoord [2]int   `json:"treasure_coord,omitempty"`
	TreasureAff   uint8    `json:"treasure_affinity,omitempty"`
}

type TreasureV1 struct {
	NumClaimed uint16 `json:"num_claimed"`
	MaxSupply  uint16 `json:"max_supply"`
}

type PlayerV1 struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	Hand    []TileV1 `json:"hand"`
	Cells   []CellV1 `json:"cells"`
	History []uint32 `json:"history"` // most-recent-first

	LastClaimedEpoch map[uint64]uint64 `json:"last_claimed_epoch,omitempty"`

	SquadCooldownEndUnix   int64  `json:"squad_cooldown_end_unix,omitempty"`
	ActiveSquads           uint8  `json:"active_squads"`
	LastTreasureClaimRound uint64 `json:"last_treasure_claim_round,omitempty"`
	RandRequest            uint64 `json:"rand_request"`
	ResumeToken            string `json:"resume_token,omitempty"`
}

type TileV1 struct {
	ID        uint32 `json:"id"`
	Archetype uint8  `json:"archetype"`
	Moves     uint8  `json:"moves"`
	North     bool   `json:"north"`
	East      bool   `json:"east"`
	South     bool   `json:"south"`
	West      bool   `json:"west"`
}

type CellV1 struct {
	Coord   [2]int `json:"coord"`
	Tile    TileV1 `json:"tile"`
	SquadID uint64 `json:"squad_id,omitempty"`
}

type SquadV1 struct {
	ID                       uint64   `json:"id"`
	Owner                    string   `json:"owner"`
	Coord                    [2]int   `json:"coord"`
	TargetTemple             uint8    `json:"target_temple"`
	InTemple                 bool     `json:"in_temple"`
	LastRoundEnteredTemple   uint64   `json:"last_round_entered_temple,omitempty"`
	LastRoundTreasureClaimed uint64   `json:"last_round_treasure_claimed,omitempty"`
	AssetIDs                 []uint64 `json:"asset_ids"`
	Alive                    bool     `json:"alive"`
}

func WriteSnapshot(path string, snap GameV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (GameV1, error) {
	var snap GameV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Read header line (ignore it for now, gob also contains header).
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
