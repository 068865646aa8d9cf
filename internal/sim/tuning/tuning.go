package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	EpochSeconds int `yaml:"epoch_seconds"`
	MaxHand      int `yaml:"max_hand"`
	MaxOnBoard   int `yaml:"max_on_board"`

	MaxSquadSize           int `yaml:"max_squad_size"`
	MaxSquadsPerPlayer     int `yaml:"max_squads_per_player"`
	UnstakeCooldownSeconds int `yaml:"unstake_cooldown_seconds"`

	TempleCount           int `yaml:"temple_count"`
	MinDistanceFromTemple int `yaml:"min_distance_from_temple"`
	RoundAdvanceThreshold int `yaml:"round_advance_threshold"`

	TreasureMaxSupply int `yaml:"treasure_max_supply"`
	TreasureTier      int `yaml:"treasure_tier"`

	SnapshotEveryTurns int `yaml:"snapshot_every_turns"`
	StarterAssets      int `yaml:"starter_assets"`
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Digest hashes the file at path (empty string if unreadable).
func Digest(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func Defaults() Tuning {
	return Tuning{
		EpochSeconds:           3600,
		MaxHand:                10,
		MaxOnBoard:             10,
		MaxSquadSize:           20,
		MaxSquadsPerPlayer:     3,
		UnstakeCooldownSeconds: 24 * 3600,
		TempleCount:            3,
		MinDistanceFromTemple:  6,
		RoundAdvanceThreshold:  150,
		TreasureMaxSupply:      120,
		TreasureTier:           4,
		SnapshotEveryTurns:     500,
		StarterAssets:          10,
	}
}
