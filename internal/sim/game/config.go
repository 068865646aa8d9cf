package game

import "corruptioncrypts.gg/internal/sim/tuning"

type Config struct {
	ID string

	EpochSeconds int
	MaxHand      int
	MaxOnBoard   int

	MaxSquadSize           int
	MaxSquadsPerPlayer     int
	UnstakeCooldownSeconds int

	TempleCount           int
	MinDistanceFromTemple int
	RoundAdvanceThreshold int

	TreasureMaxSupply int
	TreasureTier      int

	SnapshotEveryTurns int

	// StarterAssets is the number of demo assets granted to each new
	// player when the custody backend supports granting. Zero keeps
	// joins grant-free (real custody owns all issuance).
	StarterAssets int
}

func (c *Config) applyDefaults() {
	d := tuning.Defaults()
	if c.EpochSeconds <= 0 {
		c.EpochSeconds = d.EpochSeconds
	}
	if c.MaxHand <= 0 {
		c.MaxHand = d.MaxHand
	}
	if c.MaxOnBoard <= 0 {
		c.MaxOnBoard = d.MaxOnBoard
	}
	if c.MaxSquadSize <= 0 {
		c.MaxSquadSize = d.MaxSquadSize
	}
	if c.MaxSquadsPerPlayer <= 0 {
		c.MaxSquadsPerPlayer = d.MaxSquadsPerPlayer
	}
	if c.UnstakeCooldownSeconds <= 0 {
		c.UnstakeCooldownSeconds = d.UnstakeCooldownSeconds
	}
	if c.TempleCount <= 0 {
		c.TempleCount = d.TempleCount
	}
	if c.MinDistanceFromTemple <= 0 {
		c.MinDistanceFromTemple = d.MinDistanceFromTemple
	}
	if c.RoundAdvanceThreshold <= 0 {
		c.RoundAdvanceThreshold = d.RoundAdvanceThreshold
	}
	if c.TreasureMaxSupply <= 0 {
		c.TreasureMaxSupply = d.TreasureMaxSupply
	}
	if c.TreasureTier <= 0 {
		c.TreasureTier = d.TreasureTier
	}
	if c.SnapshotEveryTurns <= 0 {
		c.SnapshotEveryTurns = d.SnapshotEveryTurns
	}
}

// ConfigFromTuning maps loaded tunables onto an engine config.
func ConfigFromTuning(id string, t tuning.Tuning) Config {
	return Config{
		ID:                     id,
		EpochSeconds:           t.EpochSeconds,
		MaxHand:                t.MaxHand,
		MaxOnBoard:             t.MaxOnBoard,
		MaxSquadSize:           t.MaxSquadSize,
		MaxSquadsPerPlayer:     t.MaxSquadsPerPlayer,
		UnstakeCooldownSeconds: t.UnstakeCooldownSeconds,
		TempleCount:            t.TempleCount,
		MinDistanceFromTemple:  t.MinDistanceFromTemple,
		RoundAdvanceThreshold:  t.RoundAdvanceThreshold,
		TreasureMaxSupply:      t.TreasureMaxSupply,
		TreasureTier:           t.TreasureTier,
		SnapshotEveryTurns:     t.SnapshotEveryTurns,
		StarterAssets:          t.StarterAssets,
	}
}
