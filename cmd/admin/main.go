package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"corruptioncrypts.gg/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "config":
			configCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	gameID := fs.String("game", "", "game id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "games")
	if *gameID != "" {
		base = filepath.Join(base, *gameID)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

// snapshotCmd prints a summary of a snapshot file (the latest one when
// no explicit path is given).
func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	gameID := fs.String("game", "", "game id")
	snapPath := fs.String("snapshot", "", "snapshot path (optional; defaults to latest)")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*snapPath)
	if path == "" {
		if strings.TrimSpace(*gameID) == "" {
			fmt.Fprintln(os.Stderr, "missing -game or -snapshot")
			os.Exit(2)
		}
		path = latestSnapshot(filepath.Join(*dataDir, "games", *gameID))
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "no snapshot found; provide -snapshot or run the server until it writes one")
		os.Exit(2)
	}

	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}

	type summary struct {
		Path            string `json:"path"`
		GameID          string `json:"game_id"`
		Turn            uint64 `json:"turn"`
		Round           uint64 `json:"round"`
		RoundRevealed   bool   `json:"round_revealed"`
		Players         int    `json:"players"`
		Squads          int    `json:"squads"`
		LegionsAtTemple int    `json:"legions_at_temple"`
		TreasureClaimed uint16 `json:"treasure_claimed"`
		TreasureSupply  uint16 `json:"treasure_supply"`
	}
	printJSON(summary{
		Path:            path,
		GameID:          snap.Header.GameID,
		Turn:            snap.Header.Turn,
		Round:           snap.Round.Round,
		RoundRevealed:   snap.Round.Revealed,
		Players:         len(snap.Players),
		Squads:          len(snap.Squads),
		LegionsAtTemple: snap.LegionsAtTemple,
		TreasureClaimed: snap.Treasure.NumClaimed,
		TreasureSupply:  snap.Treasure.MaxSupply,
	})
	for _, p := range snap.Players {
		type playerRow struct {
			PlayerID     string `json:"player_id"`
			Name         string `json:"name"`
			Hand         int    `json:"hand"`
			OnBoard      int    `json:"on_board"`
			ActiveSquads uint8  `json:"active_squads"`
		}
		printJSON(playerRow{
			PlayerID:     p.ID,
			Name:         p.Name,
			Hand:         len(p.Hand),
			OnBoard:      len(p.Cells),
			ActiveSquads: p.ActiveSquads,
		})
	}
}

func latestSnapshot(gameDir string) string {
	dir := filepath.Join(gameDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTurn uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		base := strings.TrimSuffix(name, ".snap.zst")
		turn, err := strconv.ParseUint(base, 10, 64)
		if err != nil {
			continue
		}
		if best == "" || turn > bestTurn {
			bestTurn = turn
			best = filepath.Join(dir, name)
		}
	}
	return best
}
