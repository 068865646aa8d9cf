package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"corruptioncrypts.gg/internal/persistence/snapshot"
	"corruptioncrypts.gg/internal/sim/catalogs"
	"corruptioncrypts.gg/internal/sim/game"
	"corruptioncrypts.gg/internal/sim/rng"
)

// Offline verifier for durable game history. Rebuilds an engine from a
// snapshot, recomputes the state digest, and cross-checks it (plus turn
// ordering) against the turn log.
func main() {
	var (
		snapPath  = flag.String("snapshot", "", "path to .snap.zst")
		turnsDir  = flag.String("turns", "", "turns dir containing turns-*.jsonl.zst (optional)")
		configDir = flag.String("configs", "./configs", "config directory")
	)
	flag.Parse()

	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}

	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}

	fmt.Printf("snapshot v%d game=%s turn=%d round=%d players=%d squads=%d treasure=%d/%d\n",
		snap.Header.Version, snap.Header.GameID, snap.Header.Turn, snap.Round.Round,
		len(snap.Players), len(snap.Squads), snap.Treasure.NumClaimed, snap.Treasure.MaxSupply)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}

	g, err := game.New(game.Config{ID: snap.Header.GameID}, cats,
		rng.NewCommitRevealOracle(), game.NewMemoryCustody(), game.RealClock())
	if err != nil {
		fmt.Fprintln(os.Stderr, "game:", err)
		os.Exit(1)
	}
	if err := g.ImportSnapshot(snap); err != nil {
		fmt.Fprintln(os.Stderr, "import snapshot:", err)
		os.Exit(1)
	}
	snapDigest := g.StateDigest()
	fmt.Printf("rebuilt state digest=%s\n", snapDigest)

	if *turnsDir == "" {
		return
	}

	files, err := listTurnFiles(*turnsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list turns:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no turn files found in", *turnsDir)
		os.Exit(1)
	}

	var (
		scanned     uint64
		lastTurn    uint64
		matchedSnap bool
	)
	for _, path := range files {
		if err := scanFile(path, snap.Header.Turn, snapDigest, &scanned, &lastTurn, &matchedSnap); err != nil {
			fmt.Fprintln(os.Stderr, "verify:", err)
			os.Exit(1)
		}
	}
	if snap.Header.Turn != 0 && !matchedSnap {
		fmt.Fprintf(os.Stderr, "verify: no turn log entry found for snapshot turn %d\n", snap.Header.Turn)
		os.Exit(1)
	}
	fmt.Printf("verify ok: scanned=%d turn entries (snapshot turn=%d)\n", scanned, snap.Header.Turn)
}

func listTurnFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "turns-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func scanFile(path string, snapTurn uint64, snapDigest string, scanned, lastTurn *uint64, matchedSnap *bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	for sc.Scan() {
		line := sc.Bytes()
		var entry game.TurnLogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		*scanned++
		if entry.Turn < *lastTurn {
			return fmt.Errorf("turn order regression: %d after %d (file=%s)", entry.Turn, *lastTurn, filepath.Base(path))
		}
		*lastTurn = entry.Turn

		if entry.Turn == snapTurn && entry.OK && entry.Digest != "" {
			*matchedSnap = true
			if entry.Digest != snapDigest {
				return fmt.Errorf("digest mismatch at turn %d: snapshot=%s log=%s", entry.Turn, snapDigest, entry.Digest)
			}
		}
	}
	return sc.Err()
}
