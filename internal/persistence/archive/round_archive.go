package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"corruptioncrypts.gg/internal/persistence/snapshot"
)

type RoundArchiveMeta struct {
	Round     uint64 `json:"round"`
	Turn      uint64 `json:"turn"`
	Snapshot  string `json:"snapshot"`
	CreatedAt string `json:"created_at"`
	Players   int    `json:"players"`
	Squads    int    `json:"squads"`
}

// ArchiveRoundSnapshot copies the first snapshot seen for a new round
// into `gameDir/archives/round_<NNN>/`. prevRound is the round of the
// previously archived (or first observed) snapshot; nothing is archived
// while the round is unchanged.
func ArchiveRoundSnapshot(gameDir, snapshotPath string, snap snapshot.GameV1, prevRound uint64) (round uint64, archivedPath string, archived bool, err error) {
	round = snap.Round.Round
	if round == 0 || round == prevRound {
		return round, "", false, nil
	}

	archiveDir := filepath.Join(gameDir, "archives", fmt.Sprintf("round_%03d", round))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return round, "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return round, "", false, err
	}

	meta := RoundArchiveMeta{
		Round:     round,
		Turn:      snap.Header.Turn,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Players:   len(snap.Players),
		Squads:    len(snap.Squads),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}

	return round, dst, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
