package archive

import (
	"os"
	"path/filepath"
	"testing"

	"corruptioncrypts.gg/internal/persistence/snapshot"
)

func TestArchiveRoundSnapshot_CopiesFirstSnapshotOfRound(t *testing.T) {
	dir := t.TempDir()
	gameDir := filepath.Join(dir, "games", "g1")
	if err := os.MkdirAll(gameDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	// Create a dummy snapshot file.
	src := filepath.Join(gameDir, "snapshots", "500.snap.zst")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatalf("mkdir snapshots: %v", err)
	}
	want := []byte("dummy")
	if err := os.WriteFile(src, want, 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	snap := snapshot.GameV1{
		Header: snapshot.Header{Version: 1, GameID: "g1", Turn: 500},
		Round:  snapshot.RoundV1{Round: 2},
	}

	round, archivedPath, ok, err := ArchiveRoundSnapshot(gameDir, src, snap, 1)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if !ok {
		t.Fatalf("expected archived=true")
	}
	if round != 2 {
		t.Fatalf("round=%d want 2", round)
	}

	got, err := os.ReadFile(archivedPath)
	if err != nil {
		t.Fatalf("read archived: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("archived content mismatch: got=%q want=%q", string(got), string(want))
	}

	metaPath := filepath.Join(filepath.Dir(archivedPath), "meta.json")
	if _, err := os.Stat(metaPath); err != nil {
		t.Fatalf("expected meta.json to exist: %v", err)
	}
}

func TestArchiveRoundSnapshot_SkipsUnchangedRound(t *testing.T) {
	dir := t.TempDir()
	snap := snapshot.GameV1{
		Header: snapshot.Header{Version: 1, GameID: "g1", Turn: 100},
		Round:  snapshot.RoundV1{Round: 3},
	}
	_, _, ok, err := ArchiveRoundSnapshot(dir, filepath.Join(dir, "missing.snap.zst"), snap, 3)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if ok {
		t.Fatalf("expected archived=false for unchanged round")
	}
}
