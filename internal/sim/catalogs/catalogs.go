package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// TileArchetypeCount is fixed: archetype picks are derived as seed mod 36.
const TileArchetypeCount = 36

type Catalogs struct {
	Tiles TileCatalog
}

type TileCatalog struct {
	// Defs is indexed by archetype id (0..35).
	Defs   []TileDef
	Digest string
}

// TileDef describes one tile archetype: which edges are passable and how
// many steps the tile grants when burned for a squad move.
type TileDef struct {
	Archetype uint8 `json:"archetype"`
	North     bool  `json:"north"`
	East      bool  `json:"east"`
	South     bool  `json:"south"`
	West      bool  `json:"west"`
	Moves     uint8 `json:"moves"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadTiles(filepath.Join(configDir, "tiles.json"), &c.Tiles); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadTiles(path string, out *TileCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []TileDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("tiles.json: %w", err)
	}
	if len(defs) != TileArchetypeCount {
		return fmt.Errorf("tiles.json: want %d archetypes, got %d", TileArchetypeCount, len(defs))
	}

	out.Defs = make([]TileDef, TileArchetypeCount)
	seen := make([]bool, TileArchetypeCount)
	for _, d := range defs {
		if int(d.Archetype) >= TileArchetypeCount {
			return fmt.Errorf("tiles.json: archetype %d out of range", d.Archetype)
		}
		if seen[d.Archetype] {
			return fmt.Errorf("tiles.json: duplicate archetype %d", d.Archetype)
		}
		if !d.North && !d.East && !d.South && !d.West {
			return fmt.Errorf("tiles.json: archetype %d has no connectors", d.Archetype)
		}
		if d.Moves == 0 {
			return fmt.Errorf("tiles.json: archetype %d has zero moves", d.Archetype)
		}
		seen[d.Archetype] = true
		out.Defs[d.Archetype] = d
	}
	return nil
}
