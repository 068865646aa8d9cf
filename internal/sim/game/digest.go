package game

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"
)

// StateDigest hashes every simulation-relevant field in a fixed order.
// Two engines that processed the same turns produce the same digest;
// clients, resume tokens and pending oracle ids are excluded.
func (g *Game) StateDigest() string {
	h := sha256.New()
	var tmp [8]byte

	g.digestHeader(h, &tmp)
	g.digestRound(h, &tmp)
	g.digestTreasure(h, &tmp)
	g.digestPlayers(h, &tmp)
	g.digestSquads(h, &tmp)

	return hex.EncodeToString(h.Sum(nil))
}

func (g *Game) digestHeader(h hashWriter, tmp *[8]byte) {
	h.Write([]byte("crypts1:"))
	h.Write([]byte(g.cfg.ID))
	digestWriteU64(h, tmp, g.turn.Load())
	digestWriteU64(h, tmp, g.nextPlayerNum.Load())
	digestWriteU64(h, tmp, g.nextSquadID)
	digestWriteU64(h, tmp, g.nextTileID)
}

func (g *Game) digestRound(h hashWriter, tmp *[8]byte) {
	digestWriteU64(h, tmp, g.round.Round)
	digestWriteU64(h, tmp, uint64(g.legionsAtTemple))
	h.Write([]byte{boolByte(g.round.revealed)})
	if g.round.revealed {
		h.Write(g.round.seed[:])
		for _, t := range g.round.temples {
			digestWriteI64(h, tmp, int64(t.X))
			digestWriteI64(h, tmp, int64(t.Y))
		}
		digestWriteI64(h, tmp, int64(g.round.treasureCoord.X))
		digestWriteI64(h, tmp, int64(g.round.treasureCoord.Y))
		h.Write([]byte{g.round.treasureAffinity})
	}
}

func (g *Game) digestTreasure(h hashWriter, tmp *[8]byte) {
	digestWriteU64(h, tmp, uint64(g.treasure.NumClaimed))
	digestWriteU64(h, tmp, uint64(g.treasure.MaxSupply))
}

func (g *Game) digestPlayers(h hashWriter, tmp *[8]byte) {
	players := g.sortedPlayers()
	digestWriteU64(h, tmp, uint64(len(players)))
	for _, p := range players {
		h.Write([]byte(p.ID))
		digestWriteU64(h, tmp, uint64(len(p.Hand)))
		for _, t := range p.Hand {
			digestTile(h, tmp, t)
		}
		for x := 0; x < BoardWidth; x++ {
			for y := 0; y < BoardHeight; y++ {
				c := p.Grid[x][y]
				if !c.HasTile {
					continue
				}
				digestWriteI64(h, tmp, int64(x))
				digestWriteI64(h, tmp, int64(y))
				digestTile(h, tmp, c.Tile)
				digestWriteU64(h, tmp, c.SquadID)
			}
		}
		for _, id := range p.History.items() {
			digestWriteU64(h, tmp, uint64(id))
		}
		digestSortedU64Map(h, tmp, p.LastClaimedEpoch)
		digestWriteI64(h, tmp, p.SquadCooldownEnd.Unix())
		digestWriteU64(h, tmp, uint64(p.ActiveSquads))
		digestWriteU64(h, tmp, p.LastTreasureClaimRound)
	}
}

func (g *Game) digestSquads(h hashWriter, tmp *[8]byte) {
	squads := g.sortedSquads()
	digestWriteU64(h, tmp, uint64(len(squads)))
	for _, s := range squads {
		digestWriteU64(h, tmp, s.ID)
		h.Write([]byte(s.Owner))
		digestWriteI64(h, tmp, int64(s.Coord.X))
		digestWriteI64(h, tmp, int64(s.Coord.Y))
		h.Write([]byte{s.TargetTemple, boolByte(s.InTemple), boolByte(s.Alive)})
		digestWriteU64(h, tmp, s.LastRoundEnteredTemple)
		digestWriteU64(h, tmp, s.LastRoundTreasureClaimed)
		digestWriteU64(h, tmp, uint64(len(s.AssetIDs)))
		for _, id := range s.AssetIDs {
			digestWriteU64(h, tmp, id)
		}
	}
}

func digestTile(h hashWriter, tmp *[8]byte, t MapTile) {
	digestWriteU64(h, tmp, uint64(t.ID))
	h.Write([]byte{t.Archetype, t.Moves, boolByte(t.North), boolByte(t.East), boolByte(t.South), boolByte(t.West)})
}

func digestSortedU64Map(h hashWriter, tmp *[8]byte, m map[uint64]uint64) {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	digestWriteU64(h, tmp, uint64(len(keys)))
	for _, k := range keys {
		digestWriteU64(h, tmp, k)
		digestWriteU64(h, tmp, m[k])
	}
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}
