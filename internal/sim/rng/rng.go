package rng

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math/big"
)

// Seed is an opaque 256-bit value, usually revealed by the oracle.
type Seed [32]byte

func SeedFromInt(v int64) Seed {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	return sha256.Sum256(b[:])
}

func (s Seed) Hex() string { return hex.EncodeToString(s[:]) }

// Derive hashes (seed, context) into a fresh 256-bit value. Pure.
func Derive(seed Seed, context string) Seed {
	h := sha256.New()
	h.Write(seed[:])
	h.Write([]byte(context))
	var out Seed
	copy(out[:], h.Sum(nil))
	return out
}

// DeriveIndexed is Derive with a numeric discriminator appended, for
// per-slot picks (one independent value per index).
func DeriveIndexed(seed Seed, context string, i uint64) Seed {
	h := sha256.New()
	h.Write(seed[:])
	h.Write([]byte(context))
	var ib [8]byte
	binary.BigEndian.PutUint64(ib[:], i)
	h.Write(ib[:])
	var out Seed
	copy(out[:], h.Sum(nil))
	return out
}

// Range maps a derived value onto [min, max] inclusive via
// min + (hash mod (max-min+1)). The modulo bias on non-power-of-two
// ranges is accepted for game flavor.
func Range(seed Seed, min, max uint64) uint64 {
	if max <= min {
		return min
	}
	span := new(big.Int).SetUint64(max - min + 1)
	v := new(big.Int).SetBytes(seed[:])
	return min + v.Mod(v, span).Uint64()
}
