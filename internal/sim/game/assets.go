package game

import (
	"fmt"
	"log"
)

// AssetCustody is the external asset collaborator: legion assets move in
// and out of game custody when squads stake/unstake, and treasure claims
// mint the reward asset. The engine buffers these operations during a
// turn and applies them only if the whole batch commits.
type AssetCustody interface {
	// Holds reports whether owner currently holds the asset. Moves
	// check this at validation time so a batch never buffers a
	// transfer that cannot apply at commit.
	Holds(owner string, assetID uint64) bool
	Transfer(from, to string, assetID uint64) error
	Mint(to string, rewardID uint64, amount uint64) error
	// Recruit reports whether the asset carries the recruit
	// classification, which bars it from squads.
	Recruit(assetID uint64) bool
}

// Granter is the optional custody extension for seeding demo assets
// to new players in local mode.
type Granter interface {
	Grant(owner string, assetIDs ...uint64)
}

// CustodyAccount is the game's own custody key.
const CustodyAccount = "crypts:custody"

type assetOpKind int

const (
	assetOpTransfer assetOpKind = iota + 1
	assetOpMint
)

type assetOp struct {
	kind     assetOpKind
	from, to string
	assetID  uint64
	rewardID uint64
	amount   uint64
}

// applyAssetOps applies a committed batch's custody operations as a
// unit. Transfers run first so a failure can be unwound by reversing
// them; mints are additive and run only once every transfer has landed.
func applyAssetOps(c AssetCustody, ops []assetOp) error {
	var done []assetOp
	unwind := func() {
		for i := len(done) - 1; i >= 0; i-- {
			op := done[i]
			if err := c.Transfer(op.to, op.from, op.assetID); err != nil {
				log.Printf("custody unwind failed: asset %d: %v", op.assetID, err)
			}
		}
	}
	for _, op := range ops {
		if op.kind != assetOpTransfer {
			continue
		}
		if err := c.Transfer(op.from, op.to, op.assetID); err != nil {
			unwind()
			return err
		}
		done = append(done, op)
	}
	for _, op := range ops {
		if op.kind != assetOpMint {
			continue
		}
		if err := c.Mint(op.to, op.rewardID, op.amount); err != nil {
			unwind()
			return err
		}
	}
	return nil
}

// MemoryCustody is an in-memory ledger used by the server's local mode
// and by tests.
type MemoryCustody struct {
	Owners   map[uint64]string // assetID -> holder
	Rewards  map[string]uint64 // holder -> reward balance
	Recruits map[uint64]bool
}

func NewMemoryCustody() *MemoryCustody {
	return &MemoryCustody{
		Owners:   map[uint64]string{},
		Rewards:  map[string]uint64{},
		Recruits: map[uint64]bool{},
	}
}

func (m *MemoryCustody) Grant(owner string, assetIDs ...uint64) {
	for _, id := range assetIDs {
		m.Owners[id] = owner
	}
}

func (m *MemoryCustody) Holds(owner string, assetID uint64) bool {
	return m.Owners[assetID] == owner
}

func (m *MemoryCustody) Transfer(from, to string, assetID uint64) error {
	if m.Owners[assetID] != from {
		return fmt.Errorf("asset %d not held by %s", assetID, from)
	}
	m.Owners[assetID] = to
	return nil
}

func (m *MemoryCustody) Mint(to string, rewardID uint64, amount uint64) error {
	_ = rewardID
	m.Rewards[to] += amount
	return nil
}

func (m *MemoryCustody) Recruit(assetID uint64) bool {
	return m.Recruits[assetID]
}
