package game

import (
	"fmt"
	"testing"
)

// failingMintCustody stands in for an external backend that errors at
// commit time.
type failingMintCustody struct {
	*MemoryCustody
}

func (f *failingMintCustody) Mint(to string, rewardID uint64, amount uint64) error {
	return fmt.Errorf("mint rejected")
}

func TestApplyAssetOps_UnwindsTransfersOnMintFailure(t *testing.T) {
	mc := NewMemoryCustody()
	mc.Grant("P1", 5, 6)
	c := &failingMintCustody{MemoryCustody: mc}

	ops := []assetOp{
		{kind: assetOpTransfer, from: "P1", to: CustodyAccount, assetID: 5},
		{kind: assetOpTransfer, from: "P1", to: CustodyAccount, assetID: 6},
		{kind: assetOpMint, to: "P1", rewardID: 4, amount: 1},
	}
	if err := applyAssetOps(c, ops); err == nil {
		t.Fatal("expected mint failure")
	}
	if mc.Owners[5] != "P1" || mc.Owners[6] != "P1" {
		t.Fatalf("transfers not unwound: %v", mc.Owners)
	}
	if mc.Rewards["P1"] != 0 {
		t.Fatalf("reward minted on failed batch: %d", mc.Rewards["P1"])
	}
}

func TestApplyAssetOps_FailedTransferUnwindsEarlierOnes(t *testing.T) {
	mc := NewMemoryCustody()
	mc.Grant("P1", 5)

	ops := []assetOp{
		{kind: assetOpTransfer, from: "P1", to: CustodyAccount, assetID: 5},
		{kind: assetOpTransfer, from: "P1", to: CustodyAccount, assetID: 6}, // unheld
	}
	if err := applyAssetOps(mc, ops); err == nil {
		t.Fatal("expected transfer failure")
	}
	if mc.Owners[5] != "P1" {
		t.Fatalf("asset 5 stranded in custody: %q", mc.Owners[5])
	}
}

func TestMemoryCustody_Holds(t *testing.T) {
	mc := NewMemoryCustody()
	mc.Grant("P1", 9)
	if !mc.Holds("P1", 9) {
		t.Fatal("granted asset not held")
	}
	if mc.Holds("P2", 9) || mc.Holds("P1", 10) {
		t.Fatal("phantom holdings")
	}
}
