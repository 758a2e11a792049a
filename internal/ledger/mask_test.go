package ledger

import (
	"testing"

	"github.com/jurajselep/openmina/internal/field"
)

func pk(x uint64, odd bool) PublicKey {
	return PublicKey{X: field.FromUint64(x), IsOdd: odd}
}

func TestMaskReadThroughComposition(t *testing.T) {
	base := NewBaseLedger()
	id := AccountId{PublicKey: pk(1, false), TokenId: TokenIdDefault}
	addr, acc := base.GetOrCreate(id)
	acc.Balance = 100
	base.SetAccount(addr, acc)

	child := base.CreateMasked()

	got, ok := child.GetAccount(addr)
	if !ok || got.Balance != 100 {
		t.Fatalf("expected read-through to parent, got %+v ok=%v", got, ok)
	}

	id2 := AccountId{PublicKey: pk(2, false), TokenId: TokenIdDefault}
	addr2, acc2 := child.GetOrCreate(id2)
	acc2.Balance = 7
	child.SetAccount(addr2, acc2)

	if _, ok := base.GetAccount(addr2); ok {
		t.Fatalf("write to child mask must not be visible in parent before commit")
	}
	got2, ok := child.GetAccount(addr2)
	if !ok || got2.Balance != 7 {
		t.Fatalf("child's own addition should be visible in child: %+v", got2)
	}
}

func TestCommitEmptyOverlayIsIdentity(t *testing.T) {
	base := NewBaseLedger()
	id := AccountId{PublicKey: pk(1, false), TokenId: TokenIdDefault}
	addr, acc := base.GetOrCreate(id)
	acc.Balance = 55
	base.SetAccount(addr, acc)

	before := base.MerkleRoot()
	child := base.CreateMasked()
	if err := child.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	after := base.MerkleRoot()
	if !before.Equal(after) {
		t.Fatalf("commit(create_masked(L)) changed the root: %s != %s", before, after)
	}
}

func TestCommitMovesAdditionsIntoParent(t *testing.T) {
	base := NewBaseLedger()
	child := base.CreateMasked()

	id := AccountId{PublicKey: pk(3, true), TokenId: TokenIdDefault}
	addr, acc := child.GetOrCreate(id)
	acc.Balance = 42
	child.SetAccount(addr, acc)

	rootBefore := base.MerkleRoot()
	childRoot := child.MerkleRoot()
	if rootBefore.Equal(childRoot) {
		t.Fatalf("child root should differ from empty parent root before commit")
	}

	if err := child.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got, ok := base.GetAccount(addr); !ok || got.Balance != 42 {
		t.Fatalf("expected committed account in base, got %+v ok=%v", got, ok)
	}
	if !base.MerkleRoot().Equal(childRoot) {
		t.Fatalf("base root after commit should equal the pre-commit child root")
	}
}

func TestMerkleInteriorHashInvariant(t *testing.T) {
	base := NewBaseLedger()
	id := AccountId{PublicKey: pk(9, false), TokenId: TokenIdDefault}
	addr, acc := base.GetOrCreate(id)
	acc.Balance = 1
	base.SetAccount(addr, acc)

	root := RootAddress()
	left := base.HashAt(root.Child(0))
	right := base.HashAt(root.Child(1))
	want := combine(left, right)
	if !base.MerkleRoot().Equal(want) {
		t.Fatalf("root hash does not equal H(left, right)")
	}
}

func TestLocationOfAccountInjective(t *testing.T) {
	base := NewBaseLedger()
	seen := make(map[Address]bool)
	for i := uint64(0); i < 50; i++ {
		id := AccountId{PublicKey: pk(i, i%2 == 0), TokenId: TokenIdDefault}
		addr, _ := base.GetOrCreate(id)
		if seen[addr] {
			t.Fatalf("address %v reused across distinct accounts", addr)
		}
		seen[addr] = true
	}
}
