package ledger

import (
	"sync"
	"sync/atomic"

	"github.com/jurajselep/openmina/internal/field"
)

// Ledger is the capability set every ledger-kind implementer (BaseLedger,
// Mask) must expose (spec §9 "Polymorphism over ledger kinds"). No other
// subclassing is needed.
type Ledger interface {
	LocationOfAccount(id AccountId) (Address, bool)
	GetAccount(addr Address) (*Account, bool)
	GetBatch(addrs []Address) []*Account
	SetAccount(addr Address, acc *Account)
	GetOrCreate(id AccountId) (Address, *Account)
	MerkleRoot() field.F
	HashAt(addr Address) field.F
	CreateMasked() *Mask
	Empty() bool
}

// addrAllocator hands out fresh, never-reused addresses so LocationOfAccount
// stays injective across an entire mask stack (spec §3.3 invariant 1),
// regardless of which mask in the stack creates the account.
type addrAllocator struct {
	next uint64
}

func (a *addrAllocator) alloc() Address {
	v := atomic.AddUint64(&a.next, 1) - 1
	return Address{Path: v, Depth: Depth}
}

// emptyParent is the sentinel "beneath the base ledger" — an infinite,
// entirely-empty tree.
type emptyParent struct{}

func (emptyParent) LocationOfAccount(AccountId) (Address, bool) { return Address{}, false }
func (emptyParent) GetAccount(Address) (*Account, bool)         { return nil, false }
func (emptyParent) GetBatch(addrs []Address) []*Account         { return make([]*Account, len(addrs)) }
func (emptyParent) HashAt(addr Address) field.F                 { return emptyHashAt(Depth - int(addr.Depth)) }
func (emptyParent) MerkleRoot() field.F                         { return emptyHashAt(Depth) }
func (emptyParent) Empty() bool                                 { return true }

// Mask is an overlay ledger recording writes without touching its parent
// until Commit (spec §3.3). A BaseLedger is modeled as a Mask whose parent is
// the empty sentinel above — the only ledger kind that genuinely differs is
// what "falling through" bottoms out at.
type Mask struct {
	mu sync.RWMutex

	parent interface {
		LocationOfAccount(AccountId) (Address, bool)
		GetAccount(Address) (*Account, bool)
		GetBatch([]Address) []*Account
		HashAt(Address) field.F
		MerkleRoot() field.F
		Empty() bool
	}
	alloc *addrAllocator

	additions map[AccountId]*Account
	locs      map[AccountId]Address
	addrIndex map[Address]AccountId
	touched   map[Address]bool // every ancestor prefix of every written address
	cache     map[Address]field.F
}

// NewBaseLedger creates an empty root ledger (spec §3.3's "Base").
func NewBaseLedger() *Mask {
	return newMask(emptyParent{}, &addrAllocator{})
}

func newMask(parent interface {
	LocationOfAccount(AccountId) (Address, bool)
	GetAccount(Address) (*Account, bool)
	GetBatch([]Address) []*Account
	HashAt(Address) field.F
	MerkleRoot() field.F
	Empty() bool
}, alloc *addrAllocator) *Mask {
	return &Mask{
		parent:    parent,
		alloc:     alloc,
		additions: make(map[AccountId]*Account),
		locs:      make(map[AccountId]Address),
		addrIndex: make(map[Address]AccountId),
		touched:   make(map[Address]bool),
		cache:     make(map[Address]field.F),
	}
}

// CreateMasked forks a fresh overlay on top of m (spec §3.3 create_masked()).
func (m *Mask) CreateMasked() *Mask {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newMask(m, m.alloc)
}

// LocationOfAccount looks the overlay up first, then falls through to parent
// (spec §3.3 invariant 1: injective across the whole stack).
func (m *Mask) LocationOfAccount(id AccountId) (Address, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if addr, ok := m.locs[id]; ok {
		return addr, true
	}
	return m.parent.LocationOfAccount(id)
}

// GetAccount reads additions first, then parent (spec §3.3, invariant 4).
func (m *Mask) GetAccount(addr Address) (*Account, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.addrIndex[addr]; ok {
		return m.additions[id], true
	}
	return m.parent.GetAccount(addr)
}

// GetBatch fetches several addresses at once.
func (m *Mask) GetBatch(addrs []Address) []*Account {
	out := make([]*Account, len(addrs))
	for i, a := range addrs {
		out[i], _ = m.GetAccount(a)
	}
	return out
}

// SetAccount mutates the overlay and invalidates cached hashes along the path
// from addr to the root.
func (m *Mask) SetAccount(addr Address, acc *Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(addr, acc)
}

func (m *Mask) setLocked(addr Address, acc *Account) {
	m.additions[acc.Id] = acc
	m.locs[acc.Id] = addr
	m.addrIndex[addr] = acc.Id
	m.invalidatePathLocked(addr)
}

func (m *Mask) invalidatePathLocked(addr Address) {
	a := addr
	for {
		m.touched[a] = true
		delete(m.cache, a)
		if a.Depth == 0 {
			break
		}
		a = Address{Path: a.Path >> 1, Depth: a.Depth - 1}
	}
}

// GetOrCreate returns the existing account for id, or allocates a fresh
// address and account if none exists yet (spec §9 capability set).
func (m *Mask) GetOrCreate(id AccountId) (Address, *Account) {
	if addr, ok := m.LocationOfAccount(id); ok {
		acc, _ := m.GetAccount(addr)
		return addr, acc
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	addr := m.alloc.alloc()
	acc := NewAccount(id)
	m.setLocked(addr, acc)
	return addr, acc
}

// HashAt recomputes (or returns the memoized) hash at addr (spec §3.3
// invariant 2). Subtrees untouched by this mask delegate straight to parent,
// which applies the same optimization recursively, so an empty overlay costs
// O(1) per call.
func (m *Mask) HashAt(addr Address) field.F {
	m.mu.RLock()
	if !m.touched[addr] {
		m.mu.RUnlock()
		return m.parent.HashAt(addr)
	}
	if h, ok := m.cache[addr]; ok {
		m.mu.RUnlock()
		return h
	}
	m.mu.RUnlock()

	var h field.F
	if addr.IsLeaf() {
		acc, _ := m.GetAccount(addr)
		h = hashAccount(acc)
	} else {
		left := m.HashAt(addr.Child(0))
		right := m.HashAt(addr.Child(1))
		h = combine(left, right)
	}
	m.mu.Lock()
	m.cache[addr] = h
	m.mu.Unlock()
	return h
}

// MerkleRoot returns the hash at the root (spec §3.3 invariant 3).
func (m *Mask) MerkleRoot() field.F {
	return m.HashAt(RootAddress())
}

// Empty reports whether the mask (and everything beneath it) holds no
// accounts at all.
func (m *Mask) Empty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.additions) == 0 && m.parent.Empty()
}

// Commit atomically moves this mask's additions into its parent (spec §3.3
// commit()). Only valid when the parent is itself a *Mask — committing a
// mask whose parent is the empty sentinel is a programming error.
func (m *Mask) Commit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	parent, ok := m.parent.(*Mask)
	if !ok {
		return errCommitOnRoot
	}
	parent.mu.Lock()
	for id, acc := range m.additions {
		addr := m.locs[id]
		parent.setLocked(addr, acc)
	}
	parent.mu.Unlock()

	m.additions = make(map[AccountId]*Account)
	m.locs = make(map[AccountId]Address)
	m.addrIndex = make(map[Address]AccountId)
	m.touched = make(map[Address]bool)
	m.cache = make(map[Address]field.F)
	return nil
}

var errCommitOnRoot = commitOnRootError{}

type commitOnRootError struct{}

func (commitOnRootError) Error() string { return "ledger: cannot commit a mask with no parent mask" }
