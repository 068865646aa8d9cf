package rng

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
)

// ErrNotReady is returned when a request's seed has not been revealed yet.
// The caller must poll IsReady and resubmit; reveals never block.
var ErrNotReady = errors.New("randomness not ready")

type RequestID uint64

// Oracle is the two-phase commit/reveal randomness source. Request commits
// now; the seed becomes readable later and must not be derivable from the
// request id alone.
type Oracle interface {
	Request() RequestID
	IsReady(id RequestID) bool
	Reveal(id RequestID) (Seed, error)
}

// CommitRevealOracle fulfills pending requests with crypto/rand entropy.
// Requests become readable only after Fulfill (typically driven by an
// external scheduler, one fulfillment sweep per block/turn boundary).
type CommitRevealOracle struct {
	mu      sync.Mutex
	nextID  RequestID
	pending map[RequestID]struct{}
	seeds   map[RequestID]Seed
}

func NewCommitRevealOracle() *CommitRevealOracle {
	return &CommitRevealOracle{
		pending: map[RequestID]struct{}{},
		seeds:   map[RequestID]Seed{},
	}
}

func (o *CommitRevealOracle) Request() RequestID {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	id := o.nextID
	o.pending[id] = struct{}{}
	return id
}

func (o *CommitRevealOracle) IsReady(id RequestID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.seeds[id]
	return ok
}

func (o *CommitRevealOracle) Reveal(id RequestID) (Seed, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.seeds[id]; ok {
		return s, nil
	}
	if _, ok := o.pending[id]; ok {
		return Seed{}, ErrNotReady
	}
	return Seed{}, fmt.Errorf("unknown randomness request %d", id)
}

// Fulfill reveals every pending request.
func (o *CommitRevealOracle) Fulfill() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id := range o.pending {
		var s Seed
		if _, err := rand.Read(s[:]); err != nil {
			return err
		}
		o.seeds[id] = s
		delete(o.pending, id)
	}
	return nil
}

// ScriptedOracle derives seeds deterministically from a base seed and the
// request id. Requests are ready immediately unless Hold is set. Test use.
type ScriptedOracle struct {
	Base Seed
	Hold bool

	mu     sync.Mutex
	nextID RequestID
	held   map[RequestID]struct{}
}

func NewScriptedOracle(base Seed) *ScriptedOracle {
	return &ScriptedOracle{Base: base, held: map[RequestID]struct{}{}}
}

func (o *ScriptedOracle) Request() RequestID {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	id := o.nextID
	if o.Hold {
		o.held[id] = struct{}{}
	}
	return id
}

func (o *ScriptedOracle) IsReady(id RequestID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if id == 0 || id > o.nextID {
		return false
	}
	_, held := o.held[id]
	return !held
}

func (o *ScriptedOracle) Reveal(id RequestID) (Seed, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if id == 0 || id > o.nextID {
		return Seed{}, fmt.Errorf("unknown randomness request %d", id)
	}
	if _, held := o.held[id]; held {
		return Seed{}, ErrNotReady
	}
	return DeriveIndexed(o.Base, "scripted", uint64(id)), nil
}

// Release makes every held request readable.
func (o *ScriptedOracle) Release() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.held = map[RequestID]struct{}{}
}
