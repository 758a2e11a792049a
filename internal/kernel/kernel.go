// Package kernel implements the typed action/reducer state-machine core
// (spec §4.1): every transition is a pure function of (State, Action,
// monotonic time) -> State, with effects expressed as queued effectful
// actions drained by service shims.
package kernel

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Time is the kernel's explicit monotonic clock value — never read from the
// OS clock by a reducer (spec §4.1).
type Time uint64

// Meta is the metadata every dispatched action carries (spec §4.1).
type Meta struct {
	Time  Time
	ID    uint64
	Depth uint32
}

// Action is any event the kernel can dispatch. Kind is used for logging and
// trace replay only; reducers type-switch on the concrete action type.
type Action interface {
	Kind() string
}

// Enabler lets an action declare its enabling condition (spec §4.1). Actions
// that don't implement it are always enabled.
type Enabler interface {
	Action
	IsEnabled(s State, t Time) bool
}

// EffectfulAction marks an action as effectful: it has no state effect of its
// own, but the kernel forwards it to the registered EffectSink after the
// reducer runs (spec §4.1's "effectful boundary").
type EffectfulAction interface {
	Action
	Effectful() bool
}

// State is the kernel's sole mutable value. It is intentionally opaque here —
// internal/state.State satisfies it — so the kernel has no dependency on any
// particular component's shape.
type State interface{}

// Reducer is a pure total function: given the current state and one action,
// mutate state in place and return any child actions to dispatch next, in
// FIFO order, once this reduction returns (spec §4.1).
type Reducer interface {
	Reduce(s State, a Action, meta Meta) []Action
}

// EffectSink receives effectful actions for forwarding to the owning service.
type EffectSink func(a Action, meta Meta)

// Recorded is one entry of a dispatch trace, sufficient (together with the
// initial State) to replay a run deterministically (spec §4.1, §8.1-1).
type Recorded struct {
	Action Action
	Meta   Meta
}

// BugCondition records an action whose enabling condition was false when it
// reached the front of the queue — the core invariant violation spec §4.1
// calls out as something the kernel "must" catch.
type BugCondition struct {
	Action Action
	Time   Time
	Reason string
}

// Kernel owns the single State value and exposes exactly one operation,
// Dispatch (spec §4.1).
type Kernel struct {
	mu          sync.Mutex
	dispatching bool

	state   State
	reducer Reducer
	effects EffectSink
	logger  *logrus.Logger

	nextID uint64
	trace  []Recorded

	// PanicOnBug makes a disabled action panic instead of being silently
	// dropped+recorded — spec §7's bug-condition path says tests should
	// panic, production should log-and-degrade.
	PanicOnBug bool
	bugs       []BugCondition
}

// New constructs a Kernel over an already-initialized State.
func New(state State, reducer Reducer, effects EffectSink) *Kernel {
	return &Kernel{
		state:   state,
		reducer: reducer,
		effects: effects,
		logger:  logrus.StandardLogger(),
	}
}

type queued struct {
	action Action
	meta   Meta
}

// Dispatch is synchronous and non-reentrant (spec §4.1): while a reduction is
// in progress, child actions are collected into a FIFO and processed after
// the current reducer returns, before the kernel accepts the next external
// event.
func (k *Kernel) Dispatch(a Action, t Time) {
	k.mu.Lock()
	if k.dispatching {
		k.mu.Unlock()
		panic("kernel: Dispatch is not reentrant — call from within a reducer is a bug")
	}
	k.dispatching = true
	defer func() {
		k.dispatching = false
		k.mu.Unlock()
	}()

	queue := []queued{{action: a, meta: k.allocMeta(t, 0)}}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]

		if en, ok := e.action.(Enabler); ok && !en.IsEnabled(k.state, e.meta.Time) {
			bug := BugCondition{Action: e.action, Time: e.meta.Time, Reason: "enabling condition false"}
			k.bugs = append(k.bugs, bug)
			if k.PanicOnBug {
				panic(fmt.Sprintf("kernel: bug condition: action %s dispatched while disabled", e.action.Kind()))
			}
			k.logger.WithFields(logrus.Fields{
				"action": e.action.Kind(),
				"time":   e.meta.Time,
			}).Warn("dropped action: enabling condition false")
			continue
		}

		k.trace = append(k.trace, Recorded{Action: e.action, Meta: e.meta})
		children := k.reducer.Reduce(k.state, e.action, e.meta)

		if ef, ok := e.action.(EffectfulAction); ok && ef.Effectful() && k.effects != nil {
			k.effects(e.action, e.meta)
		}

		for _, c := range children {
			queue = append(queue, queued{action: c, meta: k.allocMeta(e.meta.Time, e.meta.Depth+1)})
		}
	}
}

func (k *Kernel) allocMeta(t Time, depth uint32) Meta {
	k.nextID++
	return Meta{Time: t, ID: k.nextID, Depth: depth}
}

// State returns the live state value (for read-only inspection by RPC/tests;
// reducers never receive this reference concurrently, see spec §5).
func (k *Kernel) State() State {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.state
}

// Trace returns the recorded dispatch trace for replay (spec §4.1, §8.1-1).
func (k *Kernel) Trace() []Recorded {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]Recorded, len(k.trace))
	copy(out, k.trace)
	return out
}

// Bugs returns every bug condition observed so far.
func (k *Kernel) Bugs() []BugCondition {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]BugCondition, len(k.bugs))
	copy(out, k.bugs)
	return out
}

// Replay re-dispatches the external (depth-0) actions of a recorded trace
// against a fresh initial state and returns the resulting Kernel. Only
// depth-0 actions are externally caused; everything else is regenerated
// deterministically by the reducer, so replaying the full trace verbatim
// would double-apply child actions (spec §4.1, §8.1-1).
func Replay(initial State, reducer Reducer, trace []Recorded) *Kernel {
	k := New(initial, reducer, nil)
	for _, r := range trace {
		if r.Meta.Depth != 0 {
			continue
		}
		k.Dispatch(r.Action, r.Meta.Time)
	}
	return k
}
