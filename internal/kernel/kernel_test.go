package kernel

import (
	"reflect"
	"testing"
)

// counterState is a minimal State implementation for exercising the kernel
// in isolation from the rest of the node.
type counterState struct {
	Value int
	Log   []string
}

type incAction struct{ By int }

func (incAction) Kind() string { return "Inc" }

// IsEnabled refuses to push the counter past 10 — lets us exercise the
// enabling-condition discipline (spec §8.1-2).
func (a incAction) IsEnabled(s State, _ Time) bool {
	return s.(*counterState).Value+a.By <= 10
}

type fanOutAction struct{ N int }

func (fanOutAction) Kind() string { return "FanOut" }

type logAction struct{ Msg string }

func (logAction) Kind() string { return "Log" }

type effectAction struct{ Tag string }

func (effectAction) Kind() string      { return "Effect" }
func (effectAction) Effectful() bool   { return true }

type testReducer struct{}

func (testReducer) Reduce(s State, a Action, meta Meta) []Action {
	cs := s.(*counterState)
	switch act := a.(type) {
	case incAction:
		cs.Value += act.By
		cs.Log = append(cs.Log, "inc")
		return nil
	case fanOutAction:
		children := make([]Action, act.N)
		for i := 0; i < act.N; i++ {
			children[i] = logAction{Msg: "child"}
		}
		return children
	case logAction:
		cs.Log = append(cs.Log, act.Msg)
		return nil
	case effectAction:
		// effectful actions carry no state mutation of their own.
		return nil
	}
	return nil
}

func TestEnablingConditionDropsDisabledAction(t *testing.T) {
	s := &counterState{}
	k := New(s, testReducer{}, nil)

	k.Dispatch(incAction{By: 7}, 1)
	k.Dispatch(incAction{By: 7}, 2) // would bring Value to 14 > 10, must be dropped

	if s.Value != 7 {
		t.Fatalf("expected disabled action to be dropped, Value=%d", s.Value)
	}
	bugs := k.Bugs()
	if len(bugs) != 1 {
		t.Fatalf("expected exactly one bug condition, got %d", len(bugs))
	}
}

func TestChildActionsRunFIFOBeforeNextEvent(t *testing.T) {
	s := &counterState{}
	k := New(s, testReducer{}, nil)

	k.Dispatch(fanOutAction{N: 3}, 1)
	k.Dispatch(logAction{Msg: "after"}, 2)

	want := []string{"child", "child", "child", "after"}
	if !reflect.DeepEqual(s.Log, want) {
		t.Fatalf("got log %v, want %v", s.Log, want)
	}
}

func TestEffectfulActionForwardedToSink(t *testing.T) {
	s := &counterState{}
	var forwarded []string
	sink := func(a Action, _ Meta) {
		if ef, ok := a.(effectAction); ok {
			forwarded = append(forwarded, ef.Tag)
		}
	}
	k := New(s, testReducer{}, sink)
	k.Dispatch(effectAction{Tag: "ping"}, 1)

	if !reflect.DeepEqual(forwarded, []string{"ping"}) {
		t.Fatalf("effect sink did not observe the action: %v", forwarded)
	}
}

func TestReplayIsDeterministic(t *testing.T) {
	s1 := &counterState{}
	k1 := New(s1, testReducer{}, nil)
	k1.Dispatch(incAction{By: 3}, 1)
	k1.Dispatch(fanOutAction{N: 2}, 2)
	k1.Dispatch(incAction{By: 4}, 3)

	replayed := Replay(&counterState{}, testReducer{}, k1.Trace())
	s2 := replayed.State().(*counterState)

	if s1.Value != s2.Value || !reflect.DeepEqual(s1.Log, s2.Log) {
		t.Fatalf("replay diverged: %+v != %+v", s1, s2)
	}
}

func TestDispatchIsNotReentrant(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic on reentrant Dispatch")
		}
	}()
	s := &counterState{}
	var k *Kernel
	reentrant := reducerFunc(func(st State, a Action, _ Meta) []Action {
		if _, ok := a.(logAction); ok {
			k.Dispatch(logAction{Msg: "nested"}, 0)
		}
		return nil
	})
	k = New(s, reentrant, nil)
	k.Dispatch(logAction{Msg: "outer"}, 0)
}

type reducerFunc func(s State, a Action, meta Meta) []Action

func (f reducerFunc) Reduce(s State, a Action, meta Meta) []Action { return f(s, a, meta) }
