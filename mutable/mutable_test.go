package mutable_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/pipelined/esdr/mutable"
)

// tunable is a block with a frequency that is changed by mutations.
type tunable struct {
	mutable.Context
	freq    float64
	updates int
}

func (b *tunable) tune(freq float64) mutable.Mutation {
	return b.Mutate(func() error {
		b.freq = freq
		b.updates++
		return nil
	})
}

// updates per block, the last one is expected to be applied.
type plan [][]float64

func (p plan) blocks() []*tunable {
	blocks := make([]*tunable, len(p))
	for i := range blocks {
		blocks[i] = &tunable{Context: mutable.Mutable()}
	}
	return blocks
}

func (p plan) expect(t *testing.T, blocks []*tunable) {
	t.Helper()
	for i, updates := range p {
		var freq float64
		if len(updates) > 0 {
			freq = updates[len(updates)-1]
		}
		assertEqual(t, "freq", blocks[i].freq, freq)
		assertEqual(t, "updates", blocks[i].updates, len(updates))
	}
}

var plans = []plan{
	{{90.9}},
	{{90.9, 100.1}},
	{{88.0, 95.5, 100.1}, {101.7}},
	{{104.2}, {}},
}

func TestPut(t *testing.T) {
	for _, p := range plans {
		blocks := p.blocks()
		var ms mutable.Mutations
		for i, updates := range p {
			for _, freq := range updates {
				ms = ms.Put(blocks[i].tune(freq))
			}
		}
		for _, b := range blocks {
			assertEqual(t, "apply", ms.ApplyTo(b.Context), nil)
			// mutations are consumed
			assertEqual(t, "consumed", ms.ApplyTo(b.Context), nil)
		}
		p.expect(t, blocks)
		assertEqual(t, "empty", len(ms), 0)
	}
}

func TestImmutable(t *testing.T) {
	var immutable mutable.Context
	assertPanic(t, func() {
		immutable.Mutate(func() error {
			return nil
		})
	})

	var ms mutable.Mutations
	ms = ms.Put(mutable.Mutation{})
	assertEqual(t, "ignored", ms == nil, true)
	assertEqual(t, "apply", ms.ApplyTo(immutable), nil)
}

func TestApplyError(t *testing.T) {
	errTune := errors.New("tune failed")
	ctx := mutable.Mutable()
	var calls int
	var ms mutable.Mutations
	ms = ms.Put(ctx.Mutate(func() error {
		calls++
		return errTune
	}))
	ms = ms.Put(ctx.Mutate(func() error {
		calls++
		return nil
	}))
	err := ms.ApplyTo(ctx)
	assertEqual(t, "error", errors.Is(err, errTune), true)
	assertEqual(t, "calls", calls, 1)
	assertEqual(t, "consumed", len(ms), 0)
}

func TestContextString(t *testing.T) {
	ctx := mutable.Mutable()
	assertEqual(t, "length", len(ctx.String()), 20)
	assertEqual(t, "unique", ctx != mutable.Mutable(), true)
}

func assertEqual(t *testing.T, name string, result, expected interface{}) {
	t.Helper()
	if !reflect.DeepEqual(expected, result) {
		t.Fatalf("%v\nresult: \t%T\t%+v \nexpected: \t%T\t%+v", name, result, result, expected, expected)
	}
}

func assertPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic")
		}
	}()
	fn()
}
