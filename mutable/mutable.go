// Package mutable allows to deliver state changes into components that
// are executed in their own goroutines.
package mutable

import (
	"github.com/rs/xid"
)

// immutable context never receives mutations.
var immutable = Context{}

type (
	// Context identifies a block that accepts mutations. Zero value is
	// immutable.
	Context xid.ID

	// Mutation is a change addressed to a block.
	Mutation struct {
		Context
		mutator MutatorFunc
	}

	// Mutations are pending changes grouped by block.
	Mutations map[Context][]MutatorFunc

	// MutatorFunc changes the state of a block.
	MutatorFunc func() error
)

// Mutable returns new unique context.
func Mutable() Context {
	return Context(xid.New())
}

// Mutate addresses the mutator to the context. It panics if context is
// immutable.
func (c Context) Mutate(m MutatorFunc) Mutation {
	if c == immutable {
		panic("mutate immutable")
	}
	return Mutation{
		Context: c,
		mutator: m,
	}
}

func (c Context) String() string {
	return xid.ID(c).String()
}

// Put adds the mutation. Mutations of immutable context are dropped.
func (ms Mutations) Put(m Mutation) Mutations {
	if m.Context == immutable {
		return ms
	}
	if ms == nil {
		return map[Context][]MutatorFunc{m.Context: {m.mutator}}
	}
	ms[m.Context] = append(ms[m.Context], m.mutator)
	return ms
}

// ApplyTo consumes Mutations defined for consumer in this set. All
// mutators are applied in order until the first error.
func (ms Mutations) ApplyTo(id Context) error {
	if ms == nil || id == immutable {
		return nil
	}
	if fns, ok := ms[id]; ok {
		delete(ms, id)
		for _, fn := range fns {
			if err := fn(); err != nil {
				return err
			}
		}
	}
	return nil
}
