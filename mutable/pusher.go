package mutable

import "context"

type (
	// Pusher allows to push mutations to mutable contexts.
	Pusher struct {
		destinations map[Context]Destination
		mutations    map[Destination]Mutations
	}

	// Destination is a channel that used as source of mutations.
	Destination chan Mutations
)

// NewPusher creates new pusher.
func NewPusher() Pusher {
	return Pusher{
		destinations: make(map[Context]Destination),
		mutations:    make(map[Destination]Mutations),
	}
}

// NewDestination returns a destination with a buffer of one set.
func NewDestination() Destination {
	return make(chan Mutations, 1)
}

// AddDestination adds new mapping of mutable context to destination.
func (p Pusher) AddDestination(ctx Context, d Destination) {
	p.destinations[ctx] = d
}

// Put mutations to the pusher. Function will panic if pusher contains
// unknown context.
func (p Pusher) Put(mutations ...Mutation) {
	for _, m := range mutations {
		if d, ok := p.destinations[m.Context]; ok {
			p.mutations[d] = p.mutations[d].Put(m)
			continue
		}
		panic("unknown mutable context")
	}
}

// Push mutations to the destinations. Mutations that could not be
// delivered before ctx is done stay in the pusher.
func (p Pusher) Push(ctx context.Context) {
	for d, m := range p.mutations {
		if m == nil {
			continue
		}
		select {
		case d <- m:
			p.mutations[d] = nil
		case <-ctx.Done():
			return
		}
	}
}

// Pending returns true if there are mutations that were not pushed yet.
func (p Pusher) Pending() bool {
	for _, m := range p.mutations {
		if m != nil {
			return true
		}
	}
	return false
}
