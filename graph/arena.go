package graph

type (
	// slot holds a value and generation of the arena cell.
	slot[T any] struct {
		generation uint32
		used       bool
		value      T
	}

	// arena stores values addressed by generational handles. Removing a
	// value bumps the slot generation, so handles of removed values never
	// address new ones.
	arena[T any] struct {
		slots []slot[T]
		free  []uint32
		len   int
	}
)

func (a *arena[T]) insert(fn func(handle) T) handle {
	var index uint32
	if n := len(a.free); n > 0 {
		index = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		index = uint32(len(a.slots))
		a.slots = append(a.slots, slot[T]{})
	}
	s := &a.slots[index]
	s.generation++
	s.used = true
	h := handle{index: index, generation: s.generation}
	s.value = fn(h)
	a.len++
	return h
}

func (a *arena[T]) get(h handle) (*T, bool) {
	if int(h.index) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[h.index]
	if !s.used || s.generation != h.generation {
		return nil, false
	}
	return &s.value, true
}

func (a *arena[T]) remove(h handle) bool {
	if _, ok := a.get(h); !ok {
		return false
	}
	s := &a.slots[h.index]
	var zero T
	s.value = zero
	s.used = false
	a.free = append(a.free, h.index)
	a.len--
	return true
}

// each calls fn for every value in index order.
func (a *arena[T]) each(fn func(*T)) {
	for i := range a.slots {
		if a.slots[i].used {
			fn(&a.slots[i].value)
		}
	}
}
