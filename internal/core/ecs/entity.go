package ecs

// EntityID packs a 32-bit slot index in the low bits and a 32-bit generation
// in the high bits. The generation bumps on destroy, so stale IDs held by
// replication bookkeeping fail the Alive check instead of aliasing a new entity.
type EntityID uint64

func MakeEntityID(index, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == 0 }

// Pool allocates entity IDs from a free list with generational indices.
type Pool struct {
	generations []uint32
	free        []uint32
	next        uint32
}

func NewPool() *Pool {
	return &Pool{
		generations: make([]uint32, 0, 256),
		free:        make([]uint32, 0, 64),
	}
}

func (p *Pool) Create() EntityID {
	if n := len(p.free); n > 0 {
		idx := p.free[n-1]
		p.free = p.free[:n-1]
		return MakeEntityID(idx, p.generations[idx])
	}
	idx := p.next
	p.next++
	if int(idx) >= len(p.generations) {
		p.generations = append(p.generations, 0)
	}
	return MakeEntityID(idx, p.generations[idx])
}

func (p *Pool) Alive(id EntityID) bool {
	idx := id.Index()
	if idx >= p.next {
		return false
	}
	return p.generations[idx] == id.Generation()
}

func (p *Pool) Destroy(id EntityID) {
	idx := id.Index()
	if idx >= p.next {
		return
	}
	if p.generations[idx] != id.Generation() {
		return // stale reference, already destroyed
	}
	p.generations[idx]++
	p.free = append(p.free, idx)
}

// Live returns the number of currently allocated entities.
func (p *Pool) Live() int {
	return int(p.next) - len(p.free)
}
