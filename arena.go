package corert

// Arena is a bump allocator backed by a fixed byte buffer, grounded on
// original_source/ggl-lib/src/arena.c. index advances monotonically;
// resetting the arena (constructing a fresh one over the same backing
// buffer) invalidates every pointer derived from it, so arenas are never
// pooled or reused across a reset in this runtime. Not thread-safe: each
// arena has a single owner.
type Arena struct {
	mem   []byte
	index uint32
}

// NewArena returns an Arena backed by buf. Capacity is capped at
// math.MaxUint32, matching the C arena's uint32_t CAPACITY field.
func NewArena(buf []byte) *Arena {
	cap64 := len(buf)
	if cap64 > int(^uint32(0)) {
		buf = buf[:^uint32(0)]
	}
	return &Arena{mem: buf}
}

// Cap returns the arena's total capacity in bytes.
func (a *Arena) Cap() uint32 {
	return uint32(len(a.mem))
}

// Index returns the current bump-allocation offset.
func (a *Arena) Index() uint32 {
	return a.index
}

// Alloc allocates size bytes aligned to align (a power of two), or returns
// NOMEM without mutating the arena if there isn't room. Pad bytes between
// allocations are left unspecified (zero, here, since Go slices are
// zero-initialized).
func (a *Arena) Alloc(size int, align int) ([]byte, error) {
	if align <= 0 || (align&(align-1)) != 0 {
		return nil, NewErr("arena_alloc", KindInvalid, "alignment must be a power of two")
	}
	if size < 0 {
		return nil, NewErr("arena_alloc", KindInvalid, "negative size")
	}

	cap := uint32(len(a.mem))
	alignU := uint32(align)
	pad := (alignU - (a.index & (alignU - 1))) & (alignU - 1)

	if pad > cap-a.index {
		return nil, NewErr("arena_alloc", KindNoMem, "insufficient memory for padding")
	}
	idx := a.index + pad

	if uint32(size) > cap-idx {
		return nil, NewErr("arena_alloc", KindNoMem, "insufficient memory to alloc")
	}

	a.index = idx + uint32(size)
	return a.mem[idx:a.index:a.index], nil
}

// AllocBytes is a convenience wrapper returning a Buffer-typed allocation
// byte-aligned (alignment 1), used when copying raw byte runs such as
// Value buffers and map keys.
func (a *Arena) AllocBytes(n int) (Buffer, error) {
	b, err := a.Alloc(n, 1)
	if err != nil {
		return nil, err
	}
	return Buffer(b), nil
}

// ResizeLast resizes the most recent allocation in place. It fails INVALID
// if ptr is not owned by the arena or does not end exactly at the current
// index, and NOMEM if the new size would overflow capacity.
func (a *Arena) ResizeLast(ptr []byte, oldSize, newSize int) ([]byte, error) {
	if !a.ownsPtr(ptr) {
		return nil, NewErr("arena_resize_last", KindInvalid, "pointer not owned")
	}

	idx := a.offsetOf(ptr)
	if idx > a.index {
		return nil, NewErr("arena_resize_last", KindInvalid, "pointer out of allocated range")
	}
	if int(a.index-idx) != oldSize {
		return nil, NewErr("arena_resize_last", KindInvalid, "old size does not match allocation index")
	}

	cap := uint32(len(a.mem))
	if uint32(newSize) > cap-idx {
		return nil, NewErr("arena_resize_last", KindNoMem, "insufficient memory to resize")
	}

	a.index = idx + uint32(newSize)
	return a.mem[idx:a.index:a.index], nil
}

// Owns returns true iff ptr's backing array is this arena's memory and
// lies within [base, base+capacity).
func (a *Arena) Owns(ptr []byte) bool {
	return a.ownsPtr(ptr)
}

func (a *Arena) ownsPtr(ptr []byte) bool {
	off := sliceOffset(a.mem, ptr)
	return off >= 0 && off < len(a.mem)
}

func (a *Arena) offsetOf(ptr []byte) uint32 {
	off := sliceOffset(a.mem, ptr)
	if off < 0 {
		return ^uint32(0)
	}
	return uint32(off)
}

// sliceOffset returns the byte offset of sub's start within base's
// backing array, or -1 if sub does not alias base.
func sliceOffset(base, sub []byte) int {
	if len(sub) == 0 && len(base) == 0 {
		return 0
	}
	if cap(base) == 0 {
		return -1
	}
	bp := capAddr(base)
	sp := capAddr(sub)
	if sp < bp {
		return -1
	}
	off := sp - bp
	if off > len(base) {
		return -1
	}
	return off
}
