package corert

import "testing"

func TestArenaAllocAlignment(t *testing.T) {
	a := NewArena(make([]byte, 64))
	for i := 0; i < 4; i++ {
		p, err := a.Alloc(16, 1)
		if err != nil {
			t.Fatalf("alloc %d failed: %v", i, err)
		}
		if len(p) != 16 {
			t.Fatalf("alloc %d: got len %d", i, len(p))
		}
	}
	if a.Index() != 64 {
		t.Fatalf("expected index 64, got %d", a.Index())
	}
	// Fifth alloc should fail and not mutate the arena.
	_, err := a.Alloc(16, 1)
	if !IsKind(err, KindNoMem) {
		t.Fatalf("expected NOMEM, got %v", err)
	}
	if a.Index() != 64 {
		t.Fatalf("index mutated on failed alloc: %d", a.Index())
	}
}

func TestArenaAlignedOffsets(t *testing.T) {
	a := NewArena(make([]byte, 64))
	_, err := a.Alloc(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	p, err := a.Alloc(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	off := a.offsetOf(p)
	if off%8 != 0 {
		t.Fatalf("expected 8-byte aligned offset, got %d", off)
	}
}

func TestArenaResizeLast(t *testing.T) {
	a := NewArena(make([]byte, 32))
	p, err := a.Alloc(8, 1)
	if err != nil {
		t.Fatal(err)
	}
	copy(p, []byte("abcdefgh"))

	grown, err := a.ResizeLast(p, 8, 16)
	if err != nil {
		t.Fatalf("resize failed: %v", err)
	}
	if string(grown[:8]) != "abcdefgh" {
		t.Fatalf("resize corrupted existing bytes: %q", grown[:8])
	}

	// Resizing a pointer that is no longer the last allocation fails.
	_, err = a.Alloc(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	_, err = a.ResizeLast(p, 16, 20)
	if !IsKind(err, KindInvalid) {
		t.Fatalf("expected INVALID resizing stale ptr, got %v", err)
	}
}

func TestArenaResizeLastOverflow(t *testing.T) {
	a := NewArena(make([]byte, 16))
	p, err := a.Alloc(4, 1)
	if err != nil {
		t.Fatal(err)
	}
	_, err = a.ResizeLast(p, 4, 100)
	if !IsKind(err, KindNoMem) {
		t.Fatalf("expected NOMEM, got %v", err)
	}
}

func TestArenaOwns(t *testing.T) {
	a := NewArena(make([]byte, 16))
	p, err := a.Alloc(4, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Owns(p) {
		t.Fatal("expected arena to own its own allocation")
	}
	other := NewArena(make([]byte, 16))
	q, err := other.Alloc(4, 1)
	if err != nil {
		t.Fatal(err)
	}
	if a.Owns(q) {
		t.Fatal("expected arena to not own another arena's allocation")
	}
}
