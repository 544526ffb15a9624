package mqtt

import (
	"bytes"
	"testing"
)

func TestPublishStoreRetrieveRoundTrip(t *testing.T) {
	s := NewPublishStore()
	data := []byte("hello publish")
	if err := s.Store(1, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := s.Retrieve(1)
	if !ok || !bytes.Equal(got, data) {
		t.Fatalf("retrieve mismatch: got %q ok=%v", got, ok)
	}
}

func TestPublishStoreRetrieveMissing(t *testing.T) {
	s := NewPublishStore()
	_, ok := s.Retrieve(99)
	if ok {
		t.Fatal("expected missing packet id to not be found")
	}
}

func TestPublishStoreCompactionOnClear(t *testing.T) {
	s := NewPublishStore()

	p100 := bytes.Repeat([]byte{0xAA}, 100)
	p50 := bytes.Repeat([]byte{0xBB}, 50)
	p75 := bytes.Repeat([]byte{0xCC}, 75)

	if err := s.Store(1, p100); err != nil {
		t.Fatalf("store 1: %v", err)
	}
	if err := s.Store(2, p50); err != nil {
		t.Fatalf("store 2: %v", err)
	}
	if err := s.Store(3, p75); err != nil {
		t.Fatalf("store 3: %v", err)
	}

	if !s.Clear(1) {
		t.Fatal("expected clear of packet 1 to succeed")
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 remaining records, got %d", s.Len())
	}

	// Packets 2 and 3 must have slid down to fill the 100-byte gap and
	// still be retrievable intact.
	got2, ok := s.Retrieve(2)
	if !ok || !bytes.Equal(got2, p50) {
		t.Fatalf("packet 2 corrupted after compaction: ok=%v", ok)
	}
	got3, ok := s.Retrieve(3)
	if !ok || !bytes.Equal(got3, p75) {
		t.Fatalf("packet 3 corrupted after compaction: ok=%v", ok)
	}

	// The buffer must now have contiguous free space at the end: storing
	// a packet that only fits if the 100-byte gap was reclaimed proves
	// compaction actually happened rather than leaving a hole.
	big := make([]byte, unackedBufferSize-50-75)
	if err := s.Store(4, big); err != nil {
		t.Fatalf("expected compacted space to fit packet 4: %v", err)
	}
}

func TestPublishStoreClearMissingReturnsFalse(t *testing.T) {
	s := NewPublishStore()
	if s.Clear(42) {
		t.Fatal("expected clearing an absent packet id to report false")
	}
}

func TestPublishStoreFullRecordTable(t *testing.T) {
	s := NewPublishStore()
	for i := uint16(1); i <= maxPublishRecords; i++ {
		if err := s.Store(i, []byte{byte(i)}); err != nil {
			t.Fatalf("store %d: %v", i, err)
		}
	}
	if err := s.Store(maxPublishRecords+1, []byte{0}); err == nil {
		t.Fatal("expected NOMEM once record table is full")
	}
}

func TestPublishStoreBufferExhaustion(t *testing.T) {
	s := NewPublishStore()
	if err := s.Store(1, make([]byte, unackedBufferSize+1)); err == nil {
		t.Fatal("expected NOMEM when packet exceeds total buffer capacity")
	}
}
