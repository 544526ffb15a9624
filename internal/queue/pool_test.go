package queue

import (
	"testing"
)

func TestGetBuffer_SizeBuckets(t *testing.T) {
	tests := []struct {
		name        string
		requestSize uint32
		expectCap   int
	}{
		{"1KB bucket - exact", 1 * 1024, 1 * 1024},
		{"1KB bucket - smaller", 500, 1 * 1024},
		{"4KB bucket - exact", 4 * 1024, 4 * 1024},
		{"4KB bucket - smaller", 2 * 1024, 4 * 1024},
		{"16KB bucket - exact", 16 * 1024, 16 * 1024},
		{"16KB bucket - smaller", 10 * 1024, 16 * 1024},
		{"64KB bucket - exact", 64 * 1024, 64 * 1024},
		{"64KB bucket - smaller", 40 * 1024, 64 * 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := GetBuffer(tt.requestSize)
			if len(buf) != int(tt.requestSize) {
				t.Errorf("GetBuffer(%d) returned len=%d, want %d", tt.requestSize, len(buf), tt.requestSize)
			}
			if cap(buf) != tt.expectCap {
				t.Errorf("GetBuffer(%d) returned cap=%d, want %d", tt.requestSize, cap(buf), tt.expectCap)
			}
			PutBuffer(buf)
		})
	}
}

func TestBufferPool_Reuse(t *testing.T) {
	buf1 := GetBuffer(1 * 1024)
	ptr1 := &buf1[0]
	PutBuffer(buf1)

	buf2 := GetBuffer(1 * 1024)
	ptr2 := &buf2[0]
	PutBuffer(buf2)

	// Note: sync.Pool may or may not reuse immediately, but addresses should be
	// the same when the pool is warm. This test verifies the basic pooling
	// mechanism works without asserting a guarantee sync.Pool doesn't make.
	if ptr1 == ptr2 {
		t.Log("buffer was successfully reused from pool")
	} else {
		t.Log("buffer was not reused (sync.Pool GC behavior)")
	}
}

func TestGetBuffer_Oversized(t *testing.T) {
	buf := GetBuffer(1 << 19)
	if len(buf) != 1<<19 {
		t.Fatalf("expected exact-sized oversized buffer, got len=%d", len(buf))
	}
	PutBuffer(buf) // must not panic on a non-bucket capacity
}

func TestPutBuffer_NonStandardCap(t *testing.T) {
	buf := make([]byte, 3000) // not a standard bucket
	PutBuffer(buf)            // should not panic
}

func BenchmarkGetBuffer_1KB(b *testing.B) {
	for i := 0; i < b.N; i++ {
		buf := GetBuffer(1 * 1024)
		PutBuffer(buf)
	}
}

func BenchmarkGetBuffer_64KB(b *testing.B) {
	for i := 0; i < b.N; i++ {
		buf := GetBuffer(64 * 1024)
		PutBuffer(buf)
	}
}

func BenchmarkMakeBuffer_4KB(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = make([]byte, 4*1024)
	}
}
