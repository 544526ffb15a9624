package corert

import "testing"

func TestObjVecPushFullFails(t *testing.T) {
	storage := make([]Value, 2)
	v := NewObjVec(storage)
	if err := v.Push(I64(1)); err != nil {
		t.Fatal(err)
	}
	if err := v.Push(I64(2)); err != nil {
		t.Fatal(err)
	}
	if err := v.Push(I64(3)); !IsKind(err, KindNoMem) {
		t.Fatalf("expected NOMEM, got %v", err)
	}
	if v.Len() != 2 {
		t.Fatalf("expected len 2, got %d", v.Len())
	}
}

func TestByteVecChainSkipsAfterError(t *testing.T) {
	storage := make([]byte, 4)
	v := NewByteVec(storage)
	var err error
	v.ChainAppend(&err, Str("abcd"))
	v.ChainAppend(&err, Str("e")) // should fail: vector full
	if !IsKind(err, KindNoMem) {
		t.Fatalf("expected NOMEM, got %v", err)
	}
	v.ChainPush(&err, 'z') // should be skipped, error remains NOMEM unchanged
	if !IsKind(err, KindNoMem) {
		t.Fatalf("chained op after error should be skipped, got %v", err)
	}
	if v.Bytes().String() != "abcd" {
		t.Fatalf("unexpected buffer contents: %q", v.Bytes().String())
	}
}

func TestKVVecAndBufVec(t *testing.T) {
	kvStorage := make([]KV, 1)
	kv := NewKVVec(kvStorage)
	if err := kv.Push(KV{Key: Str("a"), Val: I64(1)}); err != nil {
		t.Fatal(err)
	}
	if err := kv.Push(KV{Key: Str("b"), Val: I64(2)}); !IsKind(err, KindNoMem) {
		t.Fatalf("expected NOMEM, got %v", err)
	}

	bufStorage := make([]Buffer, 2)
	bv := NewBufVec(bufStorage)
	if err := bv.Push(Str("a/b")); err != nil {
		t.Fatal(err)
	}
	if bv.Len() != 1 {
		t.Fatalf("expected len 1, got %d", bv.Len())
	}
}
