package corert

// ObjVec, KVVec, ByteVec and BufVec are bounded builders over
// caller-provided storage, grounded on original_source/ggl-lib/include/ggl/vector.h.
// Push fails with NOMEM when full. The "chain" variants take an error
// accumulator by reference: if it is already non-OK the operation is
// skipped, so a sequence of appends can be issued back to back and the
// accumulated error inspected once at the end.

// ObjVec is a fixed-capacity Value list builder.
type ObjVec struct {
	items []Value
	len   int
}

// NewObjVec wraps storage (of the desired capacity) as an ObjVec.
func NewObjVec(storage []Value) *ObjVec {
	return &ObjVec{items: storage}
}

func (v *ObjVec) Len() int        { return v.len }
func (v *ObjVec) List() []Value   { return v.items[:v.len] }
func (v *ObjVec) Cap() int        { return len(v.items) }

func (v *ObjVec) Push(val Value) error {
	if v.len >= len(v.items) {
		return NewErr("obj_vec_push", KindNoMem, "vector full")
	}
	v.items[v.len] = val
	v.len++
	return nil
}

func (v *ObjVec) Pop() (Value, error) {
	if v.len == 0 {
		return Value{}, NewErr("obj_vec_pop", KindRange, "vector empty")
	}
	v.len--
	return v.items[v.len], nil
}

func (v *ObjVec) ChainPush(errAcc *error, val Value) {
	if *errAcc != nil {
		return
	}
	*errAcc = v.Push(val)
}

// KVVec is a fixed-capacity map-entry builder.
type KVVec struct {
	pairs []KV
	len   int
}

func NewKVVec(storage []KV) *KVVec {
	return &KVVec{pairs: storage}
}

func (v *KVVec) Len() int    { return v.len }
func (v *KVVec) Map() []KV   { return v.pairs[:v.len] }
func (v *KVVec) Cap() int    { return len(v.pairs) }

func (v *KVVec) Push(kv KV) error {
	if v.len >= len(v.pairs) {
		return NewErr("kv_vec_push", KindNoMem, "vector full")
	}
	v.pairs[v.len] = kv
	v.len++
	return nil
}

func (v *KVVec) ChainPush(errAcc *error, kv KV) {
	if *errAcc != nil {
		return
	}
	*errAcc = v.Push(kv)
}

// ByteVec is a fixed-capacity byte-buffer builder.
type ByteVec struct {
	buf []byte
	len int
}

func NewByteVec(storage []byte) *ByteVec {
	return &ByteVec{buf: storage}
}

func (v *ByteVec) Len() int     { return v.len }
func (v *ByteVec) Bytes() Buffer { return Buffer(v.buf[:v.len]) }
func (v *ByteVec) Cap() int     { return len(v.buf) }

func (v *ByteVec) Append(b Buffer) error {
	if v.len+len(b) > len(v.buf) {
		return NewErr("byte_vec_append", KindNoMem, "vector full")
	}
	copy(v.buf[v.len:], b)
	v.len += len(b)
	return nil
}

func (v *ByteVec) Push(c byte) error {
	return v.Append(Buffer{c})
}

func (v *ByteVec) ChainAppend(errAcc *error, b Buffer) {
	if *errAcc != nil {
		return
	}
	*errAcc = v.Append(b)
}

func (v *ByteVec) ChainPush(errAcc *error, c byte) {
	if *errAcc != nil {
		return
	}
	*errAcc = v.Push(c)
}

// BufVec is a fixed-capacity builder of Buffer views (used for batching
// MQTT topic filters before a single SUBSCRIBE/UNSUBSCRIBE packet).
type BufVec struct {
	bufs []Buffer
	len  int
}

func NewBufVec(storage []Buffer) *BufVec {
	return &BufVec{bufs: storage}
}

func (v *BufVec) Len() int       { return v.len }
func (v *BufVec) List() []Buffer { return v.bufs[:v.len] }
func (v *BufVec) Cap() int       { return len(v.bufs) }

func (v *BufVec) Push(b Buffer) error {
	if v.len >= len(v.bufs) {
		return NewErr("buf_vec_push", KindNoMem, "vector full")
	}
	v.bufs[v.len] = b
	v.len++
	return nil
}

func (v *BufVec) ChainPush(errAcc *error, b Buffer) {
	if *errAcc != nil {
		return
	}
	*errAcc = v.Push(b)
}
