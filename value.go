package corert

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindI64
	KindF64
	KindBuf
	KindList
	KindMap
)

// KV is a single map entry. Key uniqueness within a Map is a caller
// invariant, not enforced on insert.
type KV struct {
	Key Buffer
	Val Value
}

// Value is a tagged union over {null, bool, i64, f64, buf, list, map}. List
// and Map hold Go slices — already bounds-checked, aliasable views — rather
// than raw pointers, per the "index-based representation... recommended
// shape" design note.
type Value struct {
	Kind ValueKind
	B    bool
	I    int64
	F    float64
	Buf  Buffer
	List []Value
	Map  []KV
}

func Null() Value                { return Value{Kind: KindNull} }
func Bool(b bool) Value          { return Value{Kind: KindBool, B: b} }
func I64(i int64) Value          { return Value{Kind: KindI64, I: i} }
func F64(f float64) Value        { return Value{Kind: KindF64, F: f} }
func BufVal(b Buffer) Value      { return Value{Kind: KindBuf, Buf: b} }
func StrVal(s string) Value      { return BufVal(Str(s)) }
func ListVal(l []Value) Value    { return Value{Kind: KindList, List: l} }
func MapVal(m []KV) Value        { return Value{Kind: KindMap, Map: m} }

// MapGet performs a linear, first-match, byte-exact lookup by key.
func MapGet(m []KV, key Buffer) (Value, bool) {
	for _, kv := range m {
		if kv.Key.Eq(key) {
			return kv.Val, true
		}
	}
	return Value{}, false
}

// DeepCopy recursively walks list, map and buf variants and copies them.
// Buf bytes and map keys are copied into the arena; the List and Map
// element slices are fresh Go-heap slices, not arena memory. Empty buffers,
// lists and maps are returned as they are. Scalar variants are untouched.
// On allocation failure the partially copied structure is left observable;
// the caller must discard the result.
func DeepCopy(v Value, a *Arena) (Value, error) {
	switch v.Kind {
	case KindNull, KindBool, KindI64, KindF64:
		return v, nil
	case KindBuf:
		if len(v.Buf) == 0 {
			return v, nil
		}
		dst, err := a.AllocBytes(len(v.Buf))
		if err != nil {
			return v, WrapErr("deep_copy", err)
		}
		copy(dst, v.Buf)
		v.Buf = dst
		return v, nil
	case KindList:
		if len(v.List) == 0 {
			return v, nil
		}
		newList := make([]Value, len(v.List))
		copy(newList, v.List)
		v.List = newList
		for i := range newList {
			cp, err := DeepCopy(newList[i], a)
			if err != nil {
				v.List[i] = cp
				return v, err
			}
			newList[i] = cp
		}
		return v, nil
	case KindMap:
		if len(v.Map) == 0 {
			return v, nil
		}
		newMap := make([]KV, len(v.Map))
		copy(newMap, v.Map)
		v.Map = newMap
		for i := range newMap {
			keyDst, err := a.AllocBytes(len(newMap[i].Key))
			if err != nil {
				return v, WrapErr("deep_copy", err)
			}
			copy(keyDst, newMap[i].Key)
			newMap[i].Key = keyDst

			cp, err := DeepCopy(newMap[i].Val, a)
			newMap[i].Val = cp
			if err != nil {
				return v, err
			}
		}
		return v, nil
	default:
		return v, NewErr("deep_copy", KindFailure, "unknown value kind")
	}
}
