package corebus

import (
	"github.com/vaneuver/corert"
)

// ValueToWire converts a corert.Value into a representation msgpack can
// encode directly: scalars pass through, KindBuf becomes []byte, KindList
// becomes []any and KindMap becomes map[string]any (core-bus params/results
// are always string-keyed in practice; a non-string key is encoded via its
// buffer's string form). Exported so other packages that round-trip a
// corert.Value through msgpack (configd's on-disk store) use the identical
// wire shape as the transport itself.
func ValueToWire(v corert.Value) any {
	return toWire(v)
}

func toWire(v corert.Value) any {
	switch v.Kind {
	case corert.KindNull:
		return nil
	case corert.KindBool:
		return v.B
	case corert.KindI64:
		return v.I
	case corert.KindF64:
		return v.F
	case corert.KindBuf:
		return []byte(v.Buf)
	case corert.KindList:
		out := make([]any, len(v.List))
		for i, e := range v.List {
			out[i] = toWire(e)
		}
		return out
	case corert.KindMap:
		out := make(map[string]any, len(v.Map))
		for _, kv := range v.Map {
			out[kv.Key.String()] = toWire(kv.Val)
		}
		return out
	default:
		return nil
	}
}

// ValueFromWire converts a decoded msgpack value back into a corert.Value.
// See ValueToWire.
func ValueFromWire(x any) corert.Value {
	return fromWire(x)
}

func fromWire(x any) corert.Value {
	switch t := x.(type) {
	case nil:
		return corert.Null()
	case bool:
		return corert.Bool(t)
	case int64:
		return corert.I64(t)
	case int:
		return corert.I64(int64(t))
	case uint64:
		return corert.I64(int64(t))
	case float64:
		return corert.F64(t)
	case float32:
		return corert.F64(float64(t))
	case []byte:
		return corert.BufVal(corert.Buffer(t))
	case string:
		return corert.StrVal(t)
	case []any:
		list := make([]corert.Value, len(t))
		for i, e := range t {
			list[i] = fromWire(e)
		}
		return corert.ListVal(list)
	case map[string]any:
		kvs := make([]corert.KV, 0, len(t))
		for k, val := range t {
			kvs = append(kvs, corert.KV{Key: corert.Str(k), Val: fromWire(val)})
		}
		return corert.MapVal(kvs)
	default:
		return corert.Null()
	}
}
