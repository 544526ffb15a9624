package corert

import "testing"

func TestValidateMissingRequired(t *testing.T) {
	m := []KV{{Key: Str("payload"), Val: BufVal(Str("x"))}}
	var topic Value
	err := Validate(m, []SchemaEntry{
		{Key: Str("topic"), Required: true, Type: KindBuf, Out: &topic},
	})
	if !IsKind(err, KindNoEntry) {
		t.Fatalf("expected NOENTRY, got %v", err)
	}
}

func TestValidateWrongType(t *testing.T) {
	m := []KV{{Key: Str("topic"), Val: I64(42)}}
	var topic Value
	err := Validate(m, []SchemaEntry{
		{Key: Str("topic"), Required: true, Type: KindBuf, Out: &topic},
	})
	if !IsKind(err, KindParse) {
		t.Fatalf("expected PARSE, got %v", err)
	}
}

func TestValidateOptionalMissingLeavesOutUnset(t *testing.T) {
	m := []KV{{Key: Str("topic"), Val: BufVal(Str("a/b"))}}
	var topic, qos Value
	qos = I64(-1) // sentinel to confirm it's left untouched
	err := Validate(m, []SchemaEntry{
		{Key: Str("topic"), Required: true, Type: KindBuf, Out: &topic},
		{Key: Str("qos"), Required: false, Type: KindI64, Out: &qos},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if topic.Buf.String() != "a/b" {
		t.Fatalf("topic not bound: %+v", topic)
	}
	if qos.I != -1 {
		t.Fatalf("optional-missing entry should not be touched: %+v", qos)
	}
}

func TestValidateAcceptsValidPublish(t *testing.T) {
	m := []KV{
		{Key: Str("topic"), Val: BufVal(Str("a/b/c"))},
		{Key: Str("payload"), Val: BufVal(Buffer{1, 2})},
		{Key: Str("qos"), Val: I64(1)},
	}
	var topic, payload, qos Value
	err := Validate(m, []SchemaEntry{
		{Key: Str("topic"), Required: true, Type: KindBuf, Out: &topic},
		{Key: Str("payload"), Required: false, Type: KindBuf, Out: &payload},
		{Key: Str("qos"), Required: false, Type: KindI64, Out: &qos},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if topic.Buf.String() != "a/b/c" || qos.I != 1 {
		t.Fatalf("bindings incorrect: topic=%+v qos=%+v", topic, qos)
	}
}
