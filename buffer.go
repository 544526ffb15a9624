// Package corert is the shared core runtime linked by every edge-agent
// daemon: a dynamic value model over arena allocation, and the error-kind
// taxonomy that all components propagate across the core-bus.
package corert

import "bytes"

// Buffer is a view over bytes. Unlike the C original's (pointer, length)
// pair, a Go slice already carries bounds-checked length and capacity, so
// Buffer is a thin named slice rather than an unsafe pointer pair.
type Buffer []byte

// Str converts a string to a Buffer without copying.
func Str(s string) Buffer {
	return Buffer(s)
}

// String returns the buffer's contents as a string (copies).
func (b Buffer) String() string {
	return string(b)
}

// Eq reports whether two buffers are byte-identical.
func (b Buffer) Eq(other Buffer) bool {
	return bytes.Equal(b, other)
}

// HasSuffix reports whether b ends with suffix.
func (b Buffer) HasSuffix(suffix Buffer) bool {
	return bytes.HasSuffix(b, suffix)
}

// Substr returns the substring of b from start to end, with both endpoints
// clamped into [0, len(b)]. Mirrors ggl_buffer_substr's "overlap between
// the start to end range and the input bounds" semantics.
func (b Buffer) Substr(start, end int) Buffer {
	n := len(b)
	if start < 0 {
		start = 0
	} else if start > n {
		start = n
	}
	if end < 0 {
		end = 0
	} else if end > n {
		end = n
	}
	if end < start {
		end = start
	}
	return b[start:end]
}

// StrToInt64 parses an optionally negative decimal integer. It accepts an
// optional leading '-', then one or more ASCII digits; no whitespace, no
// other sign forms. Overflow during the per-digit multiply-add is detected
// before it is committed, matching ggl_str_to_int64's checked accumulation.
func StrToInt64(b Buffer) (int64, error) {
	if len(b) == 0 {
		return 0, &Err{Op: "str_to_int64", Kind: KindInvalid, Msg: "empty input"}
	}

	neg := false
	i := 0
	if b[0] == '-' {
		neg = true
		i = 1
	}
	if i == len(b) {
		return 0, &Err{Op: "str_to_int64", Kind: KindInvalid, Msg: "no digits"}
	}

	var acc uint64
	for ; i < len(b); i++ {
		c := b[i]
		if c < '0' || c > '9' {
			return 0, &Err{Op: "str_to_int64", Kind: KindInvalid, Msg: "non-digit character"}
		}
		digit := uint64(c - '0')

		// Checked multiply-and-add: detect overflow before committing.
		if acc > (maxUint64/10) || (acc == maxUint64/10 && digit > maxUint64%10) {
			return 0, &Err{Op: "str_to_int64", Kind: KindRange, Msg: "overflow"}
		}
		acc = acc*10 + digit
	}

	if neg {
		// Allow exactly one more magnitude than positive range, for MinInt64.
		if acc > uint64(1)<<63 {
			return 0, &Err{Op: "str_to_int64", Kind: KindRange, Msg: "overflow"}
		}
		return -int64(acc), nil
	}
	if acc > uint64(1)<<63-1 {
		return 0, &Err{Op: "str_to_int64", Kind: KindRange, Msg: "overflow"}
	}
	return int64(acc), nil
}

const maxUint64 = ^uint64(0)
