package corert

import "unsafe"

// capAddr returns the address of s's underlying array, used only to test
// whether one slice's backing storage is a sub-range of another's (arena
// ownership checks). No pointer arithmetic beyond comparison is performed.
func capAddr(s []byte) int {
	return int(uintptr(unsafe.Pointer(unsafe.SliceData(s))))
}
