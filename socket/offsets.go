package socket

import "unicode/utf16"

// The page counts cursor positions in UTF-16 code units; the session counts
// bytes.

// byteOffset converts a UTF-16 offset into s to a byte offset. Offsets that
// fall inside a surrogate pair round up to the next rune.
func byteOffset(s string, units int) int {
	if units <= 0 {
		return 0
	}
	n := 0
	for i, r := range s {
		if n >= units {
			return i
		}
		n += utf16.RuneLen(r)
	}
	return len(s)
}

// utf16Offset converts a byte offset into s to a UTF-16 offset.
func utf16Offset(s string, off int) int {
	n := 0
	for i, r := range s {
		if i >= off {
			break
		}
		n += utf16.RuneLen(r)
	}
	return n
}
