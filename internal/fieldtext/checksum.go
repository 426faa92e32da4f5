package fieldtext

import "unicode/utf16"

// checksumModulus is the largest 32-bit signed prime, 2^31 - 1.
const checksumModulus = 2147483647

// Checksum returns the dedup key stored in a note's csum column.
//
// The hash runs h = h*31 + unit over the UTF-16 code units of text with
// int32 wraparound at every step, then folds the result into [0, 2^31-2]
// as abs(h) mod (2^31-1). Importers compare this value bit for bit, so the
// arithmetic must stay in int32.
func Checksum(text string) uint32 {
	var h int32
	for _, unit := range utf16.Encode([]rune(text)) {
		h = h*31 + int32(unit)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return uint32(v % checksumModulus)
}
