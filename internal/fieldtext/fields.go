package fieldtext

import "strings"

// Separator is the ASCII unit separator joining a note's fields in flds.
const Separator = "\x1f"

// JoinFields encodes ordered field values into a single flds value.
func JoinFields(fields ...string) string {
	return strings.Join(fields, Separator)
}

// SplitFields decodes a flds value into its field values.
func SplitFields(flds string) []string {
	return strings.Split(flds, Separator)
}
