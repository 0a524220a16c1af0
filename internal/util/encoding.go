package util

import "golang.org/x/text/unicode/norm"

// Normalize maps visually identical passphrases to the same bytes so the
// derived key does not depend on how a keyboard composed the characters.
func Normalize(s string) string {
	return norm.NFKD.String(s)
}
