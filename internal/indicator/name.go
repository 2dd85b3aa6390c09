package indicator

import (
	"golang.org/x/text/unicode/norm"
)

// NormalizeName returns the Unicode NFC form of an indicator name. Registries
// store and look up names in this form, so "Café" typed with a combining
// accent still resolves. Whitespace is significant: "{ A }" names " A ".
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}
