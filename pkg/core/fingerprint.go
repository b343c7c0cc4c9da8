package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Fingerprint computes the content hash used to deduplicate evaluation work.
// The serialized form is NFC-normalized and trimmed first so that two genes
// whose text differs only in unicode composition or surrounding whitespace
// share a fingerprint and therefore a cached score.
func Fingerprint(gene Gene) string {
	text := norm.NFC.String(strings.TrimSpace(gene.ToText()))
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
