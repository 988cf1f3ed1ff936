package util

import (
	"crypto/sha256"
	"encoding/hex"
)

func SHA256Hex(b []byte) string {
	x := sha256.Sum256(b)
	return hex.EncodeToString(x[:])
}

// DocumentFingerprint derives a stable document id from normalized text, so
// resubmitting the same text yields the same document id.
func DocumentFingerprint(text string) string {
	return "doc-" + SHA256Hex([]byte(NormalizeDocument(text)))[:16]
}
