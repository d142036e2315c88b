// Package sha256 fingerprints page content for archived snapshots.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest returns the hex-encoded SHA-256 digest of data. Identical page
// bodies always produce the same digest, which makes archived snapshots
// comparable across crawls.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
