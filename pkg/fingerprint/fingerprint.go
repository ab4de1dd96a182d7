// Package fingerprint produces deterministic content fingerprints used to
// deduplicate raw memory submissions.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Content fingerprints a raw memory. Whitespace is collapsed so a resent
// message with different spacing still deduplicates, but any content change
// produces a new fingerprint.
func Content(userID, content string) string {
	normalized := strings.Join(strings.Fields(content), " ")
	hash := sha256.Sum256([]byte(userID + "\x00" + normalized))
	return hex.EncodeToString(hash[:])
}
