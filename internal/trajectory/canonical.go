package trajectory

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// goalHashDomain separates goal-derived filenames from any other use of
// SHA-256 in this module. The version suffix allows future migration.
const goalHashDomain = "retrace/goal/v1"

// CanonicalGoal returns the canonical form of a goal string: NFC
// normalized with surrounding whitespace trimmed. Two goals with the same
// canonical form map to the same cache file.
func CanonicalGoal(goal string) string {
	return norm.NFC.String(strings.TrimSpace(goal))
}

// GoalFileName derives a stable cache filename from a goal. The name is
// the first 16 hex characters of a domain-separated SHA-256 over the
// canonical goal, with a .json suffix. Visually distinct goals that differ
// only in Unicode normalization or surrounding whitespace share a file.
func GoalFileName(goal string) string {
	h := sha256.New()
	h.Write([]byte(goalHashDomain))
	h.Write([]byte{0x00})
	h.Write([]byte(CanonicalGoal(goal)))
	return hex.EncodeToString(h.Sum(nil))[:16] + ".json"
}
