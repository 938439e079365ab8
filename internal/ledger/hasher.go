package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
)

// ComputeBlockID computes the canonical block id: the lowercase-hex
// SHA-256 digest of the decimal-ASCII height concatenated with the
// lexicographically sorted transaction ids concatenated without
// separators. This exact encoding is a wire contract; changing it breaks
// compatibility with previously submitted block ids.
func ComputeBlockID(height int64, txIDs []string) string {
	sorted := make([]string, len(txIDs))
	copy(sorted, txIDs)
	sort.Strings(sorted)

	buf := make([]byte, 0, 20+len(sorted)*32)
	buf = strconv.AppendInt(buf, height, 10)
	for _, id := range sorted {
		buf = append(buf, id...)
	}

	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}
