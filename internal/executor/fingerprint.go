package executor

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/ledgerworks/taxpass/internal/model"
)

// normalizeDescription lowercases and collapses whitespace so trivially
// different statement renderings of the same merchant share a cache entry.
func normalizeDescription(desc string) string {
	return strings.Join(strings.Fields(strings.ToLower(desc)), " ")
}

// Fingerprint derives the cache key component for one (transaction, pass)
// pair. Two transactions with the same normalized description and the same
// amount bucket fingerprint identically, which is what lets repeated
// merchants reuse classification results. The pass is mixed in because the
// three passes produce differently shaped results.
func Fingerprint(clientID, description string, amount float64, pass model.Pass) string {
	h := sha256.New()
	h.Write([]byte(clientID))
	h.Write([]byte{0})
	h.Write([]byte(normalizeDescription(description)))
	h.Write([]byte{0})
	h.Write([]byte(model.AmountBucketKey(amount)))
	h.Write([]byte{0})
	h.Write([]byte(pass.String()))
	return hex.EncodeToString(h.Sum(nil))
}
