package chapter

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainBook separates book hashes from any other hashed content.
const DomainBook = "keepsake/book/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash returns a stable identity for an ordered chapter list.
// The same chapters in the same order always hash identically.
func ContentHash(chapters []Chapter) (string, error) {
	list := make([]any, len(chapters))
	for i, c := range chapters {
		list[i] = c.canonicalMap()
	}
	data, err := MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("content hash: %w", err)
	}
	return hashWithDomain(DomainBook, data), nil
}
