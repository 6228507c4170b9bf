package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// JobID derives the stable identity for a posting. The URL is canonicalized
// by stripping the query string, lowercasing, and trimming, so tracking
// parameters do not split one real-world posting into several identities.
// Title and company act as the fallback discriminator when the URL is empty
// or uninformative.
func JobID(url, title, company string) string {
	normalized, _, _ := strings.Cut(url, "?")
	normalized = strings.ToLower(strings.TrimSpace(normalized))

	composite := normalized + "|" +
		strings.ToLower(strings.TrimSpace(title)) + "|" +
		strings.ToLower(strings.TrimSpace(company))

	sum := sha256.Sum256([]byte(composite))
	return hex.EncodeToString(sum[:])[:16]
}

// ContentHash fingerprints a job description so unchanged postings can be
// recognized across runs without re-reading the full text.
func ContentHash(description string) string {
	sum := sha256.Sum256([]byte(description))
	return hex.EncodeToString(sum[:])[:16]
}
