package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content fingerprints. The version suffix allows the
// encoding to change without colliding with older fingerprints.
const (
	DomainResult = "hyperjoin/result/v1"
	DomainQuery  = "hyperjoin/query/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data). The null separator
// keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns a content hash of the result set. Two result sets have
// the same fingerprint iff they hold the same rows over the same attributes,
// regardless of how they were enumerated.
func (rs *ResultSet) Fingerprint() (string, error) {
	canonical, err := MarshalCanonical(rs)
	if err != nil {
		return "", fmt.Errorf("result fingerprint: %w", err)
	}
	return hashWithDomain(DomainResult, canonical), nil
}

// Fingerprint returns a content hash of the query schema.
func (q *QuerySpec) Fingerprint() (string, error) {
	rels := make(map[string]any, len(q.Relations))
	for _, r := range q.Relations {
		rels[r.Name] = r.Attributes
	}
	canonical, err := MarshalCanonical(map[string]any{
		"attributes": q.Attributes,
		"relations":  rels,
	})
	if err != nil {
		return "", fmt.Errorf("query fingerprint: %w", err)
	}
	return hashWithDomain(DomainQuery, canonical), nil
}
