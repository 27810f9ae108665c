package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests.
// The version suffix allows a future algorithm migration.
const (
	DomainRecord     = "reportsync/record/v1"
	DomainProjection = "reportsync/projection/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// recordPayload returns the authored fields of r as a canonical map.
// Seq, ReceivedAt, and Digest are excluded: they describe the acceptance,
// not the content.
func recordPayload(r Record) map[string]any {
	return map[string]any{
		"report_id":      r.ReportID,
		"title":          r.Title,
		"content":        r.Content,
		"classification": r.Classification,
		"updated_at":     FormatTimestamp(r.UpdatedAt),
		"updated_by":     r.UpdatedBy,
	}
}

// RecordDigest computes the content fingerprint of a record version.
// Two submissions with identical payloads and identity share a digest but
// remain separate versions in the store.
func RecordDigest(r Record) (string, error) {
	canonical, err := MarshalCanonical(recordPayload(r))
	if err != nil {
		return "", fmt.Errorf("RecordDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRecord, canonical), nil
}

// ProjectionDigest fingerprints a latest-per-report projection so that two
// computations over the same history can be compared cheaply.
func ProjectionDigest(latest map[string]Record) (string, error) {
	obj := make(map[string]any, len(latest))
	for id, r := range latest {
		entry := recordPayload(r)
		entry["sequence_id"] = r.Seq
		obj[id] = entry
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ProjectionDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainProjection, canonical), nil
}
