// Package credcache stores signed credentials minted from the target
// platform, keyed by the subject (domain) they were issued for.
//
// The backing store is a single JSON file. Entries are replaced wholesale
// on every successful mint and never explicitly deleted: an expired entry
// is simply a cache miss that gets overwritten by the next mint.
package credcache

import (
	"encoding/json"
	"time"
)

// Credential is a signed, time-bounded credential issued by the platform
// after an anti-bot challenge has been solved. A Credential is usable if
// and only if the current time is strictly before ValidUntil; no other
// field implies validity.
type Credential struct {
	// Subject is the domain the credential was minted for. It is the map
	// key in the cache file, not part of the serialized entry.
	Subject string `json:"-"`

	// Signature is the opaque platform-issued signature. It must be sent
	// back byte-for-byte, so it is never parsed or normalized.
	Signature string `json:"signature"`

	// ValidUntil is the platform-issued expiry, kept in the exact string
	// form the platform returned (the signature covers it).
	ValidUntil string `json:"validUntil"`

	// OverviewData is the auxiliary payload returned alongside the
	// signature at mint time, preserved verbatim.
	OverviewData json.RawMessage `json:"overviewData,omitempty"`

	// Timestamp records when the credential was minted.
	Timestamp time.Time `json:"timestamp"`
}

// Valid reports whether the credential is usable at the given time.
// A ValidUntil value that cannot be parsed counts as expired.
func (c *Credential) Valid(now time.Time) bool {
	if c == nil || c.Signature == "" {
		return false
	}
	exp, err := time.Parse(time.RFC3339, c.ValidUntil)
	if err != nil {
		return false
	}
	return now.Before(exp)
}

// Store is the credential cache contract. Load returns the credential
// for a subject only if one exists and is still valid. Save reports
// success instead of returning an error: a failed write must not fail
// the overall operation, since the credential is still usable in memory
// for the current call.
type Store interface {
	Load(subject string) (*Credential, bool)
	Save(subject string, cred *Credential) bool
}
