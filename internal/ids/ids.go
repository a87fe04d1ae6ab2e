// Package ids derives the external identifiers exposed by the emulated
// API from storage-assigned sequence numbers.
package ids

import (
	"crypto/md5"
	"encoding/base32"
	"fmt"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Generate produces the fixed-length, URL-safe external id for an entity.
// The same (entity, seq) pair always yields the same id: the digest of
// "{entity}.{seq}" is base32-encoded without padding and prefixed so ids
// never start with a digit.
func Generate(entity string, seq uint) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s.%d", entity, seq)))
	return "A" + encoding.EncodeToString(sum[:])
}
