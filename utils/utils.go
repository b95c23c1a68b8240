package utils

import (
	"crypto/md5"
	"sort"
	"strings"

	"github.com/gofrs/uuid"
)

// GenUuidFromStrings derives a deterministic uuid from a set of reference
// strings. Order does not matter: inputs are sorted before hashing, so the
// same collateral pair always maps to the same ledger id.
func GenUuidFromStrings(refs ...string) string {
	if len(refs) == 0 {
		refs = append(refs, uuid.Nil.String())
	}

	sorted := make([]string, len(refs))
	copy(sorted, refs)
	sort.Strings(sorted)

	sum := md5.Sum([]byte(strings.Join(sorted, "")))
	// stamp version 3 and the RFC 4122 variant onto the digest
	sum[6] = (sum[6] & 0x0f) | 0x30
	sum[8] = (sum[8] & 0x3f) | 0x80
	return uuid.FromBytesOrNil(sum[:]).String()
}
