// Package invoice generates human-readable invoice references of the
// form RECHNUNG-YYYYMMDD-XXXXXX.  The generator is only
// probabilistically unique; the bookings table enforces uniqueness
// with an index and callers regenerate on a duplicate-key error.
package invoice

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	prefix    = "RECHNUNG"
	suffixLen = 6
	charset   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Number builds an invoice reference for the given issue time.  The
// date part uses UTC; the suffix is drawn from a cryptographically
// secure source.
func Number(now time.Time) (string, error) {
	suffix := make([]byte, suffixLen)
	max := big.NewInt(int64(len(charset)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("invoice suffix: %w", err)
		}
		suffix[i] = charset[n.Int64()]
	}
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("20060102"), suffix), nil
}
