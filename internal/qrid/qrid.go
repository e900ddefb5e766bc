// Package qrid generates and validates QR code identifiers.  An identifier
// is four groups of five decimal digits joined by hyphens, e.g.
// "12345-67890-12345-67890".  Generation is pure: no uniqueness check is
// performed here, persistence and collision handling belong to the caller.
package qrid

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

const (
	groupCount = 4     // number of hyphen-separated groups
	groupLen   = 5     // digits per group
	groupMin   = 10000 // lowest value of a group, keeps the leading digit non-zero
	groupMax   = 99999 // highest value of a group
)

// ErrInvalid is returned by Normalize when the input does not have the
// identifier shape.
var ErrInvalid = errors.New("invalid qr identifier")

// Generate returns count fresh identifiers.  Counts below 1 are coerced to
// 1 so a batch is never empty.  Groups are drawn uniformly from
// [10000, 99999] using crypto/rand.
func Generate(count int) []string {
	if count < 1 {
		count = 1
	}
	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		groups := make([]string, groupCount)
		for g := range groups {
			groups[g] = strconv.Itoa(randomGroup())
		}
		ids = append(ids, strings.Join(groups, "-"))
	}
	return ids
}

// randomGroup draws one five-digit group.  crypto/rand.Int only fails when
// the system entropy source is broken, which is not recoverable here.
func randomGroup() int {
	n, err := rand.Int(rand.Reader, big.NewInt(groupMax-groupMin+1))
	if err != nil {
		panic(fmt.Sprintf("qrid: rand.Int: %v", err))
	}
	return groupMin + int(n.Int64())
}

// Normalize canonicalises a raw identifier (trim, lowercase) and validates
// its shape: exactly four hyphen-separated groups of five decimal digits.
// It returns ErrInvalid on any violation so callers can reject the input
// before touching the store.
func Normalize(raw string) (string, error) {
	id := strings.ToLower(strings.TrimSpace(raw))
	groups := strings.Split(id, "-")
	if len(groups) != groupCount {
		return "", ErrInvalid
	}
	for _, g := range groups {
		if len(g) != groupLen {
			return "", ErrInvalid
		}
		// Digits only; strconv would also admit a sign prefix, which the
		// generator can never produce.
		for _, r := range g {
			if r < '0' || r > '9' {
				return "", ErrInvalid
			}
		}
	}
	return id, nil
}
