package usecase

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

const intentNumberPrefix = "PI-"

// IntentNumberGenerator produces human-facing purchase intent numbers.
type IntentNumberGenerator func(at time.Time) string

// NewIntentNumber returns PI-<ULID>. ULIDs sort by creation time but are
// not ordinal, so numbers reveal nothing about volume.
func NewIntentNumber(at time.Time) string {
	return intentNumberPrefix + ulid.MustNew(ulid.Timestamp(at), rand.Reader).String()
}
