package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

const (
	orderNumberPrefix   = "LUX"
	orderNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	orderNumberSuffix   = 9
)

// NewOrderNumber builds a human-readable order number. Uniqueness is only
// probabilistic here; the database constraint with retry makes it a guarantee.
func NewOrderNumber() string {
	suffix := make([]byte, orderNumberSuffix)
	max := big.NewInt(int64(len(orderNumberAlphabet)))

	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing means the platform is broken
			panic(fmt.Sprintf("crypto/rand: %v", err))
		}
		suffix[i] = orderNumberAlphabet[n.Int64()]
	}

	return fmt.Sprintf("%s-%d-%s", orderNumberPrefix, time.Now().UnixMilli(), suffix)
}

// NewTrackingToken returns an opaque token for guest order lookup.
func NewTrackingToken() string {
	return uuid.NewString()
}
