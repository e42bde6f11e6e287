package checkout

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// NewOrderNumber builds a customer-facing order number: a UTC timestamp plus a
// random suffix, short enough to quote over the phone. Collisions are made
// unlikely here but are only prevented by the unique index on orders; callers
// must handle ErrDuplicateOrderNumber by regenerating.
func NewOrderNumber() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is unrecoverable for request handling anyway;
		// fall back to a nanosecond suffix rather than panic.
		return fmt.Sprintf("ORD-%s-%d", time.Now().UTC().Format("20060102"), time.Now().UnixNano()%100000000)
	}
	return fmt.Sprintf("ORD-%s-%s",
		time.Now().UTC().Format("20060102"),
		strings.ToUpper(hex.EncodeToString(buf)),
	)
}
