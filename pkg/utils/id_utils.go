package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh opaque entity identifier.
func NewID() string {
	return uuid.NewString()
}

// shortSuffix returns n uppercase hex characters backed by UUID randomness,
// not math/rand, so concurrent callers cannot collide on the same timestamp.
func shortSuffix(n int) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:n])
}

// NewOrderNumber generates a human-readable order number, ORD-<ms>-<suffix>.
func NewOrderNumber() string {
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), shortSuffix(9))
}

// NewTransactionID generates an external transaction identifier for
// terminal-settled payments (QRIS/EDC).
func NewTransactionID() string {
	return fmt.Sprintf("TXN-%d-%s", time.Now().UnixMilli(), shortSuffix(9))
}
