package domain

import (
	"fmt"
	"strings"
)

// Address is a hex-encoded account address on the ledger, 0x-prefixed.
type Address string

// ZeroAddress is the empty account address returned by the module for
// unset fields (e.g. an auction with no bids yet).
const ZeroAddress Address = "0x0"

// NormalizeAddress validates a hex address string and returns it
// lowercased with a 0x prefix.
func NormalizeAddress(s string) (Address, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	body := s[2:]
	if len(body) == 0 || len(body) > 64 {
		return "", fmt.Errorf("address %q: invalid length", s)
	}
	for _, r := range body {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return "", fmt.Errorf("address %q: invalid hex character %q", s, r)
		}
	}
	return Address(s), nil
}

// IsZero reports whether the address is empty or the zero address.
func (a Address) IsZero() bool {
	return a == "" || a == ZeroAddress
}

// Short returns an abbreviated form for logging.
func (a Address) Short() string {
	s := string(a)
	if len(s) <= 12 {
		return s
	}
	return s[:8] + ".." + s[len(s)-4:]
}
