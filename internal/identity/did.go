package identity

import (
	"fmt"
	"regexp"
	"strings"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidAddress reports whether s looks like an EVM account address.
func ValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// DID derives the decentralized identifier for an account address on the
// given network. Addresses are lowercased so the same account always maps to
// the same DID regardless of input casing.
func DID(address, network string) string {
	return fmt.Sprintf("did:ethr:%s:%s", network, strings.ToLower(address))
}
