package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

const publicKeyLen = 32

// ErrInvalidAddress is returned for strings that are not base58 public keys.
var ErrInvalidAddress = errors.New("invalid solana address")

// ValidateAddress checks that s decodes to a 32-byte base58 public key.
func ValidateAddress(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidAddress, s, err)
	}
	if len(raw) != publicKeyLen {
		return fmt.Errorf("%w: %s decodes to %d bytes", ErrInvalidAddress, s, len(raw))
	}
	return nil
}

// NormalizeAddresses trims, validates and de-duplicates a wallet list,
// keeping the first occurrence order.
func NormalizeAddresses(in []string) ([]string, error) {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		addr := strings.TrimSpace(raw)
		if addr == "" {
			continue
		}
		if err := ValidateAddress(addr); err != nil {
			return nil, err
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out, nil
}
