// Package addr provides type-safe email address identity for account
// and contact lookups. It consolidates normalization (NFC, lowercase,
// whitespace trimming) so that the same mailbox always maps to the same
// canonical string in config sections, database rows, and map keys.
//
// This is a leaf package with no dependencies beyond stdlib and x/text.
package addr

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Addr is a canonicalized email address. The zero value (Addr{})
// represents an absent address; callers can check IsZero when that
// matters.
type Addr struct {
	value string
}

// Parse canonicalizes and validates a raw address. Canonical form is
// NFC-normalized, whitespace-trimmed, with the domain lowercased. The
// local part keeps its case folded to lowercase as well — mailbox-name
// case sensitivity is vanishingly rare in practice and a single
// canonical form is required for map keys and config section names.
func Parse(raw string) (Addr, error) {
	s := norm.NFC.String(strings.TrimSpace(raw))
	if s == "" {
		return Addr{}, fmt.Errorf("addr: empty address")
	}

	local, domain, ok := strings.Cut(s, "@")
	if !ok || local == "" || domain == "" {
		return Addr{}, fmt.Errorf("addr: %q is not of the form local@domain", raw)
	}

	if strings.ContainsAny(s, " \t\r\n") {
		return Addr{}, fmt.Errorf("addr: %q contains whitespace", raw)
	}

	if strings.Contains(domain, "@") || !strings.Contains(domain, ".") {
		return Addr{}, fmt.Errorf("addr: %q has an invalid domain", raw)
	}

	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return Addr{}, fmt.Errorf("addr: %q has an invalid domain", raw)
	}

	return Addr{value: strings.ToLower(local) + "@" + strings.ToLower(domain)}, nil
}

// MustParse is Parse for test fixtures and constants known to be valid.
// Panics on invalid input.
func MustParse(raw string) Addr {
	a, err := Parse(raw)
	if err != nil {
		panic(err)
	}

	return a
}

// String returns the canonical form, or "" for the zero value.
func (a Addr) String() string { return a.value }

// IsZero reports whether the address is absent.
func (a Addr) IsZero() bool { return a.value == "" }

// Local returns the part before the "@".
func (a Addr) Local() string {
	local, _, _ := strings.Cut(a.value, "@")

	return local
}

// Domain returns the part after the "@".
func (a Addr) Domain() string {
	_, domain, _ := strings.Cut(a.value, "@")

	return domain
}

// NormalizeName NFC-normalizes and trims a display name. Unlike
// addresses, display names keep their case.
func NormalizeName(raw string) string {
	return norm.NFC.String(strings.TrimSpace(raw))
}
