// Package email normalizes and checks the addresses carried on OT requests.
package email

import (
	"net/mail"
	"strings"
)

// Normalize trims surrounding space and lowercases the address.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// IsValid reports whether address is a bare addr-spec with a dotted or
// single-label domain. Display-name forms ("Ann <ann@x.test>") are rejected.
func IsValid(address string) bool {
	if address == "" || strings.ContainsAny(address, " <>") {
		return false
	}
	parsed, err := mail.ParseAddress(address)
	if err != nil || parsed.Address != address {
		return false
	}
	at := strings.LastIndexByte(address, '@')
	return at > 0 && at < len(address)-1
}
