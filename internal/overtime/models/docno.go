package models

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

var docNoSuffixSpace = big.NewInt(1_000_000)

// NewDocumentNumber builds the human-facing request label
// "<company>-<job>-<nnnnnn>". The suffix is random, so uniqueness is
// probabilistic; the request ID remains the primary key.
func NewDocumentNumber(companyCode, jobCode string) (string, error) {
	n, err := rand.Int(rand.Reader, docNoSuffixSpace)
	if err != nil {
		return "", fmt.Errorf("generate document number suffix: %w", err)
	}
	prefix := stripSpace(companyCode + "-" + jobCode)
	return fmt.Sprintf("%s-%06d", prefix, n.Int64()), nil
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
