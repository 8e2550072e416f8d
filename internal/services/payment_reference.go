package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

const (
	paymentReferencePrefix   = "PAY-"
	paymentReferenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	paymentReferenceLength   = 8
)

var paymentReferencePattern = regexp.MustCompile(`^PAY-[A-Z0-9]{8}$`)

// NewPaymentReference returns a token the client quotes on the bank transfer
// so the agency can reconcile it by hand.
func NewPaymentReference() (string, error) {
	alphabetLen := big.NewInt(int64(len(paymentReferenceAlphabet)))
	buf := make([]byte, paymentReferenceLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate payment reference: %w", err)
		}
		buf[i] = paymentReferenceAlphabet[n.Int64()]
	}
	return paymentReferencePrefix + string(buf), nil
}

func IsPaymentReference(s string) bool {
	return paymentReferencePattern.MatchString(s)
}
