// Package cardnum generates and validates payment card numbers.
package cardnum

import (
	"crypto/rand"
	"fmt"
	"io"
)

// Length is the number of digits in a generated card number.
const Length = 16

const (
	PrefixVisa       byte = '4'
	PrefixMastercard byte = '5'
)

// Generator produces network-prefixed, Luhn-valid card numbers.
type Generator struct {
	rand io.Reader
}

// New returns a generator reading entropy from crypto/rand.
func New(opts ...Option) *Generator {
	g := &Generator{
		rand: rand.Reader,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

type Option func(g *Generator)

// WithRandSource replaces the entropy source.
func WithRandSource(r io.Reader) Option {
	return func(g *Generator) {
		g.rand = r
	}
}

// Generate returns a new 16-digit card number. The first digit is 4 or 5,
// the last one is the Luhn check digit over the preceding 15.
// Uniqueness is not checked here.
func (g *Generator) Generate() (string, error) {
	number := make([]byte, 0, Length)

	b, err := g.randomByte()
	if err != nil {
		return "", err
	}

	if b&1 == 0 {
		number = append(number, PrefixVisa)
	} else {
		number = append(number, PrefixMastercard)
	}

	for len(number) < Length-1 {
		d, err := g.randomDigit()
		if err != nil {
			return "", err
		}

		number = append(number, '0'+d)
	}

	number = append(number, '0'+byte(Checksum(string(number))))

	return string(number), nil
}

func (g *Generator) randomByte() (byte, error) {
	var buf [1]byte

	if _, err := io.ReadFull(g.rand, buf[:]); err != nil {
		return 0, fmt.Errorf("io.ReadFull: %w", err)
	}

	return buf[0], nil
}

// randomDigit draws a uniform digit in [0, 9] by rejecting bytes above 249.
func (g *Generator) randomDigit() (byte, error) {
	for {
		b, err := g.randomByte()
		if err != nil {
			return 0, err
		}

		if b < 250 {
			return b % 10, nil
		}
	}
}

// Checksum calculates the Luhn check digit for a partial number.
// Digits are walked right to left and every second digit starting with
// the rightmost one is doubled.
func Checksum(partial string) int {
	var sum int
	double := true

	for i := len(partial) - 1; i >= 0; i-- {
		digit := int(partial[i] - '0')

		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}

		sum += digit
		double = !double
	}

	return (10 - sum%10) % 10
}

// Valid checks number is a well-formed card number: 16 digits, network
// prefix 4 or 5 and a correct Luhn check digit.
func Valid(number string) bool {
	if len(number) != Length {
		return false
	}

	if number[0] != PrefixVisa && number[0] != PrefixMastercard {
		return false
	}

	return validateByLuhn(number)
}

// validateByLuhn checks number is valid or not based on Luhn algorithm.
func validateByLuhn(number string) bool {
	var sum int
	double := false

	for i := len(number) - 1; i >= 0; i-- {
		n := number[i]

		if n < '0' || n > '9' {
			return false // invalid character
		}

		digit := int(n - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}

		sum += digit

		double = !double
	}

	return sum%10 == 0
}
