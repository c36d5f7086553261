// Package codec converts record identifiers to short codes and back using a
// positional numeral system whose digits are the symbols of a fixed alphabet.
package codec

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// DefaultSymbols is the alphabet used when none is configured. Changing it
// invalidates every code issued under the previous value.
const DefaultSymbols = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var (
	ErrInvalidAlphabet = errors.New("invalid alphabet")
	ErrInvalidCode     = errors.New("invalid code")
)

// Default is the alphabet built from DefaultSymbols.
var Default = MustAlphabet(DefaultSymbols)

// Alphabet is an ordered set of distinct symbols. The symbol at index 0 is the
// zero digit. An Alphabet is immutable and safe for concurrent use.
type Alphabet struct {
	symbols []rune
	index   map[rune]uint64
	base    uint64
}

// NewAlphabet builds an alphabet from symbols. It needs at least two distinct symbols.
func NewAlphabet(symbols string) (*Alphabet, error) {
	runes := []rune(symbols)
	if len(runes) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 symbols, got %d", ErrInvalidAlphabet, len(runes))
	}

	index := make(map[rune]uint64, len(runes))

	for i, r := range runes {
		if _, dup := index[r]; dup {
			return nil, fmt.Errorf("%w: duplicate symbol %q", ErrInvalidAlphabet, r)
		}

		index[r] = uint64(i)
	}

	return &Alphabet{
		symbols: runes,
		index:   index,
		base:    uint64(len(runes)),
	}, nil
}

// MustAlphabet is like NewAlphabet but panics on error.
func MustAlphabet(symbols string) *Alphabet {
	a, err := NewAlphabet(symbols)
	if err != nil {
		panic(err)
	}

	return a
}

// Base returns the number of symbols.
func (a *Alphabet) Base() int {
	return int(a.base)
}

func (a *Alphabet) String() string {
	return string(a.symbols)
}

// Encode returns n written most-significant digit first. Encode(0) is the zero symbol.
func (a *Alphabet) Encode(n uint64) string {
	if n == 0 {
		return string(a.symbols[0])
	}

	digits := make([]rune, 0, 12)
	for n > 0 {
		digits = append(digits, a.symbols[n%a.base])
		n /= a.base
	}

	slices.Reverse(digits)

	return string(digits)
}

// Decode is the inverse of Encode. It fails with ErrInvalidCode for empty
// input, unknown symbols, or values that do not fit in a uint64.
func (a *Alphabet) Decode(code string) (uint64, error) {
	if code == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidCode)
	}

	var n uint64

	for _, r := range code {
		digit, ok := a.index[r]
		if !ok {
			return 0, fmt.Errorf("%w: symbol %q not in alphabet", ErrInvalidCode, r)
		}

		if n > (math.MaxUint64-digit)/a.base {
			return 0, fmt.Errorf("%w: %q overflows", ErrInvalidCode, code)
		}

		n = n*a.base + digit
	}

	return n, nil
}

// Valid reports whether code decodes under this alphabet.
func (a *Alphabet) Valid(code string) bool {
	_, err := a.Decode(code)

	return err == nil
}
