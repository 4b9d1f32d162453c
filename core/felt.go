package core

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// FieldPrime is the Starknet field modulus, 2^251 + 17*2^192 + 1
var FieldPrime, _ = new(big.Int).SetString("800000000000011000000000000000000000000000000000000000000000001", 16)

var mask128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// Felt is a Starknet field element. The zero value is 0.
type Felt struct {
	n big.Int
}

// NewFelt creates a felt from n, which must be in [0, FieldPrime)
func NewFelt(n *big.Int) (Felt, error) {
	if n.Sign() < 0 || n.Cmp(FieldPrime) >= 0 {
		return Felt{}, fmt.Errorf("%w: %s out of range", ErrInvalidFelt, n.String())
	}
	var f Felt
	f.n.Set(n)
	return f, nil
}

// FeltFromUint64 creates a felt from a small integer
func FeltFromUint64(v uint64) Felt {
	var f Felt
	f.n.SetUint64(v)
	return f
}

// ParseFelt parses a 0x-prefixed hex string. Leading zeros are accepted.
func ParseFelt(s string) (Felt, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return Felt{}, fmt.Errorf("%w: %q missing 0x prefix", ErrInvalidFelt, s)
	}
	digits := s[2:]
	if digits == "" {
		return Felt{}, fmt.Errorf("%w: %q is empty", ErrInvalidFelt, s)
	}
	n, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return Felt{}, fmt.Errorf("%w: %q is not hex", ErrInvalidFelt, s)
	}
	return NewFelt(n)
}

// MustParseFelt is ParseFelt for compile-time constants; it panics on bad input
func MustParseFelt(s string) Felt {
	f, err := ParseFelt(s)
	if err != nil {
		panic(err)
	}
	return f
}

// BigInt returns a copy of the felt value
func (f Felt) BigInt() *big.Int {
	return new(big.Int).Set(&f.n)
}

// IsZero reports whether the felt is 0
func (f Felt) IsZero() bool {
	return f.n.Sign() == 0
}

// Equal reports whether two felts hold the same value
func (f Felt) Equal(o Felt) bool {
	return f.n.Cmp(&o.n) == 0
}

// String returns the minimal 0x-prefixed hex form, as nodes return it
func (f Felt) String() string {
	return hexutil.EncodeBig(&f.n)
}

// Short renders an address the way the page shows it: 0x1234...abcd
func (f Felt) Short() string {
	s := f.String()
	if len(s) <= 10 {
		return s
	}
	return s[:6] + "..." + s[len(s)-4:]
}

// MarshalText implements encoding.TextMarshaler
func (f Felt) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (f *Felt) UnmarshalText(text []byte) error {
	parsed, err := ParseFelt(string(text))
	if err != nil {
		return err
	}
	f.n.Set(&parsed.n)
	return nil
}

// SplitUint256 encodes n as the (low, high) felt pair Cairo uses for u256
func SplitUint256(n *big.Int) (low Felt, high Felt, err error) {
	if n.Sign() < 0 || n.BitLen() > 256 {
		return Felt{}, Felt{}, fmt.Errorf("%w: %s does not fit in u256", ErrInvalidFelt, n.String())
	}
	low.n.And(n, mask128)
	high.n.Rsh(n, 128)
	return low, high, nil
}

// FeltFromShortString encodes up to 31 ASCII characters as a felt, e.g. chain ids
func FeltFromShortString(s string) (Felt, error) {
	if len(s) > 31 {
		return Felt{}, fmt.Errorf("%w: short string %q longer than 31 characters", ErrInvalidFelt, s)
	}
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return Felt{}, fmt.Errorf("%w: short string %q is not ASCII", ErrInvalidFelt, s)
		}
	}
	var f Felt
	f.n.SetBytes([]byte(s))
	return f, nil
}
