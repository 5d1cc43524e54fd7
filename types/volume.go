package types

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// VolumeBits is the width of a volume. Results wider than this overflow.
const VolumeBits = 128

// Arithmetic errors. Both abort the call that hit them.
type arithmeticError string

func (e arithmeticError) Error() string {
	return string(e)
}

const (
	ErrOverflow       = arithmeticError("arithmetic overflow")
	ErrDivisionByZero = arithmeticError("division by zero")
)

var maxVolume = func() uint256.Int {
	var v uint256.Int
	v.Lsh(uint256.NewInt(1), VolumeBits)
	v.SubUint64(&v, 1)
	return v
}()

// Volume is a 128-bit unsigned transaction volume.
// The zero value is a volume of 0.
type Volume struct {
	n uint256.Int
}

// NewVolume returns a volume holding v.
func NewVolume(v uint64) Volume {
	var out Volume
	out.n.SetUint64(v)
	return out
}

// MaxVolume returns 2^128 - 1.
func MaxVolume() Volume {
	return Volume{n: maxVolume}
}

// ParseVolume parses a base-10 volume.
func ParseVolume(s string) (Volume, error) {
	var out Volume
	if err := out.n.SetFromDecimal(s); err != nil {
		return Volume{}, fmt.Errorf("invalid volume %q: %w", s, err)
	}
	if out.n.BitLen() > VolumeBits {
		return Volume{}, fmt.Errorf("volume %q: %w", s, ErrOverflow)
	}
	return out, nil
}

// VolumeFromBig converts a non-negative big integer that fits in 128 bits.
func VolumeFromBig(b *big.Int) (Volume, error) {
	if b == nil {
		return Volume{}, nil
	}
	if b.Sign() < 0 {
		return Volume{}, fmt.Errorf("negative volume %s", b)
	}
	n, overflow := uint256.FromBig(b)
	if overflow || n.BitLen() > VolumeBits {
		return Volume{}, fmt.Errorf("volume %s: %w", b, ErrOverflow)
	}
	return Volume{n: *n}, nil
}

// CheckedAdd returns v + o, or ErrOverflow when the sum exceeds 128 bits.
func (v Volume) CheckedAdd(o Volume) (Volume, error) {
	var out Volume
	if _, overflow := out.n.AddOverflow(&v.n, &o.n); overflow || out.n.BitLen() > VolumeBits {
		return Volume{}, ErrOverflow
	}
	return out, nil
}

// CheckedMul returns v * o, or ErrOverflow when the product exceeds 128 bits.
func (v Volume) CheckedMul(o Volume) (Volume, error) {
	var out Volume
	if _, overflow := out.n.MulOverflow(&v.n, &o.n); overflow || out.n.BitLen() > VolumeBits {
		return Volume{}, ErrOverflow
	}
	return out, nil
}

// CheckedDiv returns floor(v / o), or ErrDivisionByZero when o is zero.
func (v Volume) CheckedDiv(o Volume) (Volume, error) {
	if o.n.IsZero() {
		return Volume{}, ErrDivisionByZero
	}
	var out Volume
	out.n.Div(&v.n, &o.n)
	return out, nil
}

// Cmp compares v and o and returns -1, 0 or +1.
func (v Volume) Cmp(o Volume) int {
	return v.n.Cmp(&o.n)
}

// Gt reports whether v > o.
func (v Volume) Gt(o Volume) bool {
	return v.n.Gt(&o.n)
}

// Lt reports whether v < o.
func (v Volume) Lt(o Volume) bool {
	return v.n.Lt(&o.n)
}

// IsZero reports whether v is 0.
func (v Volume) IsZero() bool {
	return v.n.IsZero()
}

// Big returns the volume as a new big integer.
func (v Volume) Big() *big.Int {
	return v.n.ToBig()
}

// String returns the base-10 representation.
func (v Volume) String() string {
	return v.n.Dec()
}

// MarshalText encodes the volume as a decimal string so JSON keeps full precision.
func (v Volume) MarshalText() ([]byte, error) {
	return []byte(v.n.Dec()), nil
}

// UnmarshalText decodes a decimal string.
func (v *Volume) UnmarshalText(text []byte) error {
	parsed, err := ParseVolume(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
