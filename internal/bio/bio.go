// Package bio provides bit-level I/O for JPEG XL codestreams.
//
// Unlike a byte-oriented format, JXL packs fields LSB-first within each
// byte, and individual fields routinely span more than 32 bits of lookahead
// (see read_u64). Reader keeps a 64-bit shift register refilled in bulk from
// the underlying byte slice, with a single-byte-at-a-time slow path once
// fewer than 8 source bytes remain -- the two refill strategies the source
// format kept as separate implementations are unified here into one
// canonical reader (see SPEC_FULL.md §9).
package bio

import (
	"math"

	"github.com/jxlcore/jxl/internal/xerr"
)

// refillThreshold is the buffered-bit count below which Reader attempts to
// top up the shift register. Kept below 64 so peek_bits(32) always has
// enough headroom after a refill without another round-trip.
const refillThreshold = 56

// Reader reads LSB-first bits from a borrowed byte slice.
type Reader struct {
	buf []byte // source bytes, not consumed
	pos int    // byte offset into buf of the next unread byte

	bits  uint64 // shift register; low `cnt` bits are valid, LSB first
	cnt   uint   // number of valid buffered bits, 0..64
	nread uint64 // total bits consumed via Consume, for NumReadBits
}

// NewReader wraps buf for LSB-first bit reading starting at bit 0 of byte 0.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// NumReadBits returns the number of bits consumed so far.
func (r *Reader) NumReadBits() uint64 {
	return r.nread
}

// BitsRemaining returns an upper bound on unconsumed bits (buffered bits
// plus whole bytes not yet loaded).
func (r *Reader) BitsRemaining() uint64 {
	return uint64(r.cnt) + uint64(len(r.buf)-r.pos)*8
}

// refill tops up the shift register. The fast path loads 8 bytes at a time
// little-endian when at least 8 source bytes remain; the slow path loads a
// single byte at a time near the end of the buffer.
func (r *Reader) refill() {
	for r.cnt < refillThreshold {
		remaining := len(r.buf) - r.pos
		if remaining <= 0 {
			return
		}
		if remaining >= 8 {
			var v uint64
			for i := 0; i < 8; i++ {
				v |= uint64(r.buf[r.pos+i]) << (8 * i)
			}
			// Only shift in as many whole bytes as fit without overflowing
			// the 64-bit register.
			freeBytes := (63 - r.cnt) / 8
			if freeBytes == 0 {
				return
			}
			if freeBytes > 8 {
				freeBytes = 8
			}
			mask := uint64(1)<<(freeBytes*8) - 1
			if freeBytes == 8 {
				mask = ^uint64(0)
			}
			r.bits |= (v & mask) << r.cnt
			r.cnt += freeBytes * 8
			r.pos += int(freeBytes)
			continue
		}
		// Slow path: one byte at a time.
		r.bits |= uint64(r.buf[r.pos]) << r.cnt
		r.cnt += 8
		r.pos++
	}
}

// PeekBits returns the low n (<=32) buffered bits without consuming them.
// It refills first if necessary.
func (r *Reader) PeekBits(n uint) (uint32, error) {
	if n > 32 {
		panic("bio: PeekBits n > 32")
	}
	if r.cnt < uint(n) {
		r.refill()
	}
	if r.cnt < uint(n) {
		return 0, xerr.ErrUnexpectedEOF
	}
	if n == 0 {
		return 0, nil
	}
	mask := uint64(1)<<n - 1
	return uint32(r.bits & mask), nil
}

// ConsumeBits advances the reader by n bits, which must already have been
// validated available (typically via a prior PeekBits/ReadBits call).
func (r *Reader) ConsumeBits(n uint) error {
	if r.cnt < n {
		r.refill()
		if r.cnt < n {
			return xerr.ErrUnexpectedEOF
		}
	}
	r.bits >>= n
	r.cnt -= n
	r.nread += uint64(n)
	return nil
}

// ReadBits reads and consumes n (<=32) bits, returning them as the low bits
// of the result.
func (r *Reader) ReadBits(n uint) (uint32, error) {
	v, err := r.PeekBits(n)
	if err != nil {
		return 0, err
	}
	if err := r.ConsumeBits(n); err != nil {
		return 0, err
	}
	return v, nil
}

// SkipBits advances by an arbitrary number of bits, including more than 32.
func (r *Reader) SkipBits(n uint64) error {
	for n > 32 {
		if _, err := r.ReadBits(32); err != nil {
			return err
		}
		n -= 32
	}
	if n > 0 {
		if _, err := r.ReadBits(uint(n)); err != nil {
			return err
		}
	}
	return nil
}

// ZeroPadToByte consumes up to 7 bits to reach a byte boundary (relative to
// NumReadBits), failing if any consumed bit is set.
func (r *Reader) ZeroPadToByte() error {
	pad := uint((8 - (r.nread % 8)) % 8)
	if pad == 0 {
		return nil
	}
	v, err := r.ReadBits(pad)
	if err != nil {
		return err
	}
	if v != 0 {
		return xerr.ErrNonZeroPadding
	}
	return nil
}

// U32Specifier is one branch of a read_u32 4-way selector: either a literal
// constant, or base + u(n) for n in 0..32.
type U32Specifier struct {
	// Const is used directly when N is 0 and Base equals the literal; more
	// generally a specifier is Base + readBits(N).
	Base uint32
	N    uint
}

// Direct builds a U32Specifier representing the literal value v.
func Direct(v uint32) U32Specifier { return U32Specifier{Base: v, N: 0} }

// ReadU32 reads a 2-bit selector then the corresponding specifier's value.
func (r *Reader) ReadU32(d0, d1, d2, d3 U32Specifier) (uint32, error) {
	sel, err := r.ReadBits(2)
	if err != nil {
		return 0, err
	}
	specs := [4]U32Specifier{d0, d1, d2, d3}
	spec := specs[sel]
	if spec.N == 0 {
		return spec.Base, nil
	}
	extra, err := r.ReadBits(spec.N)
	if err != nil {
		return 0, err
	}
	return spec.Base + extra, nil
}

// ReadU64 reads the JXL U64 code: selector 0 -> 0; 1 -> 1+u(4); 2 ->
// 17+u(8); 3 -> a continuation chain of 4-bit-then-8-bit groups, each
// contributing 12 bits of value per the selector's step, up to 64 bits.
func (r *Reader) ReadU64() (uint64, error) {
	sel, err := r.ReadBits(2)
	if err != nil {
		return 0, err
	}
	switch sel {
	case 0:
		return 0, nil
	case 1:
		v, err := r.ReadBits(4)
		if err != nil {
			return 0, err
		}
		return 1 + uint64(v), nil
	case 2:
		v, err := r.ReadBits(8)
		if err != nil {
			return 0, err
		}
		return 17 + uint64(v), nil
	default:
		// sel == 3: a first 4-bit group, then a chain of 1-bit-continuation
		// + 8-bit groups, each shifted in above the last, until 60 bits of
		// value have accumulated (the final group may carry the remaining
		// 4 bits to reach 64 total).
		nib, err := r.ReadBits(4)
		if err != nil {
			return 0, err
		}
		result := uint64(nib)
		shift := uint(4)
		for {
			cont, err := r.ReadBits(1)
			if err != nil {
				return 0, err
			}
			if cont == 0 {
				break
			}
			if shift == 60 {
				last, err := r.ReadBits(4)
				if err != nil {
					return 0, err
				}
				result |= uint64(last) << 60
				break
			}
			more, err := r.ReadBits(8)
			if err != nil {
				return 0, err
			}
			result |= uint64(more) << shift
			shift += 8
		}
		return result, nil
	}
}

// ReadF16AsF32 reads a 16-bit IEEE-754-like half float and widens it to
// float32, rejecting NaN/Inf encodings and handling subnormals.
func (r *Reader) ReadF16AsF32() (float32, error) {
	bits, err := r.ReadBits(16)
	if err != nil {
		return 0, err
	}
	sign := uint32(bits>>15) & 1
	exp := uint32(bits>>10) & 0x1F
	mant := uint32(bits) & 0x3FF

	if exp == 0x1F {
		return 0, xerr.ErrInvalidFloat
	}

	var f32bits uint32
	switch {
	case exp == 0 && mant == 0:
		f32bits = sign << 31
	case exp == 0:
		// Subnormal half -> normalize into a float32 normal.
		e := 0
		m := mant
		for m&0x400 == 0 {
			m <<= 1
			e--
		}
		m &= 0x3FF
		exp32 := uint32(int32(e) + 127 - 15 + 1)
		f32bits = (sign << 31) | (exp32 << 23) | (m << 13)
	default:
		exp32 := exp - 15 + 127
		f32bits = (sign << 31) | (exp32 << 23) | (mant << 13)
	}
	return float32FromBits(f32bits), nil
}

// EnumMapper validates a raw enum ordinal, returning false if the value has
// no defined mapping.
type EnumMapper func(v uint32) bool

// ReadEnum reads U32(0,1,2+u(4),18+u(6)) and validates it against mapper,
// returning ErrInvalidEnum with name context on mismatch.
func (r *Reader) ReadEnum(name string, mapper EnumMapper) (uint32, error) {
	v, err := r.ReadU32(
		Direct(0),
		Direct(1),
		U32Specifier{Base: 2, N: 4},
		U32Specifier{Base: 18, N: 6},
	)
	if err != nil {
		return 0, err
	}
	if !mapper(v) {
		return 0, xerr.Wrapf(xerr.ErrInvalidEnum, "%s: value %d", name, v)
	}
	return v, nil
}

func float32FromBits(b uint32) float32 {
	return math.Float32frombits(b)
}
