// Package xerr defines the sentinel error taxonomy surfaced at the decoder
// API boundary. Internal parsers attach context with Wrap/Wrapf (backed by
// github.com/pkg/errors); callers match against these sentinels with
// errors.Is/As.
package xerr

import "github.com/pkg/errors"

// Sentinel causes. Each corresponds to one entry of the error taxonomy in
// the decoder spec (§6/§7).
var (
	// ErrUnexpectedEOF means the bitstream ended before a parser's required
	// bit count was satisfied. Not necessarily fatal: the orchestrator
	// treats it as "need more bytes" at frame/container boundaries.
	ErrUnexpectedEOF = errors.New("jxl: unexpected end of bitstream")

	// ErrNonZeroPadding means zero_pad_to_byte found a set bit in the pad.
	ErrNonZeroPadding = errors.New("jxl: non-zero bit padding")

	// ErrInvalidFloat means read_f16_as_f32 decoded NaN or Inf.
	ErrInvalidFloat = errors.New("jxl: invalid half-float (NaN/Inf)")

	// ErrInvalidEnum means read_enum saw a value outside the enum's mapping.
	ErrInvalidEnum = errors.New("jxl: invalid enum value")

	// ErrInvalidBox means the container demux saw an ill-formed box
	// sequence (e.g. out-of-order jxlp indices, mixed jxlp/jxlc).
	ErrInvalidBox = errors.New("jxl: invalid container box")

	// ErrInvalidICCStream means an embedded ICC profile failed to parse.
	ErrInvalidICCStream = errors.New("jxl: invalid ICC stream")

	// ErrInvalidAnsStream means an rANS stream failed to end at 0x130000.
	ErrInvalidAnsStream = errors.New("jxl: invalid ANS stream")

	// ErrInvalidMaTree means the meta-adaptive tree violated a structural
	// limit (node count, mul_log, mul_bits) or failed to fold/flatten.
	ErrInvalidMaTree = errors.New("jxl: invalid meta-adaptive tree")

	// ErrInvalidPrefixHistogram means a Brotli-style prefix code table
	// failed the Kraft-inequality/canonical-code checks.
	ErrInvalidPrefixHistogram = errors.New("jxl: invalid prefix histogram")

	// ErrInvalidTocPermutation means a TOC Lehmer permutation did not
	// round-trip to the identity with its inverse.
	ErrInvalidTocPermutation = errors.New("jxl: invalid TOC permutation")

	// ErrInvalidReference means a frame referenced a reference-frame slot
	// that was never populated.
	ErrInvalidReference = errors.New("jxl: invalid reference frame slot")

	// ErrProfileConformance means a stream violates a conformance-level
	// constraint (surfaced, not fatal to pixel data).
	ErrProfileConformance = errors.New("jxl: profile conformance violation")

	// ErrOutOfMemory means the AllocTracker's soft cap was exceeded.
	ErrOutOfMemory = errors.New("jxl: allocation exceeds soft memory cap")
)

// Wrap attaches additional context to a sentinel cause while preserving
// errors.Is/As matching against it.
func Wrap(cause error, msg string) error {
	return errors.Wrap(cause, msg)
}

// Wrapf is Wrap with fmt-style formatting.
func Wrapf(cause error, format string, args ...any) error {
	return errors.Wrapf(cause, format, args...)
}
