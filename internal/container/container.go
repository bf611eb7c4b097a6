// Package container implements the JPEG XL container demultiplexer: a
// restartable state machine that classifies a byte stream as a bare
// codestream or an ISO-BMFF-style box container, and emits an ordered
// event stream of codestream bytes and auxiliary box payloads.
//
// This generalizes the teacher's internal/box package, which only ever
// understood the closed JP2 box set (ihdr/colr/pclr/...) read eagerly from
// a whole in-memory buffer. The JXL container instead must be restartable
// across arbitrarily chunked input (§4.B / §5 suspension points), so box
// headers and bodies are parsed incrementally against however many bytes
// Feed has been given so far.
package container

import (
	"encoding/binary"

	"github.com/jxlcore/jxl/internal/xerr"
)

// FourCC is a 4-byte box type code, printed as its ASCII characters.
type FourCC uint32

func (f FourCC) String() string {
	b := [4]byte{byte(f >> 24), byte(f >> 16), byte(f >> 8), byte(f)}
	return string(b[:])
}

// Recognized box types (§6).
const (
	FourCCJXLC FourCC = 0x6A786C63 // "jxlc" - whole codestream
	FourCCJXLP FourCC = 0x6A786C70 // "jxlp" - indexed partial codestream
	FourCCJBRD FourCC = 0x6A627264 // "jbrd" - JPEG reconstruction data
	FourCCExif FourCC = 0x45786966 // "Exif"
	FourCCXML  FourCC = 0x786D6C20 // "xml "
)

var (
	bareSignature      = [2]byte{0xFF, 0x0A}
	containerSignature = [12]byte{0x00, 0x00, 0x00, 0x0C, 0x4A, 0x58, 0x4C, 0x20, 0x0D, 0x0A, 0x87, 0x0A}
)

// Kind classifies the overall bitstream framing, the first event the demux
// always emits.
type Kind int

const (
	KindBareCodestream Kind = iota
	KindContainer
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindBareCodestream:
		return "BareCodestream"
	case KindContainer:
		return "Container"
	default:
		return "Invalid"
	}
}

// Event is the tagged-union of demux outputs. Concrete types below.
type Event interface{ isEvent() }

// BitstreamKindEvent is always the first event, classifying the stream.
type BitstreamKindEvent struct{ Kind Kind }

// CodestreamEvent carries a contiguous slice of codestream bytes (bare or
// unwrapped from jxlc/jxlp boxes), in bitstream order.
type CodestreamEvent struct{ Data []byte }

// AuxBoxStartEvent begins an auxiliary (non-codestream) box.
type AuxBoxStartEvent struct {
	Type    FourCC
	Brotli  bool
	IsLast  bool
}

// AuxBoxDataEvent carries a chunk of an auxiliary box's payload. Payload
// chunks accumulate into the box's buffer; per the resolved Open Question
// (§9), callers should not treat the box as complete in aux_boxes() until
// AuxBoxEndEvent for the same Type has been observed.
type AuxBoxDataEvent struct {
	Type FourCC
	Data []byte
}

// AuxBoxEndEvent closes the most recently started auxiliary box.
type AuxBoxEndEvent struct{ Type FourCC }

// NoMoreAuxBoxEvent signals that no further auxiliary boxes will be
// produced once the codestream itself has been fully consumed. The demux
// does not synthesize this automatically (it cannot know when the
// codestream ends); callers emit it via Finish.
type NoMoreAuxBoxEvent struct{}

func (BitstreamKindEvent) isEvent() {}
func (CodestreamEvent) isEvent()    {}
func (AuxBoxStartEvent) isEvent()   {}
func (AuxBoxDataEvent) isEvent()    {}
func (AuxBoxEndEvent) isEvent()     {}
func (NoMoreAuxBoxEvent) isEvent()  {}

// detectState is the outer framing state.
type detectState int

const (
	stateWaitingSignature detectState = iota
	stateWaitingBoxHeader
	stateInCodestreamBare
	stateInCodestreamContainer
	stateInAuxBox
	stateInvalid
)

// codestreamKind distinguishes bare streams (no further box framing ever
// appears) from container-framed jxlc/jxlp segments (another box header
// follows once bytesLeft reaches 0).
type codestreamKind int

const (
	csBare codestreamKind = iota
	csContainer
)

// jxlpState tracks the jxlp partial-codestream index sequence.
type jxlpState struct {
	seenAny    bool
	nextIndex  uint32
	sawJxlc    bool
	sawJxlp    bool
	sawLast    bool
}

// auxHeader describes the box currently being streamed as auxiliary data.
type auxHeader struct {
	typ       FourCC
	bytesLeft int64 // -1 means "to end of input", only for a well-formed final box
	started   bool
}

// Demux is the restartable container state machine. Create with NewDemux
// and call Feed repeatedly as bytes arrive; each call returns any prefix of
// events the newly available bytes made decodable.
type Demux struct {
	state       detectState
	csKind      codestreamKind
	jxlp        jxlpState
	aux         auxHeader
	boxBytesLeft int64 // remaining body bytes of the codestream box being read

	// pending buffers bytes not yet consumed because they don't complete
	// the structure currently being parsed (a box header, a size field).
	pending []byte

	consumed int64 // total bytes consumed across all Feed calls
}

// NewDemux creates a fresh container demultiplexer.
func NewDemux() *Demux {
	return &Demux{}
}

// Consumed returns the total number of input bytes the demux has processed
// across all Feed calls (for caller bookkeeping, §4.B).
func (d *Demux) Consumed() int64 { return d.consumed }

// Feed supplies additional bytes and returns the events they produced. It
// never blocks and never requires the full stream up front: if the
// available bytes don't complete the structure in progress, Feed returns
// whatever prefix of events it could produce and buffers the remainder.
func (d *Demux) Feed(chunk []byte) ([]Event, error) {
	d.pending = append(d.pending, chunk...)
	var events []Event

	for {
		switch d.state {
		case stateWaitingSignature:
			if len(d.pending) < 2 {
				return events, nil
			}
			if d.pending[0] == bareSignature[0] && d.pending[1] == bareSignature[1] {
				events = append(events, BitstreamKindEvent{Kind: KindBareCodestream})
				d.consumePending(2)
				d.state = stateInCodestreamBare
				d.csKind = csBare
				continue
			}
			if len(d.pending) < 12 {
				// Need more bytes to rule out the (longer) container
				// signature; a bare signature would already have matched
				// above, so wait.
				return events, nil
			}
			if matchesSignature(d.pending, containerSignature[:]) {
				events = append(events, BitstreamKindEvent{Kind: KindContainer})
				d.consumePending(12)
				d.state = stateWaitingBoxHeader
				continue
			}
			events = append(events, BitstreamKindEvent{Kind: KindInvalid})
			d.state = stateInvalid
			return events, nil

		case stateWaitingBoxHeader:
			hdr, hdrLen, bodyLen, ok, err := d.tryParseBoxHeader()
			if err != nil {
				return events, err
			}
			if !ok {
				return events, nil
			}
			if hdr.typ == FourCCJXLP && bodyLen >= 4 && len(d.pending) < hdrLen+4 {
				// Keep the header buffered until the jxlp index is too.
				return events, nil
			}
			d.consumePending(hdrLen)
			switch hdr.typ {
			case FourCCJXLC:
				if d.jxlp.sawJxlp {
					return events, xerr.ErrInvalidBox
				}
				d.jxlp.sawJxlc = true
				d.state = stateInCodestreamContainer
				d.csKind = csContainer
				d.boxBytesLeft = bodyLen
			case FourCCJXLP:
				if d.jxlp.sawJxlc {
					return events, xerr.ErrInvalidBox
				}
				if bodyLen < 4 {
					return events, xerr.ErrInvalidBox
				}
				idx, ok2 := d.tryPeekUint32()
				if !ok2 {
					return events, nil
				}
				d.consumePending(4)
				bodyLen -= 4
				last := idx&0x80000000 != 0
				index := idx &^ 0x80000000
				if d.jxlp.sawLast {
					return events, xerr.ErrInvalidBox
				}
				if index != d.jxlp.nextIndex {
					return events, xerr.ErrInvalidBox
				}
				d.jxlp.seenAny = true
				d.jxlp.sawJxlp = true
				d.jxlp.nextIndex = index + 1
				d.jxlp.sawLast = last
				d.state = stateInCodestreamContainer
				d.csKind = csContainer
				d.boxBytesLeft = bodyLen
			default:
				d.aux = auxHeader{typ: hdr.typ, bytesLeft: bodyLen, started: true}
				events = append(events, AuxBoxStartEvent{
					Type:   hdr.typ,
					Brotli: false,
					// IsLast only has meaning for jxlp partial-codestream
					// indices, which never reach this branch; aux boxes
					// always report false here.
					IsLast: false,
				})
				if bodyLen == 0 {
					events = append(events, AuxBoxEndEvent{Type: hdr.typ})
					d.state = stateWaitingBoxHeader
				} else {
					d.state = stateInAuxBox
				}
			}
			continue

		case stateInCodestreamBare:
			if len(d.pending) == 0 {
				return events, nil
			}
			events = append(events, CodestreamEvent{Data: takeAll(&d.pending, d)})
			return events, nil

		case stateInCodestreamContainer:
			if d.boxBytesLeft == 0 {
				d.state = stateWaitingBoxHeader
				continue
			}
			n := int64(len(d.pending))
			if d.boxBytesLeft > 0 && n > d.boxBytesLeft {
				n = d.boxBytesLeft
			}
			if n == 0 {
				return events, nil
			}
			data := take(&d.pending, int(n), d)
			if d.boxBytesLeft > 0 {
				d.boxBytesLeft -= n
			}
			events = append(events, CodestreamEvent{Data: data})
			if d.boxBytesLeft == 0 {
				d.state = stateWaitingBoxHeader
			}
			continue

		case stateInAuxBox:
			n := int64(len(d.pending))
			if d.aux.bytesLeft >= 0 && n > d.aux.bytesLeft {
				n = d.aux.bytesLeft
			}
			if n == 0 {
				return events, nil
			}
			data := take(&d.pending, int(n), d)
			if d.aux.bytesLeft > 0 {
				d.aux.bytesLeft -= n
			}
			if len(data) > 0 {
				events = append(events, AuxBoxDataEvent{Type: d.aux.typ, Data: data})
			}
			if d.aux.bytesLeft == 0 {
				events = append(events, AuxBoxEndEvent{Type: d.aux.typ})
				d.state = stateWaitingBoxHeader
			}
			continue

		case stateInvalid:
			d.pending = nil
			return events, nil
		}
	}
}

// Finish signals end of input, emitting NoMoreAuxBoxEvent. Callers should
// call this once no further bytes will arrive.
func (d *Demux) Finish() []Event {
	return []Event{NoMoreAuxBoxEvent{}}
}

func (d *Demux) consumePending(n int) {
	d.pending = d.pending[n:]
	d.consumed += int64(n)
}

func take(pending *[]byte, n int, d *Demux) []byte {
	data := make([]byte, n)
	copy(data, (*pending)[:n])
	*pending = (*pending)[n:]
	d.consumed += int64(n)
	return data
}

func takeAll(pending *[]byte, d *Demux) []byte {
	data := make([]byte, len(*pending))
	copy(data, *pending)
	d.consumed += int64(len(*pending))
	*pending = nil
	return data
}

func matchesSignature(buf []byte, sig []byte) bool {
	if len(buf) < len(sig) {
		return false
	}
	for i, b := range sig {
		if buf[i] != b {
			return false
		}
	}
	return true
}

type boxHeader struct {
	typ FourCC
}

// tryParseBoxHeader attempts to parse a box header (4-byte size + 4-byte
// type, optionally extended to a 64-bit size) from d.pending without
// consuming bytes that aren't yet available. Returns ok=false if more bytes
// are needed.
func (d *Demux) tryParseBoxHeader() (boxHeader, int, int64, bool, error) {
	if len(d.pending) < 8 {
		return boxHeader{}, 0, 0, false, nil
	}
	size32 := binary.BigEndian.Uint32(d.pending[0:4])
	typ := FourCC(binary.BigEndian.Uint32(d.pending[4:8]))

	switch size32 {
	case 1:
		if len(d.pending) < 16 {
			return boxHeader{}, 0, 0, false, nil
		}
		size64 := binary.BigEndian.Uint64(d.pending[8:16])
		if size64 < 16 {
			return boxHeader{}, 0, 0, false, xerr.ErrInvalidBox
		}
		return boxHeader{typ: typ}, 16, int64(size64) - 16, true, nil
	case 0:
		// Extends to end of input: treated as an unbounded aux box; the
		// codestream's own box kinds never legally use this form.
		if typ == FourCCJXLC || typ == FourCCJXLP {
			return boxHeader{}, 0, 0, false, xerr.ErrInvalidBox
		}
		return boxHeader{typ: typ}, 8, -1, true, nil
	default:
		if size32 < 8 {
			return boxHeader{}, 0, 0, false, xerr.ErrInvalidBox
		}
		return boxHeader{typ: typ}, 8, int64(size32) - 8, true, nil
	}
}

// tryPeekUint32 reads a big-endian uint32 from the front of d.pending
// without consuming it, returning ok=false if not enough bytes are
// buffered yet.
func (d *Demux) tryPeekUint32() (uint32, bool) {
	if len(d.pending) < 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(d.pending[0:4]), true
}
