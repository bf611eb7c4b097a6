package headers

import (
	"github.com/jxlcore/jxl/internal/bio"
	"github.com/jxlcore/jxl/internal/entropy"
	"github.com/jxlcore/jxl/internal/xerr"
)

// TocGroupKind classifies a TOC entry by which part of a frame's group
// data it indexes (§4.E).
type TocGroupKind int

const (
	TocAll TocGroupKind = iota
	TocLfGlobal
	TocLfGroup
	TocHfGlobal
	TocGroupPass
)

// TocEntry is one offset/size record plus the identity of the group data
// it locates.
type TocEntry struct {
	Kind  TocGroupKind
	Pass  int // valid when Kind == TocGroupPass
	Index int // LfGroup index, or group index within a pass
	Size  uint32

	// Offset is the byte offset (from the end of the TOC, after its own
	// zero-padding) at which this entry's data begins. Entries are stored
	// in bitstream order; Offset is the running prefix sum of prior
	// entries' Size in that same order.
	Offset uint32
}

// Toc is a frame's fully parsed table of contents: an ordered list of
// entries in the permuted bitstream order, plus the permutation needed to
// recover canonical order.
type Toc struct {
	Entries             []TocEntry
	BitstreamToOriginal []int
	OriginalToBitstream []int
}

// Find returns the entry matching (kind, pass, index), used to locate a
// specific group's byte range for TOC-driven lazy/random-access group
// decode (§4.E, §4.L).
func (t *Toc) Find(kind TocGroupKind, pass, index int) (TocEntry, bool) {
	for _, e := range t.Entries {
		if e.Kind != kind {
			continue
		}
		switch kind {
		case TocGroupPass:
			if e.Pass == pass && e.Index == index {
				return e, true
			}
		case TocLfGroup:
			if e.Index == index {
				return e, true
			}
		default:
			return e, true
		}
	}
	return TocEntry{}, false
}

func readTocSize(r *bio.Reader) (uint32, error) {
	return r.ReadU32(bio.U32Specifier{N: 10}, bio.U32Specifier{Base: 1024, N: 14}, bio.U32Specifier{Base: 17408, N: 22}, bio.U32Specifier{Base: 4211712, N: 30})
}

const maxTocEntries = 65536

// tocGroupIdentity reconstructs which (kind, pass, index) the i-th entry
// in canonical order refers to, given the number of LF groups, the number
// of passes, and the number of (HF) groups per pass (§4.E).
func tocGroupIdentity(i, numLfGroups, numPasses, numGroups int) TocEntry {
	switch {
	case i == 0:
		return TocEntry{Kind: TocLfGlobal}
	case i < 1+numLfGroups:
		return TocEntry{Kind: TocLfGroup, Index: i - 1}
	case i == 1+numLfGroups:
		return TocEntry{Kind: TocHfGlobal}
	default:
		rest := i - (2 + numLfGroups)
		return TocEntry{Kind: TocGroupPass, Pass: rest / numGroups, Index: rest % numGroups}
	}
}

// ParseToc reads the table of contents for a frame with the given group
// geometry. numGroups is the number of 256px groups per pass; numLfGroups
// is the number of 2048px LF groups; numPasses is the frame's pass count.
func ParseToc(r *bio.Reader, numGroups, numLfGroups, numPasses int) (*Toc, error) {
	total := 1 // LfGlobal
	total += numLfGroups
	total += 1 // HfGlobal
	total += numGroups * numPasses

	if total > maxTocEntries {
		return nil, xerr.Wrapf(xerr.ErrInvalidTocPermutation, "toc has %d entries, limit is %d", total, maxTocEntries)
	}

	// A single-entry TOC (one group, one pass, no LF groups beyond the
	// implicit one) is coded as the special "All" case with no
	// permutation and no explicit size list: the remaining frame data is
	// a single section.
	if numGroups == 1 && numPasses == 1 {
		return &Toc{
			Entries:             []TocEntry{{Kind: TocAll}},
			BitstreamToOriginal: []int{0},
			OriginalToBitstream: []int{0},
		}, nil
	}

	permute, err := r.ReadBits(1)
	if err != nil {
		return nil, err
	}

	bitstreamToOriginal := make([]int, total)
	for i := range bitstreamToOriginal {
		bitstreamToOriginal[i] = i
	}

	if permute != 0 {
		perm, err := readLehmerPermutation(r, total)
		if err != nil {
			return nil, err
		}
		bitstreamToOriginal = perm
	}

	if err := r.ZeroPadToByte(); err != nil {
		return nil, err
	}

	sizes := make([]uint32, total)
	for i := range sizes {
		sz, err := readTocSize(r)
		if err != nil {
			return nil, err
		}
		sizes[i] = sz
	}

	if err := r.ZeroPadToByte(); err != nil {
		return nil, err
	}

	entries := make([]TocEntry, total)
	var offset uint32
	for i := 0; i < total; i++ {
		orig := bitstreamToOriginal[i]
		e := tocGroupIdentity(orig, numLfGroups, numPasses, numGroups)
		e.Size = sizes[i]
		e.Offset = offset
		offset += sizes[i]
		entries[i] = e
	}

	originalToBitstream := make([]int, total)
	for bs, orig := range bitstreamToOriginal {
		originalToBitstream[orig] = bs
	}

	return &Toc{
		Entries:             entries,
		BitstreamToOriginal: bitstreamToOriginal,
		OriginalToBitstream: originalToBitstream,
	}, nil
}

// readLehmerPermutation decodes a permutation of n elements via a single
// entropy-coded distribution over Lehmer code digits, matching the same
// "one context, varint per digit" shape the MA tree's leaf-cluster context
// uses (§4.D; §4.E).
func readLehmerPermutation(r *bio.Reader, n int) ([]int, error) {
	dec, err := entropy.NewDecoder(r, 1)
	if err != nil {
		return nil, err
	}

	lehmer := make([]int, n)
	for i := range lehmer {
		v, err := dec.ReadVarint(r, 0)
		if err != nil {
			return nil, err
		}
		lehmer[i] = int(v)
	}
	if err := dec.FinalizeAns(); err != nil {
		return nil, err
	}

	// Convert the Lehmer code into the permutation it encodes: lehmer[i]
	// is the index, among the elements not yet placed, chosen at step i.
	available := make([]int, n)
	for i := range available {
		available[i] = i
	}
	perm := make([]int, n)
	for i, l := range lehmer {
		if l < 0 || l >= len(available) {
			return nil, xerr.Wrapf(xerr.ErrInvalidTocPermutation, "lehmer digit %d out of range at step %d", l, i)
		}
		perm[i] = available[l]
		available = append(available[:l], available[l+1:]...)
	}
	return perm, nil
}
