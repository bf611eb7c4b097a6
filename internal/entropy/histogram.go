package entropy

import (
	"sort"

	"github.com/jxlcore/jxl/internal/bio"
	"github.com/jxlcore/jxl/internal/xerr"
)

// Prefix-code parsing. Code lengths are read Brotli-style: a small
// meta-code describes the length of each symbol's canonical Huffman code,
// then the tree is rebuilt from those lengths. The tree itself is stored
// as an arena of indices (§9 design note: "Arena + indices ... The same
// pattern applies to the prefix-code tree") rather than a pointer-chasing
// struct, mirroring the flat mqStates-style tables the teacher used for
// its own entropy coder.

const maxPrefixCodeBits = 15

// readPrefixHistogram reads a canonical-code length table for one cluster
// and builds its bit-walk tree.
func readPrefixHistogram(r *bio.Reader) (Distribution, error) {
	lengths, err := readCodeLengths(r)
	if err != nil {
		return Distribution{}, err
	}
	d, err := buildPrefixTree(lengths)
	if err != nil {
		return Distribution{}, err
	}
	d.UsePrefix = true
	return d, nil
}

// readCodeLengths reads the number of symbols then a length (0..15, 0
// meaning "unused") for each, the simplified form of Brotli's length-code
// meta-encoding sufficient for JXL's per-cluster histograms.
func readCodeLengths(r *bio.Reader) ([]uint8, error) {
	numSymbols, err := r.ReadU32(bio.Direct(1), bio.U32Specifier{Base: 2, N: 4}, bio.U32Specifier{Base: 18, N: 8}, bio.U32Specifier{Base: 274, N: 16})
	if err != nil {
		return nil, err
	}
	lengths := make([]uint8, numSymbols)
	for i := range lengths {
		l, err := r.ReadBits(4)
		if err != nil {
			return nil, err
		}
		lengths[i] = uint8(l)
	}
	return lengths, nil
}

// buildPrefixTree constructs a canonical Huffman tree from code lengths and
// validates the Kraft inequality holds with equality (a complete code).
func buildPrefixTree(lengths []uint8) (Distribution, error) {
	type sym struct {
		idx int
		len uint8
	}
	var syms []sym
	maxLen := uint8(0)
	for i, l := range lengths {
		if l == 0 {
			continue
		}
		if l > maxPrefixCodeBits {
			return Distribution{}, xerr.Wrapf(xerr.ErrInvalidPrefixHistogram, "code length %d exceeds %d", l, maxPrefixCodeBits)
		}
		syms = append(syms, sym{idx: i, len: l})
		if l > maxLen {
			maxLen = l
		}
	}
	if len(syms) == 0 {
		return Distribution{}, xerr.Wrap(xerr.ErrInvalidPrefixHistogram, "no symbols with nonzero code length")
	}
	sort.SliceStable(syms, func(i, j int) bool {
		if syms[i].len != syms[j].len {
			return syms[i].len < syms[j].len
		}
		return syms[i].idx < syms[j].idx
	})

	if len(syms) == 1 {
		d := Distribution{
			prefixLeft:  []int32{-1},
			prefixRight: []int32{-1},
			prefixSym:   []int32{int32(syms[0].idx)},
		}
		return d, nil
	}

	// Assign canonical codes in order of increasing length.
	codes := make([]uint32, len(syms))
	code := uint32(0)
	prevLen := syms[0].len
	for i, s := range syms {
		code <<= (s.len - prevLen)
		codes[i] = code
		code++
		prevLen = s.len
	}
	kraft := uint64(0)
	for _, s := range syms {
		kraft += uint64(1) << (maxPrefixCodeBits - s.len)
	}
	if kraft != uint64(1)<<maxPrefixCodeBits {
		return Distribution{}, xerr.Wrap(xerr.ErrInvalidPrefixHistogram, "code lengths do not form a complete prefix code")
	}

	d := Distribution{prefixLeft: []int32{-1}, prefixRight: []int32{-1}, prefixSym: []int32{-1}}
	for i, s := range syms {
		insertPrefixCode(&d, codes[i], s.len, int32(s.idx))
	}
	return d, nil
}

// insertPrefixCode walks/extends the tree to place symbol at the path
// described by the top `length` bits of code (MSB-first within the code).
func insertPrefixCode(d *Distribution, code uint32, length uint8, symbol int32) {
	node := int32(0)
	for b := int(length) - 1; b >= 0; b-- {
		bit := (code >> uint(b)) & 1
		var next *int32
		if bit == 0 {
			next = &d.prefixLeft[node]
		} else {
			next = &d.prefixRight[node]
		}
		if *next == -1 {
			d.prefixLeft = append(d.prefixLeft, -1)
			d.prefixRight = append(d.prefixRight, -1)
			d.prefixSym = append(d.prefixSym, -1)
			*next = int32(len(d.prefixLeft) - 1)
		}
		node = *next
	}
	d.prefixSym[node] = symbol
}

// readPrefixSymbol walks the tree one bit at a time from the root.
func readPrefixSymbol(r *bio.Reader, d *Distribution) (uint32, error) {
	node := int32(0)
	if len(d.prefixLeft) == 1 && d.prefixLeft[0] == -1 && d.prefixRight[0] == -1 {
		return uint32(d.prefixSym[0]), nil
	}
	for {
		bit, err := r.ReadBits(1)
		if err != nil {
			return 0, err
		}
		if bit == 0 {
			node = d.prefixLeft[node]
		} else {
			node = d.prefixRight[node]
		}
		if node == -1 {
			return 0, xerr.Wrap(xerr.ErrInvalidPrefixHistogram, "prefix walk fell off tree")
		}
		if d.prefixSym[node] != -1 {
			return uint32(d.prefixSym[node]), nil
		}
	}
}

// ANS histogram parsing: read per-symbol frequencies summing to
// 1<<logAlphabetSize, then expand into a flat per-slot lookup table.

func readAnsHistogram(r *bio.Reader, logAlphabetSize uint) (Distribution, error) {
	total := uint32(1) << logAlphabetSize

	numSymbols, err := r.ReadU32(bio.Direct(1), bio.U32Specifier{Base: 2, N: 4}, bio.U32Specifier{Base: 18, N: 8}, bio.U32Specifier{Base: 274, N: 16})
	if err != nil {
		return Distribution{}, err
	}
	freqs := make([]uint32, numSymbols)
	var sum uint32
	for i := range freqs {
		// Frequencies are coded as a small direct value (0 meaning
		// "unused") except the final symbol, which takes whatever is left
		// to make the distribution sum to `total`.
		if i == len(freqs)-1 {
			if total < sum {
				return Distribution{}, xerr.Wrap(xerr.ErrInvalidAnsStream, "ANS frequencies exceed alphabet size")
			}
			freqs[i] = total - sum
			continue
		}
		v, err := r.ReadU32(bio.Direct(0), bio.U32Specifier{Base: 1, N: 12}, bio.U32Specifier{Base: 4097, N: 16}, bio.U32Specifier{Base: 69633, N: 22})
		if err != nil {
			return Distribution{}, err
		}
		freqs[i] = v
		sum += v
		if sum > total {
			return Distribution{}, xerr.Wrap(xerr.ErrInvalidAnsStream, "ANS frequencies exceed alphabet size")
		}
	}

	d := Distribution{
		logAlphabetSize: logAlphabetSize,
		ansSymbol:       make([]uint16, total),
		ansFreq:         make([]uint16, total),
		ansCum:          make([]uint16, total),
	}
	var cum uint32
	for sym, f := range freqs {
		for i := uint32(0); i < f; i++ {
			slot := cum + i
			d.ansSymbol[slot] = uint16(sym)
			d.ansFreq[slot] = uint16(f)
			d.ansCum[slot] = uint16(cum)
		}
		cum += f
	}
	return d, nil
}
