// Package entropy implements the JPEG XL entropy decoder: cluster-mapped
// per-context histograms (either prefix/Huffman-like trees or rANS
// distributions), integer-token decomposition, and LZ77-in-entropy-stream
// decoding backed by a 1 MiB ring window.
//
// The teacher package of this name implemented JPEG 2000's MQ arithmetic
// coder: a flat, table-driven finite-state machine (mqStates / mqQe /
// mqNMPS / mqNLPS arrays indexed directly by state number). JXL's rANS
// coder is a different algorithm but the same shape -- a small state
// advanced by table lookups -- so the flat-array-of-tables style carries
// over directly to Distribution below instead of a pointer-chasing
// struct-per-symbol design.
package entropy

import (
	"github.com/jxlcore/jxl/internal/bio"
	"github.com/jxlcore/jxl/internal/xerr"
)

// ansLowBound is the rANS renormalization bound: a state that drops below
// 1<<16 after a symbol is refilled 16 bits at a time until it is at
// least 1<<16 again, per §4.C.
// ansFinalState is the state a well-formed rANS stream must end in.
const (
	ansLowBound  = 1 << 16
	ansFinalState = 0x130000
	ringSize     = 1 << 20 // 1 MiB LZ77 window
)

// IntegerConfig decomposes a token into (msb raw bits, lsb raw bits)
// around a split point, per §4.C point 4. split_exponent must be
// <= log_alphabet_size.
type IntegerConfig struct {
	SplitExponent uint
	MSBInToken    uint
	LSBInToken    uint
}

// split is the token value at which direct tokens give way to the
// msb/lsb-split encoding.
func (c IntegerConfig) split() uint32 {
	return 1 << c.SplitExponent
}

// DefaultIntegerConfig is used for clusters that don't override it
// (split_exponent=log_alphabet_size, msb=0, lsb=0 means "no splitting").
func DefaultIntegerConfig(logAlphabetSize uint) IntegerConfig {
	return IntegerConfig{SplitExponent: logAlphabetSize}
}

// decodeTokenValue expands a raw token into its integer value, reading any
// extra raw bits the split encoding requires.
func decodeTokenValue(r *bio.Reader, cfg IntegerConfig, token uint32) (uint32, error) {
	split := cfg.split()
	if token < split {
		return token, nil
	}
	nbits := cfg.SplitExponent - (cfg.MSBInToken + cfg.LSBInToken) +
		uint((token-split)>>(cfg.MSBInToken+cfg.LSBInToken))
	var low, mid uint32
	var err error
	if cfg.LSBInToken > 0 {
		low, err = r.ReadBits(cfg.LSBInToken)
		if err != nil {
			return 0, err
		}
	}
	if cfg.MSBInToken > 0 {
		mid = (token - split) & ((1 << cfg.MSBInToken) - 1)
	}
	var hi uint32
	if nbits > 0 {
		hi, err = r.ReadBits(nbits)
		if err != nil {
			return 0, err
		}
	}
	value := low
	value |= mid << cfg.LSBInToken
	value |= hi << (cfg.LSBInToken + cfg.MSBInToken)
	value += split
	return value, nil
}

// UnpackSigned maps a zig-zag-coded unsigned token back to a signed value:
// (x >> 1) ^ -(x & 1).
func UnpackSigned(x uint32) int32 {
	return int32(x>>1) ^ -int32(x&1)
}

// Lz77Config configures LZ77-in-entropy-stream decoding for one cluster
// set (§4.C).
type Lz77Config struct {
	Enabled       bool
	MinSymbol     uint32
	MinLength     uint32
	LengthConfig  IntegerConfig
	// DistCluster is the cluster index reserved for distances, conventionally
	// the last cluster.
	DistCluster   int
	DistMultiplier uint32
}

// Distribution is one cluster's symbol source: either a prefix tree or an
// rANS table. Exactly one of the two table fields is populated.
type Distribution struct {
	UsePrefix bool

	// Prefix: canonical code lengths per symbol, used to build the
	// bit-by-bit walk table below.
	prefixLeft  []int32 // -1 = none
	prefixRight []int32
	prefixSym   []int32 // symbol for leaf nodes, -1 for internal

	// ANS: per-slot (symbol, freq, cum) of size 1<<logAlphabetSize.
	ansSymbol []uint16
	ansFreq   []uint16
	ansCum    []uint16

	logAlphabetSize uint
}

// symbolAtSlot returns the (symbol, freq, cum) triple of an ANS slot.
func (d *Distribution) symbolAtSlot(slot uint32) (uint16, uint16, uint16) {
	return d.ansSymbol[slot], d.ansFreq[slot], d.ansCum[slot]
}

// Decoder holds all per-stream entropy-decoding state: the cluster map,
// per-cluster distributions and integer configs, optional LZ77
// configuration, the rANS state register, and the LZ77 ring window. A
// Decoder's rANS state and ring are exclusive to the stream that owns it
// and must never be shared across groups (§5 shared-resource rule d).
type Decoder struct {
	clusterMap []uint32
	numClusters int
	dists       []Distribution
	intCfgs     []IntegerConfig
	lz77        Lz77Config

	ansState   uint32
	ansInit    []bool // per-cluster: has the 32-bit initial state been read

	ring     [ringSize]uint32
	ringPos  int
	numDecoded uint64
}

// NewDecoder parses a full entropy-coded section: cluster map, histogram
// mode, per-cluster integer configs, and per-cluster histograms, per the
// sequence in §4.C.
func NewDecoder(r *bio.Reader, numDist int) (*Decoder, error) {
	d := &Decoder{}

	lz77Enabled, err := readBool(r)
	if err != nil {
		return nil, err
	}
	if lz77Enabled {
		minSym, err := r.ReadU32(bio.U32Specifier{Base: 0, N: 0}, bio.U32Specifier{Base: 0, N: 8}, bio.U32Specifier{Base: 0, N: 16}, bio.U32Specifier{Base: 0, N: 32})
		if err != nil {
			return nil, err
		}
		minLen, err := r.ReadU32(bio.Direct(3), bio.U32Specifier{Base: 4, N: 8}, bio.U32Specifier{Base: 260, N: 16}, bio.U32Specifier{Base: 65796, N: 32})
		if err != nil {
			return nil, err
		}
		lenCfg, err := readIntegerConfig(r, 17)
		if err != nil {
			return nil, err
		}
		d.lz77 = Lz77Config{Enabled: true, MinSymbol: minSym, MinLength: minLen, LengthConfig: lenCfg}
		numDist++ // the LZ77 length alphabet rides on an extra synthetic distribution slot
	}

	clusterMap, numClusters, err := readClusterMap(r, numDist)
	if err != nil {
		return nil, err
	}
	d.clusterMap = clusterMap
	d.numClusters = numClusters
	if d.lz77.Enabled {
		d.lz77.DistCluster = numClusters - 1
	}

	usePrefix, err := readBool(r)
	if err != nil {
		return nil, err
	}

	logAlphabetSize := uint(15)
	if !usePrefix {
		v, err := r.ReadBits(2)
		if err != nil {
			return nil, err
		}
		logAlphabetSize = 5 + uint(v)
	}

	d.intCfgs = make([]IntegerConfig, numClusters)
	for i := range d.intCfgs {
		cfg, err := readIntegerConfig(r, logAlphabetSize)
		if err != nil {
			return nil, err
		}
		d.intCfgs[i] = cfg
	}

	d.dists = make([]Distribution, numClusters)
	d.ansInit = make([]bool, numClusters)
	for i := range d.dists {
		dist, err := readDistribution(r, usePrefix, logAlphabetSize)
		if err != nil {
			return nil, err
		}
		d.dists[i] = dist
	}

	return d, nil
}

func readBool(r *bio.Reader) (bool, error) {
	v, err := r.ReadBits(1)
	return v != 0, err
}

// readIntegerConfig reads split_exponent/msb/lsb per §4.C point 4.
func readIntegerConfig(r *bio.Reader, logAlphabetSize uint) (IntegerConfig, error) {
	splitExp, err := r.ReadBits(ceilLog2(logAlphabetSize + 1))
	if err != nil {
		return IntegerConfig{}, err
	}
	if uint(splitExp) == logAlphabetSize {
		return IntegerConfig{SplitExponent: logAlphabetSize}, nil
	}
	msbBits, err := r.ReadBits(ceilLog2(splitExp + 1))
	if err != nil {
		return IntegerConfig{}, err
	}
	if uint(msbBits) > uint(splitExp) {
		return IntegerConfig{}, xerr.Wrapf(xerr.ErrInvalidAnsStream, "msb_in_token %d exceeds split_exponent %d", msbBits, splitExp)
	}
	lsbBits, err := r.ReadBits(ceilLog2(splitExp - msbBits + 1))
	if err != nil {
		return IntegerConfig{}, err
	}
	return IntegerConfig{
		SplitExponent: uint(splitExp),
		MSBInToken:    uint(msbBits),
		LSBInToken:    uint(lsbBits),
	}, nil
}

func ceilLog2(n uint32) uint {
	if n <= 1 {
		return 0
	}
	bits := uint(0)
	v := n - 1
	for v > 0 {
		bits++
		v >>= 1
	}
	return bits
}

// readClusterMap implements the "simple" (2-bit width + per-dist raw
// index) and MTF-coded (recursive single-distribution entropy pass)
// variants of §4.C point 1.
func readClusterMap(r *bio.Reader, numDist int) ([]uint32, int, error) {
	if numDist == 1 {
		return []uint32{0}, 1, nil
	}
	isSimple, err := readBool(r)
	if err != nil {
		return nil, 0, err
	}
	clusterMap := make([]uint32, numDist)
	if isSimple {
		nbits, err := r.ReadBits(2)
		if err != nil {
			return nil, 0, err
		}
		for i := range clusterMap {
			v, err := r.ReadBits(uint(nbits))
			if err != nil {
				return nil, 0, err
			}
			clusterMap[i] = v
		}
	} else {
		useMtf, err := readBool(r)
		if err != nil {
			return nil, 0, err
		}
		inner, err := NewDecoder(r, 1)
		if err != nil {
			return nil, 0, err
		}
		for i := range clusterMap {
			v, err := inner.ReadSymbol(r, 0)
			if err != nil {
				return nil, 0, err
			}
			clusterMap[i] = uint32(v)
		}
		if useMtf {
			applyInverseMTF(clusterMap)
		}
	}
	numClusters := 0
	for _, c := range clusterMap {
		if int(c)+1 > numClusters {
			numClusters = int(c) + 1
		}
	}
	return clusterMap, numClusters, nil
}

func applyInverseMTF(vals []uint32) {
	var mtf []uint32
	maxSeen := uint32(0)
	for _, v := range vals {
		if v > maxSeen {
			maxSeen = v
		}
	}
	mtf = make([]uint32, maxSeen+1)
	for i := range mtf {
		mtf[i] = uint32(i)
	}
	for i, v := range vals {
		idx := v
		sym := mtf[idx]
		copy(mtf[1:idx+1], mtf[0:idx])
		mtf[0] = sym
		vals[i] = sym
	}
}

// readDistribution parses one cluster's histogram (§4.C point 5): either a
// prefix code tree (Brotli-style length code) or an rANS distribution
// table.
func readDistribution(r *bio.Reader, usePrefix bool, logAlphabetSize uint) (Distribution, error) {
	if usePrefix {
		return readPrefixHistogram(r)
	}
	return readAnsHistogram(r, logAlphabetSize)
}

// ReadSymbol decodes one symbol through the given cluster's distribution.
func (d *Decoder) ReadSymbol(r *bio.Reader, ctx int) (uint32, error) {
	cluster := d.clusterOf(ctx)
	dist := &d.dists[cluster]
	if dist.UsePrefix {
		return readPrefixSymbol(r, dist)
	}
	return d.readAnsSymbol(r, cluster, dist)
}

func (d *Decoder) clusterOf(ctx int) int {
	if ctx < 0 || ctx >= len(d.clusterMap) {
		return 0
	}
	return int(d.clusterMap[ctx])
}

// readAnsSymbol implements the rANS decode step from §4.C: on first use
// per cluster, read a 32-bit initial state; otherwise consult the slot
// table, update the state, and refill from 16 bits while below the low
// bound.
func (d *Decoder) readAnsSymbol(r *bio.Reader, cluster int, dist *Distribution) (uint32, error) {
	if !d.ansInit[cluster] {
		v, err := r.ReadBits(32)
		if err != nil {
			return 0, err
		}
		d.ansState = v
		d.ansInit[cluster] = true
	}
	slot := d.ansState & ((1 << dist.logAlphabetSize) - 1)
	sym, freq, cum := dist.symbolAtSlot(slot)
	d.ansState = uint32(freq)*(d.ansState>>dist.logAlphabetSize) + uint32(slot-cum)
	for d.ansState < ansLowBound {
		bits, err := r.ReadBits(16)
		if err != nil {
			return 0, err
		}
		d.ansState = (d.ansState << 16) | bits
	}
	return uint32(sym), nil
}

// FinalizeAns validates the final rANS state equals 0x130000 (§8 rANS
// invariant); call once after the last symbol of the stream has been read.
func (d *Decoder) FinalizeAns() error {
	hasAns := false
	for i := range d.dists {
		if !d.dists[i].UsePrefix {
			hasAns = true
		}
	}
	if !hasAns {
		return nil
	}
	if d.ansState != ansFinalState {
		return xerr.Wrapf(xerr.ErrInvalidAnsStream, "final state 0x%x, want 0x%x", d.ansState, ansFinalState)
	}
	return nil
}

// ReadVarint reads one value through ctx's cluster, transparently handling
// an LZ77 back-reference if the decoded symbol falls in the LZ77 range,
// and unpacking the integer-token split encoding either way.
func (d *Decoder) ReadVarint(r *bio.Reader, ctx int) (uint32, error) {
	cluster := d.clusterOf(ctx)
	sym, err := d.ReadSymbol(r, ctx)
	if err != nil {
		return 0, err
	}
	if d.lz77.Enabled && sym >= d.lz77.MinSymbol {
		return d.readLz77(r, sym)
	}
	val, err := decodeTokenValue(r, d.intCfgs[cluster], sym)
	if err != nil {
		return 0, err
	}
	d.recordDecoded(val)
	return val, nil
}

// readLz77 decodes a length/distance pair and replays bytes from the ring
// window, per §4.C's LZ77-in-entropy-stream description.
func (d *Decoder) readLz77(r *bio.Reader, lenSymbol uint32) (uint32, error) {
	lenToken := lenSymbol - d.lz77.MinSymbol
	length, err := decodeTokenValue(r, d.lz77.LengthConfig, lenToken)
	if err != nil {
		return 0, err
	}
	length += d.lz77.MinLength

	distDist := &d.dists[d.lz77.DistCluster]
	var distSym uint32
	if distDist.UsePrefix {
		distSym, err = readPrefixSymbol(r, distDist)
	} else {
		distSym, err = d.readAnsSymbol(r, d.lz77.DistCluster, distDist)
	}
	if err != nil {
		return 0, err
	}
	distToken, err := decodeTokenValue(r, d.intCfgs[d.lz77.DistCluster], distSym)
	if err != nil {
		return 0, err
	}
	dist := remapDistance(distToken, d.lz77.DistMultiplier)

	maxDist := uint64(ringSize)
	if d.numDecoded < maxDist {
		maxDist = d.numDecoded
	}
	if uint64(dist) > maxDist || dist == 0 {
		dist = 1
	}

	copyPos := d.numDecoded - uint64(dist)
	var last uint32
	for i := uint32(0); i < length; i++ {
		v := d.ring[(copyPos+uint64(i))&(ringSize-1)]
		d.recordDecoded(v)
		last = v
	}
	return last, nil
}

func (d *Decoder) recordDecoded(v uint32) {
	d.ring[d.numDecoded&(ringSize-1)] = v
	d.numDecoded++
}

// specialDistances is a 120-entry table of small (dx,dy) spatial offsets
// used to remap short LZ77 distances into neighborhoods likely to repeat
// in Modular image data, ordered by increasing Chebyshev/Manhattan
// distance from the origin the way the format's table is constructed.
var specialDistances = buildSpecialDistances()

func buildSpecialDistances() [120][2]int32 {
	type pt struct{ x, y int32 }
	var pts []pt
	for r := int32(0); r < 12 && len(pts) < 240; r++ {
		for x := -r; x <= r; x++ {
			y := r - abs32(x)
			if y >= 0 {
				pts = append(pts, pt{x, y})
				if y != 0 {
					pts = append(pts, pt{x, -y})
				}
			}
		}
	}
	var out [120][2]int32
	for i := 0; i < 120 && i < len(pts); i++ {
		out[i] = [2]int32{pts[i].x, pts[i].y}
	}
	return out
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// remapDistance implements the distance-remapping rule of §4.C: a
// multiplier of 0 uses the token directly (d+1); otherwise small tokens
// index the special-distance table combined with the multiplier, and
// larger ones fall back to a flat offset.
func remapDistance(token uint32, multiplier uint32) uint32 {
	if multiplier == 0 {
		return token + 1
	}
	if token < 120 {
		xy := specialDistances[token]
		d := int64(xy[1])*int64(multiplier) + int64(xy[0])
		if d < 1 {
			d = 1
		}
		return uint32(d)
	}
	return token - 119
}
