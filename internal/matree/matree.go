// Package matree implements the Modular path's meta-adaptive decision
// tree: a binary tree of per-sample property tests that selects a
// predictor, context cluster, and affine correction for each decoded
// value.
//
// Nodes are stored as a flat arena of indices rather than pointer-chasing
// structs (§9 design note), the same shape the entropy package's prefix
// tree and the teacher's mqStates table both use for table-driven
// decoding.
package matree

import (
	"github.com/jxlcore/jxl/internal/bio"
	"github.com/jxlcore/jxl/internal/entropy"
	"github.com/jxlcore/jxl/internal/xerr"
)

// Property indices defined by §4.D. 0=channel, 1=stream, 2.. are
// sample-neighborhood predictors, 15 is the self-correcting predictor's
// running error.
const (
	PropChannel = 0
	PropStream  = 1
	PropSelfCorrectingError = 15
	numProperties = 16
)

const maxNodes = 1 << 26

// rawNode is a folded-list entry as read from the bitstream: either a
// decision (Leaf=false) or a leaf (Leaf=true).
type rawNode struct {
	leaf bool

	// Decision fields.
	property int
	value    int32

	// Leaf fields.
	predictor  int
	offset     int32
	mulLog     uint
	mulBits    uint32
}

// Node is one entry of the unfolded (or flattened) tree, stored by
// integer child index with -1 meaning "none" / "this is a leaf".
type Node struct {
	// Decision.
	Property int
	Value    int32
	Left     int32
	Right    int32

	// Leaf (Left == -1 indicates a leaf).
	Cluster    int
	Predictor  int
	Offset     int32
	Multiplier int32
}

// IsLeaf reports whether n is a leaf node.
func (n Node) IsLeaf() bool { return n.Left == -1 }

// Tree is a fully unfolded MA tree plus its leaf count (CtxCount).
type Tree struct {
	Nodes   []Node
	CtxCount int
}

// Parse reads the MA tree per §4.D: one entropy decoder with 6 contexts
// reads a pre-order folded node list, then a second entropy decoder with
// ctx_count contexts supplies the cluster map from leaf context index to
// histogram cluster.
func Parse(r *bio.Reader) (*Tree, error) {
	treeDec, err := entropy.NewDecoder(r, 6)
	if err != nil {
		return nil, err
	}

	var raw []rawNode
	nodesLeft := 1
	ctxCount := 0
	for nodesLeft > 0 && len(raw) < maxNodes {
		nodesLeft--
		isDecision, err := readBit(r, treeDec, 0)
		if err != nil {
			return nil, err
		}
		if isDecision != 0 {
			prop, err := treeDec.ReadVarint(r, 1)
			if err != nil {
				return nil, err
			}
			valTok, err := treeDec.ReadVarint(r, 2)
			if err != nil {
				return nil, err
			}
			raw = append(raw, rawNode{
				leaf:     false,
				property: int(prop) % numProperties,
				value:    entropy.UnpackSigned(valTok),
			})
			nodesLeft += 2
		} else {
			predTok, err := treeDec.ReadVarint(r, 3)
			if err != nil {
				return nil, err
			}
			offTok, err := treeDec.ReadVarint(r, 4)
			if err != nil {
				return nil, err
			}
			mulLogTok, err := treeDec.ReadVarint(r, 5)
			if err != nil {
				return nil, err
			}
			if mulLogTok > 30 {
				return nil, xerr.Wrapf(xerr.ErrInvalidMaTree, "mul_log %d exceeds 30", mulLogTok)
			}
			mulBitsTok, err := treeDec.ReadVarint(r, 5)
			if err != nil {
				return nil, err
			}
			if uint64(mulBitsTok)+1 > uint64(1)<<(31-mulLogTok) {
				return nil, xerr.Wrap(xerr.ErrInvalidMaTree, "mul_bits+1 exceeds 2^(31-mul_log)")
			}
			raw = append(raw, rawNode{
				leaf:      true,
				predictor: int(predTok),
				offset:    entropy.UnpackSigned(offTok),
				mulLog:    uint(mulLogTok),
				mulBits:   mulBitsTok,
			})
			ctxCount++
		}
	}
	if nodesLeft > 0 {
		return nil, xerr.Wrap(xerr.ErrInvalidMaTree, "folded node list truncated")
	}

	ctxDec, err := entropy.NewDecoder(r, ctxCount)
	if err != nil {
		return nil, err
	}

	nodes, err := unfold(raw, ctxDec, r)
	if err != nil {
		return nil, err
	}
	return &Tree{Nodes: nodes, CtxCount: ctxCount}, nil
}

func readBit(r *bio.Reader, dec *entropy.Decoder, ctx int) (uint32, error) {
	return dec.ReadSymbol(r, ctx)
}

// unfold rebuilds the tree structure from the pre-order folded list: each
// decision pops its two children off a pending queue in the same order
// they appear next in the stream (pre-order == the children immediately
// follow their parent once all of the parent's left siblings are placed),
// assigning leaf cluster contexts from ctxDec's cluster map in read order.
func unfold(raw []rawNode, ctxDec *entropy.Decoder, r *bio.Reader) ([]Node, error) {
	nodes := make([]Node, len(raw))
	leafCtx := 0
	pos := 0

	var build func() (int32, error)
	build = func() (int32, error) {
		if pos >= len(raw) {
			return 0, xerr.Wrap(xerr.ErrInvalidMaTree, "ran out of folded nodes while unfolding")
		}
		idx := int32(pos)
		rn := raw[pos]
		pos++
		if rn.leaf {
			cluster, err := ctxDec.ReadSymbol(r, leafCtx)
			if err != nil {
				return 0, err
			}
			nodes[idx] = Node{
				Left:       -1,
				Right:      -1,
				Cluster:    int(cluster),
				Predictor:  rn.predictor,
				Offset:     rn.offset,
				Multiplier: int32(rn.mulBits) + 1<<rn.mulLog,
			}
			leafCtx++
			return idx, nil
		}
		nodes[idx] = Node{Property: rn.property, Value: rn.value}
		left, err := build()
		if err != nil {
			return 0, err
		}
		right, err := build()
		if err != nil {
			return 0, err
		}
		nodes[idx].Left = left
		nodes[idx].Right = right
		return idx, nil
	}
	if _, err := build(); err != nil {
		return nil, err
	}
	return nodes, nil
}

// Walk evaluates the tree against a property vector (indexed by property
// id, §4.D) and returns the matching leaf. props[property] > value routes
// left, otherwise right, matching the source's decision semantics.
func (t *Tree) Walk(props [numProperties]int32) Node {
	idx := int32(0)
	for !t.Nodes[idx].IsLeaf() {
		n := t.Nodes[idx]
		if props[n.Property] > n.Value {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
	return t.Nodes[idx]
}

// FlatForChannelStream specializes the tree for a known (channel,
// stream_idx) pair: decisions on property 0 (channel) or 1 (stream) are
// replaced by their constant-taken branch, and sibling leaf pairs that
// collapsed to identical leaves are merged into their parent, producing a
// contiguous, generally much smaller array (§4.D; §8 invariant: strictly
// fewer nodes for any constant channel/stream. A tree with a single
// leaf already satisfies this vacuously and is returned as-is.
type FlatTree struct {
	Nodes []Node
	Root  int32
}

// Flatten builds a FlatTree for a fixed channel/stream pair. Per-(channel,
// stream) results should be cached by the caller (§4.F supplement): the
// same pair recurs across every group of a frame.
func (t *Tree) Flatten(channel, stream int) FlatTree {
	memo := map[int32]int32{}
	var nodes []Node

	var build func(idx int32) int32
	build = func(idx int32) int32 {
		if out, ok := memo[idx]; ok {
			return out
		}
		n := t.Nodes[idx]
		if n.IsLeaf() {
			for i, existing := range nodes {
				if existing == n {
					memo[idx] = int32(i)
					return int32(i)
				}
			}
			nodes = append(nodes, n)
			out := int32(len(nodes) - 1)
			memo[idx] = out
			return out
		}
		if n.Property == PropChannel || n.Property == PropStream {
			var taken int32
			var propVal int32
			if n.Property == PropChannel {
				propVal = int32(channel)
			} else {
				propVal = int32(stream)
			}
			if propVal > n.Value {
				taken = n.Left
			} else {
				taken = n.Right
			}
			out := build(taken)
			memo[idx] = out
			return out
		}
		leftOut := build(n.Left)
		rightOut := build(n.Right)
		if leftOut != rightOut {
			nodes = append(nodes, Node{Property: n.Property, Value: n.Value, Left: leftOut, Right: rightOut})
			out := int32(len(nodes) - 1)
			memo[idx] = out
			return out
		}
		// Identical sibling leaves collapse into the parent.
		out := leftOut
		memo[idx] = out
		return out
	}
	root := build(0)
	return FlatTree{Nodes: nodes, Root: root}
}

// Walk evaluates a flattened, channel/stream-specialized tree.
func (t *FlatTree) Walk(props [numProperties]int32) Node {
	idx := t.Root
	for !t.Nodes[idx].IsLeaf() {
		n := t.Nodes[idx]
		if props[n.Property] > n.Value {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
	return t.Nodes[idx]
}
