package matree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func leaf(predictor int, offset int32) Node {
	return Node{Left: -1, Right: -1, Predictor: predictor, Offset: offset, Multiplier: 1}
}

func TestWalkRoutesOnProperty(t *testing.T) {
	tree := &Tree{
		Nodes: []Node{
			{Property: 0, Value: 2, Left: 1, Right: 2},
			leaf(1, 10),
			leaf(2, 20),
		},
	}
	var props [16]int32
	props[0] = 5 // > 2 -> left
	got := tree.Walk(props)
	require.Equal(t, int32(10), got.Offset)

	props[0] = 1 // <= 2 -> right
	got = tree.Walk(props)
	require.Equal(t, int32(20), got.Offset)
}

func TestFlattenCollapsesConstantChannelDecision(t *testing.T) {
	tree := &Tree{
		Nodes: []Node{
			{Property: PropChannel, Value: 0, Left: 1, Right: 2},
			leaf(1, 10),
			leaf(2, 20),
		},
	}
	flat := tree.Flatten(1 /* channel=1, so channel>0 -> left branch */, 0)
	require.Len(t, flat.Nodes, 1)
	var props [16]int32
	require.Equal(t, int32(10), flat.Walk(props).Offset)
}

func TestFlattenMergesIdenticalSiblingLeaves(t *testing.T) {
	tree := &Tree{
		Nodes: []Node{
			{Property: 5, Value: 0, Left: 1, Right: 2},
			leaf(3, 7),
			leaf(3, 7),
		},
	}
	flat := tree.Flatten(0, 0)
	require.Len(t, flat.Nodes, 1)
}

func TestIsLeaf(t *testing.T) {
	require.True(t, leaf(0, 0).IsLeaf())
	require.False(t, Node{Left: 1, Right: 2}.IsLeaf())
}
