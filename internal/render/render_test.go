package render

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeGroupsParallelOrdersByIndex(t *testing.T) {
	jobs := []GroupJob{{Index: 0}, {Index: 1}, {Index: 2}}
	results, err := DecodeGroupsParallel(jobs, func(job GroupJob) ([][]float32, error) {
		return [][]float32{{float32(job.Index)}}, nil
	}, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		require.EqualValues(t, i, r[0][0])
	}
}

func TestDecodeGroupsParallelPropagatesError(t *testing.T) {
	jobs := []GroupJob{{Index: 0}}
	_, err := DecodeGroupsParallel(jobs, func(job GroupJob) ([][]float32, error) {
		return nil, errors.New("boom")
	}, nil)
	require.Error(t, err)
}

func TestReferenceSlotsGetSet(t *testing.T) {
	var refs ReferenceSlots
	require.Nil(t, refs.Get(0))
	f := &Frame{Width: 1, Height: 1}
	refs.Set(1, f)
	require.Same(t, f, refs.Get(1))
	require.Nil(t, refs.Get(9))
}
