package container

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBareCodestreamDetected(t *testing.T) {
	d := NewDemux()
	events, err := d.Feed([]byte{0xFF, 0x0A, 1, 2, 3, 4})
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, BitstreamKindEvent{Kind: KindBareCodestream}, events[0])
	cs, ok := events[1].(CodestreamEvent)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3, 4}, cs.Data)
}

func TestInvalidSignature(t *testing.T) {
	d := NewDemux()
	events, err := d.Feed([]byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b})
	require.NoError(t, err)
	require.Equal(t, BitstreamKindEvent{Kind: KindInvalid}, events[0])
}

func box(typ FourCC, body []byte) []byte {
	out := make([]byte, 8+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(8+len(body)))
	binary.BigEndian.PutUint32(out[4:8], uint32(typ))
	copy(out[8:], body)
	return out
}

func TestContainerJxlcAndAuxBox(t *testing.T) {
	var in []byte
	in = append(in, containerSignature[:]...)
	in = append(in, box(FourCCJXLC, []byte{0xAA, 0xBB})...)
	in = append(in, box(FourCCExif, []byte{1, 2, 3})...)

	d := NewDemux()
	events, err := d.Feed(in)
	require.NoError(t, err)

	require.Equal(t, BitstreamKindEvent{Kind: KindContainer}, events[0])

	var sawCodestream, sawExifStart, sawExifEnd bool
	for _, e := range events[1:] {
		switch ev := e.(type) {
		case CodestreamEvent:
			require.Equal(t, []byte{0xAA, 0xBB}, ev.Data)
			sawCodestream = true
		case AuxBoxStartEvent:
			require.Equal(t, FourCCExif, ev.Type)
			sawExifStart = true
		case AuxBoxEndEvent:
			require.Equal(t, FourCCExif, ev.Type)
			sawExifEnd = true
		}
	}
	require.True(t, sawCodestream)
	require.True(t, sawExifStart)
	require.True(t, sawExifEnd)
}

func TestJxlpIndicesMustIncrease(t *testing.T) {
	var in []byte
	in = append(in, containerSignature[:]...)
	idx1 := make([]byte, 4)
	binary.BigEndian.PutUint32(idx1, 0)
	in = append(in, box(FourCCJXLP, append(idx1, 1, 2))...)

	idxBad := make([]byte, 4)
	binary.BigEndian.PutUint32(idxBad, 5) // should be 1
	in = append(in, box(FourCCJXLP, append(idxBad, 3, 4))...)

	d := NewDemux()
	_, err := d.Feed(in)
	require.Error(t, err)
}

func TestFeedByteAtATimeMatchesOneShot(t *testing.T) {
	var in []byte
	in = append(in, containerSignature[:]...)
	in = append(in, box(FourCCJXLC, []byte{1, 2, 3, 4, 5, 6, 7, 8})...)

	oneShot := NewDemux()
	oneShotEvents, err := oneShot.Feed(in)
	require.NoError(t, err)

	chunked := NewDemux()
	var chunkedEvents []Event
	for _, b := range in {
		evs, err := chunked.Feed([]byte{b})
		require.NoError(t, err)
		chunkedEvents = append(chunkedEvents, evs...)
	}

	var oneShotData, chunkedData []byte
	for _, e := range oneShotEvents {
		if cs, ok := e.(CodestreamEvent); ok {
			oneShotData = append(oneShotData, cs.Data...)
		}
	}
	for _, e := range chunkedEvents {
		if cs, ok := e.(CodestreamEvent); ok {
			chunkedData = append(chunkedData, cs.Data...)
		}
	}
	require.Equal(t, oneShotData, chunkedData)
}

func FuzzDemuxNeverPanics(f *testing.F) {
	f.Add([]byte{0xFF, 0x0A, 1, 2, 3})
	f.Add(append(append([]byte{}, containerSignature[:]...), box(FourCCJXLC, []byte{1, 2})...))
	f.Fuzz(func(t *testing.T, data []byte) {
		d := NewDemux()
		_, _ = d.Feed(data)
	})
}
