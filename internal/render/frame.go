// Package render orchestrates a full frame decode: demuxing the TOC into
// per-group jobs, running the Modular/VarDCT pipelines over a worker
// pool, applying the loop filters and feature overlays, and maintaining
// the small reference-frame slot cache later frames' patches/blending
// draw from (§4.L).
//
// The group-parallel worker pool mirrors the teacher's tile encoder
// worker pool (root package EncodeTiles: a pre-filled job channel drained
// by runtime.GOMAXPROCS(0) workers, results collected into an
// index-ordered slice via a result channel), generalized from
// code-block encode jobs to whole-group decode jobs.
package render

import (
	"runtime"
	"sync"

	"github.com/jxlcore/jxl/internal/alloc"
	"github.com/jxlcore/jxl/internal/headers"
	"github.com/jxlcore/jxl/internal/xerr"
	"github.com/jxlcore/jxl/internal/xlog"
)

// Frame is the fully decoded, filtered, and feature-composited result of
// one frame's worth of group data (§4.L).
type Frame struct {
	Header   *headers.FrameHeader
	Channels [][]float32 // one slice per image channel, row-major at frame resolution
	Width, Height int
}

// ReferenceSlots holds up to 4 previously decoded frames kept around for
// later frames' patches, splines-under-blend, and frame blending (§4.L).
type ReferenceSlots struct {
	mu    sync.Mutex
	slots [4]*Frame
}

// Get returns the frame stored in slot i, or nil if empty or out of
// range.
func (r *ReferenceSlots) Get(i int) *Frame {
	if i < 0 || i >= len(r.slots) {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slots[i]
}

// Set stores f in slot i.
func (r *ReferenceSlots) Set(i int, f *Frame) {
	if i < 0 || i >= len(r.slots) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[i] = f
}

// GroupJob is one unit of group-parallel decode work: a byte range of
// the frame's entropy-coded data plus the group's grid position.
type GroupJob struct {
	Index      int
	GroupX, GroupY int
	Data       []byte
}

// GroupResult is a completed job's decoded channel tile, keyed by the
// job's Index so results can be recombined in submission order
// regardless of completion order.
type GroupResult struct {
	Index   int
	Channels [][]float32
	Err     error
}

// DecodeGroupFunc decodes a single group's entropy-coded data into
// per-channel pixel tiles. The render package is agnostic to whether the
// frame uses Modular or VarDCT; the caller supplies the appropriate
// decode closure per frame.Header.Encoding.
type DecodeGroupFunc func(job GroupJob) ([][]float32, error)

// DecodeGroupsParallel runs decodeFn over every job using
// runtime.GOMAXPROCS(0) workers, the same pre-filled-channel-plus-
// result-channel shape as the teacher's tile encoder worker pool, and
// returns results ordered by job index (§4.L concurrency model).
func DecodeGroupsParallel(jobs []GroupJob, decodeFn DecodeGroupFunc, tracker *alloc.Tracker) ([][][]float32, error) {
	if len(jobs) == 0 {
		return nil, nil
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > len(jobs) {
		numWorkers = len(jobs)
	}

	jobChan := make(chan GroupJob, len(jobs))
	for _, j := range jobs {
		jobChan <- j
	}
	close(jobChan)

	resultChan := make(chan GroupResult, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobChan {
				channels, err := decodeFn(job)
				resultChan <- GroupResult{Index: job.Index, Channels: channels, Err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([][][]float32, len(jobs))
	var firstErr error
	for res := range resultChan {
		if res.Err != nil {
			xlog.Warn().Err(res.Err).Int("group", res.Index).Msg("group decode failed")
			if firstErr == nil {
				firstErr = res.Err
			}
			continue
		}
		results[res.Index] = res.Channels
	}
	if firstErr != nil {
		return nil, xerr.Wrap(firstErr, "group decode")
	}
	_ = tracker
	return results, nil
}
