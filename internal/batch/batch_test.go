package batch_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybrota/igloo/internal/batch"
)

func TestChunk(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		n    int
		size int
		want []int // chunk lengths
	}{
		{n: 0, size: 3, want: nil},
		{n: 1, size: 3, want: []int{1}},
		{n: 3, size: 3, want: []int{3}},
		{n: 4, size: 3, want: []int{3, 1}},
		{n: 6, size: 3, want: []int{3, 3}},
		{n: 7, size: 3, want: []int{3, 3, 1}},
		{n: 12, size: 6, want: []int{6, 6}},
		{n: 13, size: 1, want: []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}},
		// non-positive size falls back to the default of 6
		{n: 14, size: 0, want: []int{6, 6, 2}},
		{n: 14, size: -1, want: []int{6, 6, 2}},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("n=%d size=%d", tc.n, tc.size), func(t *testing.T) {
			items := make([]int, tc.n)
			for i := range items {
				items[i] = i
			}
			chunks := batch.Chunk(items, tc.size)
			require.Len(t, chunks, len(tc.want))
			var flat []int
			for i, c := range chunks {
				assert.Len(t, c, tc.want[i])
				assert.NotEmpty(t, c)
				flat = append(flat, c...)
			}
			assert.Equal(t, items, flat, "concatenated chunks must reproduce the input")
		})
	}
}

func TestChunkDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	items := []string{"a", "b", "c", "d", "e"}
	chunks := batch.Chunk(items, 2)
	require.Len(t, chunks, 3)

	// Writing to a chunk must not alias an element outside its own range.
	chunks[0] = append(chunks[0], "x")
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, items)
}

func TestRunBatchWaitsForAllJobs(t *testing.T) {
	t.Parallel()

	r := batch.NewRunner[int](nil, 4)
	var done atomic.Int32
	handles := r.RunBatch(context.Background(), []int{1, 2, 3, 4}, func(ctx context.Context, item int) error {
		done.Add(1)
		return nil
	})

	require.Len(t, handles, 4)
	assert.Equal(t, int32(4), done.Load())
	for _, h := range handles {
		assert.Equal(t, batch.Succeeded, h.State())
		assert.True(t, h.State().Terminal())
		assert.NoError(t, h.Err())
	}
}

func TestRunAllConcurrencyCap(t *testing.T) {
	t.Parallel()

	const size = 3
	var running, peak atomic.Int32

	r := batch.NewRunner[int](nil, size)
	items := make([]int, 10)
	for i := range items {
		items[i] = i
	}
	r.RunAll(context.Background(), items, func(ctx context.Context, item int) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		running.Add(-1)
		return nil
	})

	assert.LessOrEqual(t, peak.Load(), int32(size), "more than batch-size jobs were running at once")
	assert.Positive(t, peak.Load())
}

func TestRunAllFailureIsolation(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var ran atomic.Int32
	r := batch.NewRunner[int](nil, 2)

	outcomes := r.RunAll(context.Background(), []int{0, 1, 2, 3, 4}, func(ctx context.Context, item int) error {
		ran.Add(1)
		if item == 1 {
			return boom
		}
		return nil
	})

	// The failing job in the first wave must not stop its sibling or the
	// two later waves.
	require.Len(t, outcomes, 5)
	assert.Equal(t, int32(5), ran.Load())
	for _, o := range outcomes {
		if o.Item == 1 {
			assert.ErrorIs(t, o.Err, boom)
		} else {
			assert.NoError(t, o.Err)
		}
	}
}

func TestRunAllStrictWaveOrder(t *testing.T) {
	t.Parallel()

	const size = 3
	var mu sync.Mutex
	var started []int

	r := batch.NewRunner[int](nil, size)
	items := []int{0, 1, 2, 3, 4, 5, 6, 7}
	r.RunAll(context.Background(), items, func(ctx context.Context, item int) error {
		mu.Lock()
		started = append(started, item)
		mu.Unlock()
		return nil
	})

	require.Len(t, started, len(items))
	// Order within a wave is unspecified, but every item of wave K starts
	// before any item of wave K+1.
	assert.ElementsMatch(t, []int{0, 1, 2}, started[0:3])
	assert.ElementsMatch(t, []int{3, 4, 5}, started[3:6])
	assert.ElementsMatch(t, []int{6, 7}, started[6:8])
}

func TestRunAllEmptyInput(t *testing.T) {
	t.Parallel()

	r := batch.NewRunner[string](nil, 6)
	dispatched := false
	outcomes := r.RunAll(context.Background(), nil, func(ctx context.Context, item string) error {
		dispatched = true
		return nil
	})

	assert.Nil(t, outcomes)
	assert.False(t, dispatched)
}

func TestRunAllReportsBatchProgress(t *testing.T) {
	t.Parallel()

	r := batch.NewRunner[int](nil, 2)
	var waves []int
	total := 0
	r.OnBatch = func(n, tot int) {
		waves = append(waves, n)
		total = tot
	}

	r.RunAll(context.Background(), []int{1, 2, 3, 4, 5}, func(ctx context.Context, item int) error {
		return nil
	})

	assert.Equal(t, []int{1, 2, 3}, waves)
	assert.Equal(t, 3, total)
}
