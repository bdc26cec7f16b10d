// Package batch runs homogeneous jobs in fixed-size concurrent waves.
//
// Items are split into chunks of at most Size. All jobs within a chunk run
// concurrently; chunk N+1 is not dispatched until every job in chunk N has
// reached a terminal state. This caps in-flight jobs at Size, which matters
// because every job here shells out to an external process.
package batch

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// DefaultSize is the wave size used when a caller passes a non-positive one.
const DefaultSize = 6

// Chunk splits items into groups of at most size, preserving order.
// A non-positive size falls back to DefaultSize. An empty input yields no
// chunks, never a single empty one, and concatenating the returned chunks
// in order reproduces the input exactly.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultSize
	}
	if len(items) == 0 {
		return nil
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for size < len(items) {
		chunks = append(chunks, items[:size:size])
		items = items[size:]
	}
	return append(chunks, items)
}

// State tracks a job's lifecycle.
type State int32

const (
	Pending State = iota
	Running
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether the state is Succeeded or Failed.
func (s State) Terminal() bool { return s == Succeeded || s == Failed }

// Handle tracks one dispatched job. It is created by RunBatch and must not
// be retained past the RunAll call that produced it.
type Handle[T any] struct {
	Item  T
	state atomic.Int32
	err   error
}

func (h *Handle[T]) State() State { return State(h.state.Load()) }

// Err returns the job's failure, if any. Valid only once the handle is
// terminal, i.e. after the RunBatch call that owns it has returned.
func (h *Handle[T]) Err() error { return h.err }

// Outcome is the terminal result of one item, reported in input order.
type Outcome[T any] struct {
	Item T
	Err  error
}

// JobFunc runs one unit of work. A returned error marks that job Failed but
// never aborts sibling jobs or later waves.
type JobFunc[T any] func(ctx context.Context, item T) error

// Runner dispatches jobs in sequential waves of at most Size concurrent jobs.
type Runner[T any] struct {
	Size   int
	Logger *slog.Logger

	// OnBatch, when set, is called before each wave is dispatched with the
	// 1-based wave number and the total wave count.
	OnBatch func(n, total int)
}

func NewRunner[T any](logger *slog.Logger, size int) *Runner[T] {
	if size <= 0 {
		size = DefaultSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner[T]{Size: size, Logger: logger}
}

// RunBatch starts every item in the batch concurrently and blocks until all
// of them are terminal. The returned handles are owned by the caller and
// carry each job's outcome; nothing about the batch outlives them.
func (r *Runner[T]) RunBatch(ctx context.Context, items []T, fn JobFunc[T]) []*Handle[T] {
	handles := make([]*Handle[T], len(items))
	g := new(errgroup.Group)
	for i, item := range items {
		h := &Handle[T]{Item: item}
		handles[i] = h
		g.Go(func() error {
			h.state.Store(int32(Running))
			err := fn(ctx, h.Item)
			h.err = err
			if err != nil {
				h.state.Store(int32(Failed))
			} else {
				h.state.Store(int32(Succeeded))
			}
			return nil
		})
	}
	// Jobs report failures through their handle, so Wait cannot error.
	_ = g.Wait()
	return handles
}

// RunAll chunks items and feeds each chunk to RunBatch strictly in order:
// wave N+1 does not start until wave N is fully terminal. It returns one
// Outcome per input item, in input order. An empty input returns nil
// without dispatching anything.
func (r *Runner[T]) RunAll(ctx context.Context, items []T, fn JobFunc[T]) []Outcome[T] {
	chunks := Chunk(items, r.Size)
	if len(chunks) == 0 {
		return nil
	}
	outcomes := make([]Outcome[T], 0, len(items))
	for i, chunk := range chunks {
		if r.OnBatch != nil {
			r.OnBatch(i+1, len(chunks))
		}
		r.Logger.Debug("dispatching batch",
			slog.Int("batch", i+1),
			slog.Int("batches", len(chunks)),
			slog.Int("jobs", len(chunk)))
		for _, h := range r.RunBatch(ctx, chunk, fn) {
			outcomes = append(outcomes, Outcome[T]{Item: h.Item, Err: h.err})
		}
	}
	return outcomes
}
