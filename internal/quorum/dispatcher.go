package quorum

import (
	"context"
	"math/rand"
	"sync"

	mapset "github.com/deckarep/golang-set"
	"golang.org/x/sync/semaphore"

	"github.com/walrus-storage/walrus-client-core/internal/logging"
)

// Classification is the dispatcher's view of a task failure, the uniform
// taxonomy the storage-node transport is required to produce (spec §4.B);
// no other node-error semantics are allowed to leak into the accounting
// loop below.
type Classification int

// The four classifications the dispatcher's accounting loop understands.
const (
	ClassOther Classification = iota
	ClassNotFound
	ClassBlocked
	ClassUserAbort
)

// Classifier maps a task error to one of the four classifications above.
type Classifier func(err error) Classification

// Decision is what a caller's Accept function returns for a single
// successful result.
type Decision int

// Keep means absorb the result and continue; Done means the caller has
// everything it needs and the remaining tasks should be cancelled.
const (
	Keep Decision = iota
	Done
)

// Accept is invoked on every successful task result in completion order.
type Accept func(result interface{}) Decision

// OutcomeKind classifies how a dispatch run concluded.
type OutcomeKind int

// The terminal states a dispatch run can reach.
const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeNotCertified
	OutcomeBlocked
	OutcomeInsufficient
	OutcomeUserAbort
)

// Outcome is the result of a single dispatch run.
type Outcome struct {
	Kind  OutcomeKind
	Err   error
	WOk   int
	WNF   int
	WBlk  int
	Tasks int
}

// Task is one unit of work: a weight (shards it contributes) and a runner.
type Task struct {
	Weight int
	NodeID string
	Run    func(ctx context.Context) (interface{}, error)
}

// Config parametrizes a dispatch run.
type Config struct {
	NShards int
	Classify Classifier
	Accept   Accept
	// ConcurrencyHint bounds in-flight tasks; <=0 means unbounded.
	ConcurrencyHint int
	// RequiredWeight is the weight accept() needs to ever return Done; used
	// for the exhaustion check (state 4). 0 disables the exhaustion check
	// (the caller's Accept alone decides success/failure).
	RequiredWeight int
	// Insufficient builds the caller-specific error emitted when the
	// optimistic upper bound can no longer reach RequiredWeight.
	Insufficient func(wOk, remainingWeight int) error
}

type completion struct {
	weight int
	nodeID string
	result interface{}
	err    error
}

// run is the shared accounting loop: every scheduling variant below
// produces a stream of completions on a channel; run consumes them
// serially on a single goroutine, so the counters below need no locking
// (spec §5: "no interior suspension inside the classification step").
func run(ctx context.Context, cancel context.CancelFunc, totalWeight int, completions <-chan completion, pending func() int, cfg Config) Outcome {
	var (
		wOk, wNF, wBlk, tasksSeen int
		lastErr                  error
	)
	log := logging.Logger().With().Int("n_shards", cfg.NShards).Logger()

	for c := range completions {
		tasksSeen++
		if c.err != nil {
			class := cfg.Classify(c.err)
			switch class {
			case ClassUserAbort:
				cancel()
				return Outcome{Kind: OutcomeUserAbort, Err: c.err, WOk: wOk, WNF: wNF, WBlk: wBlk, Tasks: tasksSeen}
			case ClassNotFound:
				wNF += c.weight
			case ClassBlocked:
				wBlk += c.weight
			default:
				lastErr = c.err
				log.Debug().Str("node_id", c.nodeID).Err(c.err).Msg("task failed")
			}
		} else {
			decision := cfg.Accept(c.result)
			if decision == Done {
				cancel()
				return Outcome{Kind: OutcomeSuccess, WOk: wOk + c.weight, WNF: wNF, WBlk: wBlk, Tasks: tasksSeen}
			}
			wOk += c.weight
		}

		if Quorum(wNF+wBlk, cfg.NShards) {
			cancel()
			kind := OutcomeBlocked
			if wNF >= wBlk {
				kind = OutcomeNotCertified
			}
			return Outcome{Kind: kind, WOk: wOk, WNF: wNF, WBlk: wBlk, Tasks: tasksSeen}
		}

		if cfg.RequiredWeight > 0 {
			remaining := pending()
			if wOk+remaining < cfg.RequiredWeight {
				cancel()
				var err error
				if cfg.Insufficient != nil {
					err = cfg.Insufficient(wOk, remaining)
				} else {
					err = lastErr
				}
				return Outcome{Kind: OutcomeInsufficient, Err: err, WOk: wOk, WNF: wNF, WBlk: wBlk, Tasks: tasksSeen}
			}
		}
	}

	// Channel closed without an early decision: every task completed. If
	// the caller set a RequiredWeight and the accumulated accepted weight
	// reaches it, that is itself the success condition (used by callers,
	// like write's confirmation fan-out, whose Accept never returns Done
	// and instead wants "quorum of accepted weight by completion").
	cancel()
	if cfg.RequiredWeight > 0 && wOk >= cfg.RequiredWeight {
		return Outcome{Kind: OutcomeSuccess, WOk: wOk, WNF: wNF, WBlk: wBlk, Tasks: tasksSeen}
	}
	var err error
	if cfg.Insufficient != nil {
		err = cfg.Insufficient(wOk, 0)
	} else {
		err = lastErr
	}
	return Outcome{Kind: OutcomeInsufficient, Err: err, WOk: wOk, WNF: wNF, WBlk: wBlk, Tasks: tasksSeen}
}

// AllFanout launches every task simultaneously (bounded by
// cfg.ConcurrencyHint), the scheduling variant used for write confirmation
// and status queries (spec §4.C "All-fanout").
func AllFanout(parent context.Context, tasks []Task, cfg Config) Outcome {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	completions := make(chan completion, len(tasks))
	var wg sync.WaitGroup
	var sem *semaphore.Weighted
	if cfg.ConcurrencyHint > 0 {
		sem = semaphore.NewWeighted(int64(cfg.ConcurrencyHint))
	}

	var remaining int64
	for _, t := range tasks {
		remaining += int64(t.Weight)
	}
	var mu sync.Mutex
	pending := func() int {
		mu.Lock()
		defer mu.Unlock()
		return int(remaining)
	}

	for _, t := range tasks {
		t := t
		if ctx.Err() != nil {
			break
		}
		if sem != nil {
			if err := sem.Acquire(ctx, 1); err != nil {
				break
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sem != nil {
				defer sem.Release(1)
			}
			res, err := t.Run(ctx)
			mu.Lock()
			remaining -= int64(t.Weight)
			mu.Unlock()
			select {
			case completions <- completion{weight: t.Weight, nodeID: t.NodeID, result: res, err: err}:
			case <-ctx.Done():
			}
		}()
	}

	go func() {
		wg.Wait()
		close(completions)
	}()

	return run(ctx, cancel, len(tasks), completions, pending, cfg)
}

// FirstSuccess tries tasks one at a time in random order; the moment one
// fails it fans the remainder out in chunks of ceil(N/concurrencyHint),
// matching spec §4.C's metadata-fetch scheduling.
func FirstSuccess(parent context.Context, tasks []Task, cfg Config) Outcome {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	order := rand.Perm(len(tasks))
	completions := make(chan completion, len(tasks))
	var remaining int64
	for _, t := range tasks {
		remaining += int64(t.Weight)
	}
	var mu sync.Mutex
	pending := func() int {
		mu.Lock()
		defer mu.Unlock()
		return int(remaining)
	}

	go func() {
		defer close(completions)
		chunk := cfg.ConcurrencyHint
		if chunk <= 0 {
			chunk = 1
		}
		i := 0
		// Phase 1: one task at a time.
		for ; i < len(order); i++ {
			if ctx.Err() != nil {
				return
			}
			t := tasks[order[i]]
			res, err := t.Run(ctx)
			mu.Lock()
			remaining -= int64(t.Weight)
			mu.Unlock()
			select {
			case completions <- completion{weight: t.Weight, nodeID: t.NodeID, result: res, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				i++
				break
			}
		}
		// Phase 2: fan out the rest in chunks.
		groupSize := (len(order) - i + chunk - 1)
		if chunk > 0 {
			groupSize = groupSize / chunk
		}
		if groupSize < 1 {
			groupSize = 1
		}
		for ; i < len(order); i += groupSize {
			if ctx.Err() != nil {
				return
			}
			end := i + groupSize
			if end > len(order) {
				end = len(order)
			}
			var wg sync.WaitGroup
			for _, idx := range order[i:end] {
				t := tasks[idx]
				wg.Add(1)
				go func() {
					defer wg.Done()
					res, err := t.Run(ctx)
					mu.Lock()
					remaining -= int64(t.Weight)
					mu.Unlock()
					select {
					case completions <- completion{weight: t.Weight, nodeID: t.NodeID, result: res, err: err}:
					case <-ctx.Done():
					}
				}()
			}
			wg.Wait()
		}
	}()

	return run(ctx, cancel, len(tasks), completions, pending, cfg)
}

// Row is one node's group of tasks in ColumnWise below, task i of a row
// belonging to column i — one row per distinct node, columns iterated so the
// first round draws one task from every row before the second round draws
// a second task from any row, maximizing node diversity per round.
type Row struct {
	NodeID string
	Tasks  []Task
}

// ColumnWise iterates rows column-by-column: round 0 runs tasks[0] from
// every row concurrently, round 1 runs tasks[1] from every row, and so on.
// A row that fails once is blacklisted for the remainder (spec §4.C
// "Column-wise"). This is the scheduling used for sliver reads.
func ColumnWise(parent context.Context, rows []Row, cfg Config) Outcome {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	totalWeight := 0
	maxCols := 0
	for _, r := range rows {
		if len(r.Tasks) > maxCols {
			maxCols = len(r.Tasks)
		}
		for _, t := range r.Tasks {
			totalWeight += t.Weight
		}
	}

	completions := make(chan completion, totalWeight+len(rows))
	blacklist := mapset.NewThreadUnsafeSet()
	var mu sync.Mutex
	remaining := int64(totalWeight)
	pending := func() int {
		mu.Lock()
		defer mu.Unlock()
		return int(remaining)
	}

	go func() {
		defer close(completions)
		for col := 0; col < maxCols; col++ {
			if ctx.Err() != nil {
				return
			}
			var wg sync.WaitGroup
			for _, r := range rows {
				mu.Lock()
				skip := blacklist.Contains(r.NodeID)
				mu.Unlock()
				if skip || col >= len(r.Tasks) {
					continue
				}
				t := r.Tasks[col]
				nodeID := r.NodeID
				rowTasks := r.Tasks
				thisCol := col
				wg.Add(1)
				go func() {
					defer wg.Done()
					res, err := t.Run(ctx)
					mu.Lock()
					remaining -= int64(t.Weight)
					if err != nil {
						blacklist.Add(nodeID)
						// This row will never run its remaining columns;
						// drop their weight from the optimistic bound now
						// rather than waiting for columns that will never
						// execute.
						for _, future := range rowTasks[thisCol+1:] {
							remaining -= int64(future.Weight)
						}
					}
					mu.Unlock()
					select {
					case completions <- completion{weight: t.Weight, nodeID: nodeID, result: res, err: err}:
					case <-ctx.Done():
					}
				}()
			}
			wg.Wait()
		}
	}()

	return run(ctx, cancel, totalWeight, completions, pending, cfg)
}
