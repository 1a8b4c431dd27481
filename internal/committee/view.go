package committee

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/walrus-storage/walrus-client-core/internal/chain"
	"github.com/walrus-storage/walrus-client-core/internal/errs"
	"github.com/walrus-storage/walrus-client-core/internal/logging"
	"github.com/walrus-storage/walrus-client-core/internal/shard"
)

// slot holds either an in-flight materialization or its resolved value,
// the "atomic cell holding either the future or the resolved value"
// pattern called for by spec §9 DESIGN NOTES, implemented with a plain
// mutex + sync.Once rather than lock-free machinery: the common case
// (already resolved) holds the mutex only long enough to read the slot.
type slot struct {
	mu       sync.Mutex
	once     sync.Once
	resolved *Committee
	err      error
	waiters  chan struct{}
}

func (s *slot) get(resolve func() (*Committee, error)) (*Committee, error) {
	s.mu.Lock()
	if s.waiters == nil {
		s.waiters = make(chan struct{})
		s.mu.Unlock()
		go func() {
			s.once.Do(func() {
				s.resolved, s.err = resolve()
				close(s.waiters)
			})
		}()
		<-s.waiters
		return s.resolved, s.err
	}
	waiters := s.waiters
	s.mu.Unlock()
	<-waiters
	return s.resolved, s.err
}

// View is the client's committee cache: activeCommittee and readCommittee,
// memoized until Reset. This mirrors the teacher's per-epoch sharding
// state (core/resharding.go's ShardingState) but adds the read-path
// current-vs-previous selection spec §4.A calls for.
type View struct {
	loader chain.ObjectLoader

	mu     sync.Mutex
	active *slot
	// previous is cached alongside active since readCommittee may need it;
	// both are invalidated together by Reset.
	previous *slot
}

// New constructs a View backed by the given object loader.
func New(loader chain.ObjectLoader) *View {
	return &View{loader: loader}
}

// Reset drops the memoized committees and the underlying object loader's
// cache (spec §3: "reset() drops the cache").
func (v *View) Reset() {
	v.mu.Lock()
	v.active = nil
	v.previous = nil
	v.mu.Unlock()
	v.loader.Reset()
}

func (v *View) slots() (*slot, *slot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.active == nil {
		v.active = &slot{}
	}
	if v.previous == nil {
		v.previous = &slot{}
	}
	return v.active, v.previous
}

// ActiveCommittee returns the committee of the current epoch, memoized
// until Reset (spec §4.A).
func (v *View) ActiveCommittee(ctx context.Context) (*Committee, error) {
	activeSlot, _ := v.slots()
	return activeSlot.get(func() (*Committee, error) {
		state, err := v.loader.SystemState(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "committee: load system state")
		}
		return FromRaw(state.Committee, state.NShards)
	})
}

// ReadCommittee returns either the current or previous committee for
// blobID, per spec §4.A: during EpochChangeSync, a blob certified strictly
// before the current epoch reads from the previous committee.
func (v *View) ReadCommittee(ctx context.Context, blobID shard.ID) (*Committee, error) {
	activeSlot, previousSlot := v.slots()

	state, err := v.loader.SystemState(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "committee: load system state")
	}

	certifiedEpoch, err := v.loader.BlobCertifiedEpoch(ctx, blobID)
	if err != nil {
		return nil, errors.Wrap(err, "committee: load blob certified epoch")
	}
	if certifiedEpoch != nil && *certifiedEpoch > state.Epoch {
		return nil, &errs.BehindCurrentEpochError{ClientEpoch: state.Epoch, BlobEpoch: *certifiedEpoch}
	}

	useActive := true
	if state.EpochState == chain.EpochChangeSync && certifiedEpoch != nil && *certifiedEpoch < state.Epoch {
		useActive = false
	}

	if useActive {
		return activeSlot.get(func() (*Committee, error) {
			return FromRaw(state.Committee, state.NShards)
		})
	}

	logging.Logger().Debug().
		Uint64("epoch", state.Epoch).
		Str("blob_id", blobID.String()).
		Msg("reading from previous committee during epoch change sync")

	return previousSlot.get(func() (*Committee, error) {
		return FromRaw(state.PreviousCommittee, state.NShards)
	})
}
