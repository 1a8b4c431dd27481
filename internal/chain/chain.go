// Package chain declares the external chain-collaborator interfaces the
// client core consumes: on-chain object loading, transaction building, and
// signing. Concrete Sui-RPC-backed implementations live outside this
// repository (spec §1: "external collaborators, referenced only by the
// interfaces the core consumes"); this package is the seam.
package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/walrus-storage/walrus-client-core/internal/shard"
)

// EpochState mirrors the on-chain staking object's epoch_state field.
type EpochState int

// Recognized epoch states.
const (
	EpochNormal EpochState = iota
	EpochChangeSync
)

// NodeInfo is one committee member as materialized from on-chain staking
// pool entries.
type NodeInfo struct {
	NodeID         string
	PublicKey      []byte // BLS12-381 min-pk serialized public key
	NetworkAddress string
	ShardIndices   []shard.Index
}

// RawCommittee is the unprocessed member list for one epoch, in committee
// order, as read off the staking pool.
type RawCommittee struct {
	Epoch   uint64
	Members []NodeInfo
}

// SystemState is the on-chain staking/system object view.
type SystemState struct {
	Epoch              uint64
	NShards            int
	EpochState         EpochState
	Committee          RawCommittee
	PreviousCommittee  RawCommittee
	StoragePricePerUnit uint64
	WritePricePerUnit   uint64
	SystemObjectID      common.Hash
	StakingPoolID       common.Hash
}

// ObjectLoader reads on-chain objects, deduplicating/batching concurrent
// requests for the same key (spec §9 DESIGN NOTES: "Batched object loader
// (DataLoader-style)").
type ObjectLoader interface {
	// Load fetches the object identified by id, sharing any in-flight
	// fetch for the same id among concurrent callers.
	Load(ctx context.Context, id common.Hash) ([]byte, error)
	// SystemState loads the current staking/system state.
	SystemState(ctx context.Context) (*SystemState, error)
	// BlobCertifiedEpoch loads the on-chain Blob object's initial certified epoch,
	// used by readCommittee to decide current vs. previous committee.
	BlobCertifiedEpoch(ctx context.Context, blobID shard.ID) (*uint64, error)
	// DynamicField reads the dynamic field named fieldName attached to
	// objectID, returning (nil, nil) if absent (spec §4 Auxiliary
	// contracts: "readBlobAttributes").
	DynamicField(ctx context.Context, objectID common.Hash, fieldName []byte) ([]byte, error)
	// Reset drops any cached object state.
	Reset()
}

// TxThunk appends Move calls to a mutable transaction builder. Thunks are
// pure composition with no suspension inside, per spec §9 DESIGN NOTES.
type TxThunk func(tx Tx)

// Tx is the mutable transaction-builder surface a thunk mutates; a
// concrete implementation lives with the Sui transaction-building glue
// outside this repository.
type Tx interface {
	MoveCall(module, function string, args ...interface{})
}

// Executor builds and executes transactions: NewTx hands back an empty
// mutable builder for thunks to apply to, and Execute submits the result.
type Executor interface {
	NewTx() Tx
	Execute(ctx context.Context, tx Tx) (*TxEffects, error)
}

// TxEffects is the subset of on-chain transaction effects the core
// inspects: created object ids, keyed by the Move type they were created
// with.
type TxEffects struct {
	CreatedObjects map[string]common.Hash
	Digest         string
}
