// Package codec declares the external erasure-coding / hashing
// collaborator the client core consumes (spec §1: "assumed to be provided
// by a native codec module") and ships one concrete, exercised adapter for
// the part of that boundary this repo's domain can own outright: BLS
// signature verification and aggregation over the canonical
// StorageConfirmation message, built on the teacher's own BLS dependency.
package codec

import (
	"github.com/walrus-storage/walrus-client-core/internal/shard"
)

// SliverPair is one (primary, secondary) pair produced by encoding.
type SliverPair struct {
	Primary   []byte
	Secondary []byte
}

// EncodeResult is what encode_blob returns.
type EncodeResult struct {
	BlobID          shard.ID
	RootHash        [32]byte
	UnencodedLength uint64
	Metadata        []byte // opaque, pushed verbatim to every node
	SliverPairs     []SliverPair // indexed by pair index, length == nShards
}

// Metadata is what compute_metadata returns: enough to recompute and
// verify a blob id.
type Metadata struct {
	BlobID          shard.ID
	UnencodedLength uint64
}

// Erasure is the erasure-coding / hashing collaborator boundary. A
// concrete implementation is provided by the native codec module outside
// this repository; internal/codec only type the seam.
type Erasure interface {
	// EncodeBlob splits data into nShards sliver pairs and derives the
	// blob id from their Merkle root.
	EncodeBlob(nShards int, data []byte) (EncodeResult, error)
	// DecodePrimarySlivers reconstructs the original bytes from a set of
	// primary slivers keyed by shard index; len(slivers) must be >= k =
	// shard.PrimarySymbols(nShards).
	DecodePrimarySlivers(blobID shard.ID, nShards int, unencodedLength uint64, slivers map[shard.Index][]byte) ([]byte, error)
	// ComputeMetadata re-derives metadata (and the blob id) from decoded
	// bytes, used to verify I5 (rehash must match the requested BlobID).
	ComputeMetadata(nShards int, data []byte) (Metadata, error)
}
