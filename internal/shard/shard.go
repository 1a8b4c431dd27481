// Package shard implements the blob-addressing primitives: the BlobId type,
// the deterministic pair-index<->shard-index permutation (I1), and the
// source-symbol count used for reconstruction (I5). These are pure,
// allocation-light helpers in the spirit of the teacher's core/resharding.go,
// generalized from "which shard gets which node" to "which shard gets which
// sliver pair."
package shard

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// IDLength is the byte length of a BlobId: the Merkle root of the blob's
// encoded slivers.
const IDLength = 32

// ID identifies a blob by the Merkle root of its encoded slivers.
type ID [IDLength]byte

// String renders the id as a lowercase hex string.
func (id ID) String() string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 2*IDLength)
	for i, b := range id {
		out[2*i] = hexdigits[b>>4]
		out[2*i+1] = hexdigits[b&0x0f]
	}
	return string(out)
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool { return id == ID{} }

// Index is a shard number in [0, n_shards).
type Index int

// PairIndex is a sliver-pair number in [0, n_shards), the domain the
// permutation below maps into shard numbers.
type PairIndex int

// PrimarySymbols returns k, the number of distinct primary slivers (by
// shard) required to reconstruct a blob encoded across nShards, a
// Reed-Solomon-like source-symbol count. The codec module is the
// authoritative source for the real erasure-code parameters; this matches
// its one-third source-rate convention (used by encode_blob) for routing
// and accounting decisions made before the codec is invoked: of the
// nShards total shards, 2*f are tolerance shards (f = floor((nShards-1)/3)
// Byzantine nodes) and the rest carry source symbols.
func PrimarySymbols(nShards int) int {
	f := (nShards - 1) / 3
	k := nShards - 2*f
	if k < 1 {
		k = 1
	}
	return k
}

// ToShardIndex maps a sliver pair index to its shard, a deterministic
// permutation seeded by the blob id so that distribution across shards is
// uniform-looking but reproducible without consulting any committee state.
func ToShardIndex(pair PairIndex, id ID, nShards int) Index {
	if nShards <= 0 {
		return 0
	}
	offset := permutationOffset(id, nShards)
	return Index((int(pair) + offset) % nShards)
}

// ToPairIndex is the inverse of ToShardIndex (I1).
func ToPairIndex(idx Index, id ID, nShards int) PairIndex {
	if nShards <= 0 {
		return 0
	}
	offset := permutationOffset(id, nShards)
	p := (int(idx) - offset) % nShards
	if p < 0 {
		p += nShards
	}
	return PairIndex(p)
}

// permutationOffset derives a stable rotation amount in [0, nShards) from
// the blob id, giving every blob its own shard<->pair rotation while
// keeping the mapping a bijection (a fixed rotation on Z/nShards).
func permutationOffset(id ID, nShards int) int {
	sum := blake2b.Sum256(id[:])
	v := binary.BigEndian.Uint64(sum[:8])
	return int(v % uint64(nShards))
}
