// Package write implements the write path (spec §4.E): encode, route by
// shard, register on chain, push slivers and metadata concurrently, gather
// a quorum of signed confirmations, aggregate BLS signatures, and certify.
package write

import "github.com/walrus-storage/walrus-client-core/internal/shard"

// Cost is the deterministic price breakdown for storing size bytes for
// epochs epochs (spec §4 Auxiliary contracts: "storageCost(size, epochs)").
type Cost struct {
	StorageCost uint64
	WriteCost   uint64
	TotalCost   uint64
}

// EncodedBlobLength returns the on-disk size after erasure coding: size
// expands by a redundancy factor of nShards/k, k = shard.PrimarySymbols(n),
// the source-rate the codec module encodes at.
func EncodedBlobLength(size uint64, nShards int) uint64 {
	k := shard.PrimarySymbols(nShards)
	if k <= 0 {
		k = 1
	}
	return size * uint64(nShards) / uint64(k)
}

// StorageCost computes the deterministic price breakdown from system-state
// per-unit prices.
func StorageCost(size uint64, epochs uint64, nShards int, storagePricePerUnit, writePricePerUnit uint64) Cost {
	encoded := EncodedBlobLength(size, nShards)
	storageCost := encoded * storagePricePerUnit * epochs
	writeCost := encoded * writePricePerUnit
	return Cost{
		StorageCost: storageCost,
		WriteCost:   writeCost,
		TotalCost:   storageCost + writeCost,
	}
}
