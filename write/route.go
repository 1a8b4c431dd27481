package write

import (
	"github.com/walrus-storage/walrus-client-core/internal/codec"
	"github.com/walrus-storage/walrus-client-core/internal/committee"
	"github.com/walrus-storage/walrus-client-core/internal/shard"
)

// NodeSlivers is one node's share of the encoded blob: its primary and
// secondary slivers, keyed by pair index so the distribute phase knows
// which (blobId, pairIndex, kind) triple each belongs to.
type NodeSlivers struct {
	PairIndices []shard.PairIndex
	Primary     [][]byte
	Secondary   [][]byte
}

// RouteSlivers groups each encoded sliver pair by the node that owns its
// shard under the active committee (spec §4.E step 2), returning a map
// keyed by node id. Nodes holding no shard of this blob still get an
// (empty) entry, per spec: "empty lists allowed."
func RouteSlivers(comm *committee.Committee, blobID shard.ID, enc codec.EncodeResult) map[string]*NodeSlivers {
	out := make(map[string]*NodeSlivers, len(comm.Nodes))
	for _, n := range comm.Nodes {
		out[n.NodeID] = &NodeSlivers{}
	}
	for pairIdx, pair := range enc.SliverPairs {
		s := shard.ToShardIndex(shard.PairIndex(pairIdx), blobID, comm.NShards)
		node, ok := comm.NodeForShard(s)
		if !ok {
			continue
		}
		ns := out[node.NodeID]
		ns.PairIndices = append(ns.PairIndices, shard.PairIndex(pairIdx))
		ns.Primary = append(ns.Primary, pair.Primary)
		ns.Secondary = append(ns.Secondary, pair.Secondary)
	}
	return out
}
