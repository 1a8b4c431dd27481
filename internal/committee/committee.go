// Package committee materializes the indexed committee view for an epoch:
// node -> shards and shard -> node, generalizing the teacher's
// core/resharding.go ShardingState (which computes shard->NodeList for a
// consensus committee) to the read/write routing this client core needs.
package committee

import (
	"fmt"
	"sort"

	"github.com/walrus-storage/walrus-client-core/internal/chain"
	"github.com/walrus-storage/walrus-client-core/internal/shard"
)

// Node is one committee member, preserving the teacher's NodeID/BLS
// public key/network address shape (core/resharding.go's shard.NodeID,
// generalized from ECDSA+BLS identity to the storage node's HTTP address).
type Node struct {
	NodeID         string
	PublicKey      []byte
	NetworkAddress string
	ShardIndices   []shard.Index
}

// Weight is the node's voting weight: the number of shards it holds.
func (n *Node) Weight() int { return len(n.ShardIndices) }

// Committee is an immutable, ordered list of nodes for one epoch, with a
// reverse shard->node index. Once materialized, a Committee value is never
// mutated (spec §3: "Committees are immutable once materialized").
type Committee struct {
	Epoch        uint64
	NShards      int
	Nodes        []*Node
	byShardIndex map[shard.Index]int // shard -> index into Nodes
	nodeIndex    map[string]int      // NodeID -> index into Nodes, stable ordering
}

// FromRaw builds a Committee from raw on-chain staking pool entries,
// preserving committee order so NodeIndex stays stable across calls (spec
// §4.A Algorithm).
func FromRaw(raw chain.RawCommittee, nShards int) (*Committee, error) {
	c := &Committee{
		Epoch:        raw.Epoch,
		NShards:      nShards,
		Nodes:        make([]*Node, 0, len(raw.Members)),
		byShardIndex: make(map[shard.Index]int, nShards),
		nodeIndex:    make(map[string]int, len(raw.Members)),
	}
	for i, m := range raw.Members {
		n := &Node{
			NodeID:         m.NodeID,
			PublicKey:      m.PublicKey,
			NetworkAddress: m.NetworkAddress,
			ShardIndices:   append([]shard.Index(nil), m.ShardIndices...),
		}
		c.Nodes = append(c.Nodes, n)
		c.nodeIndex[n.NodeID] = i
		for _, s := range n.ShardIndices {
			if _, exists := c.byShardIndex[s]; exists {
				return nil, fmt.Errorf("committee: shard %d assigned to more than one node", s)
			}
			c.byShardIndex[s] = i
		}
	}
	sum := 0
	for _, n := range c.Nodes {
		sum += n.Weight()
	}
	if sum != nShards {
		return nil, fmt.Errorf("committee: shard weights sum to %d, want %d (I2 violated)", sum, nShards)
	}
	return c, nil
}

// NodeIndex returns the stable index of nodeID within the committee.
func (c *Committee) NodeIndex(nodeID string) (int, bool) {
	idx, ok := c.nodeIndex[nodeID]
	return idx, ok
}

// NodeForShard returns the node holding shard s.
func (c *Committee) NodeForShard(s shard.Index) (*Node, bool) {
	idx, ok := c.byShardIndex[s]
	if !ok {
		return nil, false
	}
	return c.Nodes[idx], true
}

// TotalWeight is always NShards (I2), exposed for quorum/validity checks.
func (c *Committee) TotalWeight() int { return c.NShards }

// Size returns the number of committee members.
func (c *Committee) Size() int { return len(c.Nodes) }

// MemberBitmapLength returns the ceil(n_members/8) byte length used by the
// signer bitmap (spec §6 "Signer bitmap").
func (c *Committee) MemberBitmapLength() int {
	return (len(c.Nodes) + 7) / 8
}

// SortedByWeightDesc returns committee nodes ordered by descending shard
// weight, the base ordering weighted-shuffle (see WeightedShuffle in schedule.go)
// perturbs for sliver-read node preference.
func (c *Committee) SortedByWeightDesc() []*Node {
	out := append([]*Node(nil), c.Nodes...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight() > out[j].Weight() })
	return out
}
