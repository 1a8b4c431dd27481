// Package read implements the read path (spec §4.D): fetch metadata,
// fetch k primary slivers, decode, re-hash, and verify the blob id, with a
// single automatic retry across a committee reset when the inner call
// hits a retryable error (spec §4.D "Wrapped with retry-on-epoch-change").
package read

import (
	"context"

	"github.com/walrus-storage/walrus-client-core/client"
	"github.com/walrus-storage/walrus-client-core/internal/committee"
	"github.com/walrus-storage/walrus-client-core/internal/errs"
	"github.com/walrus-storage/walrus-client-core/internal/logging"
	"github.com/walrus-storage/walrus-client-core/internal/quorum"
	"github.com/walrus-storage/walrus-client-core/internal/shard"
	"github.com/walrus-storage/walrus-client-core/internal/status"
	"github.com/walrus-storage/walrus-client-core/internal/transport"
)

// ReadBlob fetches and reconstructs blobID, retrying once after a cache
// reset if the first attempt fails with a retryable error (spec §4.D, §7).
func ReadBlob(ctx context.Context, cl *client.Client, blobID shard.ID) ([]byte, error) {
	bytes, err := readBlobOnce(ctx, cl, blobID)
	if err == nil {
		return bytes, nil
	}
	if !errs.IsRetryable(err) {
		return nil, err
	}
	logging.Logger().Info().
		Str("blob_id", blobID.String()).
		Err(err).
		Msg("retryable error on read, resetting committee cache and retrying once")
	cl.Reset()
	return readBlobOnce(ctx, cl, blobID)
}

func readBlobOnce(ctx context.Context, cl *client.Client, blobID shard.ID) ([]byte, error) {
	comm, err := cl.View.ReadCommittee(ctx, blobID)
	if err != nil {
		return nil, err
	}

	meta, err := getBlobMetadata(ctx, cl, comm, blobID)
	if err != nil {
		return nil, err
	}

	k := shard.PrimarySymbols(comm.NShards)
	slivers, err := getSlivers(ctx, cl, comm, blobID, k)
	if err != nil {
		return nil, err
	}

	decoded, err := cl.Erasure.DecodePrimarySlivers(blobID, comm.NShards, meta.UnencodedLength, slivers)
	if err != nil {
		return nil, err
	}

	rehash, err := cl.Erasure.ComputeMetadata(comm.NShards, decoded)
	if err != nil {
		return nil, err
	}
	if rehash.BlobID != blobID {
		return nil, &errs.InconsistentBlobError{Requested: blobID.String(), Computed: rehash.BlobID.String()}
	}

	return decoded, nil
}

func classify(err error) quorum.Classification {
	switch err.(type) {
	case *errs.NotFoundError:
		return quorum.ClassNotFound
	case *errs.LegallyUnavailableError:
		return quorum.ClassBlocked
	case *errs.UserAbortError:
		return quorum.ClassUserAbort
	default:
		return quorum.ClassOther
	}
}

func getBlobMetadata(ctx context.Context, cl *client.Client, comm *committee.Committee, blobID shard.ID) (*transport.BlobMetadataWithID, error) {
	shuffled := committee.WeightedShuffle(comm.Nodes, nil)
	tasks := make([]quorum.Task, 0, len(shuffled))
	for _, n := range shuffled {
		n := n
		tasks = append(tasks, quorum.Task{
			Weight: n.Weight(),
			NodeID: n.NodeID,
			Run: func(ctx context.Context) (interface{}, error) {
				return cl.Transport.GetBlobMetadata(ctx, n.NodeID, n.NetworkAddress, blobID)
			},
		})
	}

	var result *transport.BlobMetadataWithID
	outcome := quorum.FirstSuccess(ctx, tasks, quorum.Config{
		NShards:         comm.NShards,
		Classify:        classify,
		ConcurrencyHint: 4,
		RequiredWeight:  1,
		Accept: func(res interface{}) quorum.Decision {
			result = res.(*transport.BlobMetadataWithID)
			return quorum.Done
		},
		Insufficient: func(int, int) error {
			return &errs.NoBlobMetadataReceivedError{BlobID: blobID.String()}
		},
	})

	switch outcome.Kind {
	case quorum.OutcomeSuccess:
		return result, nil
	case quorum.OutcomeNotCertified:
		return nil, &errs.BlobNotCertifiedError{BlobID: blobID.String()}
	case quorum.OutcomeBlocked:
		return nil, &errs.BlobBlockedError{BlobID: blobID.String()}
	case quorum.OutcomeUserAbort:
		return nil, outcome.Err
	default:
		return nil, &errs.NoBlobMetadataReceivedError{BlobID: blobID.String()}
	}
}

type sliverResult struct {
	shardIdx shard.Index
	data     []byte
}

// getSlivers fetches primary slivers column-wise across committee nodes,
// stopping as soon as k distinct shards have been collected (spec §4.C
// "Column-wise", §4.D, §9 Open Question: the collect-and-stop check below
// runs inside quorum's single-consumer accounting loop, so it is already
// atomic — no two completions can race past the k-th acceptance).
func getSlivers(ctx context.Context, cl *client.Client, comm *committee.Committee, blobID shard.ID, k int) (map[shard.Index][]byte, error) {
	shuffled := committee.WeightedShuffle(comm.Nodes, nil)
	rows := make([]quorum.Row, 0, len(shuffled))
	for _, n := range shuffled {
		n := n
		tasks := make([]quorum.Task, 0, len(n.ShardIndices))
		for _, s := range n.ShardIndices {
			s := s
			tasks = append(tasks, quorum.Task{
				Weight: 1,
				NodeID: n.NodeID,
				Run: func(ctx context.Context) (interface{}, error) {
					pairIdx := shard.ToPairIndex(s, blobID, comm.NShards)
					data, err := cl.Transport.GetSliver(ctx, n.NodeID, n.NetworkAddress, blobID, pairIdx, transport.Primary)
					if err != nil {
						return nil, err
					}
					return sliverResult{shardIdx: s, data: data}, nil
				},
			})
		}
		rows = append(rows, quorum.Row{NodeID: n.NodeID, Tasks: tasks})
	}

	collected := make(map[shard.Index][]byte, k)
	outcome := quorum.ColumnWise(ctx, rows, quorum.Config{
		NShards:        comm.NShards,
		Classify:       classify,
		RequiredWeight: k,
		Accept: func(res interface{}) quorum.Decision {
			r := res.(sliverResult)
			if _, exists := collected[r.shardIdx]; !exists {
				collected[r.shardIdx] = r.data
			}
			if len(collected) >= k {
				return quorum.Done
			}
			return quorum.Keep
		},
		Insufficient: func(int, int) error {
			return &errs.NotEnoughSliversReceivedError{Collected: len(collected), Required: k}
		},
	})

	switch outcome.Kind {
	case quorum.OutcomeSuccess:
		return collected, nil
	case quorum.OutcomeNotCertified:
		return nil, &errs.BlobNotCertifiedError{BlobID: blobID.String()}
	case quorum.OutcomeBlocked:
		return nil, &errs.BlobBlockedError{BlobID: blobID.String()}
	case quorum.OutcomeUserAbort:
		return nil, outcome.Err
	default:
		return nil, &errs.NotEnoughSliversReceivedError{Collected: len(collected), Required: k}
	}
}

// GetVerifiedBlobStatus fans the status query out to every committee node
// and resolves disagreement by lifecycle rank among statuses meeting
// validity (spec §4.C "When statuses disagree...").
func GetVerifiedBlobStatus(ctx context.Context, cl *client.Client, comm *committee.Committee, blobID shard.ID) (status.Kind, error) {
	observations := make(map[status.Kind]int)

	tasks := make([]quorum.Task, 0, len(comm.Nodes))
	for _, n := range comm.Nodes {
		n := n
		tasks = append(tasks, quorum.Task{
			Weight: n.Weight(),
			NodeID: n.NodeID,
			Run: func(ctx context.Context) (interface{}, error) {
				raw, err := cl.Transport.GetStatus(ctx, n.NodeID, n.NetworkAddress, blobID)
				if err != nil {
					return nil, err
				}
				return statusObservation{kind: parseStatusKind(raw.Kind), weight: n.Weight()}, nil
			},
		})
	}

	outcome := quorum.AllFanout(ctx, tasks, quorum.Config{
		NShards:         comm.NShards,
		Classify:        classify,
		ConcurrencyHint: 32,
		Accept: func(res interface{}) quorum.Decision {
			obs := res.(statusObservation)
			observations[obs.kind] += obs.weight
			return quorum.Keep
		},
	})

	switch outcome.Kind {
	case quorum.OutcomeNotCertified:
		return status.Nonexistent, &errs.BlobNotCertifiedError{BlobID: blobID.String()}
	case quorum.OutcomeBlocked:
		return status.Nonexistent, &errs.BlobBlockedError{BlobID: blobID.String()}
	case quorum.OutcomeUserAbort:
		return status.Nonexistent, outcome.Err
	}

	best, found := status.HighestRanked(observations, comm.NShards, quorum.Validity)
	if !found {
		return status.Nonexistent, &errs.NoVerifiedBlobStatusReceivedError{BlobID: blobID.String()}
	}
	return best, nil
}

type statusObservation struct {
	kind   status.Kind
	weight int
}

func parseStatusKind(raw string) status.Kind {
	switch raw {
	case "permanent":
		return status.Permanent
	case "deletable":
		return status.Deletable
	case "invalid":
		return status.Invalid
	default:
		return status.Nonexistent
	}
}
