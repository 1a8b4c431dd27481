package write

import (
	"bytes"
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/walrus-storage/walrus-client-core/bitmap"
	"github.com/walrus-storage/walrus-client-core/client"
	"github.com/walrus-storage/walrus-client-core/internal/chain"
	"github.com/walrus-storage/walrus-client-core/internal/codec"
	"github.com/walrus-storage/walrus-client-core/internal/committee"
	"github.com/walrus-storage/walrus-client-core/internal/errs"
	"github.com/walrus-storage/walrus-client-core/internal/logging"
	"github.com/walrus-storage/walrus-client-core/internal/quorum"
	"github.com/walrus-storage/walrus-client-core/internal/shard"
	"github.com/walrus-storage/walrus-client-core/internal/transport"
)

// Result is what WriteBlob returns on success.
type Result struct {
	BlobID       shard.ID
	BlobObjectID common.Hash
}

// Options configures a single WriteBlob call.
type Options struct {
	Epochs    uint64
	Deletable bool
	// ConcurrencyHint bounds in-flight per-node distribute tasks.
	ConcurrencyHint int
}

// WriteBlob executes the full write path (spec §4.E): encode, route,
// register on chain, distribute, verify confirmations, aggregate, certify.
// Registration completes before any node write begins, and certification
// does not start until a quorum of valid confirmations is gathered.
func WriteBlob(ctx context.Context, cl *client.Client, data []byte, opts Options) (*Result, error) {
	comm, err := cl.View.ActiveCommittee(ctx)
	if err != nil {
		return nil, err
	}

	state, err := cl.Loader.SystemState(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "write: load system state")
	}

	enc, err := cl.Erasure.EncodeBlob(comm.NShards, data)
	if err != nil {
		return nil, errors.Wrap(err, "write: encode blob")
	}

	sliversByNode := RouteSlivers(comm, enc.BlobID, enc)

	blobObjectID, err := registerOnChain(ctx, cl, comm, enc, uint64(len(data)), state, opts)
	if err != nil {
		return nil, err
	}

	logging.Logger().Info().
		Str("blob_id", enc.BlobID.String()).
		Str("blob_object_id", blobObjectID.Hex()).
		Msg("blob registered on chain, distributing to storage nodes")

	raw, err := distribute(ctx, cl, comm, enc, sliversByNode, blobObjectID, opts)
	if err != nil {
		return nil, err
	}

	valid := verifyConfirmations(cl, comm, enc.BlobID, state.Epoch, blobObjectID, opts, raw)

	validWeight := 0
	for _, v := range valid {
		validWeight += v.weight
	}
	if !quorum.Quorum(validWeight, comm.NShards) {
		return nil, &errs.NotEnoughBlobConfirmationsError{ValidCount: len(valid), NShards: comm.NShards}
	}

	if err := aggregateAndCertify(ctx, cl, comm, state.SystemObjectID, blobObjectID, valid); err != nil {
		return nil, err
	}

	return &Result{BlobID: enc.BlobID, BlobObjectID: blobObjectID}, nil
}

// reserveResultArg is the programmable-transaction result reference a
// concrete chain.Tx resolves to reserve_space's returned Storage object,
// the Sui convention of threading one call's output into a later call in
// the same transaction.
const reserveResultArg = "result::0"

func registerOnChain(ctx context.Context, cl *client.Client, comm *committee.Committee, enc codec.EncodeResult, size uint64, state *chain.SystemState, opts Options) (common.Hash, error) {
	cost := StorageCost(size, opts.Epochs, comm.NShards, state.StoragePricePerUnit, state.WritePricePerUnit)
	encodedSize := EncodedBlobLength(size, comm.NShards)

	tx := cl.Executor.NewTx()
	CreateStorage(state.SystemObjectID.Hex(), encodedSize, opts.Epochs, cost.TotalCost)(tx)
	RegisterBlob(state.SystemObjectID.Hex(), reserveResultArg, enc.BlobID, enc.RootHash, size, opts.Deletable, cost.WriteCost)(tx)

	effects, err := cl.Executor.Execute(ctx, tx)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "write: register blob on chain")
	}
	blobObjectID, ok := effects.CreatedObjects["Blob"]
	if !ok {
		return common.Hash{}, errs.NewWalrusClientError("write: register_blob did not create a Blob object")
	}
	return blobObjectID, nil
}

// rawConfirmation is one node's unverified response from the distribute
// phase.
type rawConfirmation struct {
	nodeIndex int
	weight    int
	signed    *transport.SignedConfirmation
}

func classify(err error) quorum.Classification {
	if _, ok := err.(*errs.UserAbortError); ok {
		return quorum.ClassUserAbort
	}
	return quorum.ClassOther
}

// requiredQuorumWeight is the smallest weight w with Quorum(w, n) true.
func requiredQuorumWeight(nShards int) int {
	return (2*nShards)/3 + 1
}

func confirmationBlobType(opts Options, blobObjectID common.Hash) transport.BlobType {
	bt := transport.BlobType{Deletable: opts.Deletable}
	if opts.Deletable {
		oid := [32]byte(blobObjectID)
		bt.ObjectID = &oid
	}
	return bt
}

// distribute pushes metadata, then all of a node's primary and secondary
// slivers in parallel, then requests a signed confirmation, for every
// committee node concurrently (spec §4.E step 4). Failure weight crossing
// the validity threshold aborts the whole fan-out early via the
// dispatcher's generic exhaustion check.
func distribute(ctx context.Context, cl *client.Client, comm *committee.Committee, enc codec.EncodeResult, sliversByNode map[string]*NodeSlivers, blobObjectID common.Hash, opts Options) ([]rawConfirmation, error) {
	tasks := make([]quorum.Task, 0, len(comm.Nodes))
	for i, n := range comm.Nodes {
		i, n := i, n
		ns := sliversByNode[n.NodeID]
		tasks = append(tasks, quorum.Task{
			Weight: n.Weight(),
			NodeID: n.NodeID,
			Run: func(ctx context.Context) (interface{}, error) {
				if err := cl.Transport.StoreBlobMetadata(ctx, n.NodeID, n.NetworkAddress, enc.BlobID, enc.Metadata); err != nil {
					return nil, err
				}
				g, gctx := errgroup.WithContext(ctx)
				for j := range ns.PairIndices {
					j := j
					g.Go(func() error {
						return cl.Transport.StoreSliver(gctx, n.NodeID, n.NetworkAddress, enc.BlobID, ns.PairIndices[j], transport.Primary, ns.Primary[j])
					})
					g.Go(func() error {
						return cl.Transport.StoreSliver(gctx, n.NodeID, n.NetworkAddress, enc.BlobID, ns.PairIndices[j], transport.Secondary, ns.Secondary[j])
					})
				}
				if err := g.Wait(); err != nil {
					return nil, err
				}
				signed, err := cl.Transport.GetConfirmation(ctx, n.NodeID, n.NetworkAddress, enc.BlobID, confirmationBlobType(opts, blobObjectID))
				if err != nil {
					return nil, err
				}
				return rawConfirmation{nodeIndex: i, weight: n.Weight(), signed: signed}, nil
			},
		})
	}

	var collected []rawConfirmation
	outcome := quorum.AllFanout(ctx, tasks, quorum.Config{
		NShards:         comm.NShards,
		Classify:        classify,
		ConcurrencyHint: opts.ConcurrencyHint,
		RequiredWeight:  requiredQuorumWeight(comm.NShards),
		Accept: func(res interface{}) quorum.Decision {
			collected = append(collected, res.(rawConfirmation))
			return quorum.Keep
		},
		Insufficient: func(wOk, remaining int) error {
			return &errs.NotEnoughBlobConfirmationsError{ValidCount: len(collected), NShards: comm.NShards}
		},
	})

	switch outcome.Kind {
	case quorum.OutcomeUserAbort, quorum.OutcomeInsufficient:
		return nil, outcome.Err
	default:
		return collected, nil
	}
}

func expectedConfirmationMessage(blobID shard.ID, epoch uint64, blobObjectID common.Hash, opts Options) ([]byte, error) {
	var objectID *[32]byte
	if opts.Deletable {
		oid := [32]byte(blobObjectID)
		objectID = &oid
	}
	return codec.ConstructConfirmationMessage(uint32(epoch), blobID, opts.Deletable, objectID)
}

// verifyConfirmations checks each raw confirmation's canonical message
// shape and BLS signature, discarding anything that fails either check
// (spec §4.E step 5). A node answering with a message that doesn't match
// what was requested is simply discarded, the only behavior this step
// calls for.
func verifyConfirmations(cl *client.Client, comm *committee.Committee, blobID shard.ID, epoch uint64, blobObjectID common.Hash, opts Options, raw []rawConfirmation) []rawConfirmation {
	expected, err := expectedConfirmationMessage(blobID, epoch, blobObjectID, opts)
	if err != nil {
		logging.Logger().Error().Err(err).Msg("write: failed to build canonical confirmation message")
		return nil
	}

	valid := make([]rawConfirmation, 0, len(raw))
	for _, rc := range raw {
		node := comm.Nodes[rc.nodeIndex]
		if !bytes.Equal(rc.signed.SerializedMessage, expected) {
			logging.Logger().Warn().Str("node_id", node.NodeID).Msg("confirmation message mismatch, discarding")
			continue
		}
		ok, err := cl.BLS.Verify(node.PublicKey, rc.signed.SerializedMessage, rc.signed.Signature)
		if err != nil || !ok {
			logging.Logger().Warn().Str("node_id", node.NodeID).Err(err).Msg("confirmation signature invalid, discarding")
			continue
		}
		valid = append(valid, rc)
	}
	return valid
}

// aggregateAndCertify combines the valid confirmations' signatures into one
// aggregated BLS signature, builds the signer bitmap, and submits
// certify_blob.
func aggregateAndCertify(ctx context.Context, cl *client.Client, comm *committee.Committee, systemObjectID, blobObjectID common.Hash, valid []rawConfirmation) error {
	sigs := make([][]byte, 0, len(valid))
	indices := make([]int, 0, len(valid))
	for _, rc := range valid {
		sigs = append(sigs, rc.signed.Signature)
		indices = append(indices, rc.nodeIndex)
	}
	aggSig, err := cl.BLS.Aggregate(sigs)
	if err != nil {
		return errors.Wrap(err, "write: aggregate confirmation signatures")
	}
	signerBitmap := bitmap.Encode(comm.Size(), indices)
	message := valid[0].signed.SerializedMessage

	tx := cl.Executor.NewTx()
	CertifyBlob(systemObjectID.Hex(), blobObjectID.Hex(), aggSig, signerBitmap, message)(tx)
	if _, err := cl.Executor.Execute(ctx, tx); err != nil {
		return errors.Wrap(err, "write: certify blob on chain")
	}
	return nil
}
