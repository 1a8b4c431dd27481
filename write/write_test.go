package write

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/harmony-one/bls/ffi/go/bls"

	"github.com/walrus-storage/walrus-client-core/client"
	"github.com/walrus-storage/walrus-client-core/internal/chain"
	"github.com/walrus-storage/walrus-client-core/internal/codec"
	"github.com/walrus-storage/walrus-client-core/internal/shard"
)

type writeFakeLoader struct{ state *chain.SystemState }

func (f *writeFakeLoader) Load(ctx context.Context, id common.Hash) ([]byte, error) { return nil, nil }
func (f *writeFakeLoader) SystemState(ctx context.Context) (*chain.SystemState, error) {
	return f.state, nil
}
func (f *writeFakeLoader) BlobCertifiedEpoch(ctx context.Context, blobID shard.ID) (*uint64, error) {
	return nil, nil
}
func (f *writeFakeLoader) DynamicField(ctx context.Context, objectID common.Hash, fieldName []byte) ([]byte, error) {
	return nil, nil
}
func (f *writeFakeLoader) Reset() {}

type writeFakeErasure struct{ result codec.EncodeResult }

func (f *writeFakeErasure) EncodeBlob(nShards int, data []byte) (codec.EncodeResult, error) {
	return f.result, nil
}
func (f *writeFakeErasure) DecodePrimarySlivers(blobID shard.ID, nShards int, unencodedLength uint64, slivers map[shard.Index][]byte) ([]byte, error) {
	return nil, nil
}
func (f *writeFakeErasure) ComputeMetadata(nShards int, data []byte) (codec.Metadata, error) {
	return codec.Metadata{}, nil
}

// writeFakeExecutor simulates the on-chain register/certify round trip: the
// first Execute (register_blob) returns a fixed Blob object id, every
// subsequent Execute (certify_blob) just succeeds.
type writeFakeExecutor struct {
	blobObjectID common.Hash
	executions   int32
	lastTx       *recordingTx
}

func (e *writeFakeExecutor) NewTx() chain.Tx {
	tx := &recordingTx{}
	e.lastTx = tx
	return tx
}

func (e *writeFakeExecutor) Execute(ctx context.Context, tx chain.Tx) (*chain.TxEffects, error) {
	n := atomic.AddInt32(&e.executions, 1)
	if n == 1 {
		return &chain.TxEffects{CreatedObjects: map[string]common.Hash{"Blob": e.blobObjectID}}, nil
	}
	return &chain.TxEffects{}, nil
}

type testNode struct {
	priv *bls.SecretKey
	srv  *httptest.Server
}

func newTestNode(t *testing.T, expectedMessage []byte, confirm bool) *testNode {
	t.Helper()
	priv := bls.RandPrivateKey()
	tn := &testNode{priv: priv}
	tn.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut:
			w.WriteHeader(http.StatusOK)
		case strings.HasPrefix(r.URL.Path, "/v1/confirmations/"):
			if !confirm {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			sig := priv.SignHash(expectedMessage)
			fmt.Fprintf(w, `{"signed": {"serializedMessage": "%s", "signature": "%s"}}`,
				base64.StdEncoding.EncodeToString(expectedMessage),
				base64.StdEncoding.EncodeToString(sig.Serialize()))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return tn
}

func buildWriteTestClient(t *testing.T, nodes []*testNode, blobID shard.ID, blobObjectID common.Hash, epoch uint64) (*client.Client, *writeFakeExecutor) {
	t.Helper()
	members := make([]chain.NodeInfo, len(nodes))
	pairs := make([]codec.SliverPair, len(nodes))
	for i, n := range nodes {
		members[i] = chain.NodeInfo{
			NodeID:         fmt.Sprintf("node-%d", i),
			PublicKey:      n.priv.GetPublicKey().Serialize(),
			NetworkAddress: n.srv.URL,
			ShardIndices:   []shard.Index{shard.Index(i)},
		}
		pairs[i] = codec.SliverPair{Primary: []byte("p"), Secondary: []byte("s")}
	}
	loader := &writeFakeLoader{state: &chain.SystemState{
		Epoch:               epoch,
		NShards:              len(nodes),
		StoragePricePerUnit:  1,
		WritePricePerUnit:    1,
		SystemObjectID:       common.HexToHash("0x5"),
		Committee: chain.RawCommittee{
			Epoch:   epoch,
			Members: members,
		},
	}}
	erasure := &writeFakeErasure{result: codec.EncodeResult{
		BlobID:      blobID,
		SliverPairs: pairs,
	}}
	executor := &writeFakeExecutor{blobObjectID: blobObjectID}

	cfg := &client.WalrusClientConfig{Network: "testnet"}
	cl, err := client.New(cfg, loader, executor, erasure)
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	return cl, executor
}

func TestWriteBlobHappyPath(t *testing.T) {
	blobID := shard.ID{1, 2, 3}
	blobObjectID := common.HexToHash("0xbeef")
	epoch := uint64(7)

	expectedMsg, err := codec.ConstructConfirmationMessage(uint32(epoch), blobID, false, nil)
	if err != nil {
		t.Fatalf("ConstructConfirmationMessage: %v", err)
	}

	nodes := make([]*testNode, 4)
	for i := range nodes {
		nodes[i] = newTestNode(t, expectedMsg, true)
		defer nodes[i].srv.Close()
	}

	cl, executor := buildWriteTestClient(t, nodes, blobID, blobObjectID, epoch)
	result, err := WriteBlob(context.Background(), cl, []byte("hello walrus"), Options{Epochs: 2})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	if result.BlobID != blobID {
		t.Errorf("BlobID = %v, want %v", result.BlobID, blobID)
	}
	if result.BlobObjectID != blobObjectID {
		t.Errorf("BlobObjectID = %v, want %v", result.BlobObjectID, blobObjectID)
	}
	if executor.executions != 2 {
		t.Errorf("executions = %d, want 2 (register + certify)", executor.executions)
	}
}

func TestWriteBlobSucceedsWithOneNodeFailing(t *testing.T) {
	// requiredQuorumWeight(4) = 3: three valid confirmations must still
	// reach certification even if the fourth node's endpoint errors.
	blobID := shard.ID{9}
	blobObjectID := common.HexToHash("0xcafe")
	epoch := uint64(1)

	expectedMsg, err := codec.ConstructConfirmationMessage(uint32(epoch), blobID, false, nil)
	if err != nil {
		t.Fatalf("ConstructConfirmationMessage: %v", err)
	}

	nodes := []*testNode{
		newTestNode(t, expectedMsg, true),
		newTestNode(t, expectedMsg, true),
		newTestNode(t, expectedMsg, true),
		newTestNode(t, expectedMsg, false),
	}
	for _, n := range nodes {
		defer n.srv.Close()
	}

	cl, _ := buildWriteTestClient(t, nodes, blobID, blobObjectID, epoch)
	result, err := WriteBlob(context.Background(), cl, []byte("partial quorum"), Options{})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	if result.BlobObjectID != blobObjectID {
		t.Errorf("BlobObjectID = %v, want %v", result.BlobObjectID, blobObjectID)
	}
}

func TestWriteBlobFailsWhenQuorumUnreachable(t *testing.T) {
	blobID := shard.ID{4}
	blobObjectID := common.HexToHash("0xdead")
	epoch := uint64(1)

	expectedMsg, err := codec.ConstructConfirmationMessage(uint32(epoch), blobID, false, nil)
	if err != nil {
		t.Fatalf("ConstructConfirmationMessage: %v", err)
	}

	nodes := []*testNode{
		newTestNode(t, expectedMsg, true),
		newTestNode(t, expectedMsg, false),
		newTestNode(t, expectedMsg, false),
		newTestNode(t, expectedMsg, false),
	}
	for _, n := range nodes {
		defer n.srv.Close()
	}

	cl, _ := buildWriteTestClient(t, nodes, blobID, blobObjectID, epoch)
	_, err = WriteBlob(context.Background(), cl, []byte("not enough nodes"), Options{})
	if err == nil {
		t.Fatal("expected an error when fewer than quorum nodes confirm")
	}
}
