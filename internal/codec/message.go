package codec

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/walrus-storage/walrus-client-core/internal/shard"
)

// BlobCertMsgIntent is the intent byte identifying a StorageConfirmation
// message (spec §6).
const BlobCertMsgIntent byte = 1

// blobTypeWire is the certification intent: permanent storage, or deletable
// tied to an on-chain object id.
type blobTypeWire struct {
	Deletable bool
	ObjectID  [32]byte
}

type contentsWire struct {
	BlobID   [32]byte
	BlobType blobTypeWire
}

type storageConfirmationWire struct {
	Intent   byte
	Epoch    uint32
	Contents contentsWire
}

// ConstructConfirmationMessage builds the byte-exact canonical
// StorageConfirmation record a node signs and a verifier reproduces (spec
// §6). RLP is used for deterministic, byte-exact encoding the same way
// node/relay/broadcast.go rlp-encodes blocks before they go over the
// wire, here applied to a small fixed-shape record instead of a block.
func ConstructConfirmationMessage(epoch uint32, blobID shard.ID, deletable bool, objectID *[32]byte) ([]byte, error) {
	w := storageConfirmationWire{
		Intent: BlobCertMsgIntent,
		Epoch:  epoch,
		Contents: contentsWire{
			BlobID: blobID,
			BlobType: blobTypeWire{
				Deletable: deletable,
			},
		},
	}
	if deletable && objectID != nil {
		w.Contents.BlobType.ObjectID = *objectID
	}
	return rlp.EncodeToBytes(&w)
}
