package write

import (
	"github.com/walrus-storage/walrus-client-core/internal/chain"
	"github.com/walrus-storage/walrus-client-core/internal/shard"
)

// CreateStorage returns a thunk reserving storage for encodedSize over
// epochs, paid with a WAL coin of the appropriate amount (spec §4
// Auxiliary contracts).
func CreateStorage(systemObjectID string, encodedSize uint64, epochs uint64, coinAmount uint64) chain.TxThunk {
	return func(tx chain.Tx) {
		tx.MoveCall("system", "reserve_space", systemObjectID, encodedSize, epochs, coinAmount)
	}
}

// RegisterBlob returns a thunk registering blobID against a reserved
// storage resource.
func RegisterBlob(systemObjectID, storageObjectID string, blobID shard.ID, rootHash [32]byte, size uint64, deletable bool, writeCoinAmount uint64) chain.TxThunk {
	return func(tx chain.Tx) {
		const encoding = 1 // Reed-Solomon-like encoding id, per spec §4.E step 3
		tx.MoveCall("system", "register_blob",
			systemObjectID, storageObjectID, blobID, rootHash, size, encoding, deletable, writeCoinAmount,
		)
	}
}

// CertifyBlob returns a thunk submitting an aggregated BLS signature and
// signer bitmap to certify blobObjectID.
func CertifyBlob(systemObjectID, blobObjectID string, aggSig []byte, signerBitmap []byte, message []byte) chain.TxThunk {
	return func(tx chain.Tx) {
		tx.MoveCall("system", "certify_blob", systemObjectID, blobObjectID, aggSig, signerBitmap, message)
	}
}

// DeleteBlob returns a thunk deleting a deletable blob object.
func DeleteBlob(systemObjectID, blobObjectID string) chain.TxThunk {
	return func(tx chain.Tx) {
		tx.MoveCall("system", "delete_blob", systemObjectID, blobObjectID)
	}
}

// ExtendBlob returns a thunk extending blobObjectID's storage period by
// extendedEpochs, paid by extensionCoinAmount. Per spec §4 Auxiliary
// contracts, this is a no-op thunk if the resulting epoch delta is <= 0.
func ExtendBlob(systemObjectID, blobObjectID string, extendedEpochs int64, extensionCoinAmount uint64) chain.TxThunk {
	if extendedEpochs <= 0 {
		return func(chain.Tx) {}
	}
	return func(tx chain.Tx) {
		tx.MoveCall("system", "extend_blob", systemObjectID, blobObjectID, extendedEpochs, extensionCoinAmount)
	}
}

// WriteBlobAttributes returns a thunk attaching or updating the dynamic
// "metadata" field on blobObjectID with the given key/value pairs.
func WriteBlobAttributes(blobObjectID string, attributes map[string]string) chain.TxThunk {
	return func(tx chain.Tx) {
		if len(attributes) == 0 {
			return
		}
		for k, v := range attributes {
			tx.MoveCall("system", "insert_or_update_metadata_pair", blobObjectID, []byte("metadata"), k, v)
		}
	}
}

// RemoveBlobAttribute returns a thunk removing one key from the dynamic
// "metadata" field.
func RemoveBlobAttribute(blobObjectID string, key string) chain.TxThunk {
	return func(tx chain.Tx) {
		tx.MoveCall("system", "remove_metadata_pair", blobObjectID, []byte("metadata"), key)
	}
}

// DestroyZeroCoin returns a thunk destroying a zero-value coin left over
// from a reservation, the 0x2::coin::destroy_zero call named in spec §6.
func DestroyZeroCoin(coinObjectID string) chain.TxThunk {
	return func(tx chain.Tx) {
		tx.MoveCall("0x2::coin", "destroy_zero", coinObjectID)
	}
}
