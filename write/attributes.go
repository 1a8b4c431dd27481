package write

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/walrus-storage/walrus-client-core/internal/chain"
)

var metadataFieldName = []byte("metadata")

// ReadBlobAttributes reads the dynamic "metadata" field attached to
// blobObjectID, returning nil if absent (spec §4 Auxiliary contracts).
func ReadBlobAttributes(ctx context.Context, loader chain.ObjectLoader, blobObjectID common.Hash) (map[string]string, error) {
	raw, err := loader.DynamicField(ctx, blobObjectID, metadataFieldName)
	if err != nil {
		return nil, errors.Wrap(err, "write: read blob attributes")
	}
	if raw == nil {
		return nil, nil
	}
	var out map[string]string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrap(err, "write: decode blob attributes")
	}
	return out, nil
}
