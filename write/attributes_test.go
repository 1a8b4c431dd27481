package write

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/walrus-storage/walrus-client-core/internal/chain"
	"github.com/walrus-storage/walrus-client-core/internal/shard"
)

type fakeFieldLoader struct {
	field []byte
	err   error
}

func (f *fakeFieldLoader) Load(ctx context.Context, id common.Hash) ([]byte, error) { return nil, nil }
func (f *fakeFieldLoader) SystemState(ctx context.Context) (*chain.SystemState, error) {
	return nil, nil
}
func (f *fakeFieldLoader) BlobCertifiedEpoch(ctx context.Context, blobID shard.ID) (*uint64, error) {
	return nil, nil
}
func (f *fakeFieldLoader) DynamicField(ctx context.Context, objectID common.Hash, fieldName []byte) ([]byte, error) {
	return f.field, f.err
}
func (f *fakeFieldLoader) Reset() {}

func TestReadBlobAttributesAbsent(t *testing.T) {
	loader := &fakeFieldLoader{field: nil}
	got, err := ReadBlobAttributes(context.Background(), loader, common.HexToHash("0x1"))
	if err != nil {
		t.Fatalf("ReadBlobAttributes: %v", err)
	}
	if got != nil {
		t.Errorf("got = %v, want nil", got)
	}
}

func TestReadBlobAttributesDecodesPresentField(t *testing.T) {
	want := map[string]string{"content-type": "image/png"}
	encoded, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	loader := &fakeFieldLoader{field: encoded}
	got, err := ReadBlobAttributes(context.Background(), loader, common.HexToHash("0x1"))
	if err != nil {
		t.Fatalf("ReadBlobAttributes: %v", err)
	}
	if got["content-type"] != "image/png" {
		t.Errorf("got = %v, want %v", got, want)
	}
}
