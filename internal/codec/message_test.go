package codec

import (
	"bytes"
	"testing"

	"github.com/walrus-storage/walrus-client-core/internal/shard"
)

func TestConstructConfirmationMessageDeterministic(t *testing.T) {
	id := shard.ID{1, 2, 3}
	a, err := ConstructConfirmationMessage(5, id, false, nil)
	if err != nil {
		t.Fatalf("ConstructConfirmationMessage: %v", err)
	}
	b, err := ConstructConfirmationMessage(5, id, false, nil)
	if err != nil {
		t.Fatalf("ConstructConfirmationMessage: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("encoding the same inputs twice produced different bytes")
	}
}

func TestConstructConfirmationMessageDistinguishesDeletable(t *testing.T) {
	id := shard.ID{1, 2, 3}
	permanent, err := ConstructConfirmationMessage(5, id, false, nil)
	if err != nil {
		t.Fatalf("ConstructConfirmationMessage: %v", err)
	}
	objectID := [32]byte{9, 9, 9}
	deletable, err := ConstructConfirmationMessage(5, id, true, &objectID)
	if err != nil {
		t.Fatalf("ConstructConfirmationMessage: %v", err)
	}
	if bytes.Equal(permanent, deletable) {
		t.Error("permanent and deletable confirmations encoded identically")
	}
}

func TestConstructConfirmationMessageDistinguishesEpochAndBlob(t *testing.T) {
	idA := shard.ID{1}
	idB := shard.ID{2}
	msgA, err := ConstructConfirmationMessage(1, idA, false, nil)
	if err != nil {
		t.Fatalf("ConstructConfirmationMessage: %v", err)
	}
	msgB, err := ConstructConfirmationMessage(1, idB, false, nil)
	if err != nil {
		t.Fatalf("ConstructConfirmationMessage: %v", err)
	}
	if bytes.Equal(msgA, msgB) {
		t.Error("different blob ids encoded identically")
	}

	msgEpoch2, err := ConstructConfirmationMessage(2, idA, false, nil)
	if err != nil {
		t.Fatalf("ConstructConfirmationMessage: %v", err)
	}
	if bytes.Equal(msgA, msgEpoch2) {
		t.Error("different epochs encoded identically")
	}
}

func TestConstructConfirmationMessageIgnoresObjectIDWhenNotDeletable(t *testing.T) {
	id := shard.ID{4}
	objectID := [32]byte{7, 7, 7}
	withIgnoredObjectID, err := ConstructConfirmationMessage(1, id, false, &objectID)
	if err != nil {
		t.Fatalf("ConstructConfirmationMessage: %v", err)
	}
	withoutObjectID, err := ConstructConfirmationMessage(1, id, false, nil)
	if err != nil {
		t.Fatalf("ConstructConfirmationMessage: %v", err)
	}
	if !bytes.Equal(withIgnoredObjectID, withoutObjectID) {
		t.Error("a non-deletable confirmation must not be affected by a passed objectID")
	}
}
