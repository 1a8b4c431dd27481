package codec

import (
	"github.com/harmony-one/bls/ffi/go/bls"
	"github.com/pkg/errors"
)

// BLSVerifier verifies and aggregates BLS12-381 min-pk signatures over the
// canonical StorageConfirmation message, built directly on the teacher's
// own BLS dependency (consensus/leader.go deserializes and verifies the
// same way for block-commit signatures; here the message is a storage
// confirmation instead of a block hash).
type BLSVerifier struct{}

// NewBLSVerifier constructs a BLSVerifier.
func NewBLSVerifier() *BLSVerifier { return &BLSVerifier{} }

// Verify checks that signature, over message, validates against the
// serialized public key.
func (BLSVerifier) Verify(publicKey, message, signature []byte) (bool, error) {
	var pub bls.PublicKey
	if err := pub.Deserialize(publicKey); err != nil {
		return false, errors.Wrap(err, "bls: deserialize public key")
	}
	var sig bls.Sign
	if err := sig.Deserialize(signature); err != nil {
		return false, errors.Wrap(err, "bls: deserialize signature")
	}
	return sig.VerifyHash(&pub, message), nil
}

// Aggregate combines a set of valid signatures (already known to verify
// individually) into a single aggregated signature, mirroring the
// teacher's BLS multi-sig aggregation used to certify a committed block.
func (BLSVerifier) Aggregate(signatures [][]byte) ([]byte, error) {
	agg := &bls.Sign{}
	for i, raw := range signatures {
		var s bls.Sign
		if err := s.Deserialize(raw); err != nil {
			return nil, errors.Wrapf(err, "bls: deserialize signature %d", i)
		}
		agg.Add(&s)
	}
	return agg.Serialize(), nil
}
