package crypto

import (
	bls "github.com/cloudflare/circl/sign/bls"
)

// Commitment attestations put keys in G1 and signatures in G2, keeping
// validator public keys in the smaller group.
type blsScheme = bls.KeyG1SigG2

// BLSPubKey identifies one attesting validator.
type BLSPubKey = bls.PublicKey[blsScheme]

// BLSSigner signs attestation messages for one validator.
type BLSSigner struct {
	sk *bls.PrivateKey[blsScheme]
	pk *BLSPubKey
}

// NewBLSSignerFromSeed derives a deterministic key pair from a seed of at
// least 32 bytes — the shape a fixed validator set declared in config
// needs, and what tests use.
func NewBLSSignerFromSeed(seed []byte) *BLSSigner {
	sk, _ := bls.KeyGen[blsScheme](seed, nil, nil)
	return &BLSSigner{sk: sk, pk: sk.PublicKey()}
}

// Pubkey returns the validator's public key.
func (s *BLSSigner) Pubkey() *BLSPubKey { return s.pk }

// Sign signs msg with the validator's key.
func (s *BLSSigner) Sign(msg []byte) []byte {
	return bls.Sign(s.sk, msg)
}

// VerifyBLS checks a single validator's signature over msg.
func VerifyBLS(pk *BLSPubKey, sig, msg []byte) bool {
	return bls.Verify(pk, msg, bls.Signature(sig))
}

// Aggregate folds multiple signatures over the same message into one.
// Empty entries are skipped; returns nil if aggregation fails.
func Aggregate(sigBytesList [][]byte) []byte {
	sigs := make([]bls.Signature, 0, len(sigBytesList))
	for _, sb := range sigBytesList {
		if len(sb) == 0 {
			continue
		}
		sigs = append(sigs, bls.Signature(sb))
	}
	agg, err := bls.Aggregate(bls.G1{}, sigs)
	if err != nil {
		return nil
	}
	return agg
}

// VerifyAggregateSameMsg checks an aggregate signature where every
// validator in pks signed the identical msg.
func VerifyAggregateSameMsg(pks []*BLSPubKey, msg []byte, aggSig []byte) bool {
	return bls.VerifyAggregate(pks, [][]byte{msg}, bls.Signature(aggSig))
}
