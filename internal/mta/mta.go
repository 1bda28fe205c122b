// Package mta implements the multiplicative-to-additive conversion:
// given aᵢ held by the sender and Encⱼ(bⱼ) published by the receiver,
// the parties end up with additive shares of aᵢ⋅bⱼ.
package mta

import (
	"crypto/rand"

	"github.com/ruocuoguo23/wallet-mpc/pkg/hash"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/sample"
	"github.com/ruocuoguo23/wallet-mpc/pkg/paillier"
	"github.com/ruocuoguo23/wallet-mpc/pkg/pedersen"
	zkaffg "github.com/ruocuoguo23/wallet-mpc/pkg/zk/affg"
	zkaffp "github.com/ruocuoguo23/wallet-mpc/pkg/zk/affp"
)

// ProveAffG runs the sender side of the MtA with the sender's share
// committed as the group element Aᵢ = aᵢ⋅G.
//
//	Beta  = β, the sender's additive share (negated mask)
//	D     = (aᵢ ⊙ Bⱼ) ⊕ encⱼ(−β; s)
//	F     = encᵢ(−β; r)
//	Proof = aff-g proof of correct formation
func ProveAffG(group curve.Curve, h *hash.Hash,
	senderSecretShare *arith.Nat, senderSecretSharePoint curve.Point,
	receiverEncryptedShare *paillier.Ciphertext,
	sender *paillier.SecretKey, receiver *paillier.PublicKey,
	verifier *pedersen.Parameters) (Beta *arith.Nat, D, F *paillier.Ciphertext, Proof *zkaffg.Proofbuf) {
	D, F, S, R, BetaNeg := newMta(senderSecretShare, receiverEncryptedShare, sender, receiver)

	Proof = zkaffg.NewProofMal(group, h, zkaffg.Public{
		Kv:       receiverEncryptedShare,
		Dv:       D,
		Fp:       F,
		Xp:       senderSecretSharePoint,
		Prover:   sender.PublicKey,
		Verifier: receiver,
		Aux:      verifier,
	}, zkaffg.Private{
		X: senderSecretShare,
		Y: BetaNeg,
		S: S,
		R: R,
	})
	Beta = BetaNeg.Clone().Neg(1)
	return
}

// ProveAffP runs the sender side of the MtA with the sender's share
// committed as the ciphertext Aᵢ = Encᵢ(aᵢ).
func ProveAffP(group curve.Curve, h *hash.Hash,
	senderSecretShare *arith.Nat, senderEncryptedShare *paillier.Ciphertext,
	senderEncryptedShareNonce *arith.Nat,
	receiverEncryptedShare *paillier.Ciphertext,
	sender *paillier.SecretKey, receiver *paillier.PublicKey,
	verifier *pedersen.Parameters) (Beta *arith.Nat, D, F *paillier.Ciphertext, Proof *zkaffp.Proofbuf) {
	D, F, S, R, BetaNeg := newMta(senderSecretShare, receiverEncryptedShare, sender, receiver)

	Proof = zkaffp.NewProofMal(group, h, zkaffp.Public{
		Kv:       receiverEncryptedShare,
		Dv:       D,
		Fp:       F,
		Xp:       senderEncryptedShare,
		Prover:   sender.PublicKey,
		Verifier: receiver,
		Aux:      verifier,
	}, zkaffp.Private{
		X:  senderSecretShare,
		Y:  BetaNeg,
		S:  S,
		Rx: senderEncryptedShareNonce,
		R:  R,
	})
	Beta = BetaNeg.Clone().Neg(1)
	return
}

func newMta(senderSecretShare *arith.Nat, receiverEncryptedShare *paillier.Ciphertext,
	sender *paillier.SecretKey, receiver *paillier.PublicKey) (D, F *paillier.Ciphertext, S, R, BetaNeg *arith.Nat) {
	BetaNeg = sample.IntervalLPrime(rand.Reader)

	// F = encᵢ(−β; r)
	F, R = sender.Enc(BetaNeg)

	// D = encⱼ(−β; s) ⊕ (aᵢ ⊙ Bⱼ) = encⱼ(aᵢ⋅bⱼ − β)
	D, S = receiver.Enc(BetaNeg)
	tmp := receiverEncryptedShare.Clone().Mul(receiver, senderSecretShare)
	D.Add(receiver, tmp)
	return
}
