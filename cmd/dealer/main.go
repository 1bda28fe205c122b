// Command dealer generates a t-of-n key-share document per account
// with a trusted dealer. The root secret can be supplied as hex, or
// derived from a BIP-39 mnemonic through the BIP-32 master key.
// Output files are plaintext JSON; encrypting them at rest is the
// deployment's job.
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	"github.com/ruocuoguo23/wallet-mpc/pkg/ecdsa"
	"github.com/ruocuoguo23/wallet-mpc/pkg/keyshare"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/arith"
	"github.com/ruocuoguo23/wallet-mpc/pkg/math/curve"
	"github.com/ruocuoguo23/wallet-mpc/pkg/pool"
)

func main() {
	var (
		parties   = flag.Int("parties", 2, "number of parties n")
		threshold = flag.Int("threshold", 2, "minimum signers t")
		accountID = flag.String("account", "", "account id (required)")
		secretHex = flag.String("secret", "", "root secret as 64 hex chars; empty samples a fresh one")
		mnemonic  = flag.String("mnemonic", "", "BIP-39 mnemonic; derives the root secret via the BIP-32 master key")
		outPrefix = flag.String("out", "key_share", "output file prefix; party j gets <prefix>_<j>.json")
	)
	flag.Parse()

	if *accountID == "" {
		log.Fatal("missing -account")
	}

	group := curve.Secp256k1{}
	cfg := keyshare.DealerConfig{
		Parties:   uint16(*parties),
		Threshold: uint16(*threshold),
		Pool:      pool.NewPool(0),
	}

	switch {
	case *mnemonic != "" && *secretHex != "":
		log.Fatal("-secret and -mnemonic are mutually exclusive")
	case *mnemonic != "":
		seed := bip39.NewSeed(*mnemonic, "")
		master, err := bip32.NewMasterKey(seed)
		if err != nil {
			log.WithError(err).Fatal("failed to derive master key")
		}
		cfg.Secret = group.NewScalar().SetNat(new(arith.Nat).SetBytes(master.Key))
		cfg.ChainCode = master.ChainCode
	case *secretHex != "":
		raw, err := hex.DecodeString(*secretHex)
		if err != nil || len(raw) != 32 {
			log.Fatal("-secret must be 64 hex characters")
		}
		cfg.Secret = group.NewScalar().SetNat(new(arith.Nat).SetBytes(raw))
	}

	log.WithFields(log.Fields{
		"parties":   *parties,
		"threshold": *threshold,
		"account":   *accountID,
	}).Info("generating key shares")

	shares, err := keyshare.Deal(group, cfg)
	if err != nil {
		log.WithError(err).Fatal("share generation failed")
	}

	addr := ecdsa.EthereumAddress(shares[0].SharedPublicKey)
	pub, _ := shares[0].SharedPublicKey.MarshalBinary()
	log.WithFields(log.Fields{
		"public_key": hex.EncodeToString(pub),
		"address":    fmt.Sprintf("0x%x", addr),
	}).Info("shared key")

	for j, share := range shares {
		path := fmt.Sprintf("%s_%d.json", *outPrefix, j+1)
		if err := writeShare(path, *accountID, share); err != nil {
			log.WithError(err).WithField("path", path).Fatal("failed to write share file")
		}
		log.WithField("path", path).Info("wrote share file")
	}
}

// writeShare inserts the account into an existing document or creates
// a fresh one, so repeated runs accumulate accounts per party file.
func writeShare(path, accountID string, share *keyshare.KeyShare) error {
	doc := map[string]json.RawMessage{}
	if existing, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(existing, &doc); err != nil {
			return fmt.Errorf("existing file is not a share document: %w", err)
		}
		if _, dup := doc[accountID]; dup {
			log.WithField("account", accountID).Warn("account already present, overwriting")
		}
	}
	encoded, err := json.Marshal(share)
	if err != nil {
		return err
	}
	doc[accountID] = encoded
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}
