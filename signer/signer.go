// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package signer adds ECDSA partial signatures to the inputs of a packet.
package signer

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcpsbt/psbt"
)

// Sign signs input idx of p with key and returns a copy of p holding the
// new partial signature under the compressed public key of key. The
// signature commits to the sighash type of the input, SIGHASH_ALL if unset.
// p is not modified.
func Sign(p *psbt.Packet, idx int, key *btcec.PrivateKey) (*psbt.Packet,
	error) {

	digest, err := SigHash(p, idx)
	if err != nil {
		return nil, err
	}

	hashType := sigHashType(&p.Inputs[idx])
	sig := ecdsa.Sign(key, digest).Serialize()
	sig = append(sig, byte(hashType))

	pubKey := key.PubKey().SerializeCompressed()

	signed := p.Copy()
	u := psbt.Updater{Upsbt: signed}
	if err := u.AddPartialSig(idx, sig, pubKey); err != nil {
		return nil, err
	}

	log.Debugf("Signed input %d of tx %v with key %x", idx,
		p.UnsignedTx.TxHash(), pubKey)

	return signed, nil
}
