// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbt

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"
)

// testKey returns a deterministic private key derived from seed.
func testKey(seed byte) *btcec.PrivateKey {
	return secp256k1.PrivKeyFromBytes(bytes.Repeat([]byte{seed}, 32))
}

func testPubKey(seed byte) []byte {
	return testKey(seed).PubKey().SerializeCompressed()
}

// testSig returns a DER signature by key over a digest derived from msg,
// followed by the SIGHASH_ALL byte. The signature is well formed but does
// not commit to any transaction.
func testSig(key *btcec.PrivateKey, msg string) []byte {
	sig := ecdsa.Sign(key, chainhash.HashB([]byte(msg))).Serialize()
	return append(sig, byte(txscript.SigHashAll))
}

func mustScript(t *testing.T, b *txscript.ScriptBuilder) []byte {
	t.Helper()

	script, err := b.Script()
	require.NoError(t, err)

	return script
}

// multiSigScript returns a 2-of-n OP_CHECKMULTISIG script.
func multiSigScript(t *testing.T, pubKeys ...[]byte) []byte {
	t.Helper()

	b := txscript.NewScriptBuilder().AddOp(txscript.OP_2)
	for _, pubKey := range pubKeys {
		b.AddData(pubKey)
	}
	b.AddInt64(int64(len(pubKeys))).AddOp(txscript.OP_CHECKMULTISIG)

	return mustScript(t, b)
}

func p2shScript(t *testing.T, redeemScript []byte) []byte {
	return mustScript(t, txscript.NewScriptBuilder().
		AddOp(txscript.OP_HASH160).
		AddData(btcutil.Hash160(redeemScript)).
		AddOp(txscript.OP_EQUAL))
}

func p2wshScript(t *testing.T, witnessScript []byte) []byte {
	return mustScript(t, txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(chainhash.HashB(witnessScript)))
}

// testPrevTx returns a transaction with a single output paying value to
// pkScript.
func testPrevTx(pkScript []byte, value int64) *wire.MsgTx {
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(
		wire.NewOutPoint(&chainhash.Hash{0x42}, 1), nil, nil,
	))
	tx.AddTxOut(wire.NewTxOut(value, pkScript))

	return tx
}

// testPacket returns an empty packet spending output 0 of each of prevTxs
// to a single OP_TRUE output of value outValue.
func testPacket(t *testing.T, outValue int64,
	prevTxs ...*wire.MsgTx) *Packet {

	t.Helper()

	outPoints := make([]*wire.OutPoint, 0, len(prevTxs))
	sequences := make([]uint32, 0, len(prevTxs))
	for _, prevTx := range prevTxs {
		prevHash := prevTx.TxHash()
		outPoints = append(outPoints, wire.NewOutPoint(&prevHash, 0))
		sequences = append(sequences, wire.MaxTxInSequenceNum)
	}

	p, err := NewFromOutPoints(
		outPoints,
		[]*wire.TxOut{wire.NewTxOut(outValue, []byte{txscript.OP_TRUE})},
		2, 0, sequences,
	)
	require.NoError(t, err)

	return p
}

// roundTrip serializes p and parses it back.
func roundTrip(t *testing.T, p *Packet) *Packet {
	t.Helper()

	raw, err := p.SerializeBytes()
	require.NoError(t, err)

	parsed, err := NewFromRawBytes(bytes.NewReader(raw), false)
	require.NoError(t, err)

	return parsed
}
