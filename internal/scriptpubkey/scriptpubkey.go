// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package scriptpubkey classifies locking scripts and extracts the hash or
// witness program they commit to.
package scriptpubkey

import (
	"github.com/btcsuite/btcd/txscript"
)

// Type is the kind of a locking script.
type Type uint8

const (
	// NonStandard is any script not matched by another type.
	NonStandard Type = iota

	// P2PKH is OP_DUP OP_HASH160 <20 bytes> OP_EQUALVERIFY OP_CHECKSIG.
	P2PKH

	// P2SH is OP_HASH160 <20 bytes> OP_EQUAL.
	P2SH

	// P2WPKH is OP_0 <20 bytes>.
	P2WPKH

	// P2WSH is OP_0 <32 bytes>.
	P2WSH

	// P2TR is OP_1 <32 bytes>.
	P2TR

	// P2PK is <pubkey> OP_CHECKSIG.
	P2PK

	// MultiSig is a bare m-of-n OP_CHECKMULTISIG script.
	MultiSig

	// NullData is an OP_RETURN data carrier.
	NullData
)

// String returns the conventional short name of the type.
func (t Type) String() string {
	switch t {
	case P2PKH:
		return "p2pkh"
	case P2SH:
		return "p2sh"
	case P2WPKH:
		return "p2wpkh"
	case P2WSH:
		return "p2wsh"
	case P2TR:
		return "p2tr"
	case P2PK:
		return "p2pk"
	case MultiSig:
		return "multisig"
	case NullData:
		return "nulldata"
	default:
		return "nonstandard"
	}
}

// IsSegWit returns true for the version 0 witness program types.
func (t Type) IsSegWit() bool {
	return t == P2WPKH || t == P2WSH
}

// Payload returns the type of script along with the hash or program it
// commits to. The payload is nil for types that do not commit to a hash.
func Payload(script []byte) (Type, []byte) {
	switch txscript.GetScriptClass(script) {
	case txscript.PubKeyHashTy:
		return P2PKH, script[3:23]

	case txscript.ScriptHashTy:
		return P2SH, script[2:22]

	case txscript.WitnessV0PubKeyHashTy:
		return P2WPKH, script[2:22]

	case txscript.WitnessV0ScriptHashTy:
		return P2WSH, script[2:34]

	case txscript.WitnessV1TaprootTy:
		return P2TR, script[2:34]

	case txscript.PubKeyTy:
		return P2PK, nil

	case txscript.MultiSigTy:
		return MultiSig, nil

	case txscript.NullDataTy:
		return NullData, nil

	default:
		return NonStandard, nil
	}
}

// Classify returns only the type of script.
func Classify(script []byte) Type {
	t, _ := Payload(script)
	return t
}

// P2PKHScript returns the pay-to-pubkey-hash script for a 20-byte hash. It
// is also the script code signed for P2WPKH spends.
func P2PKHScript(pkHash []byte) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(pkHash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
}
