// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbt

import (
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// requireSigningFieldsCleared checks that a finalized input kept nothing but
// its utxo, final data and unknowns.
func requireSigningFieldsCleared(t *testing.T, pi *PInput) {
	t.Helper()

	require.True(t, pi.PartialSigs.IsEmpty())
	require.True(t, pi.Bip32Derivation.IsEmpty())
	require.True(t, pi.SighashType.IsNone())
	require.True(t, pi.RedeemScript.IsNone())
	require.True(t, pi.WitnessScript.IsNone())
}

// TestFinalizeMultiSig checks the unlocking data built for 2-of-3 multisig
// inputs signed by two of the keys and spent through each script type.
func TestFinalizeMultiSig(t *testing.T) {
	t.Parallel()

	ms := multiSigScript(t, testPubKey(1), testPubKey(2), testPubKey(3))
	sig1 := testSig(testKey(1), "one")
	sig2 := testSig(testKey(2), "two")
	nested := p2wshScript(t, ms)

	testCases := []struct {
		name          string
		pkScript      []byte
		redeemScript  []byte
		witnessScript []byte
		scriptSig     string
		witness       wire.TxWitness
	}{
		{
			name:         "p2sh",
			pkScript:     p2shScript(t, ms),
			redeemScript: ms,
			scriptSig:    fmt.Sprintf("0 %x %x %x", sig1, sig2, ms),
		},
		{
			name:          "p2wsh",
			pkScript:      nested,
			witnessScript: ms,
			witness:       wire.TxWitness{{}, sig1, sig2, ms},
		},
		{
			name:          "p2sh-p2wsh",
			pkScript:      p2shScript(t, nested),
			redeemScript:  nested,
			witnessScript: ms,
			scriptSig:     fmt.Sprintf("%x", nested),
			witness:       wire.TxWitness{{}, sig1, sig2, ms},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			prevTx := testPrevTx(tc.pkScript, 10000)
			p := testPacket(t, 9000, prevTx)

			pi := &p.Inputs[0]
			if tc.witnessScript != nil {
				pi.WitnessUtxo = fn.Some(prevTx.TxOut[0])
				pi.WitnessScript = fn.Some(tc.witnessScript)
			} else {
				pi.NonWitnessUtxo = fn.Some(prevTx)
			}
			if tc.redeemScript != nil {
				pi.RedeemScript = fn.Some(tc.redeemScript)
			}
			pi.SighashType = fn.Some(txscript.SigHashAll)
			pi.PartialSigs.Set(testPubKey(1), sig1)
			pi.PartialSigs.Set(testPubKey(2), sig2)
			pi.Bip32Derivation.Set(testPubKey(1), Bip32Derivation{})
			pi.Bip32Derivation.Set(testPubKey(3), Bip32Derivation{})
			require.NoError(t, p.AssertSignable())

			before := p.Copy()
			finalized, err := Finalize(p)
			require.NoError(t, err)
			require.True(t, p.Equal(before))
			require.True(t, finalized.IsComplete())

			fi := &finalized.Inputs[0]
			requireSigningFieldsCleared(t, fi)

			if tc.scriptSig == "" {
				require.True(t, fi.FinalScriptSig.IsNone())
			} else {
				disasm, err := txscript.DisasmString(
					fi.FinalScriptSig.UnsafeFromSome(),
				)
				require.NoError(t, err)
				require.Equal(t, tc.scriptSig, disasm)
			}

			if tc.witness == nil {
				require.True(t, fi.FinalScriptWitness.IsNone())
			} else {
				require.True(t, witnessEqual(
					tc.witness,
					fi.FinalScriptWitness.UnsafeFromSome(),
				))
			}

			// The finalized packet still serializes and the
			// utxo survives.
			require.True(t, finalized.Equal(roundTrip(t, finalized)))
			require.True(t, fi.WitnessUtxo.IsSome() ||
				fi.NonWitnessUtxo.IsSome())
		})
	}
}

// TestFinalizeKeyHash checks single key spends.
func TestFinalizeKeyHash(t *testing.T) {
	t.Parallel()

	pubKey := testPubKey(3)
	sig := testSig(testKey(3), "key")
	keyHash := btcutil.Hash160(pubKey)

	p2pkh := mustScript(t, txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(keyHash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG))
	p2wpkh := p2wpkhScript(t, pubKey)

	testCases := []struct {
		name         string
		pkScript     []byte
		redeemScript []byte
		witnessUtxo  bool
		scriptSig    string
		witness      wire.TxWitness
	}{
		{
			name:      "p2pkh",
			pkScript:  p2pkh,
			scriptSig: fmt.Sprintf("%x %x", sig, pubKey),
		},
		{
			name:        "p2wpkh",
			pkScript:    p2wpkh,
			witnessUtxo: true,
			witness:     wire.TxWitness{sig, pubKey},
		},
		{
			name:         "p2sh-p2wpkh",
			pkScript:     p2shScript(t, p2wpkh),
			redeemScript: p2wpkh,
			witnessUtxo:  true,
			scriptSig:    fmt.Sprintf("%x", p2wpkh),
			witness:      wire.TxWitness{sig, pubKey},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			prevTx := testPrevTx(tc.pkScript, 10000)
			p := testPacket(t, 9000, prevTx)

			pi := &p.Inputs[0]
			if tc.witnessUtxo {
				pi.WitnessUtxo = fn.Some(prevTx.TxOut[0])
			} else {
				pi.NonWitnessUtxo = fn.Some(prevTx)
			}
			if tc.redeemScript != nil {
				pi.RedeemScript = fn.Some(tc.redeemScript)
			}
			pi.PartialSigs.Set(pubKey, sig)

			finalized, err := Finalize(p)
			require.NoError(t, err)

			fi := &finalized.Inputs[0]
			requireSigningFieldsCleared(t, fi)

			if tc.scriptSig == "" {
				require.True(t, fi.FinalScriptSig.IsNone())
			} else {
				disasm, err := txscript.DisasmString(
					fi.FinalScriptSig.UnsafeFromSome(),
				)
				require.NoError(t, err)
				require.Equal(t, tc.scriptSig, disasm)
			}

			if tc.witness == nil {
				require.True(t, fi.FinalScriptWitness.IsNone())
			} else {
				require.True(t, witnessEqual(
					tc.witness,
					fi.FinalScriptWitness.UnsafeFromSome(),
				))
			}
		})
	}
}

// TestFinalizeErrors checks that inputs without signatures are refused
// unless they are already finalized.
func TestFinalizeErrors(t *testing.T) {
	t.Parallel()

	p := testPacket(
		t, 1000, testPrevTx([]byte{0x51}, 2000),
		testPrevTx([]byte{0x52}, 2000),
	)

	_, err := Finalize(p)
	require.True(t, IsError(err, ErrMissingSignatures), "got %v", err)

	p.Inputs[0].FinalScriptSig = fn.Some([]byte{0x51})
	_, err = Finalize(p)
	require.True(t, IsError(err, ErrMissingSignatures), "got %v", err)

	p.Inputs[1].FinalScriptWitness = fn.Some(wire.TxWitness{{0x01}})
	finalized, err := Finalize(p)
	require.NoError(t, err)
	require.True(t, finalized.Equal(p))

	p.Outputs = nil
	_, err = Finalize(p)
	require.True(t, IsError(err, ErrStructuralViolation), "got %v", err)
}
