// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbt

import (
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcpsbt/internal/scriptpubkey"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Finalize returns a copy of p in which the partial signatures of every
// input have been turned into a final scriptSig and/or witness. Signatures
// are placed in the order they were added to the input. Once an input is
// finalized its signing metadata is dropped: partial signatures, sighash
// type, redeem and witness scripts and BIP32 derivations.
//
// Inputs that already carry final data and no partial signatures are left
// as they are. Any other input without partial signatures makes Finalize
// fail with ErrMissingSignatures. p itself is never modified.
func Finalize(p *Packet) (*Packet, error) {
	if err := p.checkCounts(); err != nil {
		return nil, err
	}

	result := p.Copy()
	for i := range result.Inputs {
		pi := &result.Inputs[i]

		if pi.IsFinalized() && pi.PartialSigs.IsEmpty() {
			log.Debugf("Input %d already finalized, skipping", i)
			continue
		}

		txIn := result.UnsignedTx.TxIn[i]
		if err := pi.finalize(txIn); err != nil {
			return nil, fmt.Errorf("unable to finalize input "+
				"%d: %w", i, err)
		}
	}

	log.Debugf("Finalized %d %s of tx %v", len(result.Inputs),
		pickNoun(len(result.Inputs), "input", "inputs"),
		result.UnsignedTx.TxHash())
	log.Tracef("Finalized packet: %v", spewPacket(result))

	return result, nil
}

// finalize builds the final unlocking data of a single input and clears its
// signing metadata.
func (pi *PInput) finalize(txIn *wire.TxIn) error {
	if pi.PartialSigs.IsEmpty() {
		return psbtErrorf(ErrMissingSignatures,
			"no partial signatures")
	}

	var (
		scriptSig fn.Option[[]byte]
		witness   fn.Option[wire.TxWitness]
		err       error
	)
	switch {
	case pi.WitnessScript.IsSome():
		scriptSig, err = pi.redeemScriptPush()
		if err != nil {
			return err
		}
		witness = fn.Some(pi.scriptWitness())

	case pi.isKeyHashSpend(txIn, scriptpubkey.P2WPKH):
		scriptSig, err = pi.redeemScriptPush()
		if err != nil {
			return err
		}

		pubKey, sig := pi.singleSig()
		witness = fn.Some(wire.TxWitness{sig, pubKey})

	case pi.RedeemScript.IsNone() &&
		pi.isKeyHashSpend(txIn, scriptpubkey.P2PKH):

		pubKey, sig := pi.singleSig()
		script, err := txscript.NewScriptBuilder().
			AddData(sig).
			AddData(pubKey).
			Script()
		if err != nil {
			return err
		}
		scriptSig = fn.Some(script)

	default:
		script, err := pi.legacyScriptSig()
		if err != nil {
			return err
		}
		scriptSig = fn.Some(script)
	}

	pi.FinalScriptSig = scriptSig
	pi.FinalScriptWitness = witness

	pi.PartialSigs.Clear()
	pi.SighashType = fn.None[txscript.SigHashType]()
	pi.RedeemScript = fn.None[[]byte]()
	pi.WitnessScript = fn.None[[]byte]()
	pi.Bip32Derivation.Clear()

	return nil
}

// isMultisig reports whether the input is spent with more than one
// signature, in which case OP_CHECKMULTISIG consumes an extra dummy element.
func (pi *PInput) isMultisig() bool {
	return pi.PartialSigs.Len() > 1
}

// isKeyHashSpend reports whether the input holds a single signature for a
// script of the given key hash type. The script is the redeem script if
// there is one and the spent output script otherwise.
func (pi *PInput) isKeyHashSpend(txIn *wire.TxIn, t scriptpubkey.Type) bool {
	if pi.PartialSigs.Len() != 1 {
		return false
	}

	script := pi.RedeemScript.UnwrapOr(nil)
	if script == nil {
		utxoScript, err := pi.utxoScript(txIn)
		if err != nil {
			return false
		}
		script = utxoScript
	}

	return scriptpubkey.Classify(script) == t
}

func (pi *PInput) singleSig() ([]byte, []byte) {
	return pi.PartialSigs.Keys()[0], pi.PartialSigs.Values()[0]
}

// redeemScriptPush returns a scriptSig made of the single push of the redeem
// script, or None if the input has no redeem script.
func (pi *PInput) redeemScriptPush() (fn.Option[[]byte], error) {
	if pi.RedeemScript.IsNone() {
		return fn.None[[]byte](), nil
	}

	script, err := txscript.NewScriptBuilder().
		AddData(pi.RedeemScript.UnsafeFromSome()).
		Script()
	if err != nil {
		return fn.None[[]byte](), err
	}

	return fn.Some(script), nil
}

// scriptWitness builds the witness stack of a script spend:
// [empty if multisig] + signatures + [witness script].
func (pi *PInput) scriptWitness() wire.TxWitness {
	witness := make(wire.TxWitness, 0, pi.PartialSigs.Len()+2)
	if pi.isMultisig() {
		witness = append(witness, []byte{})
	}
	witness = append(witness, pi.PartialSigs.Values()...)

	return append(witness, pi.WitnessScript.UnsafeFromSome())
}

// legacyScriptSig builds the scriptSig of a non-segwit spend:
// [OP_0 if multisig] + signature pushes + [redeem script push].
func (pi *PInput) legacyScriptSig() ([]byte, error) {
	b := txscript.NewScriptBuilder()
	if pi.isMultisig() {
		b.AddOp(txscript.OP_0)
	}

	for _, sig := range pi.PartialSigs.Values() {
		b.AddData(sig)
	}

	pi.RedeemScript.WhenSome(func(redeemScript []byte) {
		b.AddData(redeemScript)
	})

	return b.Script()
}
