// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbt

import (
	"bytes"
	"strconv"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcpsbt/internal/scriptpubkey"
)

// SanityCheck checks the structural rules of BIP174 that do not depend on
// the outputs being spent: the entry counts match the transaction, the
// transaction is unsigned, the version is supported and every field decodes
// to what its key type promises.
func (p *Packet) SanityCheck() error {
	if p.UnsignedTx == nil {
		return psbtErrorf(ErrMissingTransaction,
			"packet has no unsigned transaction")
	}

	if p.Version != 0 {
		return psbtErrorf(ErrInvalidVersion,
			"unsupported version %d", p.Version)
	}

	if err := p.checkCounts(); err != nil {
		return err
	}

	if err := validateUnsignedTx(p.UnsignedTx); err != nil {
		return err
	}

	var err error
	p.XPubs.ForEach(func(key []byte, _ Bip32Derivation) bool {
		_, err = ParseXPub(key)
		return err == nil
	})
	if err != nil {
		return err
	}

	if err := validateUnknowns(&p.Unknowns, "global"); err != nil {
		return err
	}

	for i := range p.Inputs {
		if err := p.Inputs[i].sanityCheck(); err != nil {
			return psbtError(ErrStructuralViolation,
				"invalid input entry "+strconv.Itoa(i), err)
		}
	}

	for i := range p.Outputs {
		if err := p.Outputs[i].sanityCheck(); err != nil {
			return psbtError(ErrStructuralViolation,
				"invalid output entry "+strconv.Itoa(i), err)
		}
	}

	return nil
}

// checkCounts makes sure there is exactly one entry per transaction input
// and output.
func (p *Packet) checkCounts() error {
	if p.UnsignedTx == nil {
		return psbtErrorf(ErrMissingTransaction,
			"packet has no unsigned transaction")
	}

	if len(p.Inputs) != len(p.UnsignedTx.TxIn) {
		return psbtErrorf(ErrStructuralViolation,
			"mismatched number of inputs: %d entries for %d tx "+
				"inputs", len(p.Inputs), len(p.UnsignedTx.TxIn))
	}

	if len(p.Outputs) != len(p.UnsignedTx.TxOut) {
		return psbtErrorf(ErrStructuralViolation,
			"mismatched number of outputs: %d entries for %d tx "+
				"outputs", len(p.Outputs),
			len(p.UnsignedTx.TxOut))
	}

	return nil
}

// validateUnsignedTx returns an error if any input of tx carries a scriptSig
// or a witness.
func validateUnsignedTx(tx *wire.MsgTx) error {
	for i, txIn := range tx.TxIn {
		if len(txIn.SignatureScript) != 0 {
			return psbtErrorf(ErrStructuralViolation,
				"non empty scriptSig in unsigned tx "+
					"input %d", i)
		}
		if len(txIn.Witness) != 0 {
			return psbtErrorf(ErrStructuralViolation,
				"non empty witness in unsigned tx input %d", i)
		}
	}

	return nil
}

// validateUnknowns rejects empty keys, which could not be told apart from a
// map separator on the wire.
func validateUnknowns(m *KeyMap[[]byte], where string) error {
	if m.Has(nil) {
		return psbtErrorf(ErrStructuralViolation,
			"%s: empty unknown key", where)
	}

	return nil
}

// AssertSignable checks that the UTXO and script metadata of every input
// agree with each other and with the transaction:
//
//   - a non-witness UTXO must be the transaction the input spends from,
//   - a witness UTXO must pay to P2WPKH or P2WSH, possibly nested in P2SH,
//   - a redeem script must hash to the P2SH script it unlocks,
//   - a witness script must hash to the P2WSH program it unlocks.
func (p *Packet) AssertSignable() error {
	if err := p.checkCounts(); err != nil {
		return err
	}

	for i, txIn := range p.UnsignedTx.TxIn {
		if err := p.Inputs[i].assertSignable(txIn); err != nil {
			desc := "input " + strconv.Itoa(i) +
				" is not signable"
			return psbtError(ErrSemanticViolation, desc, err)
		}
	}

	return nil
}

// utxoScript returns the script of the output spent by txIn, looked up in
// the non-witness UTXO if present and in the witness UTXO otherwise.
func (pi *PInput) utxoScript(txIn *wire.TxIn) ([]byte, error) {
	if pi.NonWitnessUtxo.IsSome() {
		prevTx := pi.NonWitnessUtxo.UnsafeFromSome()
		idx := txIn.PreviousOutPoint.Index
		if int(idx) >= len(prevTx.TxOut) {
			return nil, psbtErrorf(ErrSemanticViolation,
				"prevout index %d out of range for "+
					"non-witness utxo with %d outputs", idx,
				len(prevTx.TxOut))
		}

		return prevTx.TxOut[idx].PkScript, nil
	}

	if pi.WitnessUtxo.IsSome() {
		return pi.WitnessUtxo.UnsafeFromSome().PkScript, nil
	}

	return nil, psbtErrorf(ErrSemanticViolation, "missing utxo")
}

func (pi *PInput) assertSignable(txIn *wire.TxIn) error {
	if pi.NonWitnessUtxo.IsSome() {
		txHash := pi.NonWitnessUtxo.UnsafeFromSome().TxHash()
		if !txHash.IsEqual(&txIn.PreviousOutPoint.Hash) {
			return psbtErrorf(ErrSemanticViolation,
				"invalid non-witness utxo txid %v, expected %v",
				txHash, txIn.PreviousOutPoint.Hash)
		}
	}

	if pi.WitnessUtxo.IsSome() {
		script := pi.WitnessUtxo.UnsafeFromSome().PkScript
		if scriptpubkey.Classify(script) == scriptpubkey.P2SH {
			script = pi.RedeemScript.UnwrapOr(nil)
		}

		if !scriptpubkey.Classify(script).IsSegWit() {
			return psbtErrorf(ErrSemanticViolation,
				"witness utxo script type %v is not p2wpkh or "+
					"p2wsh", scriptpubkey.Classify(script))
		}
	}

	if pi.RedeemScript.IsSome() {
		script, err := pi.utxoScript(txIn)
		if err != nil {
			return err
		}

		redeemScript := pi.RedeemScript.UnsafeFromSome()
		_, payload := scriptpubkey.Payload(script)
		if !bytes.Equal(btcutil.Hash160(redeemScript), payload) {
			return psbtErrorf(ErrSemanticViolation,
				"invalid redeem script hash")
		}
	}

	if pi.WitnessScript.IsSome() {
		script, err := pi.utxoScript(txIn)
		if err != nil {
			return err
		}
		pi.RedeemScript.WhenSome(func(redeemScript []byte) {
			script = redeemScript
		})

		witnessScript := pi.WitnessScript.UnsafeFromSome()
		_, payload := scriptpubkey.Payload(script)
		if !bytes.Equal(chainhash.HashB(witnessScript), payload) {
			return psbtErrorf(ErrSemanticViolation,
				"invalid witness script hash")
		}
	}

	return nil
}
