// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbt

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcpsbt/pkg/btcunit"
)

// SumUtxoInputValues returns the total value of the outputs spent by the
// packet. Every input needs a witness or non-witness UTXO.
func SumUtxoInputValues(p *Packet) (btcutil.Amount, error) {
	if err := p.checkCounts(); err != nil {
		return 0, err
	}

	var sum btcutil.Amount
	for i, txIn := range p.UnsignedTx.TxIn {
		pi := &p.Inputs[i]

		switch {
		case pi.WitnessUtxo.IsSome():
			txOut := pi.WitnessUtxo.UnsafeFromSome()
			sum += btcutil.Amount(txOut.Value)

		case pi.NonWitnessUtxo.IsSome():
			prevTx := pi.NonWitnessUtxo.UnsafeFromSome()
			idx := txIn.PreviousOutPoint.Index
			if int(idx) >= len(prevTx.TxOut) {
				return 0, psbtErrorf(ErrSemanticViolation,
					"input %d spends output %d of a "+
						"tx with %d outputs", i, idx,
					len(prevTx.TxOut))
			}
			sum += btcutil.Amount(prevTx.TxOut[idx].Value)

		default:
			return 0, psbtErrorf(ErrSemanticViolation,
				"input %d has no utxo information", i)
		}
	}

	return sum, nil
}

// GetTxFee returns the fee paid by the transaction: the value of the spent
// outputs minus the value of the new ones.
func (p *Packet) GetTxFee() (btcutil.Amount, error) {
	sumInputs, err := SumUtxoInputValues(p)
	if err != nil {
		return 0, err
	}

	var sumOutputs btcutil.Amount
	for _, txOut := range p.UnsignedTx.TxOut {
		sumOutputs += btcutil.Amount(txOut.Value)
	}

	return sumInputs - sumOutputs, nil
}

// FeeRate returns the fee rate paid by signedTx, the transaction extracted
// from p. The weight of signedTx is used since the unsigned transaction
// carries no unlocking data.
func FeeRate(p *Packet, signedTx *wire.MsgTx) (btcunit.SatPerVByte, error) {
	fee, err := p.GetTxFee()
	if err != nil {
		return btcunit.NewSatPerVByte(0), err
	}

	if signedTx.TxHash() != p.UnsignedTx.TxHash() {
		return btcunit.NewSatPerVByte(0), psbtErrorf(
			ErrMismatchedTransaction,
			"tx %v was not extracted from packet for %v",
			signedTx.TxHash(), p.UnsignedTx.TxHash(),
		)
	}

	return btcunit.CalcSatPerVByte(
		fee, btcunit.TxWeight(signedTx).ToVB(),
	), nil
}
