// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbt

import (
	"bytes"

	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcpsbt/pkg/btcunit"
)

// Extract returns the network transaction described by p: a copy of the
// unsigned transaction with the final scriptSig and witness of every input
// filled in. An empty final witness leaves the input without witness data.
//
// Extract does not check that every input is finalized; callers should run
// Finalize first or check IsComplete. p is not modified.
func Extract(p *Packet) (*wire.MsgTx, error) {
	if err := p.checkCounts(); err != nil {
		return nil, err
	}

	tx := p.UnsignedTx.Copy()
	for i, txIn := range tx.TxIn {
		pi := &p.Inputs[i]

		txIn.SignatureScript = bytes.Clone(
			pi.FinalScriptSig.UnwrapOr(nil),
		)
		pi.FinalScriptWitness.WhenSome(func(witness wire.TxWitness) {
			if len(witness) != 0 {
				txIn.Witness = cloneWitness(witness)
			}
		})
	}

	weight := btcunit.TxWeight(tx)
	log.Debugf("Extracted tx %v: %v (%v)", tx.TxHash(), weight,
		weight.ToVB())

	if fee, err := p.GetTxFee(); err == nil {
		log.Debugf("Extracted tx %v pays %v at %v", tx.TxHash(), fee,
			btcunit.CalcSatPerVByte(fee, weight.ToVB()))
	}

	return tx, nil
}
