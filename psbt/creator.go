// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbt

import (
	"github.com/btcsuite/btcd/wire"
)

// New creates a packet for tx with no metadata attached to any input or
// output. The transaction is copied and any scriptSig or witness it carries
// is stripped from the copy.
func New(tx *wire.MsgTx) (*Packet, error) {
	if tx == nil {
		return nil, psbtErrorf(ErrMissingTransaction,
			"cannot create packet without a transaction")
	}

	unsignedTx := tx.Copy()
	for _, txIn := range unsignedTx.TxIn {
		txIn.SignatureScript = nil
		txIn.Witness = nil
	}

	return &Packet{
		UnsignedTx: unsignedTx,
		Inputs:     make([]PInput, len(unsignedTx.TxIn)),
		Outputs:    make([]POutput, len(unsignedTx.TxOut)),
	}, nil
}

// NewFromOutPoints creates a packet spending inputs to outputs. Only the
// outpoints are used, so the resulting transaction carries no signature
// data. nSequence has one entry per input.
func NewFromOutPoints(inputs []*wire.OutPoint, outputs []*wire.TxOut,
	version int32, nLockTime uint32, nSequences []uint32) (*Packet, error) {

	if len(nSequences) != len(inputs) {
		return nil, psbtErrorf(ErrStructuralViolation,
			"got %d sequence numbers for %d inputs",
			len(nSequences), len(inputs))
	}

	unsignedTx := wire.NewMsgTx(version)
	unsignedTx.LockTime = nLockTime
	for i, in := range inputs {
		unsignedTx.AddTxIn(&wire.TxIn{
			PreviousOutPoint: *in,
			Sequence:         nSequences[i],
		})
	}
	for _, out := range outputs {
		unsignedTx.AddTxOut(out)
	}

	return &Packet{
		UnsignedTx: unsignedTx,
		Inputs:     make([]PInput, len(unsignedTx.TxIn)),
		Outputs:    make([]POutput, len(unsignedTx.TxOut)),
	}, nil
}
