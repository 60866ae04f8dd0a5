// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package signer

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcpsbt/internal/scriptpubkey"
	"github.com/btcsuite/btcpsbt/psbt"
)

var (
	// ErrInputIndex is returned when an input index is out of range.
	ErrInputIndex = errors.New("input index out of range")

	// ErrMissingUtxo is returned when an input carries neither a witness
	// nor a non-witness UTXO.
	ErrMissingUtxo = errors.New("input has no utxo information")

	// ErrMissingRedeemScript is returned when a P2SH output is spent
	// without a redeem script.
	ErrMissingRedeemScript = errors.New("p2sh input has no redeem script")

	// ErrMissingWitnessScript is returned when a P2WSH output is spent
	// without a witness script.
	ErrMissingWitnessScript = errors.New(
		"p2wsh input has no witness script",
	)

	// ErrUnsupportedScript is returned for output types this package
	// cannot compute a signature hash for, such as taproot.
	ErrUnsupportedScript = errors.New("unsupported script type")
)

// PrevOutputFetcher returns a txscript.PrevOutputFetcher holding the UTXOs
// of every input of the packet that has one. The non-witness UTXO is
// preferred when an input has both.
func PrevOutputFetcher(p *psbt.Packet) *txscript.MultiPrevOutFetcher {
	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for idx, txIn := range p.UnsignedTx.TxIn {
		if idx >= len(p.Inputs) {
			break
		}

		txOut, err := spentOutput(&p.Inputs[idx], txIn)
		if err != nil {
			continue
		}

		fetcher.AddPrevOut(txIn.PreviousOutPoint, txOut)
	}

	return fetcher
}

// spentOutput returns the output spent by txIn.
func spentOutput(pi *psbt.PInput, txIn *wire.TxIn) (*wire.TxOut, error) {
	if pi.NonWitnessUtxo.IsSome() {
		prevTx := pi.NonWitnessUtxo.UnsafeFromSome()
		prevIndex := txIn.PreviousOutPoint.Index
		if int(prevIndex) >= len(prevTx.TxOut) {
			return nil, fmt.Errorf("%w: prevout index %d of tx "+
				"with %d outputs", ErrMissingUtxo, prevIndex,
				len(prevTx.TxOut))
		}

		return prevTx.TxOut[prevIndex], nil
	}

	if pi.WitnessUtxo.IsSome() {
		return pi.WitnessUtxo.UnsafeFromSome(), nil
	}

	return nil, ErrMissingUtxo
}

// sigHashType returns the sighash type requested by the input, defaulting
// to SIGHASH_ALL.
func sigHashType(pi *psbt.PInput) txscript.SigHashType {
	return pi.SighashType.UnwrapOr(txscript.SigHashAll)
}

// SigHash returns the digest to sign for input idx of the packet. Legacy
// spends use the original transaction digest, while P2WPKH and P2WSH
// spends, native or nested in P2SH, use the BIP143 digest.
func SigHash(p *psbt.Packet, idx int) ([]byte, error) {
	if idx < 0 || idx >= len(p.Inputs) ||
		idx >= len(p.UnsignedTx.TxIn) {

		return nil, fmt.Errorf("%w: %d", ErrInputIndex, idx)
	}

	pi := &p.Inputs[idx]
	tx := p.UnsignedTx
	hashType := sigHashType(pi)

	txOut, err := spentOutput(pi, tx.TxIn[idx])
	if err != nil {
		return nil, err
	}

	script := txOut.PkScript
	if scriptpubkey.Classify(script) == scriptpubkey.P2SH {
		if pi.RedeemScript.IsNone() {
			return nil, ErrMissingRedeemScript
		}
		script = pi.RedeemScript.UnsafeFromSome()
	}

	typ, payload := scriptpubkey.Payload(script)
	switch typ {
	case scriptpubkey.P2WPKH:
		scriptCode, err := scriptpubkey.P2PKHScript(payload)
		if err != nil {
			return nil, err
		}

		return witnessSigHash(p, idx, scriptCode, hashType, txOut.Value)

	case scriptpubkey.P2WSH:
		if pi.WitnessScript.IsNone() {
			return nil, ErrMissingWitnessScript
		}

		return witnessSigHash(
			p, idx, pi.WitnessScript.UnsafeFromSome(), hashType,
			txOut.Value,
		)

	case scriptpubkey.P2TR:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedScript, typ)
	}

	log.Tracef("Computing legacy sighash %v for input %d", hashType, idx)

	return txscript.CalcSignatureHash(script, hashType, tx, idx)
}

func witnessSigHash(p *psbt.Packet, idx int, scriptCode []byte,
	hashType txscript.SigHashType, amount int64) ([]byte, error) {

	log.Tracef("Computing witness sighash %v for input %d", hashType, idx)

	// The midstate covers every input, so all spent outputs must be known.
	fetcher := PrevOutputFetcher(p)
	for i, txIn := range p.UnsignedTx.TxIn {
		if fetcher.FetchPrevOutput(txIn.PreviousOutPoint) == nil {
			return nil, fmt.Errorf("%w: input %d", ErrMissingUtxo,
				i)
		}
	}

	sigHashes := txscript.NewTxSigHashes(p.UnsignedTx, fetcher)

	return txscript.CalcWitnessSigHash(
		scriptCode, sigHashes, hashType, p.UnsignedTx, idx, amount,
	)
}
