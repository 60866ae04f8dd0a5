// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbt

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Combine merges packets describing the same unsigned transaction into a
// new packet. The first packet is the base. For every field of every later
// packet:
//
//   - a field unset in the result is taken from the later packet,
//   - mapping fields are merged, later entries replacing earlier ones,
//   - a scalar field set in both keeps the earlier value.
//
// A final scriptSig or final witness set to different values in two packets
// is reported as ErrConflictingFinalData instead of being dropped. None of
// the packets passed in are modified.
func Combine(packets []*Packet) (*Packet, error) {
	if len(packets) == 0 {
		return nil, psbtErrorf(ErrStructuralViolation,
			"no packets to combine")
	}

	for i, p := range packets {
		if err := p.checkCounts(); err != nil {
			return nil, fmt.Errorf("packet %d: %w", i, err)
		}
	}

	txHash := packets[0].UnsignedTx.TxHash()
	for i, p := range packets[1:] {
		if otherHash := p.UnsignedTx.TxHash(); otherHash != txHash {
			return nil, psbtErrorf(ErrMismatchedTransaction,
				"packet %d spends tx %v, expected %v", i+1,
				otherHash, txHash)
		}
	}

	result := packets[0].Copy()
	for i, p := range packets[1:] {
		if err := result.merge(p); err != nil {
			return nil, fmt.Errorf("unable to merge packet %d: %w",
				i+1, err)
		}
	}

	log.Debugf("Combined %d %s for tx %v", len(packets),
		pickNoun(len(packets), "packet", "packets"), txHash)
	log.Tracef("Combined packet: %v", spewPacket(result))

	return result, nil
}

// merge folds other into p. The transactions are already known to match.
func (p *Packet) merge(other *Packet) error {
	if p.Version != other.Version {
		log.Warnf("Keeping version %d over conflicting version %d",
			p.Version, other.Version)
	}

	p.XPubs.Merge(&other.XPubs, Bip32Derivation.clone)
	p.Unknowns.Merge(&other.Unknowns, bytes.Clone)

	for i := range p.Inputs {
		err := p.Inputs[i].merge(&other.Inputs[i], i)
		if err != nil {
			return err
		}
	}

	for i := range p.Outputs {
		p.Outputs[i].merge(&other.Outputs[i], i)
	}

	return nil
}

func (pi *PInput) merge(other *PInput, idx int) error {
	where := fmt.Sprintf("input %d", idx)

	mergeOption(
		&pi.NonWitnessUtxo, other.NonWitnessUtxo, txEqual,
		(*wire.MsgTx).Copy, where, "non-witness utxo",
	)
	mergeOption(
		&pi.WitnessUtxo, other.WitnessUtxo, txOutEqual,
		func(o *wire.TxOut) *wire.TxOut {
			return wire.NewTxOut(o.Value, bytes.Clone(o.PkScript))
		}, where, "witness utxo",
	)
	mergeOption(
		&pi.SighashType, other.SighashType,
		func(a, b txscript.SigHashType) bool { return a == b },
		nil, where, "sighash type",
	)
	mergeOption(
		&pi.RedeemScript, other.RedeemScript, bytes.Equal, bytes.Clone,
		where, "redeem script",
	)
	mergeOption(
		&pi.WitnessScript, other.WitnessScript, bytes.Equal,
		bytes.Clone, where, "witness script",
	)

	conflict := mergeOption(
		&pi.FinalScriptSig, other.FinalScriptSig, bytes.Equal,
		bytes.Clone, where, "final scriptSig",
	)
	if conflict {
		return psbtErrorf(ErrConflictingFinalData,
			"%s: conflicting final scriptSig", where)
	}

	conflict = mergeOption(
		&pi.FinalScriptWitness, other.FinalScriptWitness, witnessEqual,
		cloneWitness, where, "final witness",
	)
	if conflict {
		return psbtErrorf(ErrConflictingFinalData,
			"%s: conflicting final witness", where)
	}

	pi.PartialSigs.Merge(&other.PartialSigs, bytes.Clone)
	pi.Bip32Derivation.Merge(&other.Bip32Derivation, Bip32Derivation.clone)
	pi.Unknowns.Merge(&other.Unknowns, bytes.Clone)

	return nil
}

func (po *POutput) merge(other *POutput, idx int) {
	where := fmt.Sprintf("output %d", idx)

	mergeOption(
		&po.RedeemScript, other.RedeemScript, bytes.Equal, bytes.Clone,
		where, "redeem script",
	)
	mergeOption(
		&po.WitnessScript, other.WitnessScript, bytes.Equal,
		bytes.Clone, where, "witness script",
	)

	po.Bip32Derivation.Merge(&other.Bip32Derivation, Bip32Derivation.clone)
	po.Unknowns.Merge(&other.Unknowns, bytes.Clone)
}

// mergeOption adopts src into dst when dst is unset. When both are set and
// differ, dst is kept and true is returned. clone may be nil for immutable
// values.
func mergeOption[A any](dst *fn.Option[A], src fn.Option[A],
	eq func(A, A) bool, clone func(A) A, where, field string) bool {

	if src.IsNone() {
		return false
	}

	if dst.IsNone() {
		v := src.UnsafeFromSome()
		if clone != nil {
			v = clone(v)
		}
		*dst = fn.Some(v)

		return false
	}

	if eq(dst.UnsafeFromSome(), src.UnsafeFromSome()) {
		return false
	}

	log.Warnf("%s: keeping first %s over a conflicting value", where,
		field)

	return true
}
