// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbt

import (
	"bytes"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Updater adds metadata to the inputs and outputs of a packet in place. It
// requires exclusive access to the packet while in use.
type Updater struct {
	Upsbt *Packet
}

// NewUpdater returns an Updater for p if p passes SanityCheck.
func NewUpdater(p *Packet) (*Updater, error) {
	if err := p.SanityCheck(); err != nil {
		return nil, err
	}

	return &Updater{Upsbt: p}, nil
}

// input returns the entry at inIndex. The entry counts are checked first
// since an Updater can be built around a packet that never went through
// NewUpdater.
func (u *Updater) input(inIndex int) (*PInput, error) {
	if err := u.Upsbt.checkCounts(); err != nil {
		return nil, err
	}

	if inIndex < 0 || inIndex >= len(u.Upsbt.Inputs) {
		return nil, psbtErrorf(ErrStructuralViolation,
			"input index %d out of range", inIndex)
	}

	return &u.Upsbt.Inputs[inIndex], nil
}

func (u *Updater) output(outIndex int) (*POutput, error) {
	if err := u.Upsbt.checkCounts(); err != nil {
		return nil, err
	}

	if outIndex < 0 || outIndex >= len(u.Upsbt.Outputs) {
		return nil, psbtErrorf(ErrStructuralViolation,
			"output index %d out of range", outIndex)
	}

	return &u.Upsbt.Outputs[outIndex], nil
}

// AddInNonWitnessUtxo attaches the full previous transaction to an input.
// The transaction must be the one the input spends from.
func (u *Updater) AddInNonWitnessUtxo(tx *wire.MsgTx, inIndex int) error {
	pi, err := u.input(inIndex)
	if err != nil {
		return err
	}

	prevOut := u.Upsbt.UnsignedTx.TxIn[inIndex].PreviousOutPoint
	if txHash := tx.TxHash(); !txHash.IsEqual(&prevOut.Hash) {
		return psbtErrorf(ErrSemanticViolation,
			"non-witness utxo %v does not match prevout %v",
			txHash, prevOut)
	}

	pi.NonWitnessUtxo = fn.Some(tx.Copy())

	return nil
}

// AddInWitnessUtxo attaches the single previous output spent by an input.
func (u *Updater) AddInWitnessUtxo(txOut *wire.TxOut, inIndex int) error {
	pi, err := u.input(inIndex)
	if err != nil {
		return err
	}

	pi.WitnessUtxo = fn.Some(
		wire.NewTxOut(txOut.Value, bytes.Clone(txOut.PkScript)),
	)

	return nil
}

// AddInSighashType sets the sighash type signers should use for an input.
func (u *Updater) AddInSighashType(sighashType txscript.SigHashType,
	inIndex int) error {

	pi, err := u.input(inIndex)
	if err != nil {
		return err
	}

	pi.SighashType = fn.Some(sighashType)

	return nil
}

// AddInRedeemScript sets the P2SH redeem script of an input.
func (u *Updater) AddInRedeemScript(redeemScript []byte, inIndex int) error {
	pi, err := u.input(inIndex)
	if err != nil {
		return err
	}

	pi.RedeemScript = fn.Some(bytes.Clone(redeemScript))

	return nil
}

// AddInWitnessScript sets the P2WSH witness script of an input.
func (u *Updater) AddInWitnessScript(witnessScript []byte,
	inIndex int) error {

	pi, err := u.input(inIndex)
	if err != nil {
		return err
	}

	pi.WitnessScript = fn.Some(bytes.Clone(witnessScript))

	return nil
}

// AddInBip32Derivation records the derivation of pubKey for an input. It can
// be called once per public key.
func (u *Updater) AddInBip32Derivation(masterKeyFingerprint uint32,
	bip32Path []uint32, pubKey []byte, inIndex int) error {

	pi, err := u.input(inIndex)
	if err != nil {
		return err
	}

	return addDerivation(
		&pi.Bip32Derivation, masterKeyFingerprint, bip32Path, pubKey,
	)
}

// AddPartialSig adds a signature for pubKey to an input. The signature is
// DER encoded and followed by the sighash type byte. A second signature for
// the same key is rejected.
func (u *Updater) AddPartialSig(inIndex int, sig, pubKey []byte) error {
	pi, err := u.input(inIndex)
	if err != nil {
		return err
	}

	if !validatePubKey(pubKey) {
		return psbtErrorf(ErrStructuralViolation,
			"invalid partial signature pubkey %x", pubKey)
	}
	if !validateSignature(sig) {
		return psbtErrorf(ErrStructuralViolation,
			"invalid partial signature %x", sig)
	}
	if pi.PartialSigs.Has(pubKey) {
		return psbtErrorf(ErrDuplicateKey,
			"input %d already has a signature for pubkey %x",
			inIndex, pubKey)
	}

	pi.PartialSigs.Set(bytes.Clone(pubKey), bytes.Clone(sig))

	log.Debugf("Added partial signature for pubkey %x to input %d",
		pubKey, inIndex)

	return nil
}

// AddOutRedeemScript sets the P2SH redeem script of an output.
func (u *Updater) AddOutRedeemScript(redeemScript []byte,
	outIndex int) error {

	po, err := u.output(outIndex)
	if err != nil {
		return err
	}

	po.RedeemScript = fn.Some(bytes.Clone(redeemScript))

	return nil
}

// AddOutWitnessScript sets the P2WSH witness script of an output.
func (u *Updater) AddOutWitnessScript(witnessScript []byte,
	outIndex int) error {

	po, err := u.output(outIndex)
	if err != nil {
		return err
	}

	po.WitnessScript = fn.Some(bytes.Clone(witnessScript))

	return nil
}

// AddOutBip32Derivation records the derivation of pubKey for an output.
func (u *Updater) AddOutBip32Derivation(masterKeyFingerprint uint32,
	bip32Path []uint32, pubKey []byte, outIndex int) error {

	po, err := u.output(outIndex)
	if err != nil {
		return err
	}

	return addDerivation(
		&po.Bip32Derivation, masterKeyFingerprint, bip32Path, pubKey,
	)
}

// AddXPub adds an extended public key to the global map along with the
// fingerprint of the master key and the path it was derived with.
func (u *Updater) AddXPub(xpub *hdkeychain.ExtendedKey,
	masterKeyFingerprint uint32, bip32Path []uint32) error {

	keyData, err := SerializeXPub(xpub)
	if err != nil {
		return err
	}

	d := Bip32Derivation{
		MasterKeyFingerprint: masterKeyFingerprint,
		Bip32Path:            bip32Path,
	}
	u.Upsbt.XPubs.Set(keyData, d.clone())

	return nil
}

// AddUnknown adds a global entry this package does not interpret. The key
// includes its type byte.
func (u *Updater) AddUnknown(key, value []byte) error {
	if len(key) == 0 {
		return psbtErrorf(ErrStructuralViolation, "empty unknown key")
	}
	if _, known := globalKeyType(key); known {
		return psbtErrorf(ErrStructuralViolation,
			"key type 0x%02x is not unknown", key[0])
	}

	u.Upsbt.Unknowns.Set(bytes.Clone(key), bytes.Clone(value))

	return nil
}

func addDerivation(m *KeyMap[Bip32Derivation], masterKeyFingerprint uint32,
	bip32Path []uint32, pubKey []byte) error {

	if !validatePubKey(pubKey) {
		return psbtErrorf(ErrStructuralViolation,
			"invalid BIP32 derivation pubkey %x", pubKey)
	}
	if m.Has(pubKey) {
		return psbtErrorf(ErrDuplicateKey,
			"duplicate BIP32 derivation for pubkey %x", pubKey)
	}

	d := Bip32Derivation{
		MasterKeyFingerprint: masterKeyFingerprint,
		Bip32Path:            bip32Path,
	}
	m.Set(bytes.Clone(pubKey), d.clone())

	return nil
}
