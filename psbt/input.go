// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbt

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// PInput holds everything that can be attached to a single input of the
// packet. Every scalar field is optional; an absent field is not written to
// the input map at all.
type PInput struct {
	NonWitnessUtxo     fn.Option[*wire.MsgTx]
	WitnessUtxo        fn.Option[*wire.TxOut]
	PartialSigs        KeyMap[[]byte]
	SighashType        fn.Option[txscript.SigHashType]
	RedeemScript       fn.Option[[]byte]
	WitnessScript      fn.Option[[]byte]
	Bip32Derivation    KeyMap[Bip32Derivation]
	FinalScriptSig     fn.Option[[]byte]
	FinalScriptWitness fn.Option[wire.TxWitness]
	Unknowns           KeyMap[[]byte]
}

// IsFinalized returns true if the input carries a final scriptSig or a final
// witness.
func (pi *PInput) IsFinalized() bool {
	return pi.FinalScriptSig.IsSome() || pi.FinalScriptWitness.IsSome()
}

// deserialize reads an input map from r.
func (pi *PInput) deserialize(r io.Reader) error {
	pairs, err := ReadMap(r)
	if err != nil {
		return err
	}

	for _, kv := range pairs {
		keyType, known := inputKeyType(kv.Key)
		if !known {
			pi.Unknowns.Set(kv.Key, kv.Value)
			continue
		}

		keyData := kv.Key[1:]

		switch keyType {
		case PartialSigType:
			pi.PartialSigs.Set(keyData, kv.Value)
			continue

		case Bip32DerivationInputType:
			d, err := ReadBip32Derivation(kv.Value)
			if err != nil {
				return err
			}
			pi.Bip32Derivation.Set(keyData, d)
			continue
		}

		// Every remaining type is a single-byte key.
		if len(keyData) != 0 {
			return psbtErrorf(ErrMalformedDocument,
				"unexpected key data for input key type 0x%02x",
				uint8(keyType))
		}

		switch keyType {
		case NonWitnessUtxoType:
			tx, err := readTx(kv.Value, true, "non-witness utxo")
			if err != nil {
				return err
			}
			pi.NonWitnessUtxo = fn.Some(tx)

		case WitnessUtxoType:
			txOut, err := readTxOut(kv.Value)
			if err != nil {
				return err
			}
			pi.WitnessUtxo = fn.Some(txOut)

		case SighashType:
			if len(kv.Value) != 4 {
				return psbtErrorf(ErrMalformedDocument,
					"invalid sighash length %d",
					len(kv.Value))
			}
			pi.SighashType = fn.Some(txscript.SigHashType(
				binary.LittleEndian.Uint32(kv.Value),
			))

		case RedeemScriptInputType:
			pi.RedeemScript = fn.Some(kv.Value)

		case WitnessScriptInputType:
			pi.WitnessScript = fn.Some(kv.Value)

		case FinalScriptSigType:
			pi.FinalScriptSig = fn.Some(kv.Value)

		case FinalScriptWitnessType:
			witness, err := readTxWitness(kv.Value)
			if err != nil {
				return err
			}
			pi.FinalScriptWitness = fn.Some(witness)
		}
	}

	return nil
}

// serialize writes the input map to w, without the trailing separator.
// Known fields are written in key-type order and mapping fields in key
// order so equal inputs always encode to the same bytes.
func (pi *PInput) serialize(w io.Writer) error {
	var err error
	write := func(t InputType, keyData, value []byte) {
		if err != nil {
			return
		}
		err = writeTypedEntry(w, uint8(t), keyData, value)
	}

	pi.NonWitnessUtxo.WhenSome(func(tx *wire.MsgTx) {
		var buf bytes.Buffer
		if err = tx.Serialize(&buf); err != nil {
			return
		}
		write(NonWitnessUtxoType, nil, buf.Bytes())
	})
	if err != nil {
		return err
	}

	pi.WitnessUtxo.WhenSome(func(txOut *wire.TxOut) {
		var buf bytes.Buffer
		if err = wire.WriteTxOut(&buf, 0, 0, txOut); err != nil {
			return
		}
		write(WitnessUtxoType, nil, buf.Bytes())
	})
	if err != nil {
		return err
	}

	for _, k := range pi.PartialSigs.sortedKeys() {
		sig, _ := pi.PartialSigs.Get([]byte(k))
		write(PartialSigType, []byte(k), sig)
	}

	pi.SighashType.WhenSome(func(sh txscript.SigHashType) {
		var v [4]byte
		binary.LittleEndian.PutUint32(v[:], uint32(sh))
		write(SighashType, nil, v[:])
	})

	pi.RedeemScript.WhenSome(func(script []byte) {
		write(RedeemScriptInputType, nil, script)
	})

	pi.WitnessScript.WhenSome(func(script []byte) {
		write(WitnessScriptInputType, nil, script)
	})

	for _, k := range pi.Bip32Derivation.sortedKeys() {
		d, _ := pi.Bip32Derivation.Get([]byte(k))
		write(
			Bip32DerivationInputType, []byte(k),
			SerializeBIP32Derivation(d),
		)
	}

	pi.FinalScriptSig.WhenSome(func(script []byte) {
		write(FinalScriptSigType, nil, script)
	})

	pi.FinalScriptWitness.WhenSome(func(witness wire.TxWitness) {
		var buf bytes.Buffer
		if err = writeTxWitness(&buf, witness); err != nil {
			return
		}
		write(FinalScriptWitnessType, nil, buf.Bytes())
	})
	if err != nil {
		return err
	}

	return writeUnknowns(w, &pi.Unknowns)
}

// sanityCheck verifies the field level invariants of the input.
func (pi *PInput) sanityCheck() error {
	var err error
	pi.PartialSigs.ForEach(func(pubKey, sig []byte) bool {
		if !validatePubKey(pubKey) {
			err = psbtErrorf(ErrStructuralViolation,
				"invalid partial signature pubkey %x", pubKey)
			return false
		}
		if !validateSignature(sig) {
			err = psbtErrorf(ErrStructuralViolation,
				"invalid partial signature %x for pubkey %x",
				sig, pubKey)
			return false
		}
		return true
	})
	if err != nil {
		return err
	}

	err = validateDerivations(&pi.Bip32Derivation, "input")
	if err != nil {
		return err
	}

	return validateUnknowns(&pi.Unknowns, "input")
}

// copy returns a deep copy of the input.
func (pi *PInput) copy() PInput {
	return PInput{
		NonWitnessUtxo: fn.MapOption(func(tx *wire.MsgTx) *wire.MsgTx {
			return tx.Copy()
		})(pi.NonWitnessUtxo),
		WitnessUtxo: fn.MapOption(func(o *wire.TxOut) *wire.TxOut {
			return wire.NewTxOut(o.Value, bytes.Clone(o.PkScript))
		})(pi.WitnessUtxo),
		PartialSigs:    pi.PartialSigs.Clone(bytes.Clone),
		SighashType:    pi.SighashType,
		RedeemScript:   fn.MapOption(bytes.Clone)(pi.RedeemScript),
		WitnessScript:  fn.MapOption(bytes.Clone)(pi.WitnessScript),
		FinalScriptSig: fn.MapOption(bytes.Clone)(pi.FinalScriptSig),
		FinalScriptWitness: fn.MapOption(cloneWitness)(
			pi.FinalScriptWitness,
		),
		Bip32Derivation: pi.Bip32Derivation.Clone(
			Bip32Derivation.clone,
		),
		Unknowns: pi.Unknowns.Clone(bytes.Clone),
	}
}

// equal returns true if both inputs carry the same fields.
func (pi *PInput) equal(other *PInput) bool {
	sighashEqual := func(a, b txscript.SigHashType) bool {
		return a == b
	}

	switch {
	case !optionEqual(pi.NonWitnessUtxo, other.NonWitnessUtxo, txEqual):
		return false

	case !optionEqual(pi.WitnessUtxo, other.WitnessUtxo, txOutEqual):
		return false

	case !optionEqual(pi.SighashType, other.SighashType, sighashEqual):
		return false

	case !optionEqual(pi.RedeemScript, other.RedeemScript, bytes.Equal):
		return false

	case !optionEqual(
		pi.WitnessScript, other.WitnessScript, bytes.Equal,
	):
		return false

	case !optionEqual(
		pi.FinalScriptSig, other.FinalScriptSig, bytes.Equal,
	):
		return false

	case !optionEqual(
		pi.FinalScriptWitness, other.FinalScriptWitness, witnessEqual,
	):
		return false
	}

	return pi.PartialSigs.Equal(&other.PartialSigs, bytes.Equal) &&
		pi.Bip32Derivation.Equal(
			&other.Bip32Derivation, Bip32Derivation.Equal,
		) &&
		pi.Unknowns.Equal(&other.Unknowns, bytes.Equal)
}

// validateSignature returns true if sig is a DER encoded ECDSA signature
// followed by a single sighash byte.
func validateSignature(sig []byte) bool {
	if len(sig) < 2 {
		return false
	}

	_, err := ecdsa.ParseDERSignature(sig[:len(sig)-1])
	return err == nil
}

// readTx decodes a serialized transaction that must fill value exactly. The
// witness encoding is only understood when withWitness is set; without it a
// transaction with no inputs is read unambiguously.
func readTx(value []byte, withWitness bool,
	field string) (*wire.MsgTx, error) {

	r := bytes.NewReader(value)
	tx := wire.NewMsgTx(wire.TxVersion)

	var err error
	if withWitness {
		err = tx.Deserialize(r)
	} else {
		err = tx.DeserializeNoWitness(r)
	}
	if err != nil {
		return nil, psbtError(ErrMalformedDocument,
			"invalid "+field, err)
	}

	if r.Len() != 0 {
		return nil, psbtErrorf(ErrMalformedDocument,
			"%d trailing bytes after %s", r.Len(), field)
	}

	return tx, nil
}

// readTxOut decodes a serialized transaction output: an 8-byte value
// followed by the length-prefixed script.
func readTxOut(value []byte) (*wire.TxOut, error) {
	if len(value) < 9 {
		return nil, psbtErrorf(ErrMalformedDocument,
			"witness utxo too short: %d bytes", len(value))
	}

	r := bytes.NewReader(value[8:])
	script, err := wire.ReadVarBytes(
		r, 0, MaxPsbtValueLength, "witness utxo script",
	)
	if err != nil {
		return nil, psbtError(ErrMalformedDocument,
			"invalid witness utxo script", err)
	}
	if r.Len() != 0 {
		return nil, psbtErrorf(ErrMalformedDocument,
			"%d trailing bytes after witness utxo", r.Len())
	}

	amount := int64(binary.LittleEndian.Uint64(value[:8]))

	return wire.NewTxOut(amount, script), nil
}

// readTxWitness decodes a serialized witness stack: an item count followed
// by every length-prefixed item.
func readTxWitness(value []byte) (wire.TxWitness, error) {
	r := bytes.NewReader(value)
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, psbtError(ErrMalformedDocument,
			"invalid final witness item count", err)
	}

	// Each item takes at least one byte.
	if count > uint64(r.Len()) {
		return nil, psbtErrorf(ErrMalformedDocument,
			"final witness declares %d items in %d bytes", count,
			r.Len())
	}

	witness := make(wire.TxWitness, 0, count)
	for i := uint64(0); i < count; i++ {
		item, err := wire.ReadVarBytes(
			r, 0, MaxPsbtValueLength, "witness item",
		)
		if err != nil {
			return nil, psbtError(ErrMalformedDocument,
				"invalid final witness item", err)
		}
		witness = append(witness, item)
	}

	if r.Len() != 0 {
		return nil, psbtErrorf(ErrMalformedDocument,
			"%d trailing bytes after final witness", r.Len())
	}

	return witness, nil
}

// writeTxWitness encodes a witness stack the same way transactions do.
func writeTxWitness(w io.Writer, witness wire.TxWitness) error {
	if err := wire.WriteVarInt(w, 0, uint64(len(witness))); err != nil {
		return err
	}

	for _, item := range witness {
		if err := wire.WriteVarBytes(w, 0, item); err != nil {
			return err
		}
	}

	return nil
}

func cloneWitness(witness wire.TxWitness) wire.TxWitness {
	out := make(wire.TxWitness, len(witness))
	for i, item := range witness {
		out[i] = bytes.Clone(item)
	}

	return out
}

func witnessEqual(a, b wire.TxWitness) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			return false
		}
	}

	return true
}

func txOutEqual(a, b *wire.TxOut) bool {
	return a.Value == b.Value && bytes.Equal(a.PkScript, b.PkScript)
}

// txEqual compares two transactions by their full serialization, witness
// included.
func txEqual(a, b *wire.MsgTx) bool {
	var bufA, bufB bytes.Buffer
	if err := a.Serialize(&bufA); err != nil {
		return false
	}
	if err := b.Serialize(&bufB); err != nil {
		return false
	}

	return bytes.Equal(bufA.Bytes(), bufB.Bytes())
}

// optionEqual returns true if both options are absent, or both are present
// with values considered equal by eq.
func optionEqual[A any](a, b fn.Option[A], eq func(A, A) bool) bool {
	if a.IsNone() || b.IsNone() {
		return a.IsNone() && b.IsNone()
	}

	return eq(a.UnsafeFromSome(), b.UnsafeFromSome())
}
