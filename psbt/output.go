// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbt

import (
	"bytes"
	"io"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// POutput holds the metadata attached to a single output of the packet.
type POutput struct {
	RedeemScript    fn.Option[[]byte]
	WitnessScript   fn.Option[[]byte]
	Bip32Derivation KeyMap[Bip32Derivation]
	Unknowns        KeyMap[[]byte]
}

// deserialize reads an output map from r.
func (po *POutput) deserialize(r io.Reader) error {
	pairs, err := ReadMap(r)
	if err != nil {
		return err
	}

	for _, kv := range pairs {
		keyType, known := outputKeyType(kv.Key)
		if !known {
			po.Unknowns.Set(kv.Key, kv.Value)
			continue
		}

		keyData := kv.Key[1:]

		switch keyType {
		case Bip32DerivationOutputType:
			d, err := ReadBip32Derivation(kv.Value)
			if err != nil {
				return err
			}
			po.Bip32Derivation.Set(keyData, d)

		case RedeemScriptOutputType, WitnessScriptOutputType:
			if len(keyData) != 0 {
				return psbtErrorf(ErrMalformedDocument,
					"unexpected key data for output key "+
						"type 0x%02x", uint8(keyType))
			}

			if keyType == RedeemScriptOutputType {
				po.RedeemScript = fn.Some(kv.Value)
			} else {
				po.WitnessScript = fn.Some(kv.Value)
			}
		}
	}

	return nil
}

// serialize writes the output map to w, without the trailing separator.
func (po *POutput) serialize(w io.Writer) error {
	var err error
	po.RedeemScript.WhenSome(func(script []byte) {
		err = writeTypedEntry(
			w, uint8(RedeemScriptOutputType), nil, script,
		)
	})
	if err != nil {
		return err
	}

	po.WitnessScript.WhenSome(func(script []byte) {
		err = writeTypedEntry(
			w, uint8(WitnessScriptOutputType), nil, script,
		)
	})
	if err != nil {
		return err
	}

	for _, k := range po.Bip32Derivation.sortedKeys() {
		d, _ := po.Bip32Derivation.Get([]byte(k))
		err := writeTypedEntry(
			w, uint8(Bip32DerivationOutputType), []byte(k),
			SerializeBIP32Derivation(d),
		)
		if err != nil {
			return err
		}
	}

	return writeUnknowns(w, &po.Unknowns)
}

func (po *POutput) sanityCheck() error {
	err := validateDerivations(&po.Bip32Derivation, "output")
	if err != nil {
		return err
	}

	return validateUnknowns(&po.Unknowns, "output")
}

func (po *POutput) copy() POutput {
	return POutput{
		RedeemScript:  fn.MapOption(bytes.Clone)(po.RedeemScript),
		WitnessScript: fn.MapOption(bytes.Clone)(po.WitnessScript),
		Bip32Derivation: po.Bip32Derivation.Clone(
			Bip32Derivation.clone,
		),
		Unknowns: po.Unknowns.Clone(bytes.Clone),
	}
}

func (po *POutput) equal(other *POutput) bool {
	return optionEqual(po.RedeemScript, other.RedeemScript, bytes.Equal) &&
		optionEqual(
			po.WitnessScript, other.WitnessScript, bytes.Equal,
		) &&
		po.Bip32Derivation.Equal(
			&other.Bip32Derivation, Bip32Derivation.Equal,
		) &&
		po.Unknowns.Equal(&other.Unknowns, bytes.Equal)
}
