// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbt

// GlobalType is the set of key types recognized in the global map. Any key
// whose leading byte is not listed here is kept as an unknown entry.
type GlobalType uint8

const (
	// UnsignedTxType is the global key type of the unsigned transaction.
	UnsignedTxType GlobalType = 0x00

	// XPubType is the global key type of an extended public key together
	// with the master fingerprint and derivation path that produced it.
	XPubType GlobalType = 0x01

	// VersionType is the global key type of the packet version.
	VersionType GlobalType = 0xfb

	// ProprietaryGlobalType is reserved for proprietary use. It is never
	// interpreted and always round-trips as an unknown entry.
	ProprietaryGlobalType GlobalType = 0xfc
)

// InputType is the set of key types recognized in an input map.
type InputType uint8

const (
	// NonWitnessUtxoType is the full previous transaction of an input.
	NonWitnessUtxoType InputType = 0x00

	// WitnessUtxoType is the single previous output spent by an input.
	WitnessUtxoType InputType = 0x01

	// PartialSigType maps a public key to a signature for an input.
	PartialSigType InputType = 0x02

	// SighashType is the sighash type signers should use for an input.
	SighashType InputType = 0x03

	// RedeemScriptInputType is the P2SH redeem script of an input.
	RedeemScriptInputType InputType = 0x04

	// WitnessScriptInputType is the P2WSH witness script of an input.
	WitnessScriptInputType InputType = 0x05

	// Bip32DerivationInputType maps a public key to its BIP32 derivation.
	Bip32DerivationInputType InputType = 0x06

	// FinalScriptSigType is the fully constructed scriptSig of an input.
	FinalScriptSigType InputType = 0x07

	// FinalScriptWitnessType is the fully constructed witness of an input.
	FinalScriptWitnessType InputType = 0x08
)

// OutputType is the set of key types recognized in an output map.
type OutputType uint8

const (
	// RedeemScriptOutputType is the P2SH redeem script of an output.
	RedeemScriptOutputType OutputType = 0x00

	// WitnessScriptOutputType is the P2WSH witness script of an output.
	WitnessScriptOutputType OutputType = 0x01

	// Bip32DerivationOutputType maps a public key to its BIP32 derivation.
	Bip32DerivationOutputType OutputType = 0x02
)

// globalKeyType classifies a global key. The boolean is false for keys that
// must be kept verbatim as unknowns.
func globalKeyType(key []byte) (GlobalType, bool) {
	switch t := GlobalType(key[0]); t {
	case UnsignedTxType, XPubType, VersionType:
		return t, true
	default:
		return t, false
	}
}

// inputKeyType classifies an input key. The boolean is false for keys that
// must be kept verbatim as unknowns.
func inputKeyType(key []byte) (InputType, bool) {
	t := InputType(key[0])
	if t <= FinalScriptWitnessType {
		return t, true
	}

	return t, false
}

// outputKeyType classifies an output key. The boolean is false for keys that
// must be kept verbatim as unknowns.
func outputKeyType(key []byte) (OutputType, bool) {
	t := OutputType(key[0])
	if t <= Bip32DerivationOutputType {
		return t, true
	}

	return t, false
}
