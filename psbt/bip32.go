// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbt

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// serializedXPubLength is the length of a BIP32 extended key serialization:
// version(4) || depth(1) || parent fingerprint(4) || child number(4) ||
// chain code(32) || key data(33).
const serializedXPubLength = 78

// Bip32Derivation is the value of a BIP32 derivation entry: the fingerprint
// of the master key and the derivation path from it.
type Bip32Derivation struct {
	// MasterKeyFingerprint is the first four bytes of the HASH160 of the
	// master public key, read as a little-endian integer.
	MasterKeyFingerprint uint32

	// Bip32Path is the derivation path, hardened elements having the high
	// bit set.
	Bip32Path []uint32
}

// Equal returns true if both derivations are identical.
func (d Bip32Derivation) Equal(other Bip32Derivation) bool {
	if d.MasterKeyFingerprint != other.MasterKeyFingerprint ||
		len(d.Bip32Path) != len(other.Bip32Path) {

		return false
	}

	for i := range d.Bip32Path {
		if d.Bip32Path[i] != other.Bip32Path[i] {
			return false
		}
	}

	return true
}

// clone returns a deep copy of the derivation.
func (d Bip32Derivation) clone() Bip32Derivation {
	path := make([]uint32, len(d.Bip32Path))
	copy(path, d.Bip32Path)

	return Bip32Derivation{
		MasterKeyFingerprint: d.MasterKeyFingerprint,
		Bip32Path:            path,
	}
}

// String returns the derivation in the usual m/a/b'/c notation prefixed by
// the hex fingerprint.
func (d Bip32Derivation) String() string {
	var b bytes.Buffer

	var fp [4]byte
	binary.LittleEndian.PutUint32(fp[:], d.MasterKeyFingerprint)
	fmt.Fprintf(&b, "[%x]m", fp)

	for _, elem := range d.Bip32Path {
		if elem >= hdkeychain.HardenedKeyStart {
			elem -= hdkeychain.HardenedKeyStart
			fmt.Fprintf(&b, "/%d'", elem)
			continue
		}
		fmt.Fprintf(&b, "/%d", elem)
	}

	return b.String()
}

// SerializeBIP32Derivation encodes a derivation as the fingerprint followed
// by every path element, all as 4-byte little-endian integers.
func SerializeBIP32Derivation(d Bip32Derivation) []byte {
	out := make([]byte, 4*(1+len(d.Bip32Path)))
	binary.LittleEndian.PutUint32(out, d.MasterKeyFingerprint)

	for i, elem := range d.Bip32Path {
		binary.LittleEndian.PutUint32(out[4*(i+1):], elem)
	}

	return out
}

// ReadBip32Derivation decodes the value of a BIP32 derivation entry.
func ReadBip32Derivation(value []byte) (Bip32Derivation, error) {
	if len(value) < 4 || len(value)%4 != 0 {
		return Bip32Derivation{}, psbtErrorf(ErrStructuralViolation,
			"invalid BIP32 derivation length %d", len(value))
	}

	d := Bip32Derivation{
		MasterKeyFingerprint: binary.LittleEndian.Uint32(value[:4]),
	}
	for i := 4; i < len(value); i += 4 {
		d.Bip32Path = append(
			d.Bip32Path, binary.LittleEndian.Uint32(value[i:i+4]),
		)
	}

	return d, nil
}

// validatePubKey returns true if key parses as a secp256k1 public key in
// either compressed or uncompressed form.
func validatePubKey(key []byte) bool {
	_, err := btcec.ParsePubKey(key)
	return err == nil
}

// ParseXPub decodes the key data of a global xpub entry into an extended
// public key. The data is the 78-byte BIP32 serialization; it is checked by
// rendering it in base58check form and parsing it back.
func ParseXPub(keyData []byte) (*hdkeychain.ExtendedKey, error) {
	if len(keyData) != serializedXPubLength {
		return nil, psbtErrorf(ErrStructuralViolation,
			"invalid xpub length %d", len(keyData))
	}

	key, err := hdkeychain.NewKeyFromString(encodeXPub(keyData))
	if err != nil {
		return nil, psbtError(ErrStructuralViolation,
			"invalid xpub", err)
	}

	if key.IsPrivate() {
		return nil, psbtErrorf(ErrStructuralViolation,
			"global xpub entry holds a private key")
	}

	return key, nil
}

// encodeXPub renders a serialized extended key in base58check form.
func encodeXPub(serialized []byte) string {
	checksum := chainhash.DoubleHashB(serialized)[:4]

	data := make([]byte, 0, len(serialized)+len(checksum))
	data = append(data, serialized...)
	data = append(data, checksum...)

	return base58.Encode(data)
}

// SerializeXPub returns the 78-byte serialization of an extended public key,
// which is the key data of a global xpub entry.
func SerializeXPub(key *hdkeychain.ExtendedKey) ([]byte, error) {
	if key.IsPrivate() {
		return nil, psbtErrorf(ErrStructuralViolation,
			"cannot add a private extended key")
	}

	decoded := base58.Decode(key.String())
	if len(decoded) != serializedXPubLength+4 {
		return nil, psbtErrorf(ErrStructuralViolation,
			"unexpected extended key length %d", len(decoded))
	}

	return decoded[:serializedXPubLength], nil
}

// validateDerivations checks every entry of a derivation map keyed by public
// key.
func validateDerivations(m *KeyMap[Bip32Derivation], where string) error {
	var err error
	m.ForEach(func(key []byte, _ Bip32Derivation) bool {
		if !validatePubKey(key) {
			err = psbtErrorf(ErrStructuralViolation,
				"%s: invalid BIP32 derivation pubkey %x",
				where, key)
			return false
		}
		return true
	})

	return err
}
