// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package psbt implements the Partially Signed Bitcoin Transaction format
// described in BIP174.
//
// A Packet carries an unsigned transaction together with the metadata each
// participant needs to sign it: the outputs being spent, redeem and witness
// scripts, BIP32 derivations and the signatures collected so far. Packets
// are created from a transaction (New), filled in by an Updater and by
// signers, merged with Combine, turned into final unlocking data by Finalize
// and turned into a network transaction by Extract.
//
// Combine and Finalize never modify their arguments; they return new
// packets. A Packet is not safe for concurrent mutation.
package psbt

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"io"
	"strings"

	"github.com/btcsuite/btcd/wire"
)

// psbtMagicLength is the length of the magic bytes used to signal the start
// of a serialized packet.
const psbtMagicLength = 5

// psbtMagic is the ASCII string "psbt" followed by the 0xff separator.
var psbtMagic = [psbtMagicLength]byte{0x70, 0x73, 0x62, 0x74, 0xff}

// Packet is the in-memory form of a partially signed transaction.
type Packet struct {
	// UnsignedTx is the transaction being signed. None of its inputs may
	// carry a scriptSig or witness.
	UnsignedTx *wire.MsgTx

	// Inputs holds one entry per input of UnsignedTx, in the same order.
	Inputs []PInput

	// Outputs holds one entry per output of UnsignedTx, in the same order.
	Outputs []POutput

	// Version is the packet version. Only version 0 is supported.
	Version uint32

	// XPubs maps the 78-byte serialization of an extended public key to
	// the master fingerprint and path it was derived with.
	XPubs KeyMap[Bip32Derivation]

	// Unknowns holds global entries this package does not interpret,
	// keyed by their full key.
	Unknowns KeyMap[[]byte]
}

// Serialize writes the binary form of the packet to w. Mapping entries are
// written in key order, so equal packets always serialize to the same
// bytes.
func (p *Packet) Serialize(w io.Writer) error {
	if err := p.checkCounts(); err != nil {
		return err
	}

	if _, err := w.Write(psbtMagic[:]); err != nil {
		return err
	}

	var tx bytes.Buffer
	tx.Grow(p.UnsignedTx.SerializeSizeStripped())
	if err := p.UnsignedTx.SerializeNoWitness(&tx); err != nil {
		return err
	}
	err := writeTypedEntry(w, uint8(UnsignedTxType), nil, tx.Bytes())
	if err != nil {
		return err
	}

	// A zero version is implied and never written.
	if p.Version != 0 {
		var v [4]byte
		binary.LittleEndian.PutUint32(v[:], p.Version)
		err := writeTypedEntry(w, uint8(VersionType), nil, v[:])
		if err != nil {
			return err
		}
	}

	for _, k := range p.XPubs.sortedKeys() {
		d, _ := p.XPubs.Get([]byte(k))
		err := writeTypedEntry(
			w, uint8(XPubType), []byte(k),
			SerializeBIP32Derivation(d),
		)
		if err != nil {
			return err
		}
	}

	if err := writeUnknowns(w, &p.Unknowns); err != nil {
		return err
	}
	if err := writeSeparator(w); err != nil {
		return err
	}

	for i := range p.Inputs {
		if err := p.Inputs[i].serialize(w); err != nil {
			return err
		}
		if err := writeSeparator(w); err != nil {
			return err
		}
	}

	for i := range p.Outputs {
		if err := p.Outputs[i].serialize(w); err != nil {
			return err
		}
		if err := writeSeparator(w); err != nil {
			return err
		}
	}

	return nil
}

// SerializeBytes returns the binary form of the packet.
func (p *Packet) SerializeBytes() ([]byte, error) {
	var b bytes.Buffer
	if err := p.Serialize(&b); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// B64Encode returns the base64 encoding of the serialized packet.
func (p *Packet) B64Encode() (string, error) {
	raw, err := p.SerializeBytes()
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(raw), nil
}

// NewFromRawBytes reads a packet from r and checks it with SanityCheck. If
// b64 is true, the reader is expected to yield base64 text.
//
// NOTE: To create a packet from one's own data rather than reading a
// serialization from a counterparty, use New or NewFromOutPoints.
func NewFromRawBytes(r io.Reader, b64 bool) (*Packet, error) {
	if b64 {
		r = base64.NewDecoder(base64.StdEncoding, r)
	}

	p, err := Parse(r)
	if err != nil {
		return nil, err
	}

	if err := p.SanityCheck(); err != nil {
		return nil, err
	}

	return p, nil
}

// NewFromBase64 decodes a base64 encoded packet, ignoring surrounding
// whitespace.
func NewFromBase64(s string) (*Packet, error) {
	return NewFromRawBytes(strings.NewReader(strings.TrimSpace(s)), true)
}

// Parse reads a packet from r without running SanityCheck on it. Exactly as
// many input and output maps as the unsigned transaction declares are read;
// anything after them is left in the reader.
func Parse(r io.Reader) (*Packet, error) {
	var magic [psbtMagicLength]byte
	if _, err := io.ReadFull(r, magic[:4]); err != nil ||
		!bytes.Equal(magic[:4], psbtMagic[:4]) {

		return nil, psbtErrorf(ErrMalformedDocument,
			"missing magic bytes")
	}
	if _, err := io.ReadFull(r, magic[4:]); err != nil ||
		magic[4] != psbtMagic[4] {

		return nil, psbtErrorf(ErrMalformedDocument,
			"missing magic separator")
	}

	globals, err := ReadMap(r)
	if err != nil {
		return nil, err
	}

	p := &Packet{}
	for _, kv := range globals {
		keyType, known := globalKeyType(kv.Key)
		if !known {
			p.Unknowns.Set(kv.Key, kv.Value)
			continue
		}

		keyData := kv.Key[1:]

		switch keyType {
		case XPubType:
			d, err := ReadBip32Derivation(kv.Value)
			if err != nil {
				return nil, err
			}
			p.XPubs.Set(keyData, d)
			continue
		}

		if len(keyData) != 0 {
			return nil, psbtErrorf(ErrMalformedDocument,
				"unexpected key data for global key type "+
					"0x%02x", uint8(keyType))
		}

		switch keyType {
		case UnsignedTxType:
			// The unsigned transaction never carries witness
			// data.
			tx, err := readTx(
				kv.Value, false, "unsigned transaction",
			)
			if err != nil {
				return nil, err
			}
			p.UnsignedTx = tx

		case VersionType:
			if len(kv.Value) != 4 {
				return nil, psbtErrorf(ErrInvalidVersion,
					"invalid version length %d",
					len(kv.Value))
			}

			version := binary.LittleEndian.Uint32(kv.Value)
			if version != 0 {
				return nil, psbtErrorf(ErrInvalidVersion,
					"unsupported version %d", version)
			}
			p.Version = version
		}
	}

	if p.UnsignedTx == nil {
		return nil, psbtErrorf(ErrMissingTransaction,
			"global map has no unsigned transaction")
	}

	p.Inputs = make([]PInput, len(p.UnsignedTx.TxIn))
	for i := range p.Inputs {
		if err := p.Inputs[i].deserialize(r); err != nil {
			return nil, err
		}
	}

	p.Outputs = make([]POutput, len(p.UnsignedTx.TxOut))
	for i := range p.Outputs {
		if err := p.Outputs[i].deserialize(r); err != nil {
			return nil, err
		}
	}

	log.Tracef("Parsed packet %v: %v", p.UnsignedTx.TxHash(),
		spewPacket(p))

	return p, nil
}

// Copy returns a deep copy of the packet. The copy shares no mutable state
// with p.
func (p *Packet) Copy() *Packet {
	cp := &Packet{
		Version:  p.Version,
		XPubs:    p.XPubs.Clone(Bip32Derivation.clone),
		Unknowns: p.Unknowns.Clone(bytes.Clone),
	}

	if p.UnsignedTx != nil {
		cp.UnsignedTx = p.UnsignedTx.Copy()
	}

	if p.Inputs != nil {
		cp.Inputs = make([]PInput, len(p.Inputs))
		for i := range p.Inputs {
			cp.Inputs[i] = p.Inputs[i].copy()
		}
	}

	if p.Outputs != nil {
		cp.Outputs = make([]POutput, len(p.Outputs))
		for i := range p.Outputs {
			cp.Outputs[i] = p.Outputs[i].copy()
		}
	}

	return cp
}

// Equal returns true if both packets carry the same data field for field.
// The order in which mapping entries were inserted is ignored.
func (p *Packet) Equal(other *Packet) bool {
	switch {
	case p.UnsignedTx == nil || other.UnsignedTx == nil:
		if p.UnsignedTx != other.UnsignedTx {
			return false
		}

	case !txEqual(p.UnsignedTx, other.UnsignedTx):
		return false
	}

	if p.Version != other.Version ||
		len(p.Inputs) != len(other.Inputs) ||
		len(p.Outputs) != len(other.Outputs) {

		return false
	}

	if !p.XPubs.Equal(&other.XPubs, Bip32Derivation.Equal) ||
		!p.Unknowns.Equal(&other.Unknowns, bytes.Equal) {

		return false
	}

	for i := range p.Inputs {
		if !p.Inputs[i].equal(&other.Inputs[i]) {
			return false
		}
	}

	for i := range p.Outputs {
		if !p.Outputs[i].equal(&other.Outputs[i]) {
			return false
		}
	}

	return true
}

// IsComplete returns true only if every input carries a final scriptSig or
// witness, which is what Extract needs to produce a spendable transaction.
func (p *Packet) IsComplete() bool {
	for i := range p.Inputs {
		if !p.Inputs[i].IsFinalized() {
			return false
		}
	}

	return true
}
