// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbt

import (
	"errors"
	"io"

	"github.com/btcsuite/btcd/wire"
)

const (
	// MaxPsbtValueLength is the size of the largest value a packet may
	// carry. The biggest legitimate value is a full previous transaction
	// in a non-witness UTXO field, which is bounded by the block weight.
	MaxPsbtValueLength = 4000000

	// MaxPsbtKeyLength is the length of the largest key accepted in any
	// map.
	MaxPsbtKeyLength = 10000

	// separator is the byte terminating every key-value map.
	separator = 0x00
)

// KVPair is a single raw entry of a key-value map. The key includes its
// leading type byte.
type KVPair struct {
	Key   []byte
	Value []byte
}

// ReadMap reads key-value pairs from r until the map separator. Each key and
// value is prefixed with its length as a compact-size integer. The reader is
// left positioned right after the separator so the next map can be read from
// it.
func ReadMap(r io.Reader) ([]KVPair, error) {
	var (
		pairs []KVPair
		seen  = make(map[string]struct{})
	)
	for {
		key, err := readLengthPrefixed(r, MaxPsbtKeyLength, "key")
		if err != nil {
			return nil, err
		}

		// A zero key length is the separator byte.
		if len(key) == 0 {
			return pairs, nil
		}

		if _, ok := seen[string(key)]; ok {
			return nil, psbtErrorf(ErrDuplicateKey,
				"duplicate key 0x%x in map", key)
		}
		seen[string(key)] = struct{}{}

		value, err := readLengthPrefixed(r, MaxPsbtValueLength, "value")
		if err != nil {
			return nil, err
		}

		pairs = append(pairs, KVPair{Key: key, Value: value})
	}
}

// readLengthPrefixed reads a compact-size length followed by that many
// bytes. Any short read is reported as a malformed document.
func readLengthPrefixed(r io.Reader, maxLen uint64,
	field string) ([]byte, error) {

	length, err := wire.ReadVarInt(r, 0)
	if err != nil {
		switch {
		case errors.Is(err, io.EOF) && field == "key":
			return nil, psbtErrorf(ErrMalformedDocument,
				"missing map separator")

		case errors.Is(err, io.EOF):
			return nil, psbtErrorf(ErrMalformedDocument,
				"truncated %s: missing length", field)
		}
		return nil, psbtError(ErrMalformedDocument,
			"unable to read "+field+" length", err)
	}

	if length > maxLen {
		return nil, psbtErrorf(ErrMalformedDocument,
			"%s length %d exceeds maximum of %d", field, length,
			maxLen)
	}

	if length == 0 {
		return nil, nil
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, psbtError(ErrMalformedDocument,
			"truncated "+field, err)
	}

	return buf, nil
}

// WriteEntry writes a single key-value pair to w, each part prefixed with
// its compact-size length.
func WriteEntry(w io.Writer, key, value []byte) error {
	if err := wire.WriteVarBytes(w, 0, key); err != nil {
		return err
	}

	return wire.WriteVarBytes(w, 0, value)
}

// writeTypedEntry writes an entry whose key is the type byte followed by
// keyData.
func writeTypedEntry(w io.Writer, keyType uint8, keyData,
	value []byte) error {

	key := make([]byte, 0, 1+len(keyData))
	key = append(key, keyType)
	key = append(key, keyData...)

	return WriteEntry(w, key, value)
}

// writeSeparator terminates a map.
func writeSeparator(w io.Writer) error {
	_, err := w.Write([]byte{separator})
	return err
}

// writeUnknowns writes every unknown entry in canonical key order.
func writeUnknowns(w io.Writer, unknowns *KeyMap[[]byte]) error {
	for _, k := range unknowns.sortedKeys() {
		v, _ := unknowns.Get([]byte(k))
		if err := WriteEntry(w, []byte(k), v); err != nil {
			return err
		}
	}

	return nil
}
