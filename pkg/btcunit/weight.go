// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package btcunit provides the size and fee rate units used to report on
// extracted transactions.
package btcunit

import (
	"fmt"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

// WeightUnit is a transaction size in weight units, computed as
// `base size * 3 + total size` where the base size excludes witness data.
type WeightUnit struct {
	wu uint64
}

// NewWeightUnit creates a new WeightUnit from a uint64 value.
func NewWeightUnit(val uint64) WeightUnit {
	return WeightUnit{wu: val}
}

// Uint64 returns the number of weight units.
func (w WeightUnit) Uint64() uint64 {
	return w.wu
}

// ToVB converts the weight to virtual bytes.
func (w WeightUnit) ToVB() VByte {
	return VByte{wu: w.wu}
}

// String returns the string representation of the weight unit.
func (w WeightUnit) String() string {
	return fmt.Sprintf("%d wu", w.wu)
}

// VByte is a transaction size in virtual bytes, a quarter of a weight unit
// each. The size is kept in weight units so converting back and forth does
// not lose precision.
type VByte struct {
	wu uint64
}

// NewVByte creates a new VByte from a uint64 value.
func NewVByte(val uint64) VByte {
	return VByte{wu: val * blockchain.WitnessScaleFactor}
}

// ToWU converts the size to weight units.
func (v VByte) ToWU() WeightUnit {
	return WeightUnit{wu: v.wu}
}

// Uint64 returns the number of virtual bytes, rounded up.
func (v VByte) Uint64() uint64 {
	return (v.wu + blockchain.WitnessScaleFactor - 1) /
		blockchain.WitnessScaleFactor
}

// String returns the string representation of the virtual byte size.
func (v VByte) String() string {
	return fmt.Sprintf("%d vb", v.Uint64())
}

// TxWeight returns the weight of tx, witness data included.
func TxWeight(tx *wire.MsgTx) WeightUnit {
	weight := blockchain.GetTransactionWeight(btcutil.NewTx(tx))
	return NewWeightUnit(safeInt64ToUint64(weight))
}

func safeInt64ToUint64(i int64) uint64 {
	if i < 0 {
		return 0
	}

	return uint64(i)
}
