// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package btcunit

import (
	"math"
	"math/big"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
)

const (
	// kilo is a generic multiplier for kilo units.
	kilo = 1000

	// floatStringPrecision is the number of decimal places used when
	// rendering a fee rate, enough to show 1 sat/kvb as 0.001 sat/vb.
	floatStringPrecision = 3
)

// feeRate holds a fee rate in satoshis per kilo-weight-unit. The unit
// specific types below only differ in how they are built and printed.
type feeRate struct {
	satsPerKWU *big.Rat
}

// newFeeRate returns fee*1000/wu as a fee rate. A zero weight yields a zero
// rate.
func newFeeRate(fee btcutil.Amount, wu uint64) feeRate {
	if wu == 0 {
		return feeRate{satsPerKWU: big.NewRat(0, 1)}
	}

	return feeRate{satsPerKWU: big.NewRat(
		int64(fee)*kilo, safeUint64ToInt64(wu),
	)}
}

// FeeForWeight returns the fee paid at this rate by a transaction of the
// given weight, rounded down to the satoshi.
func (f feeRate) FeeForWeight(w WeightUnit) btcutil.Amount {
	fee := new(big.Rat).Mul(
		f.satsPerKWU, big.NewRat(safeUint64ToInt64(w.wu), kilo),
	)

	return btcutil.Amount(new(big.Int).Quo(fee.Num(), fee.Denom()).Int64())
}

// FeeForVByte returns the fee paid at this rate by a transaction of the
// given virtual size, rounded down to the satoshi.
func (f feeRate) FeeForVByte(vb VByte) btcutil.Amount {
	return f.FeeForWeight(vb.ToWU())
}

func (f feeRate) cmp(other feeRate) int {
	return f.satsPerKWU.Cmp(other.satsPerKWU)
}

// SatPerVByte is a fee rate in sat/vb.
type SatPerVByte struct {
	feeRate
}

// NewSatPerVByte creates a fee rate of rate sat/vb.
func NewSatPerVByte(rate btcutil.Amount) SatPerVByte {
	return CalcSatPerVByte(rate, NewVByte(1))
}

// CalcSatPerVByte returns the rate at which fee pays for vb virtual bytes.
func CalcSatPerVByte(fee btcutil.Amount, vb VByte) SatPerVByte {
	return SatPerVByte{newFeeRate(fee, vb.wu)}
}

// ToSatPerKWeight converts the rate to sat/kw.
func (s SatPerVByte) ToSatPerKWeight() SatPerKWeight {
	return SatPerKWeight{s.feeRate}
}

// String returns a human-readable string of the fee rate.
func (s SatPerVByte) String() string {
	rate := new(big.Rat).Mul(
		s.satsPerKWU, big.NewRat(blockchain.WitnessScaleFactor, kilo),
	)

	return rate.FloatString(floatStringPrecision) + " sat/vb"
}

// Equal returns true if both rates are the same.
func (s SatPerVByte) Equal(other SatPerVByte) bool {
	return s.cmp(other.feeRate) == 0
}

// LessThan returns true if the rate is lower than other.
func (s SatPerVByte) LessThan(other SatPerVByte) bool {
	return s.cmp(other.feeRate) < 0
}

// GreaterThan returns true if the rate is higher than other.
func (s SatPerVByte) GreaterThan(other SatPerVByte) bool {
	return s.cmp(other.feeRate) > 0
}

// SatPerKWeight is a fee rate in sat/kw.
type SatPerKWeight struct {
	feeRate
}

// NewSatPerKWeight creates a fee rate of rate sat/kw.
func NewSatPerKWeight(rate btcutil.Amount) SatPerKWeight {
	return CalcSatPerKWeight(rate, NewWeightUnit(kilo))
}

// CalcSatPerKWeight returns the rate at which fee pays for w weight units.
func CalcSatPerKWeight(fee btcutil.Amount, w WeightUnit) SatPerKWeight {
	return SatPerKWeight{newFeeRate(fee, w.wu)}
}

// ToSatPerVByte converts the rate to sat/vb.
func (s SatPerKWeight) ToSatPerVByte() SatPerVByte {
	return SatPerVByte{s.feeRate}
}

// String returns a human-readable string of the fee rate.
func (s SatPerKWeight) String() string {
	return s.satsPerKWU.FloatString(floatStringPrecision) + " sat/kw"
}

// Equal returns true if both rates are the same.
func (s SatPerKWeight) Equal(other SatPerKWeight) bool {
	return s.cmp(other.feeRate) == 0
}

// safeUint64ToInt64 converts a uint64 to an int64, capping at
// math.MaxInt64. Weights are bounded by consensus well below the cap.
func safeUint64ToInt64(u uint64) int64 {
	if u > math.MaxInt64 {
		return math.MaxInt64
	}

	return int64(u)
}
