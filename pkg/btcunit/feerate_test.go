// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package btcunit

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"
)

// TestFeeRateConversions checks that the conversion between the fee rate
// units is correct.
func TestFeeRateConversions(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		rate       SatPerVByte
		expectedKW SatPerKWeight
		vbString   string
		kwString   string
	}{
		{
			name:       "1 sat/vb",
			rate:       NewSatPerVByte(1),
			expectedKW: NewSatPerKWeight(250),
			vbString:   "1.000 sat/vb",
			kwString:   "250.000 sat/kw",
		},
		{
			name:       "0.11 sat/vb",
			rate:       CalcSatPerVByte(11, NewVByte(100)),
			expectedKW: CalcSatPerKWeight(27500, NewWeightUnit(1e6)),
			vbString:   "0.110 sat/vb",
			kwString:   "27.500 sat/kw",
		},
		{
			name:       "zero size",
			rate:       CalcSatPerVByte(1000, NewVByte(0)),
			expectedKW: NewSatPerKWeight(0),
			vbString:   "0.000 sat/vb",
			kwString:   "0.000 sat/kw",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.True(t, tc.expectedKW.Equal(tc.rate.ToSatPerKWeight()))
			require.True(t, tc.rate.Equal(tc.expectedKW.ToSatPerVByte()))
			require.Equal(t, tc.vbString, tc.rate.String())
			require.Equal(t, tc.kwString, tc.expectedKW.String())
		})
	}
}

// TestFeeForSize checks that fees are rounded down to the satoshi.
func TestFeeForSize(t *testing.T) {
	t.Parallel()

	rate := NewSatPerVByte(3)

	require.Equal(t, btcutil.Amount(300), rate.FeeForVByte(NewVByte(100)))

	// 401 wu is 100.25 vb, so the fee is 300.75 sats.
	require.Equal(
		t, btcutil.Amount(300), rate.FeeForWeight(NewWeightUnit(401)),
	)
}

// TestFeeRateComparisons tests the comparison methods of SatPerVByte.
func TestFeeRateComparisons(t *testing.T) {
	t.Parallel()

	low := NewSatPerVByte(1)
	high := CalcSatPerVByte(1001, NewVByte(1000))

	require.True(t, low.LessThan(high))
	require.True(t, high.GreaterThan(low))
	require.False(t, low.GreaterThan(low))
	require.False(t, low.Equal(high))
}
