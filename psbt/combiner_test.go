// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package psbt

import (
	"testing"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// signerPackets returns two copies of a 2-of-2 P2WSH packet, each holding
// the signature of a different key.
func signerPackets(t *testing.T) (*Packet, *Packet) {
	t.Helper()

	witnessScript := multiSigScript(t, testPubKey(1), testPubKey(2))
	prevTx := testPrevTx(p2wshScript(t, witnessScript), 10000)
	base := testPacket(t, 9000, prevTx)

	u := Updater{Upsbt: base}
	require.NoError(t, u.AddInWitnessUtxo(prevTx.TxOut[0], 0))
	require.NoError(t, u.AddInWitnessScript(witnessScript, 0))

	a, b := base.Copy(), base.Copy()
	require.NoError(t, (&Updater{Upsbt: a}).AddPartialSig(
		0, testSig(testKey(1), "a"), testPubKey(1),
	))
	require.NoError(t, (&Updater{Upsbt: b}).AddPartialSig(
		0, testSig(testKey(2), "b"), testPubKey(2),
	))

	return a, b
}

// TestCombineCommutative checks that the order of packets with disjoint
// data does not change the result.
func TestCombineCommutative(t *testing.T) {
	t.Parallel()

	a, b := signerPackets(t)
	aCopy, bCopy := a.Copy(), b.Copy()

	ab, err := Combine([]*Packet{a, b})
	require.NoError(t, err)
	ba, err := Combine([]*Packet{b, a})
	require.NoError(t, err)

	require.True(t, ab.Equal(ba))
	require.Equal(t, 2, ab.Inputs[0].PartialSigs.Len())

	abRaw, err := ab.SerializeBytes()
	require.NoError(t, err)
	baRaw, err := ba.SerializeBytes()
	require.NoError(t, err)
	require.Equal(t, abRaw, baRaw)

	// The packets passed in are left untouched.
	require.True(t, a.Equal(aCopy))
	require.True(t, b.Equal(bCopy))

	// Combining a packet with itself is a no-op.
	aa, err := Combine([]*Packet{a, a})
	require.NoError(t, err)
	require.True(t, aa.Equal(a))
}

// TestCombineFieldMerge checks how individual fields are merged.
func TestCombineFieldMerge(t *testing.T) {
	t.Parallel()

	a, b := signerPackets(t)

	a.Inputs[0].SighashType = fn.Some(txscript.SigHashAll)
	b.Inputs[0].SighashType = fn.Some(txscript.SigHashSingle)
	b.Inputs[0].RedeemScript = fn.Some([]byte{0x51})
	b.Outputs[0].WitnessScript = fn.Some([]byte{0x52})

	a.Unknowns.Set([]byte{0x42}, []byte("a"))
	b.Unknowns.Set([]byte{0x42}, []byte("b"))
	b.Inputs[0].Unknowns.Set([]byte{0x43}, []byte("b"))

	combined, err := Combine([]*Packet{a, b})
	require.NoError(t, err)

	pi := combined.Inputs[0]
	require.Equal(
		t, fn.Some(txscript.SigHashAll), pi.SighashType,
	)
	require.Equal(t, []byte{0x51}, pi.RedeemScript.UnwrapOr(nil))
	require.Equal(
		t, []byte{0x52},
		combined.Outputs[0].WitnessScript.UnwrapOr(nil),
	)

	unknown, ok := combined.Unknowns.Get([]byte{0x42})
	require.True(t, ok)
	require.Equal(t, []byte("b"), unknown)
	require.True(t, pi.Unknowns.Has([]byte{0x43}))

	// The merged values are copies.
	b.Inputs[0].RedeemScript.UnsafeFromSome()[0] = 0x00
	require.Equal(t, []byte{0x51}, pi.RedeemScript.UnwrapOr(nil))
}

// TestCombineErrors checks the packet sets Combine refuses.
func TestCombineErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		packets func(t *testing.T) []*Packet
		errCode ErrorCode
	}{
		{
			name: "no packets",
			packets: func(*testing.T) []*Packet {
				return nil
			},
			errCode: ErrStructuralViolation,
		},
		{
			name: "different transactions",
			packets: func(t *testing.T) []*Packet {
				a, b := signerPackets(t)
				b.UnsignedTx.LockTime = 1

				return []*Packet{a, b}
			},
			errCode: ErrMismatchedTransaction,
		},
		{
			name: "missing entries",
			packets: func(t *testing.T) []*Packet {
				a, b := signerPackets(t)
				b.Inputs = nil

				return []*Packet{a, b}
			},
			errCode: ErrStructuralViolation,
		},
		{
			name: "conflicting final scriptSig",
			packets: func(t *testing.T) []*Packet {
				a, b := signerPackets(t)
				a.Inputs[0].FinalScriptSig = fn.Some([]byte{1})
				b.Inputs[0].FinalScriptSig = fn.Some([]byte{2})

				return []*Packet{a, b}
			},
			errCode: ErrConflictingFinalData,
		},
		{
			name: "conflicting final witness",
			packets: func(t *testing.T) []*Packet {
				a, b := signerPackets(t)
				a.Inputs[0].FinalScriptWitness = fn.Some(
					wire.TxWitness{{1}},
				)
				b.Inputs[0].FinalScriptWitness = fn.Some(
					wire.TxWitness{{1}, {2}},
				)

				return []*Packet{a, b}
			},
			errCode: ErrConflictingFinalData,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Combine(tc.packets(t))
			require.True(
				t, IsError(err, tc.errCode), "got %v", err,
			)
		})
	}

	// Matching final data is not a conflict.
	a, b := signerPackets(t)
	a.Inputs[0].FinalScriptSig = fn.Some([]byte{1})
	b.Inputs[0].FinalScriptSig = fn.Some([]byte{1})
	_, err := Combine([]*Packet{a, b})
	require.NoError(t, err)
}

// TestCombineConcurrent checks that packets can be combined from several
// goroutines at once since Combine only reads its arguments.
func TestCombineConcurrent(t *testing.T) {
	t.Parallel()

	a, b := signerPackets(t)
	want, err := Combine([]*Packet{a, b})
	require.NoError(t, err)

	const numWorkers = 8
	results := make([]*Packet, numWorkers)

	var g errgroup.Group
	for i := 0; i < numWorkers; i++ {
		i := i
		g.Go(func() error {
			packets := []*Packet{a, b}
			if i%2 == 1 {
				packets = []*Packet{b, a}
			}

			combined, err := Combine(packets)
			if err != nil {
				return err
			}
			results[i] = combined

			return nil
		})
	}
	require.NoError(t, g.Wait())

	for _, result := range results {
		require.True(t, want.Equal(result))
	}
}
