// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package field

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArithmeticWrapsModPrime(t *testing.T) {
	require := require.New(t)

	a := FromUint64(3)
	b := FromUint64(5)

	require.True(a.Add(b).Equal(FromUint64(8)))
	require.True(b.Sub(a).Equal(FromUint64(2)))
	require.True(a.Mul(b).Equal(FromUint64(15)))
	// 3-5 wraps to p-2, so adding 2 lands on p == 0.
	require.True(a.Sub(b).Add(FromUint64(2)).IsZero())
}

func TestInverseAndDiv(t *testing.T) {
	require := require.New(t)

	a := FromUint64(12345)
	inv, err := a.Inverse()
	require.NoError(err)
	require.True(a.Mul(inv).Equal(FromUint64(1)))

	_, err = Zero.Inverse()
	require.Error(err)
}

func TestRandomIsReducedAndVaries(t *testing.T) {
	require := require.New(t)

	r1, err := Random()
	require.NoError(err)
	r2, err := Random()
	require.NoError(err)

	require.True(r1.bigOrZero().Cmp(Prime) < 0)
	require.False(r1.Equal(r2))
}

func TestFromBytesRoundTrip(t *testing.T) {
	require := require.New(t)

	e := FromUint64(999)
	require.Equal(e.Uint64(), FromBytes(e.Bytes()).Uint64())
}
