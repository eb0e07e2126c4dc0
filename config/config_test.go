// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilderDerivesNFromF(t *testing.T) {
	require := require.New(t)

	cfg, err := NewBuilder().WithF(1).WithBatchSize(4).Build()
	require.NoError(err)
	require.Equal(4, cfg.N)
	require.Equal(1, cfg.F)
	require.Equal(4, cfg.BatchSize)
}

func TestBuilderRejectsInconsistentN(t *testing.T) {
	require := require.New(t)

	_, err := NewBuilder().WithF(1).WithN(5).Build()
	require.Error(err)
}

func TestBuilderRejectsZeroBatchSize(t *testing.T) {
	require := require.New(t)

	_, err := NewBuilder().WithF(1).WithBatchSize(0).Build()
	require.Error(err)
}
