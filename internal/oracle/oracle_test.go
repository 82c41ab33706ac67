package oracle_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/blues/ces/internal/oracle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedOracleGetRate(t *testing.T) {
	now := time.Unix(1700000000, 0)
	o := oracle.NewFixedOracle(big.NewInt(100000000))
	o.Now = func() time.Time { return now }

	rate, asOf, err := o.GetRate()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100000000), rate)
	assert.Equal(t, now, asOf)

	// 返回的是副本，调用方修改不影响内部状态
	rate.SetInt64(1)
	rate2, _, err := o.GetRate()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100000000), rate2)
}

func TestFixedOracleSetRate(t *testing.T) {
	o := oracle.NewFixedOracle(big.NewInt(100000000))
	o.SetRate(big.NewInt(150000000))

	rate, _, err := o.GetRate()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(150000000), rate)
}

func TestFixedOracleSetAsOf(t *testing.T) {
	now := time.Unix(1700000000, 0)
	stale := now.Add(-2 * time.Hour)

	o := oracle.NewFixedOracle(big.NewInt(100000000))
	o.Now = func() time.Time { return now }
	o.SetAsOf(stale)

	_, asOf, err := o.GetRate()
	require.NoError(t, err)
	assert.Equal(t, stale, asOf)
}
