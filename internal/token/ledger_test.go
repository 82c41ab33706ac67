package token_test

import (
	"math/big"
	"testing"

	"github.com/blues/ces/internal/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner   = common.HexToAddress("0x0000000000000000000000000000000000000011")
	spender = common.HexToAddress("0x0000000000000000000000000000000000000022")
	other   = common.HexToAddress("0x0000000000000000000000000000000000000033")
)

func TestUnitTokenMintAndSend(t *testing.T) {
	ledger := token.NewUnitToken()

	require.NoError(t, ledger.Mint(owner, big.NewInt(1000)))
	assert.Equal(t, big.NewInt(1000), ledger.BalanceOf(owner))

	require.NoError(t, ledger.Send(owner, other, big.NewInt(400)))
	assert.Equal(t, big.NewInt(600), ledger.BalanceOf(owner))
	assert.Equal(t, big.NewInt(400), ledger.BalanceOf(other))

	// 余额不足
	err := ledger.Send(owner, other, big.NewInt(601))
	assert.ErrorIs(t, err, token.ErrInsufficientBalance)
	assert.Equal(t, big.NewInt(600), ledger.BalanceOf(owner))
}

func TestUnitTokenInvalidAmount(t *testing.T) {
	ledger := token.NewUnitToken()

	assert.ErrorIs(t, ledger.Mint(owner, nil), token.ErrInvalidAmount)
	assert.ErrorIs(t, ledger.Mint(owner, big.NewInt(0)), token.ErrInvalidAmount)
	assert.ErrorIs(t, ledger.Send(owner, other, big.NewInt(-1)), token.ErrInvalidAmount)
	assert.ErrorIs(t, ledger.Pull(owner, other, big.NewInt(0)), token.ErrInvalidAmount)
}

func TestUnitTokenPullDecrementsAllowance(t *testing.T) {
	ledger := token.NewUnitToken()
	require.NoError(t, ledger.Mint(owner, big.NewInt(1000)))

	ledger.Approve(owner, spender, big.NewInt(600))
	assert.Equal(t, big.NewInt(600), ledger.AllowanceOf(owner, spender))

	require.NoError(t, ledger.Pull(owner, spender, big.NewInt(400)))
	assert.Equal(t, big.NewInt(400), ledger.BalanceOf(spender))
	// 额度随拉取扣减
	assert.Equal(t, big.NewInt(200), ledger.AllowanceOf(owner, spender))

	// 超出剩余额度
	err := ledger.Pull(owner, spender, big.NewInt(300))
	assert.ErrorIs(t, err, token.ErrInsufficientAllowance)
	assert.Equal(t, big.NewInt(200), ledger.AllowanceOf(owner, spender))
	assert.Equal(t, big.NewInt(400), ledger.BalanceOf(spender))
}

func TestUnitTokenPullWithoutApproval(t *testing.T) {
	ledger := token.NewUnitToken()
	require.NoError(t, ledger.Mint(owner, big.NewInt(1000)))

	err := ledger.Pull(owner, spender, big.NewInt(100))
	assert.ErrorIs(t, err, token.ErrInsufficientAllowance)
	assert.Equal(t, big.NewInt(1000), ledger.BalanceOf(owner))
}

func TestUnitTokenPullInsufficientBalance(t *testing.T) {
	ledger := token.NewUnitToken()
	require.NoError(t, ledger.Mint(owner, big.NewInt(100)))

	// 授权可以超过余额，拉取时按余额拒绝，额度不扣减
	ledger.Approve(owner, spender, big.NewInt(500))
	err := ledger.Pull(owner, spender, big.NewInt(300))
	assert.ErrorIs(t, err, token.ErrInsufficientBalance)
	assert.Equal(t, big.NewInt(500), ledger.AllowanceOf(owner, spender))
}

func TestNativeLedger(t *testing.T) {
	ledger := token.NewNativeLedger()

	require.NoError(t, ledger.Deposit(owner, big.NewInt(500)))
	require.NoError(t, ledger.Mint(owner, big.NewInt(500)))
	assert.Equal(t, big.NewInt(1000), ledger.BalanceOf(owner))

	require.NoError(t, ledger.Send(owner, other, big.NewInt(300)))
	assert.Equal(t, big.NewInt(700), ledger.BalanceOf(owner))
	assert.Equal(t, big.NewInt(300), ledger.BalanceOf(other))

	assert.ErrorIs(t, ledger.Send(owner, other, big.NewInt(701)), token.ErrInsufficientBalance)

	// 原生账本没有授权语义
	assert.ErrorIs(t, ledger.Pull(owner, other, big.NewInt(1)), token.ErrPullUnsupported)
	assert.Equal(t, big.NewInt(0), ledger.AllowanceOf(owner, other))
}
