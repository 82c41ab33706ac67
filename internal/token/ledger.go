package token

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInsufficientBalance 余额不足
	ErrInsufficientBalance = errors.New("账户余额不足")
	// ErrInsufficientAllowance 授权额度不足
	ErrInsufficientAllowance = errors.New("授权额度不足")
	// ErrInvalidAmount 金额必须大于0
	ErrInvalidAmount = errors.New("划转金额必须大于0")
	// ErrPullUnsupported 该账本不支持预授权拉取
	ErrPullUnsupported = errors.New("原生账本不支持预授权拉取")
)

// UnitToken 单位代币账本：余额、授权额度与1:1铸造。
// 项目托管、退款与结算都在该账本上划转。
type UnitToken struct {
	mu         sync.RWMutex
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

// NewUnitToken 创建单位代币账本
func NewUnitToken() *UnitToken {
	return &UnitToken{
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Mint 铸造单位代币到指定账户
func (t *UnitToken) Mint(to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.credit(to, amount)
	return nil
}

// Send 从 from 向 to 划转
func (t *UnitToken) Send(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.debit(from, amount); err != nil {
		return err
	}
	t.credit(to, amount)
	return nil
}

// Approve owner 授权 spender 可拉取的额度
func (t *UnitToken) Approve(owner, spender common.Address, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.allowances[owner]
	if !ok {
		m = make(map[common.Address]*big.Int)
		t.allowances[owner] = m
	}
	m[spender] = new(big.Int).Set(amount)
}

// Pull 按预授权额度从 from 拉取到 to，额度随拉取扣减
func (t *UnitToken) Pull(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	allowance := t.allowanceLocked(from, to)
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: 需要 %s，剩余 %s", ErrInsufficientAllowance, amount, allowance)
	}
	if err := t.debit(from, amount); err != nil {
		return err
	}
	t.credit(to, amount)
	t.allowances[from][to] = new(big.Int).Sub(allowance, amount)
	return nil
}

// AllowanceOf owner 给 spender 的剩余授权额度
func (t *UnitToken) AllowanceOf(owner, spender common.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return new(big.Int).Set(t.allowanceLocked(owner, spender))
}

// BalanceOf 账户余额
func (t *UnitToken) BalanceOf(account common.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if b, ok := t.balances[account]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (t *UnitToken) allowanceLocked(owner, spender common.Address) *big.Int {
	if m, ok := t.allowances[owner]; ok {
		if a, ok := m[spender]; ok {
			return a
		}
	}
	return new(big.Int)
}

func (t *UnitToken) credit(account common.Address, amount *big.Int) {
	b, ok := t.balances[account]
	if !ok {
		b = new(big.Int)
		t.balances[account] = b
	}
	b.Add(b, amount)
}

func (t *UnitToken) debit(account common.Address, amount *big.Int) error {
	b, ok := t.balances[account]
	if !ok || b.Cmp(amount) < 0 {
		return fmt.Errorf("%w: 账户 %s", ErrInsufficientBalance, account.Hex())
	}
	b.Sub(b, amount)
	return nil
}

// NativeLedger 原生资产账本，仅支持直接划转，没有授权语义
type NativeLedger struct {
	mu       sync.RWMutex
	balances map[common.Address]*big.Int
}

// NewNativeLedger 创建原生资产账本
func NewNativeLedger() *NativeLedger {
	return &NativeLedger{balances: make(map[common.Address]*big.Int)}
}

// Mint 入金的别名，托管场景下原生资产直接计入账户
func (l *NativeLedger) Mint(to common.Address, amount *big.Int) error {
	return l.Deposit(to, amount)
}

// Deposit 入金
func (l *NativeLedger) Deposit(account common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.balances[account]
	if !ok {
		b = new(big.Int)
		l.balances[account] = b
	}
	b.Add(b, amount)
	return nil
}

// Send 从 from 向 to 划转
func (l *NativeLedger) Send(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.balances[from]
	if !ok || b.Cmp(amount) < 0 {
		return fmt.Errorf("%w: 账户 %s", ErrInsufficientBalance, from.Hex())
	}
	b.Sub(b, amount)
	tb, ok := l.balances[to]
	if !ok {
		tb = new(big.Int)
		l.balances[to] = tb
	}
	tb.Add(tb, amount)
	return nil
}

// Pull 原生账本没有授权语义，直接拒绝
func (l *NativeLedger) Pull(from, to common.Address, amount *big.Int) error {
	return ErrPullUnsupported
}

// AllowanceOf 原生账本恒为0
func (l *NativeLedger) AllowanceOf(owner, spender common.Address) *big.Int {
	return new(big.Int)
}

// BalanceOf 账户余额
func (l *NativeLedger) BalanceOf(account common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if b, ok := l.balances[account]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}
