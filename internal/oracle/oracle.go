package oracle

import (
	"math/big"
	"sync"
	"time"
)

// FixedOracle 固定汇率价格源，用于本地运行和测试
type FixedOracle struct {
	mu   sync.RWMutex
	rate *big.Int
	asOf time.Time

	// Now 可在测试中替换以控制报价时间
	Now func() time.Time
}

// NewFixedOracle 创建固定汇率价格源，报价时间始终为当前时间
func NewFixedOracle(rate *big.Int) *FixedOracle {
	return &FixedOracle{
		rate: new(big.Int).Set(rate),
		Now:  time.Now,
	}
}

// GetRate 返回固定汇率
func (o *FixedOracle) GetRate() (*big.Int, time.Time, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	asOf := o.asOf
	if asOf.IsZero() {
		asOf = o.Now()
	}
	return new(big.Int).Set(o.rate), asOf, nil
}

// SetRate 更新汇率
func (o *FixedOracle) SetRate(rate *big.Int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rate = new(big.Int).Set(rate)
}

// SetAsOf 固定报价时间，用于测试过期报价
func (o *FixedOracle) SetAsOf(asOf time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.asOf = asOf
}
