package escrow

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Status 项目状态
type Status string

const (
	StatusOpen     Status = "open"     // 募集中
	StatusApproved Status = "approved" // 达标待结算
	StatusReverted Status = "reverted" // 募集失败，可退款
	StatusDeleted  Status = "deleted"  // 创建者删除，可退款
	StatusPaidOut  Status = "paidout"  // 已结算
)

// PriceOracle 价格源，rate 为 10^RateDecimals 定点数
type PriceOracle interface {
	GetRate() (rate *big.Int, asOf time.Time, err error)
}

// AssetTransfer 资产划转能力
type AssetTransfer interface {
	Send(from, to common.Address, amount *big.Int) error
	Pull(from, to common.Address, amount *big.Int) error
	AllowanceOf(owner, spender common.Address) *big.Int
}

// UnitMinter 单位代币铸造能力，原生入金按换算结果1:1铸造到项目托管账户
type UnitMinter interface {
	Mint(to common.Address, amount *big.Int) error
}

// QuoteConfig 报价换算配置
type QuoteConfig struct {
	RateDecimals int           // 汇率定点小数位
	MaxQuoteAge  time.Duration // 报价最大有效期
}

// Backer 出资人台账记录
type Backer struct {
	Address          common.Address `json:"address"`
	Contribution     *big.Int       `json:"contribution"`
	LastActivityTime time.Time      `json:"last_activity_time"`
	Refunded         bool           `json:"refunded"`
}

// RefundResult 单个出资人的退款结果，Err 为 nil 表示退款已到账
type RefundResult struct {
	Backer common.Address
	Amount *big.Int
	Err    error
}

// ContributionResult 出资结果
type ContributionResult struct {
	Credited *big.Int       // 本次入账的单位金额
	Raised   *big.Int       // 出资后的累计金额
	Status   Status         // 出资后的项目状态
	Refunds  []RefundResult // 截止触发整体退款时的退款明细
}

// PayoutResult 结算结果
type PayoutResult struct {
	Tax *big.Int // 平台手续费
	Net *big.Int // 受益人净额
}

// StatsResult 项目统计信息
type StatsResult struct {
	Cost        *big.Int  `json:"cost"`
	Raised      *big.Int  `json:"raised"`
	BackerCount int       `json:"backer_count"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Status      Status    `json:"status"`
}

// ProjectParams 创建项目的经济参数，创建后除手续费率和截止时间外不可变
type ProjectParams struct {
	Title       string
	Description string
	ImageURL    string
	Creator     common.Address
	Beneficiary common.Address
	Goal        *big.Int
	Deadline    time.Time
	TaxRateBps  uint32
}

// Project 单个众筹项目，独占自己的资金台账与状态机。
// 托管账户即项目地址本身，所有退款和结算都从该账户划出。
type Project struct {
	mu sync.Mutex

	address     common.Address
	title       string
	description string
	imageURL    string
	creator     common.Address
	beneficiary common.Address
	goal        *big.Int
	deadline    time.Time
	taxRateBps  uint32
	createdAt   time.Time

	raised  *big.Int
	status  Status
	backers map[common.Address]*Backer
	order   []common.Address // 出资人首次出资的插入顺序，退款按此顺序执行

	oracle   PriceOracle
	token    AssetTransfer
	minter   UnitMinter
	quoteCfg QuoteConfig
}

// NewProject 创建项目，初始状态为 open，募集金额为0
func NewProject(address common.Address, params ProjectParams, now time.Time,
	oracle PriceOracle, token AssetTransfer, minter UnitMinter, quoteCfg QuoteConfig) (*Project, error) {
	if params.Title == "" {
		return nil, ErrEmptyTitle
	}
	if params.Creator == (common.Address{}) {
		return nil, ErrInvalidCreator
	}
	if params.Beneficiary == (common.Address{}) {
		return nil, ErrInvalidBeneficiary
	}
	if params.Goal == nil || params.Goal.Sign() <= 0 {
		return nil, ErrInvalidGoal
	}
	if !params.Deadline.After(now) {
		return nil, ErrInvalidDeadline
	}
	if params.TaxRateBps > 100 {
		return nil, ErrInvalidTaxRate
	}

	return &Project{
		address:     address,
		title:       params.Title,
		description: params.Description,
		imageURL:    params.ImageURL,
		creator:     params.Creator,
		beneficiary: params.Beneficiary,
		goal:        new(big.Int).Set(params.Goal),
		deadline:    params.Deadline,
		taxRateBps:  params.TaxRateBps,
		createdAt:   now,
		raised:      new(big.Int),
		status:      StatusOpen,
		backers:     make(map[common.Address]*Backer),
		oracle:      oracle,
		token:       token,
		minter:      minter,
		quoteCfg:    quoteCfg,
	}, nil
}

// Contribute 出资。nativeAmount 与 unitAmount 互斥：
// 原生资产按预言机报价换算成单位金额并1:1铸造到托管账户；
// 单位代币按预授权额度从出资人账户全额拉取。
// 入账后依次评估达标和截止转换，两者同时命中时截止优先生效。
func (p *Project) Contribute(contributor common.Address, nativeAmount, unitAmount *big.Int, now time.Time) (*ContributionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// 零值出资在任何状态下都按校验错误拒绝
	hasNative := nativeAmount != nil && nativeAmount.Sign() > 0
	hasUnit := unitAmount != nil && unitAmount.Sign() > 0
	if hasNative && hasUnit {
		return nil, ErrAmbiguousPayment
	}
	if !hasNative && !hasUnit {
		return nil, ErrInvalidContribution
	}

	if p.status != StatusOpen {
		return nil, fmt.Errorf("%w: 项目状态为 %s，无法出资", ErrState, p.status)
	}

	var credited *big.Int
	if hasNative {
		units, err := p.convertNative(nativeAmount, now)
		if err != nil {
			return nil, err
		}
		if err := p.minter.Mint(p.address, units); err != nil {
			return nil, fmt.Errorf("%w: 铸造单位代币失败: %v", ErrTransferFailed, err)
		}
		credited = units
	} else {
		if p.token.AllowanceOf(contributor, p.address).Cmp(unitAmount) < 0 {
			return nil, fmt.Errorf("%w: 预授权额度不足", ErrTransferFailed)
		}
		if err := p.token.Pull(contributor, p.address, unitAmount); err != nil {
			return nil, fmt.Errorf("%w: 拉取单位代币失败: %v", ErrTransferFailed, err)
		}
		credited = new(big.Int).Set(unitAmount)
	}

	// 记账：首次出资的地址进入有序列表
	b, ok := p.backers[contributor]
	if !ok {
		b = &Backer{Address: contributor, Contribution: new(big.Int)}
		p.backers[contributor] = b
		p.order = append(p.order, contributor)
	}
	if b.Refunded {
		// 已退款的记录重新出资时从零累计
		b.Contribution = new(big.Int)
		b.Refunded = false
	}
	b.Contribution.Add(b.Contribution, credited)
	b.LastActivityTime = now
	p.raised.Add(p.raised, credited)

	// 状态评估：先达标，后截止；截止优先于达标生效
	if p.raised.Cmp(p.goal) >= 0 {
		p.status = StatusApproved
	}

	result := &ContributionResult{
		Credited: new(big.Int).Set(credited),
	}

	if !now.Before(p.deadline) {
		p.status = StatusReverted
		refunds, err := p.refundAllLocked(now)
		result.Refunds = refunds
		result.Raised = new(big.Int).Set(p.raised)
		result.Status = p.status
		if err != nil {
			return result, err
		}
		return result, nil
	}

	result.Raised = new(big.Int).Set(p.raised)
	result.Status = p.status
	return result, nil
}

// convertNative 按当前报价把原生金额换算成单位金额，定点截断向零取整
func (p *Project) convertNative(nativeAmount *big.Int, now time.Time) (*big.Int, error) {
	rate, asOf, err := p.oracle.GetRate()
	if err != nil {
		return nil, fmt.Errorf("%w: 获取预言机报价失败: %v", ErrValidation, err)
	}
	if now.Sub(asOf) > p.quoteCfg.MaxQuoteAge {
		return nil, ErrStaleQuote
	}
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(p.quoteCfg.RateDecimals)), nil)
	units := new(big.Int).Mul(nativeAmount, rate)
	units.Quo(units, divisor)
	if units.Sign() <= 0 {
		return nil, ErrInvalidContribution
	}
	return units, nil
}

// RequestRefund 出资人发起退款，仅在 reverted/deleted 状态下可用。
// 幂等：已退款的记录会被跳过，重复调用不会产生二次退款。
func (p *Project) RequestRefund(now time.Time) ([]RefundResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status != StatusReverted && p.status != StatusDeleted {
		return nil, fmt.Errorf("%w: 项目状态为 %s，无法退款", ErrState, p.status)
	}
	return p.refundAllLocked(now)
}

// refundAllLocked 按插入顺序退还所有未退款的出资。
// 先写退款标记再划转，标记一旦写入绝不回滚，保证同一出资人不会被退款两次；
// 单笔划转失败即中止本轮，已标记未到账的记录由退款补偿任务继续支付。
func (p *Project) refundAllLocked(now time.Time) ([]RefundResult, error) {
	var results []RefundResult
	for _, addr := range p.order {
		b := p.backers[addr]
		if b.Refunded || b.Contribution.Sign() == 0 {
			continue
		}
		amount := new(big.Int).Set(b.Contribution)
		b.Refunded = true
		b.LastActivityTime = now
		p.raised.Sub(p.raised, amount)

		if err := p.token.Send(p.address, addr, amount); err != nil {
			wrapped := fmt.Errorf("%w: 向 %s 退款失败: %v", ErrTransferFailed, addr.Hex(), err)
			results = append(results, RefundResult{Backer: addr, Amount: amount, Err: wrapped})
			return results, wrapped
		}
		results = append(results, RefundResult{Backer: addr, Amount: amount})
	}
	return results, nil
}

// Delete 创建者删除项目，仅限 open 状态，删除后触发整体退款
func (p *Project) Delete(caller common.Address, now time.Time) ([]RefundResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.creator {
		return nil, fmt.Errorf("%w: 只有创建者可以删除项目", ErrUnauthorized)
	}
	if p.status != StatusOpen {
		return nil, fmt.Errorf("%w: 项目状态为 %s，无法删除", ErrState, p.status)
	}
	p.status = StatusDeleted
	return p.refundAllLocked(now)
}

// PayOut 创建者发起结算，仅限 approved 状态。
// tax = floor(raised * taxRateBps / 100) 划给调用方（平台），净额划给受益人；
// 两笔都成功才进入 paidout。净额划转失败时回退手续费，状态保持 approved 可重试。
func (p *Project) PayOut(caller common.Address, now time.Time) (*PayoutResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.creator {
		return nil, fmt.Errorf("%w: 只有创建者可以发起结算", ErrUnauthorized)
	}
	if p.status != StatusApproved {
		return nil, fmt.Errorf("%w: 项目状态为 %s，无法结算", ErrState, p.status)
	}

	tax := new(big.Int).Mul(p.raised, big.NewInt(int64(p.taxRateBps)))
	tax.Quo(tax, big.NewInt(100))
	net := new(big.Int).Sub(p.raised, tax)

	if tax.Sign() > 0 {
		if err := p.token.Send(p.address, caller, tax); err != nil {
			return nil, fmt.Errorf("%w: 划转平台手续费失败: %v", ErrTransferFailed, err)
		}
	}
	if err := p.token.Send(p.address, p.beneficiary, net); err != nil {
		// 回退已划出的手续费，保持项目可重试
		if tax.Sign() > 0 {
			if rbErr := p.token.Send(caller, p.address, tax); rbErr != nil {
				return nil, fmt.Errorf("%w: 划转受益人净额失败且手续费回退失败: %v / %v", ErrTransferFailed, err, rbErr)
			}
		}
		return nil, fmt.Errorf("%w: 划转受益人净额失败: %v", ErrTransferFailed, err)
	}

	p.status = StatusPaidOut
	return &PayoutResult{Tax: tax, Net: net}, nil
}

// CheckDeadline 截止检查，open 状态下到期则转为 reverted 并触发整体退款。
// 出资路径与后台巡检共用该转换。返回值表示本次是否发生了状态转换。
func (p *Project) CheckDeadline(now time.Time) ([]RefundResult, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status != StatusOpen || now.Before(p.deadline) {
		return nil, false, nil
	}
	p.status = StatusReverted
	refunds, err := p.refundAllLocked(now)
	return refunds, true, err
}

// UpdateTitle 更新标题，仅创建者，仅 open 状态
func (p *Project) UpdateTitle(caller common.Address, title string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkMetadataMutable(caller); err != nil {
		return err
	}
	if title == "" {
		return ErrEmptyTitle
	}
	p.title = title
	return nil
}

// UpdateDescription 更新描述，仅创建者，仅 open 状态
func (p *Project) UpdateDescription(caller common.Address, description string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkMetadataMutable(caller); err != nil {
		return err
	}
	if description == "" {
		return ErrEmptyDescription
	}
	p.description = description
	return nil
}

// UpdateImageURL 更新图片，仅创建者，仅 open 状态
func (p *Project) UpdateImageURL(caller common.Address, imageURL string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkMetadataMutable(caller); err != nil {
		return err
	}
	if imageURL == "" {
		return ErrEmptyImageURL
	}
	p.imageURL = imageURL
	return nil
}

// UpdateDeadline 更新截止时间，仅创建者，仅 open 状态，必须晚于当前时间
func (p *Project) UpdateDeadline(caller common.Address, deadline, now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkMetadataMutable(caller); err != nil {
		return err
	}
	if !deadline.After(now) {
		return ErrInvalidDeadline
	}
	p.deadline = deadline
	return nil
}

// UpdateTaxRate 更新手续费率，仅创建者，结算前任意状态都可调整
func (p *Project) UpdateTaxRate(caller common.Address, taxRateBps uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if caller != p.creator {
		return fmt.Errorf("%w: 只有创建者可以修改项目", ErrUnauthorized)
	}
	if p.status == StatusPaidOut {
		return fmt.Errorf("%w: 项目已结算，无法修改手续费率", ErrState)
	}
	if taxRateBps > 100 {
		return ErrInvalidTaxRate
	}
	p.taxRateBps = taxRateBps
	return nil
}

// checkMetadataMutable 元数据修改的公共前置检查
func (p *Project) checkMetadataMutable(caller common.Address) error {
	if caller != p.creator {
		return fmt.Errorf("%w: 只有创建者可以修改项目", ErrUnauthorized)
	}
	if p.status != StatusOpen {
		return fmt.Errorf("%w: 项目状态为 %s，无法修改", ErrState, p.status)
	}
	return nil
}

// Stats 项目统计信息
func (p *Project) Stats() StatsResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return StatsResult{
		Cost:        new(big.Int).Set(p.goal),
		Raised:      new(big.Int).Set(p.raised),
		BackerCount: len(p.order),
		CreatedAt:   p.createdAt,
		ExpiresAt:   p.deadline,
		Status:      p.status,
	}
}

// AllBackers 按首次出资顺序返回出资人地址
func (p *Project) AllBackers() []common.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]common.Address, len(p.order))
	copy(out, p.order)
	return out
}

// Backers 按首次出资顺序返回出资人台账快照
func (p *Project) Backers() []Backer {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Backer, 0, len(p.order))
	for _, addr := range p.order {
		b := p.backers[addr]
		out = append(out, Backer{
			Address:          b.Address,
			Contribution:     new(big.Int).Set(b.Contribution),
			LastActivityTime: b.LastActivityTime,
			Refunded:         b.Refunded,
		})
	}
	return out
}

// Address 项目地址
func (p *Project) Address() common.Address { return p.address }

// Creator 创建者地址
func (p *Project) Creator() common.Address { return p.creator }

// Beneficiary 受益人地址
func (p *Project) Beneficiary() common.Address { return p.beneficiary }

// Title 项目标题
func (p *Project) Title() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title
}

// Description 项目描述
func (p *Project) Description() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.description
}

// ImageURL 项目图片
func (p *Project) ImageURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.imageURL
}

// Goal 目标金额
func (p *Project) Goal() *big.Int { return new(big.Int).Set(p.goal) }

// Deadline 截止时间
func (p *Project) Deadline() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deadline
}

// TaxRateBps 手续费率（基点）
func (p *Project) TaxRateBps() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.taxRateBps
}

// Raised 当前募集金额
func (p *Project) Raised() *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.raised)
}

// Status 当前状态
func (p *Project) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// CreatedAt 创建时间
func (p *Project) CreatedAt() time.Time { return p.createdAt }
