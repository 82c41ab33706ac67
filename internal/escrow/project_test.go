package escrow_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/blues/ces/internal/escrow"
	"github.com/blues/ces/internal/oracle"
	"github.com/blues/ces/internal/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	creator     = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	beneficiary = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	alice       = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob         = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	carol       = common.HexToAddress("0x00000000000000000000000000000000000000a3")
)

// fixture 汇率1:1（1e8定点、8位小数）的测试环境
type fixture struct {
	registry *escrow.Registry
	token    *token.UnitToken
	oracle   *oracle.FixedOracle
	now      time.Time
}

func newFixture() *fixture {
	f := &fixture{
		token:  token.NewUnitToken(),
		oracle: oracle.NewFixedOracle(big.NewInt(100000000)),
		now:    time.Unix(1700000000, 0),
	}
	f.oracle.Now = func() time.Time { return f.now }
	f.registry = escrow.NewRegistry(f.oracle, f.token, f.token, escrow.QuoteConfig{
		RateDecimals: 8,
		MaxQuoteAge:  time.Hour,
	})
	f.registry.Now = func() time.Time { return f.now }
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) createProject(t *testing.T, goal int64, ttl time.Duration, taxRateBps uint32) *escrow.Project {
	t.Helper()
	p, err := f.registry.CreateProject(escrow.ProjectParams{
		Title:       "测试项目",
		Description: "测试描述",
		ImageURL:    "https://example.com/cover.png",
		Creator:     creator,
		Beneficiary: beneficiary,
		Goal:        big.NewInt(goal),
		Deadline:    f.now.Add(ttl),
		TaxRateBps:  taxRateBps,
	})
	require.NoError(t, err)
	return p
}

// fundUnits 给出资人铸造单位代币并授权给项目托管账户
func (f *fixture) fundUnits(t *testing.T, backer, project common.Address, amount int64) {
	t.Helper()
	require.NoError(t, f.token.Mint(backer, big.NewInt(amount)))
	f.token.Approve(backer, project, big.NewInt(amount))
}

func (f *fixture) contributeUnits(t *testing.T, project *escrow.Project, backer common.Address, amount int64) *escrow.ContributionResult {
	t.Helper()
	f.fundUnits(t, backer, project.Address(), amount)
	result, err := f.registry.Contribute(project.Address(), backer, nil, big.NewInt(amount))
	require.NoError(t, err)
	return result
}

func TestCreateProjectValidation(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name    string
		params  escrow.ProjectParams
		wantErr error
	}{
		{
			name: "empty title",
			params: escrow.ProjectParams{
				Creator: creator, Beneficiary: beneficiary,
				Goal: big.NewInt(1000), Deadline: f.now.Add(time.Hour),
			},
			wantErr: escrow.ErrEmptyTitle,
		},
		{
			name: "zero goal",
			params: escrow.ProjectParams{
				Title: "x", Creator: creator, Beneficiary: beneficiary,
				Goal: big.NewInt(0), Deadline: f.now.Add(time.Hour),
			},
			wantErr: escrow.ErrInvalidGoal,
		},
		{
			name: "deadline not in future",
			params: escrow.ProjectParams{
				Title: "x", Creator: creator, Beneficiary: beneficiary,
				Goal: big.NewInt(1000), Deadline: f.now,
			},
			wantErr: escrow.ErrInvalidDeadline,
		},
		{
			name: "tax rate over 100",
			params: escrow.ProjectParams{
				Title: "x", Creator: creator, Beneficiary: beneficiary,
				Goal: big.NewInt(1000), Deadline: f.now.Add(time.Hour), TaxRateBps: 101,
			},
			wantErr: escrow.ErrInvalidTaxRate,
		},
		{
			name: "zero beneficiary",
			params: escrow.ProjectParams{
				Title: "x", Creator: creator,
				Goal: big.NewInt(1000), Deadline: f.now.Add(time.Hour),
			},
			wantErr: escrow.ErrInvalidBeneficiary,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.registry.CreateProject(tt.params)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, escrow.ErrValidation)
		})
	}
}

func TestContributeAccumulatesAndConserves(t *testing.T) {
	f := newFixture()
	p := f.createProject(t, 10000, time.Hour, 10)

	f.contributeUnits(t, p, alice, 300)
	f.contributeUnits(t, p, bob, 200)
	f.contributeUnits(t, p, alice, 100)

	// raised 等于未退款出资之和，托管账户余额与之一致
	assert.Equal(t, big.NewInt(600), p.Raised())
	assert.Equal(t, big.NewInt(600), f.token.BalanceOf(p.Address()))
	assert.Equal(t, escrow.StatusOpen, p.Status())

	// 同一出资人只在有序列表中出现一次
	backers := p.AllBackers()
	require.Equal(t, []common.Address{alice, bob}, backers)

	ledger := p.Backers()
	assert.Equal(t, big.NewInt(400), ledger[0].Contribution)
	assert.Equal(t, big.NewInt(200), ledger[1].Contribution)
}

func TestContributeReachesGoal(t *testing.T) {
	f := newFixture()
	p := f.createProject(t, 1000, time.Hour, 10)

	result := f.contributeUnits(t, p, alice, 400)
	assert.Equal(t, escrow.StatusOpen, result.Status)

	// 恰好达标即转为 approved
	result = f.contributeUnits(t, p, bob, 600)
	assert.Equal(t, big.NewInt(1000), result.Raised)
	assert.Equal(t, escrow.StatusApproved, result.Status)

	// approved 后不能再出资
	f.fundUnits(t, carol, p.Address(), 100)
	_, err := f.registry.Contribute(p.Address(), carol, nil, big.NewInt(100))
	assert.ErrorIs(t, err, escrow.ErrState)
}

func TestContributeZeroAlwaysValidationError(t *testing.T) {
	f := newFixture()
	p := f.createProject(t, 1000, time.Hour, 10)

	// open 状态
	_, err := f.registry.Contribute(p.Address(), alice, nil, nil)
	assert.ErrorIs(t, err, escrow.ErrValidation)
	_, err = f.registry.Contribute(p.Address(), alice, big.NewInt(0), big.NewInt(0))
	assert.ErrorIs(t, err, escrow.ErrValidation)

	// 终态下零值出资仍是校验错误，而不是状态错误
	f.contributeUnits(t, p, alice, 1000)
	_, err = f.registry.PayOut(p.Address(), creator)
	require.NoError(t, err)
	_, err = f.registry.Contribute(p.Address(), bob, nil, nil)
	assert.ErrorIs(t, err, escrow.ErrValidation)
	assert.NotErrorIs(t, err, escrow.ErrState)
}

func TestContributeAmbiguousPayment(t *testing.T) {
	f := newFixture()
	p := f.createProject(t, 1000, time.Hour, 10)

	_, err := f.registry.Contribute(p.Address(), alice, big.NewInt(100), big.NewInt(100))
	assert.ErrorIs(t, err, escrow.ErrAmbiguousPayment)
}

func TestContributeNativeConversion(t *testing.T) {
	f := newFixture()
	// 汇率1.5：150000000 / 1e8
	f.oracle.SetRate(big.NewInt(150000000))
	p := f.createProject(t, 1000, time.Hour, 10)

	// 3 * 1.5 = 4.5，向零截断为4，并1:1铸造到托管账户
	result, err := f.registry.Contribute(p.Address(), alice, big.NewInt(3), nil)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(4), result.Credited)
	assert.Equal(t, big.NewInt(4), f.token.BalanceOf(p.Address()))

	// 换算结果为零按无效出资拒绝
	f.oracle.SetRate(big.NewInt(1))
	_, err = f.registry.Contribute(p.Address(), bob, big.NewInt(5), nil)
	assert.ErrorIs(t, err, escrow.ErrInvalidContribution)
}

func TestContributeStaleQuote(t *testing.T) {
	f := newFixture()
	p := f.createProject(t, 1000, time.Hour, 10)

	// 报价时间落后两小时，超出一小时的有效期
	f.oracle.SetAsOf(f.now.Add(-2 * time.Hour))
	_, err := f.registry.Contribute(p.Address(), alice, big.NewInt(100), nil)
	assert.ErrorIs(t, err, escrow.ErrStaleQuote)
	assert.Equal(t, big.NewInt(0), p.Raised())
}

func TestContributeWithoutAllowanceFailsAtomically(t *testing.T) {
	f := newFixture()
	p := f.createProject(t, 1000, time.Hour, 10)

	// 有余额但没有授权
	require.NoError(t, f.token.Mint(alice, big.NewInt(500)))
	_, err := f.registry.Contribute(p.Address(), alice, nil, big.NewInt(500))
	assert.ErrorIs(t, err, escrow.ErrTransferFailed)

	// 失败的出资不产生任何可见状态变更
	assert.Equal(t, big.NewInt(0), p.Raised())
	assert.Empty(t, p.AllBackers())
	assert.Equal(t, big.NewInt(500), f.token.BalanceOf(alice))
}

func TestContributeDeadlinePrecedence(t *testing.T) {
	f := newFixture()
	p := f.createProject(t, 1000, 100*time.Second, 10)

	f.contributeUnits(t, p, alice, 400)

	// 同一笔出资既达标又越过截止时间：截止优先，整体退款
	f.advance(150 * time.Second)
	f.fundUnits(t, bob, p.Address(), 600)
	result, err := f.registry.Contribute(p.Address(), bob, nil, big.NewInt(600))
	require.NoError(t, err)
	assert.Equal(t, escrow.StatusReverted, result.Status)
	assert.Len(t, result.Refunds, 2)

	// 两人全额退回，募集额归零
	assert.Equal(t, big.NewInt(0), p.Raised())
	assert.Equal(t, big.NewInt(400), f.token.BalanceOf(alice))
	assert.Equal(t, big.NewInt(600), f.token.BalanceOf(bob))
	assert.Equal(t, big.NewInt(0), f.token.BalanceOf(p.Address()))
}

func TestContributePastDeadlineWithoutGoal(t *testing.T) {
	f := newFixture()
	p := f.createProject(t, 1000, 100*time.Second, 10)

	f.advance(150 * time.Second)
	f.fundUnits(t, alice, p.Address(), 500)
	result, err := f.registry.Contribute(p.Address(), alice, nil, big.NewInt(500))
	require.NoError(t, err)

	assert.Equal(t, escrow.StatusReverted, result.Status)
	assert.Equal(t, big.NewInt(0), result.Raised)
	assert.Equal(t, big.NewInt(500), f.token.BalanceOf(alice))
}

func TestRequestRefundIdempotent(t *testing.T) {
	f := newFixture()
	p := f.createProject(t, 10000, time.Hour, 10)

	f.contributeUnits(t, p, alice, 300)
	f.contributeUnits(t, p, bob, 200)

	_, err := f.registry.Delete(p.Address(), creator)
	require.NoError(t, err)
	assert.Equal(t, escrow.StatusDeleted, p.Status())

	// 删除时已整体退款，重复退款不再支付任何人
	results, err := f.registry.RequestRefund(p.Address())
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = f.registry.RequestRefund(p.Address())
	require.NoError(t, err)
	assert.Empty(t, results)

	// 每人只收到一次退款
	assert.Equal(t, big.NewInt(300), f.token.BalanceOf(alice))
	assert.Equal(t, big.NewInt(200), f.token.BalanceOf(bob))
	assert.Equal(t, big.NewInt(0), f.token.BalanceOf(p.Address()))
}

func TestRequestRefundRequiresTerminalStatus(t *testing.T) {
	f := newFixture()
	p := f.createProject(t, 1000, time.Hour, 10)

	_, err := f.registry.RequestRefund(p.Address())
	assert.ErrorIs(t, err, escrow.ErrState)

	f.contributeUnits(t, p, alice, 1000)
	_, err = f.registry.RequestRefund(p.Address())
	assert.ErrorIs(t, err, escrow.ErrState)
}

// failingTransfer 对指定收款人划转失败的账本
type failingTransfer struct {
	*token.UnitToken
	failTo map[common.Address]bool
}

func (ft *failingTransfer) Send(from, to common.Address, amount *big.Int) error {
	if ft.failTo[to] {
		return assert.AnError
	}
	return ft.UnitToken.Send(from, to, amount)
}

func TestRefundAbortsOnFirstFailure(t *testing.T) {
	unit := token.NewUnitToken()
	ft := &failingTransfer{UnitToken: unit, failTo: map[common.Address]bool{bob: true}}
	fixedOracle := oracle.NewFixedOracle(big.NewInt(100000000))
	now := time.Unix(1700000000, 0)
	fixedOracle.Now = func() time.Time { return now }

	registry := escrow.NewRegistry(fixedOracle, ft, unit, escrow.QuoteConfig{RateDecimals: 8, MaxQuoteAge: time.Hour})
	registry.Now = func() time.Time { return now }

	p, err := registry.CreateProject(escrow.ProjectParams{
		Title: "退款批次", Creator: creator, Beneficiary: beneficiary,
		Goal: big.NewInt(10000), Deadline: now.Add(time.Hour),
	})
	require.NoError(t, err)

	for i, backer := range []common.Address{alice, bob, carol} {
		amount := big.NewInt(int64(100 * (i + 1)))
		require.NoError(t, unit.Mint(backer, amount))
		unit.Approve(backer, p.Address(), amount)
		_, err := registry.Contribute(p.Address(), backer, nil, amount)
		require.NoError(t, err)
	}

	// bob 的退款划转失败，批次中止：alice 已到账，carol 未处理
	results, err := registry.Delete(p.Address(), creator)
	require.ErrorIs(t, err, escrow.ErrTransferFailed)
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)

	assert.Equal(t, big.NewInt(100), unit.BalanceOf(alice))
	assert.Equal(t, big.NewInt(0), unit.BalanceOf(bob))
	assert.Equal(t, big.NewInt(0), unit.BalanceOf(carol))

	ledger := p.Backers()
	assert.True(t, ledger[0].Refunded)
	// 标记先于划转写入且绝不回滚：bob 已标记但未到账，等待补偿
	assert.True(t, ledger[1].Refunded)
	assert.False(t, ledger[2].Refunded)

	// 故障排除后重试：carol 到账，alice 和 bob 不会被再次支付
	ft.failTo = map[common.Address]bool{}
	results, err = registry.RequestRefund(p.Address())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, carol, results[0].Backer)

	assert.Equal(t, big.NewInt(100), unit.BalanceOf(alice))
	assert.Equal(t, big.NewInt(0), unit.BalanceOf(bob))
	assert.Equal(t, big.NewInt(300), unit.BalanceOf(carol))
}

func TestPayOut(t *testing.T) {
	f := newFixture()
	p := f.createProject(t, 1000, 100*time.Second, 10)

	// §8场景：T+10 出资400，T+20 出资600，T+30 结算
	f.advance(10 * time.Second)
	result := f.contributeUnits(t, p, alice, 400)
	assert.Equal(t, big.NewInt(400), result.Raised)
	assert.Equal(t, escrow.StatusOpen, result.Status)

	f.advance(10 * time.Second)
	result = f.contributeUnits(t, p, bob, 600)
	assert.Equal(t, big.NewInt(1000), result.Raised)
	assert.Equal(t, escrow.StatusApproved, result.Status)

	f.advance(10 * time.Second)
	payout, err := f.registry.PayOut(p.Address(), creator)
	require.NoError(t, err)

	// tax + net == raised 精确守恒
	assert.Equal(t, big.NewInt(100), payout.Tax)
	assert.Equal(t, big.NewInt(900), payout.Net)
	assert.Equal(t, escrow.StatusPaidOut, p.Status())
	assert.Equal(t, big.NewInt(100), f.token.BalanceOf(creator))
	assert.Equal(t, big.NewInt(900), f.token.BalanceOf(beneficiary))
	assert.Equal(t, big.NewInt(0), f.token.BalanceOf(p.Address()))

	// paidout 为吸收态
	_, err = f.registry.PayOut(p.Address(), creator)
	assert.ErrorIs(t, err, escrow.ErrState)
	f.fundUnits(t, carol, p.Address(), 100)
	_, err = f.registry.Contribute(p.Address(), carol, nil, big.NewInt(100))
	assert.ErrorIs(t, err, escrow.ErrState)
	_, err = f.registry.RequestRefund(p.Address())
	assert.ErrorIs(t, err, escrow.ErrState)
}

func TestPayOutPreconditions(t *testing.T) {
	f := newFixture()
	p := f.createProject(t, 1000, time.Hour, 10)

	// 未达标不能结算
	_, err := f.registry.PayOut(p.Address(), creator)
	assert.ErrorIs(t, err, escrow.ErrState)

	// 非创建者不能结算
	f.contributeUnits(t, p, alice, 1000)
	_, err = f.registry.PayOut(p.Address(), alice)
	assert.ErrorIs(t, err, escrow.ErrUnauthorized)
}

func TestPayOutTransferFailureRetryable(t *testing.T) {
	unit := token.NewUnitToken()
	ft := &failingTransfer{UnitToken: unit, failTo: map[common.Address]bool{beneficiary: true}}
	fixedOracle := oracle.NewFixedOracle(big.NewInt(100000000))
	now := time.Unix(1700000000, 0)
	fixedOracle.Now = func() time.Time { return now }

	registry := escrow.NewRegistry(fixedOracle, ft, unit, escrow.QuoteConfig{RateDecimals: 8, MaxQuoteAge: time.Hour})
	registry.Now = func() time.Time { return now }

	p, err := registry.CreateProject(escrow.ProjectParams{
		Title: "结算重试", Creator: creator, Beneficiary: beneficiary,
		Goal: big.NewInt(1000), Deadline: now.Add(time.Hour), TaxRateBps: 10,
	})
	require.NoError(t, err)

	require.NoError(t, unit.Mint(alice, big.NewInt(1000)))
	unit.Approve(alice, p.Address(), big.NewInt(1000))
	_, err = registry.Contribute(p.Address(), alice, nil, big.NewInt(1000))
	require.NoError(t, err)

	// 净额划转失败：手续费回退，状态保持 approved
	_, err = registry.PayOut(p.Address(), creator)
	require.ErrorIs(t, err, escrow.ErrTransferFailed)
	assert.Equal(t, escrow.StatusApproved, p.Status())
	assert.Equal(t, big.NewInt(1000), unit.BalanceOf(p.Address()))
	assert.Equal(t, big.NewInt(0), unit.BalanceOf(creator))

	// 故障排除后重试成功
	ft.failTo = map[common.Address]bool{}
	payout, err := registry.PayOut(p.Address(), creator)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), payout.Tax)
	assert.Equal(t, big.NewInt(900), payout.Net)
	assert.Equal(t, escrow.StatusPaidOut, p.Status())
}

func TestDeleteRequiresCreatorAndOpen(t *testing.T) {
	f := newFixture()
	p := f.createProject(t, 1000, time.Hour, 10)

	_, err := f.registry.Delete(p.Address(), alice)
	assert.ErrorIs(t, err, escrow.ErrUnauthorized)

	f.contributeUnits(t, p, alice, 1000)
	_, err = f.registry.Delete(p.Address(), creator)
	assert.ErrorIs(t, err, escrow.ErrState)
}

func TestCheckDeadlineSweep(t *testing.T) {
	f := newFixture()
	p := f.createProject(t, 1000, 100*time.Second, 10)
	f.contributeUnits(t, p, alice, 400)

	// 未到期不动作
	refunds, fired, err := p.CheckDeadline(f.now)
	require.NoError(t, err)
	assert.False(t, fired)
	assert.Empty(t, refunds)

	// 到期后巡检触发与出资路径相同的转换
	f.advance(150 * time.Second)
	refunds, fired, err = p.CheckDeadline(f.now)
	require.NoError(t, err)
	assert.True(t, fired)
	require.Len(t, refunds, 1)
	assert.Equal(t, escrow.StatusReverted, p.Status())
	assert.Equal(t, big.NewInt(400), f.token.BalanceOf(alice))

	// 巡检也是幂等的
	refunds, fired, err = p.CheckDeadline(f.now)
	require.NoError(t, err)
	assert.False(t, fired)
	assert.Empty(t, refunds)
}

func TestMetadataUpdates(t *testing.T) {
	f := newFixture()
	p := f.createProject(t, 1000, time.Hour, 10)

	// 非创建者被拒绝
	assert.ErrorIs(t, p.UpdateTitle(alice, "新标题"), escrow.ErrUnauthorized)

	// 空值按字段返回专属错误
	assert.ErrorIs(t, p.UpdateTitle(creator, ""), escrow.ErrEmptyTitle)
	assert.ErrorIs(t, p.UpdateDescription(creator, ""), escrow.ErrEmptyDescription)
	assert.ErrorIs(t, p.UpdateImageURL(creator, ""), escrow.ErrEmptyImageURL)

	require.NoError(t, p.UpdateTitle(creator, "新标题"))
	require.NoError(t, p.UpdateDescription(creator, "新描述"))
	require.NoError(t, p.UpdateImageURL(creator, "https://example.com/new.png"))
	assert.Equal(t, "新标题", p.Title())

	// 截止时间必须在未来
	assert.ErrorIs(t, p.UpdateDeadline(creator, f.now.Add(-time.Hour), f.now), escrow.ErrInvalidDeadline)
	require.NoError(t, p.UpdateDeadline(creator, f.now.Add(2*time.Hour), f.now))
	assert.Equal(t, f.now.Add(2*time.Hour), p.Deadline())

	// approved 后普通元数据冻结，手续费率仍可调整
	f.contributeUnits(t, p, alice, 1000)
	assert.ErrorIs(t, p.UpdateTitle(creator, "再改一次"), escrow.ErrState)
	assert.ErrorIs(t, p.UpdateTaxRate(creator, 101), escrow.ErrInvalidTaxRate)
	require.NoError(t, p.UpdateTaxRate(creator, 20))

	// 结算后手续费率也冻结
	payout, err := f.registry.PayOut(p.Address(), creator)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(200), payout.Tax)
	assert.Equal(t, big.NewInt(800), payout.Net)
	assert.ErrorIs(t, p.UpdateTaxRate(creator, 5), escrow.ErrState)
}

func TestZeroTaxPayout(t *testing.T) {
	f := newFixture()
	p := f.createProject(t, 1000, time.Hour, 0)

	f.contributeUnits(t, p, alice, 1000)
	payout, err := f.registry.PayOut(p.Address(), creator)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0), payout.Tax)
	assert.Equal(t, big.NewInt(1000), payout.Net)
	assert.Equal(t, big.NewInt(1000), f.token.BalanceOf(beneficiary))
}
