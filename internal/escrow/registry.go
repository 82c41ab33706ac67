package escrow

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// PlatformStats 平台汇总统计
type PlatformStats struct {
	TotalProjects      int      `json:"total_projects"`
	TotalContributions uint64   `json:"total_contributions"`
	TotalContributors  int      `json:"total_contributors"`
	TotalRaised        *big.Int `json:"total_raised"`
}

// Registry 项目注册表。负责创建项目、按地址索引、转发操作并维护平台统计。
// 项目自身串行化各自的变更，跨项目操作互不影响。
type Registry struct {
	mu       sync.RWMutex
	projects map[common.Address]*Project
	order    []common.Address

	oracle   PriceOracle
	token    AssetTransfer
	minter   UnitMinter
	quoteCfg QuoteConfig

	contributions uint64
	contributors  map[common.Address]struct{}

	// Now 可在测试中替换以控制时间
	Now func() time.Time
}

// NewRegistry 创建注册表
func NewRegistry(oracle PriceOracle, token AssetTransfer, minter UnitMinter, quoteCfg QuoteConfig) *Registry {
	return &Registry{
		projects:     make(map[common.Address]*Project),
		oracle:       oracle,
		token:        token,
		minter:       minter,
		quoteCfg:     quoteCfg,
		contributors: make(map[common.Address]struct{}),
		Now:          time.Now,
	}
}

// CreateProject 创建项目并分配地址
func (r *Registry) CreateProject(params ProjectParams) (*Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	addr := newProjectAddress()
	project, err := NewProject(addr, params, r.Now(), r.oracle, r.token, r.minter, r.quoteCfg)
	if err != nil {
		return nil, err
	}
	r.projects[addr] = project
	r.order = append(r.order, addr)
	return project, nil
}

// newProjectAddress 用随机uuid生成项目地址
func newProjectAddress() common.Address {
	id := uuid.New()
	return common.BytesToAddress(id[:])
}

// Get 按地址查找项目
func (r *Registry) Get(address common.Address) (*Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	project, ok := r.projects[address]
	if !ok {
		return nil, ErrProjectNotFound
	}
	return project, nil
}

// Projects 按创建顺序返回所有项目
func (r *Registry) Projects() []*Project {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Project, 0, len(r.order))
	for _, addr := range r.order {
		out = append(out, r.projects[addr])
	}
	return out
}

// Contribute 向指定项目出资并更新平台统计
func (r *Registry) Contribute(address, contributor common.Address, nativeAmount, unitAmount *big.Int) (*ContributionResult, error) {
	project, err := r.Get(address)
	if err != nil {
		return nil, err
	}
	result, err := project.Contribute(contributor, nativeAmount, unitAmount, r.Now())
	if result != nil && result.Credited != nil {
		r.mu.Lock()
		r.contributions++
		r.contributors[contributor] = struct{}{}
		r.mu.Unlock()
	}
	return result, err
}

// RequestRefund 对指定项目发起退款
func (r *Registry) RequestRefund(address common.Address) ([]RefundResult, error) {
	project, err := r.Get(address)
	if err != nil {
		return nil, err
	}
	return project.RequestRefund(r.Now())
}

// PayOut 对指定项目发起结算
func (r *Registry) PayOut(address, caller common.Address) (*PayoutResult, error) {
	project, err := r.Get(address)
	if err != nil {
		return nil, err
	}
	return project.PayOut(caller, r.Now())
}

// Delete 删除指定项目
func (r *Registry) Delete(address, caller common.Address) ([]RefundResult, error) {
	project, err := r.Get(address)
	if err != nil {
		return nil, err
	}
	return project.Delete(caller, r.Now())
}

// Stats 指定项目的统计信息
func (r *Registry) Stats(address common.Address) (StatsResult, error) {
	project, err := r.Get(address)
	if err != nil {
		return StatsResult{}, err
	}
	return project.Stats(), nil
}

// AllBackers 指定项目的出资人列表
func (r *Registry) AllBackers(address common.Address) ([]common.Address, error) {
	project, err := r.Get(address)
	if err != nil {
		return nil, err
	}
	return project.AllBackers(), nil
}

// PlatformStats 平台汇总统计：项目总数、出资次数、去重出资人数、在途募集总额
func (r *Registry) PlatformStats() PlatformStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	totalRaised := new(big.Int)
	for _, project := range r.projects {
		totalRaised.Add(totalRaised, project.Raised())
	}
	return PlatformStats{
		TotalProjects:      len(r.projects),
		TotalContributions: r.contributions,
		TotalContributors:  len(r.contributors),
		TotalRaised:        totalRaised,
	}
}
