package oracle

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// 价格聚合器ABI定义（简化版）
const aggregatorABI = `[
	{
		"inputs": [],
		"name": "latestRoundData",
		"outputs": [
			{"name": "roundId", "type": "uint80"},
			{"name": "answer", "type": "int256"},
			{"name": "startedAt", "type": "uint256"},
			{"name": "updatedAt", "type": "uint256"},
			{"name": "answeredInRound", "type": "uint80"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

// FeedOracle 链上价格聚合器价格源
type FeedOracle struct {
	client  *ethclient.Client
	feed    common.Address
	feedABI abi.ABI
}

// NewFeedOracle 连接RPC节点并绑定聚合器合约
func NewFeedOracle(rpcURL string, feedAddr string) (*FeedOracle, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ethereum client: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(aggregatorABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse aggregator ABI: %w", err)
	}

	return &FeedOracle{
		client:  client,
		feed:    common.HexToAddress(feedAddr),
		feedABI: parsedABI,
	}, nil
}

// GetRate 读取聚合器最新一轮报价，asOf 为链上的 updatedAt
func (o *FeedOracle) GetRate() (*big.Int, time.Time, error) {
	data, err := o.feedABI.Pack("latestRoundData")
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to pack latestRoundData call: %w", err)
	}

	raw, err := o.client.CallContract(context.Background(), ethereum.CallMsg{
		To:   &o.feed,
		Data: data,
	}, nil)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to call price feed: %w", err)
	}

	values, err := o.feedABI.Unpack("latestRoundData", raw)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to unpack latestRoundData: %w", err)
	}
	if len(values) < 5 {
		return nil, time.Time{}, fmt.Errorf("unexpected latestRoundData result length: %d", len(values))
	}

	answer, ok := values[1].(*big.Int)
	if !ok || answer.Sign() <= 0 {
		return nil, time.Time{}, fmt.Errorf("invalid feed answer: %v", values[1])
	}
	updatedAt, ok := values[3].(*big.Int)
	if !ok {
		return nil, time.Time{}, fmt.Errorf("invalid feed updatedAt: %v", values[3])
	}

	return answer, time.Unix(updatedAt.Int64(), 0), nil
}
