package main

import (
	"math/big"
	"time"

	"github.com/blues/ces/internal/config"
	"github.com/blues/ces/internal/database"
	"github.com/blues/ces/internal/escrow"
	"github.com/blues/ces/internal/logger"
	"github.com/blues/ces/internal/oracle"
	"github.com/blues/ces/internal/router"
	"github.com/blues/ces/internal/task"
	"github.com/blues/ces/internal/token"
	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	level := logger.ParseLogLevel(cfg.Log.Level)
	if cfg.Log.Output == "file" {
		l, err := logger.NewWithFileRotation(level, cfg.Log.File)
		if err != nil {
			logger.Fatal("Failed to initialize file logger: %v", err)
		}
		logger.SetDefaultLogger(l)
	} else {
		l, err := logger.New(level)
		if err != nil {
			logger.Fatal("Failed to initialize logger: %v", err)
		}
		logger.SetDefaultLogger(l)
	}
	defer logger.Sync()

	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// 初始化价格源
	var priceOracle escrow.PriceOracle
	if cfg.Oracle.UseFeed {
		priceOracle, err = oracle.NewFeedOracle(cfg.Oracle.RpcUrl, cfg.Oracle.FeedAddress)
		if err != nil {
			logger.Fatal("Failed to initialize price feed: %v", err)
		}
	} else {
		rate, ok := new(big.Int).SetString(cfg.Oracle.FixedRate, 10)
		if !ok || rate.Sign() <= 0 {
			logger.Fatal("Invalid fixed rate: %s", cfg.Oracle.FixedRate)
		}
		priceOracle = oracle.NewFixedOracle(rate)
	}

	// 初始化资产账本
	var transfer escrow.AssetTransfer
	var minter escrow.UnitMinter
	switch cfg.Token.Mode {
	case "native":
		ledger := token.NewNativeLedger()
		transfer, minter = ledger, ledger
	default:
		unit := token.NewUnitToken()
		transfer, minter = unit, unit
	}

	// 初始化注册表
	registry := escrow.NewRegistry(priceOracle, transfer, minter, escrow.QuoteConfig{
		RateDecimals: cfg.Oracle.RateDecimals,
		MaxQuoteAge:  time.Duration(cfg.Oracle.MaxQuoteAge) * time.Second,
	})

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(db, registry, cfg)

	// 启动定时任务
	manager := task.Start(db, registry, transfer, cfg)
	defer manager.Stop()

	// 启动服务器
	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}
