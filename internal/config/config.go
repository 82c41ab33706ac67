package config

import (
	"github.com/blues/ces/internal/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	Token    TokenConfig    `mapstructure:"token"`
	Task     TaskConfig     `mapstructure:"task"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// OracleConfig 价格源配置
type OracleConfig struct {
	UseFeed      bool   `mapstructure:"use_feed"`      // 是否使用链上聚合器
	RpcUrl       string `mapstructure:"rpc_url"`       // RPC节点URL
	FeedAddress  string `mapstructure:"feed_address"`  // 聚合器合约地址
	FixedRate    string `mapstructure:"fixed_rate"`    // 固定汇率（十进制字符串），use_feed为false时使用
	RateDecimals int    `mapstructure:"rate_decimals"` // 汇率定点小数位
	MaxQuoteAge  int    `mapstructure:"max_quote_age"` // 报价最大有效期（秒）
}

// TokenConfig 资产账本配置
type TokenConfig struct {
	Mode string `mapstructure:"mode"` // unit, native
}

type TaskConfig struct {
	Interval int `mapstructure:"interval"` // 秒
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, stderr, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/ces")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "crowdfunding")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("oracle.use_feed", false)
	viper.SetDefault("oracle.fixed_rate", "100000000")
	viper.SetDefault("oracle.rate_decimals", 8)
	viper.SetDefault("oracle.max_quote_age", 3600)
	viper.SetDefault("token.mode", "unit")
	viper.SetDefault("task.interval", 60)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.file", "logs/app.log")

	// 自动读取环境变量
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}

	return &config
}
