package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Chain       ChainConfig       `mapstructure:"chain"`
	Wallet      WalletConfig      `mapstructure:"wallet"`
	AddressBook AddressBookConfig `mapstructure:"addressbook"`
	Transfer    TransferConfig    `mapstructure:"transfer"`
	Crypto      CryptoConfig      `mapstructure:"crypto"`
	DB          DBConfig          `mapstructure:"db"`
	Redis       RedisConfig       `mapstructure:"redis"`
	MQ          MQConfig          `mapstructure:"mq"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	HttpPort string `mapstructure:"http_port"`
	LogLevel string `mapstructure:"log_level"` // 为空时按 env 决定
}

type ChainConfig struct {
	RpcUrl                string        `mapstructure:"rpc_url"` // 为空时使用进程内的模拟节点
	ExpectedConfirmations int           `mapstructure:"expected_confirmations"`
	BlockTime             time.Duration `mapstructure:"block_time"`
	AmountDecimals        int32         `mapstructure:"amount_decimals"`
	NodeListen            string        `mapstructure:"node_listen"` // `node` 子命令监听地址
	Peers                 []string      `mapstructure:"peers"`       // 模拟节点广播时报告的 peer
}

type WalletConfig struct {
	KeystorePath string `mapstructure:"keystore_path"`
	Password     string `mapstructure:"password"`     // 通常通过环境变量 WALLET_PASSWORD 传入
	ScryptLight  bool   `mapstructure:"scrypt_light"` // 开发环境使用轻量 scrypt 参数
}

type AddressBookConfig struct {
	Backend string `mapstructure:"backend"` // "file" or "redis"
	Path    string `mapstructure:"path"`
}

type TransferConfig struct {
	RepeatOnChange bool          `mapstructure:"repeat_on_change"` // true: 每个 ready 快照都构建一次
	BuildTimeout   time.Duration `mapstructure:"build_timeout"`    // 等待输入就绪与构造证明的上限
	Retention      time.Duration `mapstructure:"retention"`
	SweepSpec      string        `mapstructure:"sweep_spec"`
}

type CryptoConfig struct {
	MaxDecryptAmount uint64 `mapstructure:"max_decrypt_amount"`
	DecryptCacheSize int    `mapstructure:"decrypt_cache_size"`
	// 为空时使用内置的开发参数
	ProvingKeyPath   string `mapstructure:"proving_key_path"`
	VerifyingKeyPath string `mapstructure:"verifying_key_path"`
}

type DBConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MQConfig struct {
	Type  string `mapstructure:"type"` // "none", "redis" or "kafka"
	Topic string `mapstructure:"topic"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

var Global Config

func Init() {
	if err := Load(viper.GetViper()); err != nil {
		log.Fatalf("Fatal error config file: %s \n", err)
	}
	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

// Load 读取配置文件与环境变量并解码到 Global。测试可以传入独立的 viper 实例。
func Load(v *viper.Viper) error {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// 环境变量设置: chain.rpc_url -> CHAIN_RPC_URL
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		log.Printf("Warning: Config file not found, using defaults and environment variables")
	}

	return v.Unmarshal(&Global)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.http_port", "8080")
	v.SetDefault("app.log_level", "")

	v.SetDefault("chain.rpc_url", "")
	v.SetDefault("chain.expected_confirmations", 3)
	v.SetDefault("chain.block_time", "2s")
	v.SetDefault("chain.amount_decimals", 0)
	v.SetDefault("chain.node_listen", ":9944")
	v.SetDefault("chain.peers", []string{})

	v.SetDefault("wallet.keystore_path", "wallet.json")
	v.SetDefault("wallet.password", "")
	v.SetDefault("wallet.scrypt_light", false)

	v.SetDefault("addressbook.backend", "file")
	v.SetDefault("addressbook.path", "addressbook.json")

	v.SetDefault("transfer.repeat_on_change", false)
	v.SetDefault("transfer.build_timeout", "2m")
	v.SetDefault("transfer.retention", "30m")
	v.SetDefault("transfer.sweep_spec", "@every 1m")

	v.SetDefault("crypto.max_decrypt_amount", uint64(1)<<32)
	v.SetDefault("crypto.decrypt_cache_size", 1024)
	v.SetDefault("crypto.proving_key_path", "")
	v.SetDefault("crypto.verifying_key_path", "")

	v.SetDefault("db.enabled", false)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "zerochain")
	v.SetDefault("db.password", "zerochain")
	v.SetDefault("db.name", "zerochain_ui")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("mq.type", "none")
	v.SetDefault("mq.topic", "zerochain_transfer_status")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
}
