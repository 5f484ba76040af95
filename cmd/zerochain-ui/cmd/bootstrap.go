package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/term"
	"gorm.io/gorm"

	"github.com/zakimal/zero-chain-ui/internal/addressbook"
	"github.com/zakimal/zero-chain-ui/internal/callbuilder"
	"github.com/zakimal/zero-chain-ui/internal/chain"
	"github.com/zakimal/zero-chain-ui/internal/chain/simnet"
	"github.com/zakimal/zero-chain-ui/internal/chain/wsrpc"
	"github.com/zakimal/zero-chain-ui/internal/codec"
	"github.com/zakimal/zero-chain-ui/internal/confidential"
	"github.com/zakimal/zero-chain-ui/internal/model"
	"github.com/zakimal/zero-chain-ui/internal/repository"
	"github.com/zakimal/zero-chain-ui/internal/secretstore"
	"github.com/zakimal/zero-chain-ui/internal/service"
	"github.com/zakimal/zero-chain-ui/internal/service/mq"
	"github.com/zakimal/zero-chain-ui/internal/units"
	"github.com/zakimal/zero-chain-ui/pkg/cache"
	"github.com/zakimal/zero-chain-ui/pkg/config"
	"github.com/zakimal/zero-chain-ui/pkg/database"
	"github.com/zakimal/zero-chain-ui/pkg/keystore"
	"github.com/zakimal/zero-chain-ui/pkg/logger"
	"github.com/zakimal/zero-chain-ui/pkg/utils/lock"
)

const (
	dialTimeout    = 10 * time.Second
	redisBookKey   = "zerochain:addressbook"
	redisCacheName = "zerochain:"
)

// runtime 按需创建各个组件，close 按创建的逆序释放
type runtime struct {
	cfg     config.Config
	closers []func()

	client chain.Client
	node   *simnet.Node // 使用进程内模拟节点时不为 nil
	store  *secretstore.Store
	engine *confidential.Engine
	rdb    *redis.Client
	rdbErr error
	params *service.Params
}

func newRuntime() *runtime {
	return &runtime{cfg: config.Global}
}

func (r *runtime) onClose(fn func()) {
	r.closers = append(r.closers, fn)
}

func (r *runtime) close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

func (r *runtime) units() units.Units {
	return units.New(r.cfg.Chain.AmountDecimals)
}

func (r *runtime) registry() *codec.Registry {
	if r.node != nil {
		return r.node.Registry()
	}
	return codec.Default()
}

// zkParams 证明参数在后台读取，CallBuilder 等它就绪
func (r *runtime) zkParams() *service.Params {
	if r.params == nil {
		r.params = service.LoadParams(r.cfg.Crypto.ProvingKeyPath, r.cfg.Crypto.VerifyingKeyPath)
	}
	return r.params
}

// chain 配置了 rpc_url 时连接远程节点，否则启动进程内的模拟节点
func (r *runtime) chain(ctx context.Context) (chain.Client, error) {
	if r.client != nil {
		return r.client, nil
	}
	if url := r.cfg.Chain.RpcUrl; url != "" {
		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()
		client, err := wsrpc.Dial(dialCtx, url, codec.Default())
		if err != nil {
			return nil, err
		}
		logger.Info("已连接节点", zap.String("url", url))
		r.client = client
		r.onClose(func() { _ = client.Close() })
		return client, nil
	}

	node, err := r.simnet()
	if err != nil {
		return nil, err
	}
	logger.Warn("⚠️  未配置 chain.rpc_url，使用进程内模拟节点 (重启后链上状态丢失)")
	r.client = node
	return node, nil
}

func (r *runtime) simnet() (*simnet.Node, error) {
	if r.node != nil {
		return r.node, nil
	}
	vk := service.DevVerifyingKey()
	if path := r.cfg.Crypto.VerifyingKeyPath; path != "" {
		var err error
		if vk, err = service.VerifyingKeyFromFile(path); err != nil {
			return nil, err
		}
	}
	node := simnet.New(simnet.Config{
		BlockTime:    r.cfg.Chain.BlockTime,
		VerifyingKey: vk,
		Peers:        r.cfg.Chain.Peers,
	})
	node.Start()
	r.node = node
	r.onClose(func() { _ = node.Close() })
	return node, nil
}

func (r *runtime) keystoreParams() keystore.Params {
	if r.cfg.Wallet.ScryptLight {
		return keystore.LightParams
	}
	return keystore.StandardParams
}

// secretStore 解锁本地账户仓库。配置里没有密码时从终端读取。
func (r *runtime) secretStore() (*secretstore.Store, error) {
	if r.store != nil {
		return r.store, nil
	}
	password := r.cfg.Wallet.Password
	if password == "" {
		if !term.IsTerminal(int(syscall.Stdin)) {
			return nil, errors.New("未提供钱包密码 (环境变量 WALLET_PASSWORD)")
		}
		fmt.Fprint(os.Stderr, "输入钱包密码: ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("读取密码失败: %w", err)
		}
		password = string(raw)
	}
	store, err := secretstore.Open(r.cfg.Wallet.KeystorePath, password, r.keystoreParams())
	if err != nil {
		return nil, err
	}
	r.store = store
	return store, nil
}

func (r *runtime) crypto() (*confidential.Engine, error) {
	if r.engine != nil {
		return r.engine, nil
	}
	decryptor, err := confidential.NewDecryptor(r.cfg.Crypto.MaxDecryptAmount, r.cfg.Crypto.DecryptCacheSize)
	if err != nil {
		return nil, err
	}
	r.engine = confidential.NewEngine(decryptor)
	return r.engine, nil
}

// redis 只连接一次，失败的结果也会被记住
func (r *runtime) redis(ctx context.Context) (*redis.Client, error) {
	if r.rdb != nil || r.rdbErr != nil {
		return r.rdb, r.rdbErr
	}
	rdb, err := database.ConnectRedis(ctx, database.RedisOptions{
		Addr:     r.cfg.Redis.Addr,
		Password: r.cfg.Redis.Password,
		DB:       r.cfg.Redis.DB,
	})
	if err != nil {
		r.rdbErr = err
		return nil, err
	}
	r.rdb = rdb
	r.onClose(func() { _ = rdb.Close() })
	return rdb, nil
}

func (r *runtime) addressBook(ctx context.Context) (addressbook.Book, error) {
	switch r.cfg.AddressBook.Backend {
	case "", "file":
		return addressbook.OpenFile(r.cfg.AddressBook.Path)
	case "redis":
		rdb, err := r.redis(ctx)
		if err != nil {
			return nil, err
		}
		return addressbook.NewRedisBook(rdb, redisBookKey), nil
	default:
		return nil, fmt.Errorf("未知的地址簿后端: %s", r.cfg.AddressBook.Backend)
	}
}

// cache L1 内存；Redis 可用时加一层 L2
func (r *runtime) cache(ctx context.Context) cache.Cache {
	local := cache.NewMemoryCache(service.DefaultLookupTTL, time.Minute)
	rdb, err := r.redis(ctx)
	if err != nil {
		logger.Warn("Redis 不可用，只使用本地缓存", zap.Error(err))
		return local
	}
	return cache.NewMultiLevelCache(local, cache.NewRedisCache(rdb, redisCacheName))
}

func (r *runtime) repository(ctx context.Context) (repository.TransferRepository, error) {
	if !r.cfg.DB.Enabled {
		return repository.NewMemoryTransferRepository(), nil
	}
	development := r.cfg.App.Env == "development"
	db, err := database.ConnectPostgres(database.PostgresDSN(r.cfg.DB), development)
	if err != nil {
		return nil, err
	}
	r.onClose(func() { closeDB(db) })
	if development {
		logger.Info("开发环境: 自动迁移数据库表结构")
		if err := db.WithContext(ctx).AutoMigrate(model.AllModels()...); err != nil {
			return nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
	}
	return repository.NewGormTransferRepository(db), nil
}

func closeDB(db *gorm.DB) {
	logger.Info("正在关闭数据库连接...")
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (r *runtime) producer(ctx context.Context) (mq.Producer, error) {
	var rdb *redis.Client
	if r.cfg.MQ.Type == "redis" {
		var err error
		if rdb, err = r.redis(ctx); err != nil {
			return nil, err
		}
	}
	p, err := mq.NewProducer(r.cfg.MQ, r.cfg.Kafka, rdb)
	if err != nil {
		return nil, err
	}
	r.onClose(func() { _ = p.Close() })
	return p, nil
}

// sweepLock 多实例共享数据库时用 Redis 锁协调清理任务，否则用进程内锁
func (r *runtime) sweepLock(ctx context.Context) lock.DistributedLock {
	if !r.cfg.DB.Enabled {
		return nil
	}
	rdb, err := r.redis(ctx)
	if err != nil {
		logger.Warn("Redis 不可用，清理任务只在本实例内加锁", zap.Error(err))
		return nil
	}
	return lock.NewRedisLock(rdb)
}

func (r *runtime) builderMode() callbuilder.Mode {
	if r.cfg.Transfer.RepeatOnChange {
		return callbuilder.EverySnapshot
	}
	return callbuilder.OncePerSubmit
}

// services 组装 serve 与 transfer 子命令需要的全部服务
type services struct {
	wallet    *service.WalletService
	book      *service.AddressBookService
	accounts  *service.AccountService
	system    *service.SystemService
	transfers *service.TransferService
}

func (r *runtime) services(ctx context.Context) (*services, error) {
	client, err := r.chain(ctx)
	if err != nil {
		return nil, err
	}
	store, err := r.secretStore()
	if err != nil {
		return nil, err
	}
	engine, err := r.crypto()
	if err != nil {
		return nil, err
	}
	book, err := r.addressBook(ctx)
	if err != nil {
		return nil, err
	}
	repo, err := r.repository(ctx)
	if err != nil {
		return nil, err
	}
	producer, err := r.producer(ctx)
	if err != nil {
		return nil, err
	}

	if r.node != nil && devEndow > 0 {
		for _, acc := range store.Accounts() {
			if err := r.node.Endow(acc.Address, devEndow, devEndow); err != nil {
				return nil, err
			}
			logger.Info("已预置余额", zap.String("account", acc.Name), zap.Uint64("amount", devEndow))
		}
	}

	s := &services{
		wallet:   service.NewWalletService(store),
		book:     service.NewAddressBookService(book),
		accounts: service.NewAccountService(client, store, engine, r.cache(ctx), service.DefaultLookupTTL),
		system:   service.NewSystemService(client),
	}
	s.transfers = service.NewTransferService(service.TransferDeps{
		Client:   client,
		Registry: r.registry(),
		Builder:  callbuilder.New(store, engine, callbuilder.WithMode(r.builderMode())),
		Wallet:   s.wallet,
		Book:     s.book,
		Accounts: s.accounts,
		Params:   r.zkParams(),
		Repo:     repo,
		Producer: producer,
	}, service.TransferOptions{
		ExpectedConfirmations: r.cfg.Chain.ExpectedConfirmations,
		Units:                 r.units(),
		Topic:                 r.cfg.MQ.Topic,
		BuildTimeout:          r.cfg.Transfer.BuildTimeout,
		Retention:             r.cfg.Transfer.Retention,
	})
	r.onClose(s.transfers.Close)
	return s, nil
}
