package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/zakimal/zero-chain-ui/pkg/logger"
	"github.com/zakimal/zero-chain-ui/pkg/utils/lock"
)

const (
	// DefaultSweepSpec 默认每分钟清理一次
	DefaultSweepSpec = "@every 1m"
	sweepLockKey     = "cron:lock:sweep_transfers"
	sweepLockTTL     = 30 * time.Second
)

type CronService struct {
	cron      *cron.Cron
	transfers *TransferService
	spec      string
	locker    lock.DistributedLock
}

// NewCronService locker 为 nil 时使用进程内的锁
func NewCronService(transfers *TransferService, spec string, locker lock.DistributedLock) *CronService {
	if spec == "" {
		spec = DefaultSweepSpec
	}
	if locker == nil {
		locker = lock.NewLocalLock()
	}
	return &CronService{
		cron:      cron.New(),
		transfers: transfers,
		spec:      spec,
		locker:    locker,
	}
}

// Start 注册任务并启动调度，spec 非法时返回错误
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.SweepTransfers); err != nil {
		return err
	}
	s.cron.Start()
	logger.Info("Cron Service started", zap.String("sweep_spec", s.spec))
	return nil
}

// Stop 等待正在运行的任务结束
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	logger.Info("Cron Service stopped")
}

// SweepTransfers 删除超过保留时间的终态转账记录。
// 其它实例持有锁时跳过本轮。
func (s *CronService) SweepTransfers() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepLockTTL)
	defer cancel()

	locked, err := s.locker.Acquire(ctx, sweepLockKey, sweepLockTTL)
	if err != nil || !locked {
		logger.Debug("SweepTransfers: 获取锁失败或已有实例在运行", zap.Error(err))
		return
	}
	defer func() { _ = s.locker.Release(context.Background(), sweepLockKey) }()

	n, err := s.transfers.Sweep(ctx)
	if err != nil {
		logger.Warn("清理转账记录失败", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Info("已清理过期转账记录", zap.Int64("deleted", n))
	}
}
