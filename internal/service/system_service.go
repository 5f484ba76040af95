package service

import (
	"context"
	"time"

	"github.com/zakimal/zero-chain-ui/internal/chain"
)

// SystemService 节点与链的基本信息
type SystemService struct {
	client  chain.Client
	timeout time.Duration
}

func NewSystemService(client chain.Client) *SystemService {
	return &SystemService{client: client, timeout: 5 * time.Second}
}

func (s *SystemService) Info(ctx context.Context) (*chain.SystemInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.SystemInfo(ctx)
}
