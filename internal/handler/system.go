package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zakimal/zero-chain-ui/internal/handler/response"
	"github.com/zakimal/zero-chain-ui/internal/service"
	"github.com/zakimal/zero-chain-ui/pkg/errno"
	"github.com/zakimal/zero-chain-ui/pkg/logger"
)

type SystemHandler struct {
	svc *service.SystemService
}

func NewSystemHandler(svc *service.SystemService) *SystemHandler {
	return &SystemHandler{svc: svc}
}

// Info 节点名称、版本、链、runtime 与当前高度
// GET /api/v1/system
func (h *SystemHandler) Info(c *gin.Context) {
	info, err := h.svc.Info(c.Request.Context())
	if err != nil {
		logger.Warn("query system info failed", zap.Error(err))
		response.Error(c, errno.ErrChainUnavailable)
		return
	}
	response.Success(c, info)
}
