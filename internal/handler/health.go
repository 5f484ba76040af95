package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/zakimal/zero-chain-ui/internal/handler/response"
)

const (
	ServiceName = "zerochain-ui"
	Version     = "0.1.0"
)

// HealthCheck 进程存活即返回 UP，不检查节点连接 (见 /api/v1/system)
func HealthCheck(c *gin.Context) {
	response.Success(c, gin.H{
		"status":  "UP",
		"version": Version,
		"service": ServiceName,
	})
}
