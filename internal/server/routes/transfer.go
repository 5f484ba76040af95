package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/zakimal/zero-chain-ui/internal/handler"
)

func RegisterTransferRoutes(rg *gin.RouterGroup, h *handler.TransferHandler) {
	transferGroup := rg.Group("/transfers")
	{
		transferGroup.POST("", h.Create)
		transferGroup.POST("/raw", h.CreateRaw)
		transferGroup.GET("", h.List)
		transferGroup.GET("/:id", h.Get)
		transferGroup.GET("/:id/stream", h.Stream)
	}
}

// RegisterDebugRoutes 只在非 production 环境注册
func RegisterDebugRoutes(rg *gin.RouterGroup, h *handler.DebugHandler) {
	debugGroup := rg.Group("/debug")
	{
		debugGroup.GET("/transfers", h.Transfers)
		debugGroup.POST("/sweep", h.Sweep)
	}
}
