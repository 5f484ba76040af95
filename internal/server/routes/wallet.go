package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/zakimal/zero-chain-ui/internal/handler"
)

// RegisterWalletRoutes 本地密钥管理
func RegisterWalletRoutes(rg *gin.RouterGroup, h *handler.WalletHandler) {
	walletGroup := rg.Group("/wallet")
	{
		walletGroup.POST("/mnemonic", h.NewMnemonic)
		walletGroup.POST("/derive", h.Derive)
		walletGroup.POST("/accounts", h.Import)
		walletGroup.GET("/accounts", h.List)
		walletGroup.DELETE("/accounts/:name", h.Forget)
	}
}
