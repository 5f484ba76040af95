package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/zakimal/zero-chain-ui/internal/handler"
)

// RegisterAccountRoutes 链上账户查询与地址簿
func RegisterAccountRoutes(rg *gin.RouterGroup, accounts *handler.AccountHandler, book *handler.AddressBookHandler) {
	// GET /api/v1/accounts/:address
	rg.GET("/accounts/:address", accounts.Lookup)

	bookGroup := rg.Group("/addressbook")
	{
		bookGroup.GET("", book.List)
		bookGroup.POST("", book.Add)
		bookGroup.DELETE("/:name", book.Remove)
	}
}
