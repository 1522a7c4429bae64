package wallet

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foldmarket/fold/internal/deps"
)

// Dependencies represent the dependencies needed for the wallet module
type Dependencies struct {
	DB *gorm.DB
}

// Mount wires the wallet module into the router using shared dependencies.
func Mount(r *gin.RouterGroup, c *deps.Container) {
	Init(r, Dependencies{DB: c.DB})
}

func Init(r *gin.RouterGroup, deps Dependencies) {
	repo := NewRepository(deps.DB)
	srvs := NewService(deps.DB, repo)
	handler := NewHandler(srvs)

	group := r.Group("/wallet")
	group.GET("", handler.GetMyWallet)
	group.POST("/deposit", handler.Deposit)
	group.POST("/withdraw", handler.Withdraw)
	group.GET("/transactions", handler.GetMyTransactions)
}
