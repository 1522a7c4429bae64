package trade

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foldmarket/fold/internal/deps"
	"github.com/foldmarket/fold/internal/logger"
	"github.com/foldmarket/fold/internal/nexus"
)

// Dependencies represent the dependencies needed for the trade module
type Dependencies struct {
	DB     *gorm.DB
	Config *Config
	Logger logger.Logger
}

// Mount wires the trade module into the router using shared dependencies,
// reading the module configuration from the environment.
func Mount(r *gin.RouterGroup, c *deps.Container) {
	cfg := GetDefaultConfig()
	if err := nexus.NewLoader(nexus.WithOnlyEnvironment()).Load(cfg); err != nil {
		panic("trade: " + err.Error())
	}
	Init(r, Dependencies{DB: c.DB, Config: cfg, Logger: c.Logger})
}

func Init(r *gin.RouterGroup, deps Dependencies) {
	if deps.Config == nil {
		deps.Config = GetDefaultConfig()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNullLogger()
	}

	repo := NewRepository(deps.DB)
	srvs := NewService(deps.DB, repo, deps.Config, deps.Logger)
	handler := NewHandler(srvs)

	bets := r.Group("/bets")
	bets.POST("", handler.PlaceBet)
	bets.POST("/:id/cancel", handler.CancelOrder)
	bets.POST("/sell", handler.SellShares)

	contracts := r.Group("/contracts")
	contracts.GET("/:contract_id/orders", handler.GetOpenOrders)
	contracts.GET("/:contract_id/bets", handler.GetMyBets)
	contracts.GET("/:contract_id/position", handler.GetMyPosition)
}
