package markets

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/foldmarket/fold/internal/cache"
	"github.com/foldmarket/fold/internal/deps"
	"github.com/foldmarket/fold/internal/logger"
	"github.com/foldmarket/fold/internal/nexus"
	"github.com/foldmarket/fold/internal/sanitizer"
)

// Dependencies represents the dependencies needed for the markets module
type Dependencies struct {
	DB        *gorm.DB
	Config    *Config
	Logger    logger.Logger
	Sanitizer sanitizer.HTMLStripperer
	ProbCache cache.Cache[map[string]float64]
}

// Mount wires the markets module into the router using shared dependencies,
// reading the module configuration from the environment.
func Mount(r *gin.RouterGroup, c *deps.Container) {
	cfg := GetDefaultConfig()
	if err := nexus.NewLoader(nexus.WithOnlyEnvironment()).Load(cfg); err != nil {
		panic("markets: " + err.Error())
	}
	Init(r, Dependencies{
		DB:        c.DB,
		Config:    cfg,
		Logger:    c.Logger,
		Sanitizer: c.Sanitizer,
		ProbCache: deps.CacheFor[map[string]float64](c),
	})
}

// Init initializes the markets module and mounts routes
func Init(r *gin.RouterGroup, deps Dependencies) {
	if deps.Config == nil {
		deps.Config = GetDefaultConfig()
	}
	if err := deps.Config.Validate(); err != nil {
		panic("Invalid markets configuration: " + err.Error())
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNullLogger()
	}
	if deps.Sanitizer == nil {
		deps.Sanitizer = sanitizer.NewHTMLStripper()
	}
	if deps.ProbCache == nil {
		deps.ProbCache = cache.NewMemoryCache[map[string]float64]()
	}

	repo := NewRepository(deps.DB)
	srvs := NewService(deps.DB, repo, deps.Config, deps.Logger, deps.Sanitizer, deps.ProbCache)
	handler := NewHandler(srvs)

	group := r.Group("/markets")
	group.GET("", handler.GetMarkets)
	group.GET("/my", handler.GetMyMarkets)
	group.GET("/:id", handler.GetMarketByID)
	group.POST("", handler.CreateMarket)
	group.POST("/:id/liquidity", handler.AddLiquidity)
	group.POST("/:id/close", handler.CloseMarket)
	group.POST("/:id/resolve", handler.ResolveMarket)
	group.POST("/sweep-expired", handler.SweepExpiredMarkets)
}
