package markets

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/foldmarket/fold/app/api"
	"github.com/foldmarket/fold/models"
)

// Handler handles HTTP requests for markets
type Handler struct {
	service   Service
	validator *validator.Validate
}

// NewHandler creates a new market handler
func NewHandler(service Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// GetMarkets lists markets, filterable by status and creator.
func (h *Handler) GetMarkets(c *gin.Context) {
	filters := &MarketFilters{Page: 1, PerPage: 20}
	if raw := c.Query("status"); raw != "" {
		status := models.ContractStatus(raw)
		filters.Status = &status
	}
	if raw := c.Query("creator_id"); raw != "" {
		creatorID, err := uuid.Parse(raw)
		if err != nil {
			api.ValidationErrorResponse(c, "invalid creator id")
			return
		}
		filters.CreatorID = &creatorID
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 0 {
		filters.Page = page
	}
	if perPage, err := strconv.Atoi(c.DefaultQuery("per_page", "20")); err == nil && perPage > 0 {
		filters.PerPage = perPage
	}

	list, err := h.service.GetMarkets(c.Request.Context(), filters)
	if err != nil {
		api.InternalErrorResponse(c, "Failed to load markets")
		return
	}
	api.ListResponse(c, "Markets", list.Markets, int(list.Total))
}

// GetMarketByID returns one market with current prices.
func (h *Handler) GetMarketByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		api.ValidationErrorResponse(c, "invalid market id")
		return
	}

	market, err := h.service.GetMarketByID(c.Request.Context(), id)
	if err != nil {
		h.writeMarketError(c, err)
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Market", market)
}

// GetMyMarkets lists markets created by the caller.
func (h *Handler) GetMyMarkets(c *gin.Context) {
	userID := api.UserID(c)
	if userID == uuid.Nil {
		api.UnauthorizedResponse(c)
		return
	}

	markets, err := h.service.GetMyMarkets(c.Request.Context(), userID)
	if err != nil {
		api.InternalErrorResponse(c, "Failed to load markets")
		return
	}
	api.ListResponse(c, "Markets", markets, len(markets))
}

// CreateMarket creates a market seeded with the caller's ante.
func (h *Handler) CreateMarket(c *gin.Context) {
	userID := api.UserID(c)
	if userID == uuid.Nil {
		api.UnauthorizedResponse(c)
		return
	}

	var req CreateMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.ValidationErrorResponse(c, err.Error())
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		api.ValidationErrorResponse(c, err.Error())
		return
	}

	market, err := h.service.CreateMarket(c.Request.Context(), userID, &req)
	if err != nil {
		h.writeMarketError(c, err)
		return
	}
	api.CreatedResponse(c, "Market created", market)
}

// AddLiquidity subsidizes a market's pool.
func (h *Handler) AddLiquidity(c *gin.Context) {
	userID := api.UserID(c)
	if userID == uuid.Nil {
		api.UnauthorizedResponse(c)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		api.ValidationErrorResponse(c, "invalid market id")
		return
	}

	var req AddLiquidityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.ValidationErrorResponse(c, err.Error())
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		api.ValidationErrorResponse(c, err.Error())
		return
	}

	market, err := h.service.AddLiquidity(c.Request.Context(), userID, id, req.Amount)
	if err != nil {
		h.writeMarketError(c, err)
		return
	}
	api.UpdatedResponse(c, "Liquidity added", market)
}

// CloseMarket stops trading on a market without resolving it.
func (h *Handler) CloseMarket(c *gin.Context) {
	userID := api.UserID(c)
	if userID == uuid.Nil {
		api.UnauthorizedResponse(c)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		api.ValidationErrorResponse(c, "invalid market id")
		return
	}

	if err := h.service.CloseMarket(c.Request.Context(), userID, id); err != nil {
		h.writeMarketError(c, err)
		return
	}
	api.UpdatedResponse(c, "Market closed", nil)
}

// ResolveMarket settles a market and pays out every position.
func (h *Handler) ResolveMarket(c *gin.Context) {
	userID := api.UserID(c)
	if userID == uuid.Nil {
		api.UnauthorizedResponse(c)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		api.ValidationErrorResponse(c, "invalid market id")
		return
	}

	var req ResolveMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.ValidationErrorResponse(c, err.Error())
		return
	}

	result, err := h.service.ResolveMarket(c.Request.Context(), userID, id, &req)
	if err != nil {
		h.writeMarketError(c, err)
		return
	}
	api.UpdatedResponse(c, "Market resolved", result)
}

// SweepExpiredMarkets closes every open market whose close time has passed.
func (h *Handler) SweepExpiredMarkets(c *gin.Context) {
	closed, err := h.service.CloseExpiredMarkets(c.Request.Context())
	if err != nil {
		api.InternalErrorResponse(c, "Failed to sweep expired markets")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Expired markets closed", gin.H{"closed": closed})
}

func (h *Handler) writeMarketError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrRecordNotFound):
		api.NotFoundResponse(c, "Market")
	case errors.Is(err, models.ErrForbidden):
		api.ForbiddenResponse(c, "Only the market creator may do this")
	case errors.Is(err, models.ErrMarketClosed),
		errors.Is(err, models.ErrMarketAlreadyClosed):
		api.ErrorResponse(c, http.StatusConflict, "MARKET_CLOSED", err.Error(), nil)
	case errors.Is(err, models.ErrConcurrentModification):
		api.ErrorResponse(c, http.StatusConflict, "CONFLICT", "Market is busy, please retry", nil)
	case errors.Is(err, models.ErrInsufficientBalance):
		api.ErrorResponse(c, http.StatusBadRequest, "INSUFFICIENT_BALANCE", err.Error(), nil)
	case errors.Is(err, models.ErrInvalidResolution),
		errors.Is(err, models.ErrInvalidOutcome),
		errors.Is(err, models.ErrInvalidProbability),
		errors.Is(err, models.ErrInvalidCloseTime),
		errors.Is(err, models.ErrInvalidValueRange),
		errors.Is(err, models.ErrInvalidLiquidity),
		errors.Is(err, models.ErrUnsupportedMechanism):
		api.ErrorResponse(c, http.StatusBadRequest, "MARKET_ERROR", err.Error(), nil)
	default:
		api.InternalErrorResponse(c, "Failed to process market request")
	}
}
