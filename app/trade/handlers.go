package trade

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/foldmarket/fold/app/api"
	"github.com/foldmarket/fold/models"
)

// Handler handles HTTP requests for trading operations
type Handler struct {
	service   Service
	validator *validator.Validate
}

// NewHandler creates a new trade handler
func NewHandler(service Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// PlaceBet places a market or limit order on a contract.
func (h *Handler) PlaceBet(c *gin.Context) {
	userID := api.UserID(c)
	if userID == uuid.Nil {
		api.UnauthorizedResponse(c)
		return
	}

	var req PlaceBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.ValidationErrorResponse(c, err.Error())
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		api.ValidationErrorResponse(c, err.Error())
		return
	}

	bet, err := h.service.PlaceBet(c.Request.Context(), userID, &req)
	if err != nil {
		h.writeTradeError(c, err)
		return
	}
	api.CreatedResponse(c, "Bet placed successfully", bet)
}

// CancelOrder cancels a standing limit order.
func (h *Handler) CancelOrder(c *gin.Context) {
	userID := api.UserID(c)
	if userID == uuid.Nil {
		api.UnauthorizedResponse(c)
		return
	}

	betID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		api.ValidationErrorResponse(c, "invalid order id")
		return
	}

	if err := h.service.CancelOrder(c.Request.Context(), userID, betID); err != nil {
		switch {
		case errors.Is(err, models.ErrRecordNotFound):
			api.NotFoundResponse(c, "Order")
		case errors.Is(err, models.ErrForbidden):
			api.ForbiddenResponse(c, "Order belongs to another user")
		case errors.Is(err, models.ErrOrderAlreadyTerminal), errors.Is(err, models.ErrInvalidOrder):
			api.ErrorResponse(c, http.StatusBadRequest, "ORDER_ERROR", err.Error(), nil)
		default:
			api.InternalErrorResponse(c, "Failed to cancel order")
		}
		return
	}
	api.UpdatedResponse(c, "Order cancelled", nil)
}

// SellShares sells part of the caller's position back to the market.
func (h *Handler) SellShares(c *gin.Context) {
	userID := api.UserID(c)
	if userID == uuid.Nil {
		api.UnauthorizedResponse(c)
		return
	}

	var req SellSharesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.ValidationErrorResponse(c, err.Error())
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		api.ValidationErrorResponse(c, err.Error())
		return
	}

	sale, err := h.service.SellShares(c.Request.Context(), userID, &req)
	if err != nil {
		h.writeTradeError(c, err)
		return
	}
	api.UpdatedResponse(c, "Shares sold", sale)
}

// GetOpenOrders lists the standing limit orders on a contract.
func (h *Handler) GetOpenOrders(c *gin.Context) {
	contractID, err := uuid.Parse(c.Param("contract_id"))
	if err != nil {
		api.ValidationErrorResponse(c, "invalid contract id")
		return
	}

	orders, err := h.service.GetOpenOrders(c.Request.Context(), contractID)
	if err != nil {
		api.InternalErrorResponse(c, "Failed to load open orders")
		return
	}
	api.ListResponse(c, "Open orders", orders, len(orders))
}

// GetMyBets lists the caller's bets on a contract.
func (h *Handler) GetMyBets(c *gin.Context) {
	userID := api.UserID(c)
	if userID == uuid.Nil {
		api.UnauthorizedResponse(c)
		return
	}

	contractID, err := uuid.Parse(c.Param("contract_id"))
	if err != nil {
		api.ValidationErrorResponse(c, "invalid contract id")
		return
	}

	bets, err := h.service.GetUserBets(c.Request.Context(), userID, contractID)
	if err != nil {
		api.InternalErrorResponse(c, "Failed to load bets")
		return
	}
	api.ListResponse(c, "Bets", bets, len(bets))
}

// GetMyPosition returns the caller's derived position on a contract.
func (h *Handler) GetMyPosition(c *gin.Context) {
	userID := api.UserID(c)
	if userID == uuid.Nil {
		api.UnauthorizedResponse(c)
		return
	}

	contractID, err := uuid.Parse(c.Param("contract_id"))
	if err != nil {
		api.ValidationErrorResponse(c, "invalid contract id")
		return
	}

	position, err := h.service.GetPosition(c.Request.Context(), userID, contractID)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			api.NotFoundResponse(c, "Contract")
			return
		}
		api.InternalErrorResponse(c, "Failed to load position")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Position", position)
}

func (h *Handler) writeTradeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrRecordNotFound):
		api.NotFoundResponse(c, "Contract")
	case errors.Is(err, models.ErrMarketClosed):
		api.ErrorResponse(c, http.StatusConflict, "MARKET_CLOSED", err.Error(), nil)
	case errors.Is(err, models.ErrConcurrentModification):
		api.ErrorResponse(c, http.StatusConflict, "CONFLICT", "Market is busy, please retry", nil)
	case errors.Is(err, models.ErrInsufficientBalance):
		api.ErrorResponse(c, http.StatusBadRequest, "INSUFFICIENT_BALANCE", err.Error(), nil)
	case errors.Is(err, models.ErrInvalidOrder),
		errors.Is(err, models.ErrInvalidBetAmount),
		errors.Is(err, models.ErrInvalidProbability),
		errors.Is(err, models.ErrInvalidOutcome),
		errors.Is(err, models.ErrUnsupportedMechanism):
		api.ErrorResponse(c, http.StatusBadRequest, "TRADE_ERROR", err.Error(), nil)
	default:
		api.InternalErrorResponse(c, "Failed to process trade")
	}
}
