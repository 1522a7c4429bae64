package wallet

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

type Handler struct {
	service   Service
	validator *validator.Validate
}

func NewHandler(service Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// GetMyWallet returns the caller's wallet, creating it on first access.
func (h *Handler) GetMyWallet(c *gin.Context) {
	userID := api.UserID(c)
	if userID == uuid.Nil {
		api.UnauthorizedResponse(c)
		return
	}

	wallet, err := h.service.GetWallet(c.Request.Context(), userID)
	if err != nil {
		api.InternalErrorResponse(c, "Failed to load wallet")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Wallet", wallet)
}

// Deposit tops up the caller's wallet.
func (h *Handler) Deposit(c *gin.Context) {
	userID := api.UserID(c)
	if userID == uuid.Nil {
		api.UnauthorizedResponse(c)
		return
	}

	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.ValidationErrorResponse(c, err.Error())
		return
	}

	wallet, err := h.service.Deposit(c.Request.Context(), userID, req.Amount)
	if err != nil {
		h.writeWalletError(c, err)
		return
	}
	api.UpdatedResponse(c, "Deposit applied", wallet)
}

// Withdraw takes funds out of the caller's wallet.
func (h *Handler) Withdraw(c *gin.Context) {
	userID := api.UserID(c)
	if userID == uuid.Nil {
		api.UnauthorizedResponse(c)
		return
	}

	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.ValidationErrorResponse(c, err.Error())
		return
	}

	wallet, err := h.service.Withdraw(c.Request.Context(), userID, req.Amount)
	if err != nil {
		h.writeWalletError(c, err)
		return
	}
	api.UpdatedResponse(c, "Withdrawal applied", wallet)
}

// GetMyTransactions lists the caller's ledger, newest first.
func (h *Handler) GetMyTransactions(c *gin.Context) {
	userID := api.UserID(c)
	if userID == uuid.Nil {
		api.UnauthorizedResponse(c)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	transactions, err := h.service.GetTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		api.InternalErrorResponse(c, "Failed to load transactions")
		return
	}
	api.ListResponse(c, "Transactions", transactions, len(transactions))
}

func (h *Handler) writeWalletError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrRecordNotFound):
		api.NotFoundResponse(c, "Wallet")
	case errors.Is(err, models.ErrInsufficientBalance),
		errors.Is(err, models.ErrInvalidTransactionAmount):
		api.ErrorResponse(c, http.StatusBadRequest, "WALLET_ERROR", err.Error(), nil)
	default:
		api.InternalErrorResponse(c, "Failed to process wallet request")
	}
}
