package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/modular-banking-backend/internal/api/middleware"
	"github.com/modular-banking-backend/internal/api/service"
	"github.com/modular-banking-backend/internal/domain/account"
	"github.com/modular-banking-backend/internal/domain/identity"
)

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// Create opens a new account for a user. Admin only.
func (h *AccountHandler) Create(c *gin.Context) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "BAD_REQUEST", "Invalid request body: "+err.Error())
		return
	}

	accountType, valid := account.ParseType(req.AccountType)
	if !valid {
		RespondBadRequest(c, "BAD_REQUEST", "Invalid account type")
		return
	}

	var initialDeposit int64
	if req.InitialDeposit != "" {
		parsed, err := parseAmount(req.InitialDeposit)
		if err != nil || parsed < 0 {
			RespondBadRequest(c, "INVALID_AMOUNT", "Invalid initial deposit")
			return
		}
		initialDeposit = parsed
	}

	var dailyLimit int64
	if req.DailyLimit != "" {
		parsed, err := parseAmount(req.DailyLimit)
		if err != nil || parsed <= 0 {
			RespondBadRequest(c, "INVALID_AMOUNT", "Invalid daily limit")
			return
		}
		dailyLimit = parsed
	}

	acc, err := h.accountService.CreateAccount(c.Request.Context(), id, req.UserID, accountType, initialDeposit, dailyLimit)
	if err != nil {
		if errors.Is(err, identity.ErrNotAuthorized{}) {
			RespondForbidden(c, "")
			return
		}
		h.logger.Error("Failed to create account", "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapAccountToResponse(acc))
}

// List returns the caller's accounts, or every account for privileged roles
func (h *AccountHandler) List(c *gin.Context) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	accounts, err := h.accountService.ListAccounts(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, identity.ErrNotAuthorized{}) {
			RespondForbidden(c, "")
			return
		}
		h.logger.Error("Failed to list accounts", "error", err)
		RespondInternalError(c)
		return
	}

	response := AccountListResponse{Accounts: make([]AccountResponse, 0, len(accounts))}
	for _, acc := range accounts {
		response.Accounts = append(response.Accounts, mapAccountToResponse(acc))
	}

	RespondOK(c, response)
}

// GetBalance returns the current balance of an account
func (h *AccountHandler) GetBalance(c *gin.Context) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	number := c.Param("number")

	acc, err := h.accountService.GetBalance(c.Request.Context(), id, number)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrAccountNotFound{}):
			RespondNotFound(c, "ACCOUNT_NOT_FOUND", "Account not found")
		case errors.Is(err, identity.ErrNotAuthorized{}):
			RespondForbidden(c, "")
		default:
			h.logger.Error("Failed to get account balance", "account_number", number, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, BalanceResponse{
		AccountNumber: acc.AccountNumber,
		Balance:       formatAmount(acc.Balance),
	})
}

// Deactivate clears an account's active flag. Admin only.
func (h *AccountHandler) Deactivate(c *gin.Context) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	number := c.Param("number")

	if err := h.accountService.DeactivateAccount(c.Request.Context(), id, number); err != nil {
		switch {
		case errors.Is(err, account.ErrAccountNotFound{}):
			RespondNotFound(c, "ACCOUNT_NOT_FOUND", "Account not found")
		case errors.Is(err, identity.ErrNotAuthorized{}):
			RespondForbidden(c, "")
		default:
			h.logger.Error("Failed to deactivate account", "account_number", number, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondNoContent(c)
}
