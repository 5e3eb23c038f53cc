package handler

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/modular-banking-backend/internal/api/middleware"
	"github.com/modular-banking-backend/internal/api/service"
	"github.com/modular-banking-backend/internal/domain/identity"
	"github.com/modular-banking-backend/internal/domain/transaction"
)

// TransactionHandler handles HTTP requests for ledger history
type TransactionHandler struct {
	transactionService service.TransactionService
	logger             *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, transactionService service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

// List returns transaction history newest first. With ?account_number= it is
// scoped to one account; without it, privileged roles see recent activity
// across all accounts.
func (h *TransactionHandler) List(c *gin.Context) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	accountNumber := c.Query("account_number")

	limit := transaction.ListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			RespondBadRequest(c, "BAD_REQUEST", "Invalid limit")
			return
		}
		limit = parsed
	}

	records, err := h.transactionService.ListTransactions(c.Request.Context(), id, accountNumber, limit)
	if err != nil {
		if errors.Is(err, identity.ErrNotAuthorized{}) {
			RespondForbidden(c, "")
			return
		}
		h.logger.Error("Failed to list transactions", "account_number", accountNumber, "error", err)
		RespondInternalError(c)
		return
	}

	response := TransactionListResponse{Transactions: make([]TransactionResponse, 0, len(records))}
	for _, record := range records {
		response.Transactions = append(response.Transactions, mapRecordToResponse(record))
	}

	RespondOK(c, response)
}
