package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/modular-banking-backend/internal/api/middleware"
	"github.com/modular-banking-backend/internal/api/service"
	"github.com/modular-banking-backend/internal/domain/account"
	"github.com/modular-banking-backend/internal/domain/identity"
	"github.com/modular-banking-backend/internal/transfer"
)

// TransferHandler handles HTTP requests for fund transfers
type TransferHandler struct {
	transferService service.TransferService
	logger          *slog.Logger
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(logger *slog.Logger, transferService service.TransferService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
		logger:          logger,
	}
}

// Create executes a transfer between two accounts. The response carries the
// persisted transaction record; the error status encodes which validation
// failed, and 503 means the outcome is unconfirmed and the caller should
// check the transaction history before retrying.
func (h *TransferHandler) Create(c *gin.Context) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var req CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "BAD_REQUEST", "Invalid request body: "+err.Error())
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.logger.Warn("Invalid transfer amount", "amount", req.Amount, "error", err)
		RespondBadRequest(c, "INVALID_AMOUNT", "Invalid amount: "+err.Error())
		return
	}

	record, err := h.transferService.Transfer(c.Request.Context(), id, transfer.Request{
		SenderAccount:   req.FromAccount,
		ReceiverAccount: req.ToAccount,
		Amount:          amount,
		Description:     req.Description,
		IdempotencyKey:  req.IdempotencyKey,
	})
	if err != nil {
		h.respondTransferError(c, err)
		return
	}

	RespondOK(c, mapRecordToResponse(record))
}

func (h *TransferHandler) respondTransferError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, account.ErrInvalidAmount):
		RespondBadRequest(c, "INVALID_AMOUNT", "Amount must be positive")
	case errors.Is(err, transfer.ErrSenderNotFound):
		RespondNotFound(c, "SENDER_NOT_FOUND", "Sender account not found")
	case errors.Is(err, transfer.ErrReceiverNotFound):
		RespondNotFound(c, "RECEIVER_NOT_FOUND", "Receiver account not found")
	case errors.Is(err, transfer.ErrSameAccount):
		RespondBadRequest(c, "SAME_ACCOUNT", "Sender and receiver accounts must differ")
	case errors.Is(err, account.ErrInsufficientBalance):
		RespondBadRequest(c, "INSUFFICIENT_BALANCE", "Insufficient balance")
	case errors.Is(err, account.ErrDailyLimitExceeded):
		RespondBadRequest(c, "DAILY_LIMIT_EXCEEDED", "Daily transfer limit exceeded")
	case errors.Is(err, identity.ErrNotAuthorized{}):
		RespondForbidden(c, "")
	case errors.Is(err, transfer.ErrTransferAborted{}):
		RespondServiceUnavailable(c, "TRANSFER_ABORTED", "Transfer outcome could not be confirmed, check the transaction history before retrying")
	default:
		h.logger.Error("Failed to execute transfer", "error", err)
		RespondInternalError(c)
	}
}
