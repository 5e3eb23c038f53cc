package handler

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/modular-banking-backend/internal/domain/account"
	"github.com/modular-banking-backend/internal/domain/transaction"
)

// Amounts cross the wire as decimal strings ("120.50") and are stored in
// minor units internally. Parsing rejects more than two decimal places and
// values whose minor-unit representation does not fit in an int64.
var (
	errTooManyDecimalPlaces = errors.New("amount must have at most two decimal places")
	errAmountOutOfRange     = errors.New("amount out of range")
)

func parseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	minor := d.Shift(2)
	if !minor.IsInteger() {
		return 0, errTooManyDecimalPlaces
	}
	if !minor.BigInt().IsInt64() {
		return 0, errAmountOutOfRange
	}
	return minor.IntPart(), nil
}

func formatAmount(minor int64) string {
	return decimal.NewFromInt(minor).Shift(-2).StringFixed(2)
}

// CreateTransferRequest represents a request to transfer funds between accounts
type CreateTransferRequest struct {
	FromAccount    string `json:"from_account" binding:"required"`
	ToAccount      string `json:"to_account" binding:"required"`
	Amount         string `json:"amount" binding:"required"`
	Description    string `json:"description,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// TransactionResponse represents a ledger record in API responses
type TransactionResponse struct {
	ID              string `json:"id"`
	FromAccount     string `json:"from_account"`
	ToAccount       string `json:"to_account"`
	Amount          string `json:"amount"`
	TransactionType string `json:"transaction_type"`
	Status          string `json:"status"`
	Description     string `json:"description,omitempty"`
	CreatedAt       string `json:"created_at"`
}

// TransactionListResponse represents a list of ledger records in API responses
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}

// mapRecordToResponse maps a ledger record to a transaction response DTO
func mapRecordToResponse(record *transaction.Record) TransactionResponse {
	return TransactionResponse{
		ID:              record.ID.String(),
		FromAccount:     record.FromAccount,
		ToAccount:       record.ToAccount,
		Amount:          formatAmount(record.Amount),
		TransactionType: string(record.TransactionType),
		Status:          string(record.Status),
		Description:     record.Description,
		CreatedAt:       record.CreatedAt.Format(time.RFC3339),
	}
}

// CreateAccountRequest represents an admin request to open an account for a user
type CreateAccountRequest struct {
	UserID         string `json:"user_id" binding:"required"`
	AccountType    string `json:"account_type" binding:"required,oneof=savings checking business"`
	InitialDeposit string `json:"initial_deposit,omitempty"`
	DailyLimit     string `json:"daily_limit,omitempty"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID                 string `json:"id"`
	UserID             string `json:"user_id"`
	AccountNumber      string `json:"account_number"`
	AccountType        string `json:"account_type"`
	Balance            string `json:"balance"`
	DailyTransferLimit string `json:"daily_transfer_limit"`
	DailyTransferred   string `json:"daily_transferred"`
	IsActive           bool   `json:"is_active"`
	CreatedAt          string `json:"created_at"`
}

// AccountListResponse represents a list of accounts in API responses
type AccountListResponse struct {
	Accounts []AccountResponse `json:"accounts"`
}

// BalanceResponse represents an account balance lookup
type BalanceResponse struct {
	AccountNumber string `json:"account_number"`
	Balance       string `json:"balance"`
}

// mapAccountToResponse maps an account entity to an account response DTO
func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:                 acc.ID.String(),
		UserID:             acc.UserID,
		AccountNumber:      acc.AccountNumber,
		AccountType:        string(acc.AccountType),
		Balance:            formatAmount(acc.Balance),
		DailyTransferLimit: formatAmount(acc.DailyTransferLimit),
		DailyTransferred:   formatAmount(acc.DailyTransferred),
		IsActive:           acc.IsActive,
		CreatedAt:          acc.CreatedAt.Format(time.RFC3339),
	}
}
