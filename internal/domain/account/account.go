package account

import (
	"crypto/rand"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDailyLimitExceeded  = errors.New("daily transfer limit exceeded")
	ErrInvalidAccountType  = errors.New("invalid account type")
	ErrEmptyUserID         = errors.New("user id cannot be empty")
)

// Type classifies a bank account
type Type string

const (
	TypeSavings  Type = "savings"
	TypeChecking Type = "checking"
	TypeBusiness Type = "business"
)

// ParseType maps a wire-level account type string to a known Type
func ParseType(s string) (Type, bool) {
	switch Type(s) {
	case TypeSavings:
		return TypeSavings, true
	case TypeChecking:
		return TypeChecking, true
	case TypeBusiness:
		return TypeBusiness, true
	}
	return "", false
}

// AccountNumberLength is the fixed length of externally visible account numbers
const AccountNumberLength = 12

// Account represents a bank account. All monetary fields are stored in minor
// units (cents). Balance and DailyTransferred are the only fields mutated after
// creation, and only through the store's conditional-update primitives.
type Account struct {
	ID                 uuid.UUID `json:"id"`
	UserID             string    `json:"user_id"`
	AccountNumber      string    `json:"account_number"`
	AccountType        Type      `json:"account_type"`
	Balance            int64     `json:"balance"`
	DailyTransferLimit int64     `json:"daily_transfer_limit"`
	DailyTransferred   int64     `json:"daily_transferred"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
}

// NewAccount creates a new account holding the initial deposit, with the
// daily-transferred counter at zero
func NewAccount(userID string, accountType Type, initialDeposit int64, dailyLimit int64) (*Account, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if _, ok := ParseType(string(accountType)); !ok {
		return nil, ErrInvalidAccountType
	}
	if initialDeposit < 0 || dailyLimit <= 0 {
		return nil, ErrInvalidAmount
	}

	number, err := GenerateAccountNumber()
	if err != nil {
		return nil, err
	}

	return &Account{
		ID:                 uuid.New(),
		UserID:             userID,
		AccountNumber:      number,
		AccountType:        accountType,
		Balance:            initialDeposit,
		DailyTransferLimit: dailyLimit,
		DailyTransferred:   0,
		IsActive:           true,
		CreatedAt:          time.Now().UTC(),
	}, nil
}

// CanDebit checks whether an outgoing transfer of the given amount is allowed
// against the current balance and the remaining daily allowance. The balance
// check runs before the limit check so callers surface the right failure first.
func (a *Account) CanDebit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if a.Balance < amount {
		return ErrInsufficientBalance
	}
	if a.DailyTransferred+amount > a.DailyTransferLimit {
		return ErrDailyLimitExceeded
	}
	return nil
}

// ApplyDebit subtracts the amount from the balance and accrues it against the
// daily allowance. Callers must have passed CanDebit on the same state.
func (a *Account) ApplyDebit(amount int64) error {
	if err := a.CanDebit(amount); err != nil {
		return err
	}
	a.Balance -= amount
	a.DailyTransferred += amount
	return nil
}

// ApplyCredit adds the amount to the balance
func (a *Account) ApplyCredit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	a.Balance += amount
	return nil
}

// GenerateAccountNumber returns a random fixed-length numeric account number
func GenerateAccountNumber() (string, error) {
	buf := make([]byte, AccountNumberLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	digits := make([]byte, AccountNumberLength)
	for i, b := range buf {
		digits[i] = '0' + b%10
	}
	return string(digits), nil
}
