package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/modular-banking-backend/internal/api/middleware"
	"github.com/modular-banking-backend/internal/domain/account"
	"github.com/modular-banking-backend/internal/domain/identity"
	"github.com/modular-banking-backend/internal/domain/transaction"
	"github.com/modular-banking-backend/internal/transfer"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type mockTransferService struct {
	mock.Mock
}

func (m *mockTransferService) Transfer(ctx context.Context, id identity.Identity, req transfer.Request) (*transaction.Record, error) {
	args := m.Called(ctx, id, req)
	if record, ok := args.Get(0).(*transaction.Record); ok {
		return record, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAccountService struct {
	mock.Mock
}

func (m *mockAccountService) CreateAccount(ctx context.Context, id identity.Identity, userID string, accountType account.Type, initialDeposit, dailyLimit int64) (*account.Account, error) {
	args := m.Called(ctx, id, userID, accountType, initialDeposit, dailyLimit)
	if acc, ok := args.Get(0).(*account.Account); ok {
		return acc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountService) ListAccounts(ctx context.Context, id identity.Identity) ([]*account.Account, error) {
	args := m.Called(ctx, id)
	if accounts, ok := args.Get(0).([]*account.Account); ok {
		return accounts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountService) GetBalance(ctx context.Context, id identity.Identity, number string) (*account.Account, error) {
	args := m.Called(ctx, id, number)
	if acc, ok := args.Get(0).(*account.Account); ok {
		return acc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountService) DeactivateAccount(ctx context.Context, id identity.Identity, number string) error {
	return m.Called(ctx, id, number).Error(0)
}

type mockTransactionService struct {
	mock.Mock
}

func (m *mockTransactionService) ListTransactions(ctx context.Context, id identity.Identity, accountNumber string, limit int) ([]*transaction.Record, error) {
	args := m.Called(ctx, id, accountNumber, limit)
	if records, ok := args.Get(0).([]*transaction.Record); ok {
		return records, args.Error(1)
	}
	return nil, args.Error(1)
}

// newTestRouter builds a gin engine with the identity middleware in front, so
// requests authenticate through the same headers production traffic uses
func newTestRouter(register func(r *gin.RouterGroup)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/api/v1", middleware.Identity())
	register(group)
	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func asCustomer(userID string) map[string]string {
	return map[string]string{
		middleware.UserIDHeader:   userID,
		middleware.UserRoleHeader: "customer",
	}
}

func asAdmin(userID string) map[string]string {
	return map[string]string{
		middleware.UserIDHeader:   userID,
		middleware.UserRoleHeader: "admin",
	}
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}
