package admission

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderbookv1 "github.com/Laincy/reconnected-se/internal/domain/orderbook/v1"
	"github.com/Laincy/reconnected-se/internal/testutil"
	errs "github.com/Laincy/reconnected-se/pkg/errors"
	"github.com/Laincy/reconnected-se/pkg/logger"
)

func setup(t *testing.T) (*Control, *testutil.Store, uuid.UUID) {
	t.Helper()
	store := testutil.NewStore()
	store.SeedStock("ABCD", 100, decimal.RequireFromString("4.50"))
	user := store.SeedUser(decimal.RequireFromString("100.00"))
	return NewControl(store.Ledger(), store.Stocks(), logger.NewNop()), store, user
}

func validRequest(user uuid.UUID) Request {
	return Request{
		UserID: user,
		Ticker: "ABCD",
		Side:   orderbookv1.SideBuy,
		Price:  decimal.RequireFromString("5.00"),
		Shares: 10,
	}
}

func TestValidate_Accepts(t *testing.T) {
	c, _, user := setup(t)

	ticker, err := c.Validate(context.Background(), validRequest(user))
	require.NoError(t, err)
	assert.Equal(t, "ABCD", ticker.String())
}

func TestValidate_NormalizesTicker(t *testing.T) {
	c, _, user := setup(t)

	req := validRequest(user)
	req.Ticker = "abcd"

	ticker, err := c.Validate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "ABCD", ticker.String())
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Request, *testutil.Store)
		wantCode errs.ErrorCode
	}{
		{
			name:     "zero shares",
			mutate:   func(r *Request, _ *testutil.Store) { r.Shares = 0 },
			wantCode: errs.ErrInvalidOrderParameters,
		},
		{
			name:     "negative shares",
			mutate:   func(r *Request, _ *testutil.Store) { r.Shares = -5 },
			wantCode: errs.ErrInvalidOrderParameters,
		},
		{
			name:     "zero price",
			mutate:   func(r *Request, _ *testutil.Store) { r.Price = decimal.Zero },
			wantCode: errs.ErrInvalidOrderParameters,
		},
		{
			name:     "sub cent price",
			mutate:   func(r *Request, _ *testutil.Store) { r.Price = decimal.RequireFromString("4.999") },
			wantCode: errs.ErrInvalidOrderParameters,
		},
		{
			name:     "bad side",
			mutate:   func(r *Request, _ *testutil.Store) { r.Side = "hold" },
			wantCode: errs.ErrInvalidOrderParameters,
		},
		{
			name:     "bad ticker",
			mutate:   func(r *Request, _ *testutil.Store) { r.Ticker = "TOOLONGG" },
			wantCode: errs.ErrInvalidOrderParameters,
		},
		{
			name:     "unknown ticker",
			mutate:   func(r *Request, _ *testutil.Store) { r.Ticker = "WXYZ" },
			wantCode: errs.ErrStockNotFound,
		},
		{
			name:     "frozen stock",
			mutate:   func(_ *Request, s *testutil.Store) { s.SetStockFrozen("ABCD", true) },
			wantCode: errs.ErrStockFrozen,
		},
		{
			name:     "unknown user",
			mutate:   func(r *Request, _ *testutil.Store) { r.UserID = uuid.New() },
			wantCode: errs.ErrUserNotFound,
		},
		{
			name:     "frozen user",
			mutate:   func(r *Request, s *testutil.Store) { s.SetUserFrozen(r.UserID, true) },
			wantCode: errs.ErrAccountFrozen,
		},
		{
			name: "buy exceeds balance",
			mutate: func(r *Request, _ *testutil.Store) {
				r.Price = decimal.RequireFromString("5.00")
				r.Shares = 100 // cost 500.00 against balance 100.00
			},
			wantCode: errs.ErrInsufficientFunds,
		},
		{
			name: "sell exceeds holding",
			mutate: func(r *Request, s *testutil.Store) {
				r.Side = orderbookv1.SideSell
				s.SeedHolding(r.UserID, "ABCD", 5)
				r.Shares = 10
			},
			wantCode: errs.ErrInsufficientShares,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, store, user := setup(t)
			req := validRequest(user)
			tt.mutate(&req, store)

			_, err := c.Validate(context.Background(), req)
			require.Error(t, err)
			assert.True(t, errs.ErrorCodeEquals(err, tt.wantCode),
				"want code %s, got %v", tt.wantCode, err)
		})
	}
}

func TestValidate_BuyAtExactBalance(t *testing.T) {
	c, _, user := setup(t)

	req := validRequest(user)
	req.Price = decimal.RequireFromString("10.00")
	req.Shares = 10 // cost exactly 100.00

	_, err := c.Validate(context.Background(), req)
	assert.NoError(t, err)
}

func TestValidate_SellAtExactHolding(t *testing.T) {
	c, store, user := setup(t)
	store.SeedHolding(user, "ABCD", 10)

	req := validRequest(user)
	req.Side = orderbookv1.SideSell
	req.Shares = 10

	_, err := c.Validate(context.Background(), req)
	assert.NoError(t, err)
}
