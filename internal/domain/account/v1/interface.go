package accountv1

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	marketv1 "github.com/Laincy/reconnected-se/internal/domain/market/v1"
)

// LedgerRepository owns all mutation of balances and holdings. Credit, Debit
// and AdjustHolding are the only legal write paths into those fields; the
// guarded variants fail instead of ever producing a negative value.
type LedgerRepository interface {
	// GetUser returns the user, or (nil, nil) when the id is unknown.
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)

	// Register creates an account bound to one external identity. Registering
	// an identity that is already linked fails with the already_linked code.
	Register(ctx context.Context, discID *int64, mcID *uuid.UUID) (uuid.UUID, error)

	// DiscordToID resolves a Discord snowflake to an account id, (nil, nil)
	// when no account is linked.
	DiscordToID(ctx context.Context, discID int64) (*uuid.UUID, error)

	// MinecraftToID resolves a Minecraft UUID to an account id, (nil, nil)
	// when no account is linked.
	MinecraftToID(ctx context.Context, mcID uuid.UUID) (*uuid.UUID, error)

	// Credit adds amount to the user's balance.
	Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error

	// Debit subtracts amount from the user's balance, failing with
	// insufficient_funds when the result would be negative.
	Debit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error

	// GetHolding returns the user's share count for a ticker; zero when absent.
	GetHolding(ctx context.Context, id uuid.UUID, ticker marketv1.Ticker) (int64, error)

	// AdjustHolding moves the user's position by delta. A negative delta that
	// would take the position below zero fails with insufficient_shares; a row
	// reaching exactly zero is removed.
	AdjustHolding(ctx context.Context, id uuid.UUID, ticker marketv1.Ticker, delta int64) error

	// ListHoldings returns a page of the user's holdings ordered by ticker,
	// plus the total row count.
	ListHoldings(ctx context.Context, id uuid.UUID, page marketv1.Pager) ([]Holding, int64, error)

	// AllHoldings returns every holding of the user ordered by ticker.
	AllHoldings(ctx context.Context, id uuid.UUID) ([]Holding, error)

	// LockUsers locks the given user rows for the duration of the surrounding
	// transaction and returns them. Rows are always acquired in ascending id
	// order regardless of the order of ids.
	LockUsers(ctx context.Context, ids []uuid.UUID) ([]*User, error)

	// SetFrozen blocks or unblocks all trading for the account.
	SetFrozen(ctx context.Context, id uuid.UUID, frozen bool) error
}
