// Package registry covers the administrative surface of the exchange:
// account registration, external identity lookup, stock listing and creation,
// and freeze toggles. None of this runs on the trading hot path.
package registry

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	accountv1 "github.com/Laincy/reconnected-se/internal/domain/account/v1"
	marketv1 "github.com/Laincy/reconnected-se/internal/domain/market/v1"
	errs "github.com/Laincy/reconnected-se/pkg/errors"
	"github.com/Laincy/reconnected-se/pkg/logger"
)

// TxRunner runs a unit of work as one atomic transaction.
type TxRunner interface {
	RunSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service implements the administrative operations.
type Service struct {
	tx     TxRunner
	ledger accountv1.LedgerRepository
	stocks marketv1.StockRepository
	logger logger.Interface
}

// NewService creates a registry Service.
func NewService(tx TxRunner, ledger accountv1.LedgerRepository, stocks marketv1.StockRepository, log logger.Interface) *Service {
	return &Service{
		tx:     tx,
		ledger: ledger,
		stocks: stocks,
		logger: log,
	}
}

// RegisterUser creates an account bound to exactly one external identity.
// Registering an identity that is already linked fails with already_linked.
func (s *Service) RegisterUser(ctx context.Context, discID *int64, mcID *uuid.UUID) (uuid.UUID, error) {
	if (discID == nil) == (mcID == nil) {
		return uuid.Nil, errs.NewCoded("exactly one external identity must be provided", errs.GeneralBadRequestError)
	}

	id, err := s.ledger.Register(ctx, discID, mcID)
	if err != nil {
		return uuid.Nil, err
	}

	s.logger.InfoContext(ctx, "user registered",
		logger.Field{Key: "userID", Value: id.String()},
	)
	return id, nil
}

// DiscordToID resolves a Discord snowflake to an account id.
func (s *Service) DiscordToID(ctx context.Context, discID int64) (uuid.UUID, error) {
	id, err := s.ledger.DiscordToID(ctx, discID)
	if err != nil {
		return uuid.Nil, err
	}
	if id == nil {
		return uuid.Nil, errs.NewCoded("user not found", errs.ErrUserNotFound)
	}
	return *id, nil
}

// MinecraftToID resolves a Minecraft UUID to an account id.
func (s *Service) MinecraftToID(ctx context.Context, mcID uuid.UUID) (uuid.UUID, error) {
	id, err := s.ledger.MinecraftToID(ctx, mcID)
	if err != nil {
		return uuid.Nil, err
	}
	if id == nil {
		return uuid.Nil, errs.NewCoded("user not found", errs.ErrUserNotFound)
	}
	return *id, nil
}

// ListStocks returns a page of all listed stocks plus the total count.
func (s *Service) ListStocks(ctx context.Context, page marketv1.Pager) ([]*marketv1.Stock, int64, error) {
	return s.stocks.List(ctx, page)
}

// ListHoldings returns a page of a user's holdings plus the total count.
func (s *Service) ListHoldings(ctx context.Context, userID uuid.UUID, page marketv1.Pager) ([]accountv1.Holding, int64, error) {
	user, err := s.ledger.GetUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	if user == nil {
		return nil, 0, errs.NewCoded("user not found", errs.ErrUserNotFound)
	}
	return s.ledger.ListHoldings(ctx, userID, page)
}

// CreateStock lists a new instrument. The full issuance is assigned to the
// issuer's holding in the same transaction, so every share has a holder from
// the first moment.
func (s *Service) CreateStock(ctx context.Context, rawTicker string, shares int64, issuer uuid.UUID, initialPrice decimal.Decimal) (*marketv1.Stock, error) {
	ticker, err := marketv1.ParseTicker(rawTicker)
	if err != nil {
		return nil, errs.NewCoded(err.Error(), errs.GeneralBadRequestError)
	}
	if shares <= 0 {
		return nil, errs.NewCoded("issued shares must be positive", errs.GeneralBadRequestError)
	}
	if !initialPrice.IsPositive() || !marketv1.IsMoney(initialPrice) {
		return nil, errs.NewCoded("initial price must be a positive amount with at most two decimal places", errs.GeneralBadRequestError)
	}

	stock := &marketv1.Stock{
		Ticker:      ticker,
		Shares:      shares,
		RecentPrice: initialPrice,
	}

	err = s.tx.RunSerializable(ctx, func(txCtx context.Context) error {
		user, err := s.ledger.GetUser(txCtx, issuer)
		if err != nil {
			return err
		}
		if user == nil {
			return errs.NewCoded("user not found", errs.ErrUserNotFound)
		}

		existing, err := s.stocks.GetByTicker(txCtx, ticker)
		if err != nil {
			return err
		}
		if existing != nil {
			return errs.NewCoded("ticker is already listed", errs.GeneralBadRequestError)
		}

		if err := s.stocks.Create(txCtx, stock); err != nil {
			return err
		}
		return s.ledger.AdjustHolding(txCtx, issuer, ticker, shares)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "stock listed",
		logger.Field{Key: "ticker", Value: string(ticker)},
		logger.Field{Key: "shares", Value: shares},
	)
	return stock, nil
}

// SetUserFrozen blocks or unblocks all trading for an account.
func (s *Service) SetUserFrozen(ctx context.Context, userID uuid.UUID, frozen bool) error {
	user, err := s.ledger.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return errs.NewCoded("user not found", errs.ErrUserNotFound)
	}
	return s.ledger.SetFrozen(ctx, userID, frozen)
}

// SetStockFrozen halts or resumes trading of an instrument.
func (s *Service) SetStockFrozen(ctx context.Context, rawTicker string, frozen bool) error {
	ticker, err := marketv1.ParseTicker(rawTicker)
	if err != nil {
		return errs.NewCoded(err.Error(), errs.GeneralBadRequestError)
	}
	stock, err := s.stocks.GetByTicker(ctx, ticker)
	if err != nil {
		return err
	}
	if stock == nil {
		return errs.NewCoded("stock not found", errs.ErrStockNotFound)
	}
	return s.stocks.SetFrozen(ctx, ticker, frozen)
}
