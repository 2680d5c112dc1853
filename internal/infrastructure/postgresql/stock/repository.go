// Package stock is the Postgres repository over the stocks table.
package stock

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	marketv1 "github.com/Laincy/reconnected-se/internal/domain/market/v1"
	errs "github.com/Laincy/reconnected-se/pkg/errors"
	"github.com/Laincy/reconnected-se/pkg/logger"
	"github.com/Laincy/reconnected-se/pkg/postgresql"
)

const stockColumns = `ticker, shares, recent_price, frozen, created_at, updated_at`

type repository struct {
	db     postgresql.PostgreSQLClient
	logger logger.Interface
}

// NewRepository creates a stock repository.
func NewRepository(db postgresql.PostgreSQLClient, log logger.Interface) marketv1.StockRepository {
	return &repository{
		db:     db,
		logger: log,
	}
}

// GetByTicker returns the stock, or (nil, nil) when the ticker is unknown.
func (r *repository) GetByTicker(ctx context.Context, ticker marketv1.Ticker) (*marketv1.Stock, error) {
	query := `SELECT ` + stockColumns + ` FROM stocks WHERE ticker = $1`

	stock := &marketv1.Stock{}
	err := r.db.QueryRow(ctx, query, ticker).Scan(
		&stock.Ticker,
		&stock.Shares,
		&stock.RecentPrice,
		&stock.Frozen,
		&stock.CreatedAt,
		&stock.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.TracerFromError(err)
	}
	return stock, nil
}

// List returns a page of stocks ordered by ticker, plus the total count.
func (r *repository) List(ctx context.Context, page marketv1.Pager) ([]*marketv1.Stock, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM stocks`).Scan(&total); err != nil {
		return nil, 0, errs.TracerFromError(err)
	}

	query := `SELECT ` + stockColumns + ` FROM stocks ORDER BY ticker LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, errs.TracerFromError(err)
	}
	defer rows.Close()

	stocks := []*marketv1.Stock{}
	for rows.Next() {
		stock := &marketv1.Stock{}
		err := rows.Scan(
			&stock.Ticker,
			&stock.Shares,
			&stock.RecentPrice,
			&stock.Frozen,
			&stock.CreatedAt,
			&stock.UpdatedAt,
		)
		if err != nil {
			return nil, 0, errs.TracerFromError(err)
		}
		stocks = append(stocks, stock)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errs.TracerFromError(err)
	}
	return stocks, total, nil
}

// Create issues a new stock with its full share count.
func (r *repository) Create(ctx context.Context, stock *marketv1.Stock) error {
	query := `INSERT INTO stocks (ticker, shares, recent_price) VALUES ($1, $2, $3)`

	_, err := r.db.Exec(ctx, query, stock.Ticker, stock.Shares, stock.RecentPrice)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return errs.NewCoded("ticker is already listed", errs.GeneralBadRequestError)
		}
		return errs.TracerFromError(err)
	}

	r.logger.Info("stock created",
		logger.Field{Key: "ticker", Value: string(stock.Ticker)},
		logger.Field{Key: "shares", Value: stock.Shares},
	)
	return nil
}

// SetRecentPrice records the price of the latest executed trade.
func (r *repository) SetRecentPrice(ctx context.Context, ticker marketv1.Ticker, price decimal.Decimal) error {
	query := `UPDATE stocks SET recent_price = $2, updated_at = NOW() WHERE ticker = $1`

	cmd, err := r.db.Exec(ctx, query, ticker, price)
	if err != nil {
		return errs.TracerFromError(err)
	}
	if cmd.RowsAffected() == 0 {
		return errs.NewCoded("stock not found", errs.ErrStockNotFound)
	}
	return nil
}

// SetFrozen halts or resumes trading on the ticker.
func (r *repository) SetFrozen(ctx context.Context, ticker marketv1.Ticker, frozen bool) error {
	query := `UPDATE stocks SET frozen = $2, updated_at = NOW() WHERE ticker = $1`

	cmd, err := r.db.Exec(ctx, query, ticker, frozen)
	if err != nil {
		return errs.TracerFromError(err)
	}
	if cmd.RowsAffected() == 0 {
		return errs.NewCoded("stock not found", errs.ErrStockNotFound)
	}

	r.logger.Info("stock freeze flag updated",
		logger.Field{Key: "ticker", Value: string(ticker)},
		logger.Field{Key: "frozen", Value: frozen},
	)
	return nil
}
