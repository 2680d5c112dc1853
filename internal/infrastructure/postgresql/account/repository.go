// Package account is the Postgres ledger repository over the users and
// holdings tables. Guarded updates make negative balances and holdings
// unrepresentable at the SQL level regardless of caller bugs.
package account

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	accountv1 "github.com/Laincy/reconnected-se/internal/domain/account/v1"
	marketv1 "github.com/Laincy/reconnected-se/internal/domain/market/v1"
	errs "github.com/Laincy/reconnected-se/pkg/errors"
	"github.com/Laincy/reconnected-se/pkg/logger"
	"github.com/Laincy/reconnected-se/pkg/postgresql"
)

const userColumns = `user_id, balance, frozen, created_at, mc_id, disc_id`

type repository struct {
	db     postgresql.PostgreSQLClient
	logger logger.Interface
}

// NewRepository creates a ledger repository.
func NewRepository(db postgresql.PostgreSQLClient, log logger.Interface) accountv1.LedgerRepository {
	return &repository{
		db:     db,
		logger: log,
	}
}

func scanUser(row pgx.Row) (*accountv1.User, error) {
	user := &accountv1.User{}
	err := row.Scan(
		&user.ID,
		&user.Balance,
		&user.Frozen,
		&user.CreatedAt,
		&user.MinecraftID,
		&user.DiscordID,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser returns the user, or (nil, nil) when the id is unknown.
func (r *repository) GetUser(ctx context.Context, id uuid.UUID) (*accountv1.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.TracerFromError(err)
	}
	return user, nil
}

// Register creates a user bound to one external identity.
func (r *repository) Register(ctx context.Context, discID *int64, mcID *uuid.UUID) (uuid.UUID, error) {
	query := `INSERT INTO users (disc_id, mc_id) VALUES ($1, $2) RETURNING user_id`

	var id uuid.UUID
	err := r.db.QueryRow(ctx, query, discID, mcID).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return uuid.Nil, errs.NewCoded("external identity is already linked", errs.ErrAlreadyLinked)
		}
		return uuid.Nil, errs.TracerFromError(err)
	}

	return id, nil
}

// DiscordToID resolves a Discord snowflake to an account id.
func (r *repository) DiscordToID(ctx context.Context, discID int64) (*uuid.UUID, error) {
	query := `SELECT user_id FROM users WHERE disc_id = $1`

	var id uuid.UUID
	err := r.db.QueryRow(ctx, query, discID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.TracerFromError(err)
	}
	return &id, nil
}

// MinecraftToID resolves a Minecraft UUID to an account id.
func (r *repository) MinecraftToID(ctx context.Context, mcID uuid.UUID) (*uuid.UUID, error) {
	query := `SELECT user_id FROM users WHERE mc_id = $1`

	var id uuid.UUID
	err := r.db.QueryRow(ctx, query, mcID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.TracerFromError(err)
	}
	return &id, nil
}

// Credit adds amount to the user's balance.
func (r *repository) Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	query := `UPDATE users SET balance = balance + $2 WHERE user_id = $1`

	cmd, err := r.db.Exec(ctx, query, id, amount)
	if err != nil {
		return errs.TracerFromError(err)
	}
	if cmd.RowsAffected() == 0 {
		return errs.NewCoded("user not found", errs.ErrUserNotFound)
	}
	return nil
}

// Debit subtracts amount, guarded so the balance can never go negative.
func (r *repository) Debit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	query := `UPDATE users SET balance = balance - $2 WHERE user_id = $1 AND balance >= $2`

	cmd, err := r.db.Exec(ctx, query, id, amount)
	if err != nil {
		return errs.TracerFromError(err)
	}
	if cmd.RowsAffected() == 0 {
		return errs.NewCoded("balance cannot cover the debit", errs.ErrInsufficientFunds)
	}
	return nil
}

// GetHolding returns the user's share count for a ticker; zero when absent.
func (r *repository) GetHolding(ctx context.Context, id uuid.UUID, ticker marketv1.Ticker) (int64, error) {
	query := `SELECT shares FROM holdings WHERE user_id = $1 AND ticker = $2`

	var shares int64
	err := r.db.QueryRow(ctx, query, id, ticker).Scan(&shares)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errs.TracerFromError(err)
	}
	return shares, nil
}

// AdjustHolding moves the position by delta. Increments upsert the row;
// decrements are guarded and a row reaching zero is removed.
func (r *repository) AdjustHolding(ctx context.Context, id uuid.UUID, ticker marketv1.Ticker, delta int64) error {
	if delta == 0 {
		return nil
	}

	if delta > 0 {
		query := `INSERT INTO holdings (user_id, ticker, shares) VALUES ($1, $2, $3)
			ON CONFLICT (user_id, ticker) DO UPDATE SET shares = holdings.shares + EXCLUDED.shares`

		if _, err := r.db.Exec(ctx, query, id, ticker, delta); err != nil {
			return errs.TracerFromError(err)
		}
		return nil
	}

	query := `UPDATE holdings SET shares = shares + $3 WHERE user_id = $1 AND ticker = $2 AND shares + $3 >= 0`

	cmd, err := r.db.Exec(ctx, query, id, ticker, delta)
	if err != nil {
		return errs.TracerFromError(err)
	}
	if cmd.RowsAffected() == 0 {
		return errs.NewCoded("holding cannot cover the decrement", errs.ErrInsufficientShares)
	}

	cleanup := `DELETE FROM holdings WHERE user_id = $1 AND ticker = $2 AND shares = 0`
	if _, err := r.db.Exec(ctx, cleanup, id, ticker); err != nil {
		return errs.TracerFromError(err)
	}
	return nil
}

// ListHoldings returns a page of the user's holdings ordered by ticker.
func (r *repository) ListHoldings(ctx context.Context, id uuid.UUID, page marketv1.Pager) ([]accountv1.Holding, int64, error) {
	countQuery := `SELECT COUNT(*) FROM holdings WHERE user_id = $1`

	var total int64
	if err := r.db.QueryRow(ctx, countQuery, id).Scan(&total); err != nil {
		return nil, 0, errs.TracerFromError(err)
	}

	query := `SELECT ticker, shares FROM holdings WHERE user_id = $1 ORDER BY ticker LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, id, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, errs.TracerFromError(err)
	}
	defer rows.Close()

	holdings, err := scanHoldings(rows, id)
	if err != nil {
		return nil, 0, err
	}
	return holdings, total, nil
}

// AllHoldings returns every holding of the user ordered by ticker.
func (r *repository) AllHoldings(ctx context.Context, id uuid.UUID) ([]accountv1.Holding, error) {
	query := `SELECT ticker, shares FROM holdings WHERE user_id = $1 ORDER BY ticker`

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, errs.TracerFromError(err)
	}
	defer rows.Close()

	return scanHoldings(rows, id)
}

func scanHoldings(rows postgresql.RowsInterface, userID uuid.UUID) ([]accountv1.Holding, error) {
	holdings := []accountv1.Holding{}
	for rows.Next() {
		h := accountv1.Holding{UserID: userID}
		if err := rows.Scan(&h.Ticker, &h.Shares); err != nil {
			return nil, errs.TracerFromError(err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.TracerFromError(err)
	}
	return holdings, nil
}

// LockUsers locks the given rows for the surrounding transaction, always in
// ascending id order.
func (r *repository) LockUsers(ctx context.Context, ids []uuid.UUID) ([]*accountv1.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = ANY($1) ORDER BY user_id FOR UPDATE`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, errs.TracerFromError(err)
	}
	defer rows.Close()

	users := []*accountv1.User{}
	for rows.Next() {
		user := &accountv1.User{}
		err := rows.Scan(
			&user.ID,
			&user.Balance,
			&user.Frozen,
			&user.CreatedAt,
			&user.MinecraftID,
			&user.DiscordID,
		)
		if err != nil {
			return nil, errs.TracerFromError(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.TracerFromError(err)
	}
	return users, nil
}

// SetFrozen blocks or unblocks all trading for the account.
func (r *repository) SetFrozen(ctx context.Context, id uuid.UUID, frozen bool) error {
	query := `UPDATE users SET frozen = $2 WHERE user_id = $1`

	cmd, err := r.db.Exec(ctx, query, id, frozen)
	if err != nil {
		return errs.TracerFromError(err)
	}
	if cmd.RowsAffected() == 0 {
		return errs.NewCoded("user not found", errs.ErrUserNotFound)
	}

	r.logger.Info("user freeze flag updated",
		logger.Field{Key: "userID", Value: id.String()},
		logger.Field{Key: "frozen", Value: frozen},
	)
	return nil
}
