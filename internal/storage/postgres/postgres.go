package postgres

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"social_auth/internal/config"
	"social_auth/internal/models"
	"social_auth/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = cfg.Postgres.MaxConns
	if poolConfig.MaxConns <= 0 {
		poolConfig.MaxConns = 10
	}
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

func (r *PostgresRepo) SaveAccount(ctx context.Context, acc models.Account) error {
	const op = "storage.postgres.SaveAccount"

	const query = `
		INSERT INTO accounts (id, email, username, name, avatar, bio, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`

	_, err := r.pool.Exec(ctx, query,
		acc.ID,
		acc.Email,
		acc.Username,
		acc.Name,
		acc.Avatar,
		acc.Bio,
		acc.PassHash,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return storage.ErrUserExists
		}

		return fmt.Errorf("%s: failed to save account: %w", op, err)
	}

	return nil
}

const accountColumns = `
	id::text, email, username, name, avatar, bio, password_hash,
	failed_attempts, locked_until, created_at, updated_at
`

// * AccountByLogin ищет аккаунт по email (без учета регистра) или по username
func (r *PostgresRepo) AccountByLogin(ctx context.Context, text string) (models.Account, error) {
	const op = "storage.postgres.AccountByLogin"

	query := `SELECT ` + accountColumns + `
		FROM accounts
		WHERE lower(email) = lower($1) OR username = $1
		LIMIT 1;
	`

	acc, err := scanAccount(r.pool.QueryRow(ctx, query, text))
	if err != nil {
		return models.Account{}, wrapNotFound(op, err)
	}

	return acc, nil
}

func (r *PostgresRepo) AccountByEmail(ctx context.Context, email string) (models.Account, error) {
	const op = "storage.postgres.AccountByEmail"

	query := `SELECT ` + accountColumns + `
		FROM accounts
		WHERE lower(email) = lower($1);
	`

	acc, err := scanAccount(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		return models.Account{}, wrapNotFound(op, err)
	}

	return acc, nil
}

// * UpdateLockout сохраняет счетчик неудачных попыток и срок блокировки
func (r *PostgresRepo) UpdateLockout(ctx context.Context, accountID string, failedAttempts int, lockedUntil *time.Time) error {
	const op = "storage.postgres.UpdateLockout"

	const query = `
		UPDATE accounts
		SET failed_attempts = $1, locked_until = $2, updated_at = NOW()
		WHERE id = $3;
	`

	tag, err := r.pool.Exec(ctx, query, failedAttempts, lockedUntil, accountID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

// * SaveRefreshToken кладет токен в allow-list, хранится только sha256
func (r *PostgresRepo) SaveRefreshToken(ctx context.Context, rt models.RefreshToken) error {
	const op = "storage.postgres.SaveRefreshToken"

	const query = `
		INSERT INTO refresh_tokens (token_hash, account_id, issued_at, expires_at)
		VALUES ($1, $2, $3, $4);
	`

	_, err := r.pool.Exec(ctx, query, hashToken(rt.Token), rt.AccountID, rt.IssuedAt, rt.ExpiresAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) RefreshToken(ctx context.Context, token string) (models.RefreshToken, error) {
	const op = "storage.postgres.RefreshToken"

	const query = `
		SELECT account_id::text, issued_at, expires_at
		FROM refresh_tokens
		WHERE token_hash = $1;
	`

	rt := models.RefreshToken{Token: token}

	err := r.pool.QueryRow(ctx, query, hashToken(token)).Scan(&rt.AccountID, &rt.IssuedAt, &rt.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RefreshToken{}, storage.ErrRefreshTokenNotFound
		}

		return models.RefreshToken{}, fmt.Errorf("%s: %w", op, err)
	}

	return rt, nil
}

func (r *PostgresRepo) DeleteRefreshToken(ctx context.Context, token string) error {
	const op = "storage.postgres.DeleteRefreshToken"

	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, hashToken(token))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrRefreshTokenNotFound
	}

	return nil
}

// * DeleteExpiredRefreshTokens чистит allow-list от истекших записей
func (r *PostgresRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.postgres.DeleteExpiredRefreshTokens"

	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}

func (r *PostgresRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var acc models.Account

	err := row.Scan(
		&acc.ID,
		&acc.Email,
		&acc.Username,
		&acc.Name,
		&acc.Avatar,
		&acc.Bio,
		&acc.PassHash,
		&acc.FailedAttempts,
		&acc.LockedUntil,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)

	return acc, err
}

func wrapNotFound(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrUserNotFound
	}

	return fmt.Errorf("%s: %w", op, err)
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))

	return hex.EncodeToString(sum[:])
}

// * dsn формирует конфигурацию базы данных.
func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
