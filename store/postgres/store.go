package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const userColumns = `id::text, username, email, display_name, password_hash, roles,
	is_active, mfa_enabled, totp_secret, failed_login_attempts, locked_until, created_at`

// Store is the PostgreSQL credential store.
type Store struct {
	db *pgxpool.Pool
}

// NewStore wraps an existing pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Connect opens a pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*goSession.UserRecord, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return u, nil
}

func (s *Store) FindByID(ctx context.Context, userID string) (*goSession.UserRecord, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, goSession.ErrUserNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

// Create inserts user with a fresh UUID. A clash on username or email
// returns goSession.ErrAccountExists.
func (s *Store) Create(ctx context.Context, user goSession.UserRecord) (*goSession.UserRecord, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate user id: %w", err)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	roles := user.Roles
	if roles == nil {
		roles = []string{}
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO users (id, username, email, display_name, password_hash, roles,
			is_active, mfa_enabled, totp_secret, failed_login_attempts, locked_until, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		id.String(),
		user.Username,
		strings.TrimSpace(user.Email),
		user.DisplayName,
		user.PasswordHash,
		roles,
		user.Active,
		user.MFAEnabled,
		user.TOTPSecret,
		user.FailedLoginAttempts,
		user.LockedUntil,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, goSession.ErrAccountExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	user.UserID = id.String()
	return user.Clone(), nil
}

// Update locks the row, runs mutate on the locked copy and writes the mutable
// columns back in the same transaction. An error from mutate rolls back and
// is returned unchanged.
func (s *Store) Update(ctx context.Context, userID string, mutate func(*goSession.UserRecord) error) (*goSession.UserRecord, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, goSession.ErrUserNotFound
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin user update tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("lock user row: %w", err)
	}

	if err := mutate(u); err != nil {
		return nil, err
	}

	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	_, err = tx.Exec(ctx, `
		UPDATE users SET
			display_name = $2,
			password_hash = $3,
			roles = $4,
			is_active = $5,
			mfa_enabled = $6,
			totp_secret = $7,
			failed_login_attempts = $8,
			locked_until = $9,
			updated_at = now()
		WHERE id = $1
	`,
		userID,
		u.DisplayName,
		u.PasswordHash,
		roles,
		u.Active,
		u.MFAEnabled,
		u.TOTPSecret,
		u.FailedLoginAttempts,
		u.LockedUntil,
	)
	if err != nil {
		return nil, fmt.Errorf("write user row: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit user update: %w", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*goSession.UserRecord, error) {
	var u goSession.UserRecord
	var lockedUntil *time.Time
	err := row.Scan(
		&u.UserID,
		&u.Username,
		&u.Email,
		&u.DisplayName,
		&u.PasswordHash,
		&u.Roles,
		&u.Active,
		&u.MFAEnabled,
		&u.TOTPSecret,
		&u.FailedLoginAttempts,
		&lockedUntil,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goSession.ErrUserNotFound
		}
		return nil, err
	}
	if lockedUntil != nil {
		t := lockedUntil.UTC()
		u.LockedUntil = &t
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
