package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
	"github.com/yourorg/storefront/internal/domain"
)

// PostgresUserRepository implements domain.UserRepository using PostgreSQL
type PostgresUserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresUserRepository creates a new user repository
func NewPostgresUserRepository(db *sql.DB, logger *slog.Logger) *PostgresUserRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new user. Unique violations on username or email map to
// the corresponding domain error so a concurrent duplicate registration is
// caught even when the service-level pre-check raced.
func (r *PostgresUserRepository) Create(user *domain.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, full_name, disabled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(
		query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.Disabled,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			if pqErr.Constraint == "users_email_key" {
				return domain.ErrEmailTaken
			}
			return domain.ErrUsernameTaken
		}
		r.logger.Error("failed to create user",
			slog.String("username", user.Username),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *PostgresUserRepository) GetByID(id int64) (*domain.User, error) {
	return r.getOne(`WHERE id = $1`, id)
}

// GetByUsername retrieves a user by username
func (r *PostgresUserRepository) GetByUsername(username string) (*domain.User, error) {
	return r.getOne(`WHERE username = $1`, username)
}

// GetByEmail retrieves a user by email
func (r *PostgresUserRepository) GetByEmail(email string) (*domain.User, error) {
	return r.getOne(`WHERE email = $1`, email)
}

func (r *PostgresUserRepository) getOne(where string, arg any) (*domain.User, error) {
	user := &domain.User{}

	query := `
		SELECT id, username, email, password_hash, full_name, disabled, created_at
		FROM users
	` + where

	err := r.db.QueryRow(query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.Disabled,
		&user.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// Update updates an existing user's mutable fields
func (r *PostgresUserRepository) Update(user *domain.User) error {
	query := `
		UPDATE users
		SET email = $1, password_hash = $2, full_name = $3, disabled = $4
		WHERE id = $5
	`

	result, err := r.db.Exec(
		query,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.Disabled,
		user.ID,
	)
	if err != nil {
		r.logger.Error("failed to update user",
			slog.Int64("id", user.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}
