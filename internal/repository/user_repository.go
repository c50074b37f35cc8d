package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// Role flag columns that may be written individually.
const (
	RoleFlagAgent = "is_agent"
	RoleFlagAdmin = "is_admin"
)

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	SetRoleFlag(ctx context.Context, id int64, flag string, value bool) error
	ToggleRoleFlag(ctx context.Context, id int64, flag string) (bool, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	ListAgentCapable(ctx context.Context) ([]domain.User, error)
	Count(ctx context.Context) (int64, error)
	CountAgentCapable(ctx context.Context) (int64, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, username, email, password_hash, is_agent, is_admin`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (username, email, password_hash, is_agent, is_admin)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.IsAgent,
		user.IsAdmin,
	).Scan(&user.ID)
	return mapWriteError(err)
}

// SetRoleFlag writes a single role column, leaving the rest of the row alone.
func (r *userRepository) SetRoleFlag(ctx context.Context, id int64, flag string, value bool) error {
	column, err := roleColumn(flag)
	if err != nil {
		return err
	}
	cmd, err := r.pool.Exec(ctx, fmt.Sprintf(`UPDATE users SET %s=$1 WHERE id=$2`, column), value, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ToggleRoleFlag negates a role column in place and returns the stored value.
func (r *userRepository) ToggleRoleFlag(ctx context.Context, id int64, flag string) (bool, error) {
	column, err := roleColumn(flag)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`UPDATE users SET %[1]s = NOT %[1]s WHERE id=$1 RETURNING %[1]s`, column)
	var value bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&value); err != nil {
		return false, err
	}
	return value, nil
}

func roleColumn(flag string) (string, error) {
	switch flag {
	case RoleFlagAgent, RoleFlagAdmin:
		return flag, nil
	default:
		return "", fmt.Errorf("unknown role flag %q", flag)
	}
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	return r.fetchMany(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
}

func (r *userRepository) ListAgentCapable(ctx context.Context) ([]domain.User, error) {
	return r.fetchMany(ctx, `SELECT `+userColumns+` FROM users WHERE is_agent OR is_admin ORDER BY username`)
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r *userRepository) CountAgentCapable(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE is_agent OR is_admin`).Scan(&n)
	return n, err
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.IsAgent,
		&user.IsAdmin,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) fetchMany(ctx context.Context, query string) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Email,
			&user.PasswordHash,
			&user.IsAgent,
			&user.IsAdmin,
		); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}
