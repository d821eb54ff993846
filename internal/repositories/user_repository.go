package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"schemaboard/internal/models"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(user *models.User) error {
	ctx := context.Background()

	user.Prepare()

	query := `
		INSERT INTO users (id, name, email, password_hash, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Verified,
		time.Now(),
	)

	return err
}

func (r *UserRepository) FindUserByID(id uuid.UUID) (*models.User, error) {
	ctx := context.Background()

	query := `SELECT id, name, email, password_hash, verified, created_at, last_login_at
		FROM users WHERE id = $1`

	var user models.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Verified,
		&user.CreatedAt,
		&user.LastLoginAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

func (r *UserRepository) FindUserByEmail(email string) (*models.User, error) {
	ctx := context.Background()

	query := `SELECT id, name, email, password_hash, verified, created_at, last_login_at
		FROM users WHERE email = $1`

	var user models.User
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Verified,
		&user.CreatedAt,
		&user.LastLoginAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

func (r *UserRepository) UpdateProfile(id uuid.UUID, name string) error {
	ctx := context.Background()

	query := `UPDATE users SET name = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, name)
	return err
}

func (r *UserRepository) MarkVerified(id uuid.UUID) error {
	ctx := context.Background()

	query := `UPDATE users SET verified = true WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *UserRepository) TouchLastLogin(id uuid.UUID) error {
	ctx := context.Background()

	query := `UPDATE users SET last_login_at = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, time.Now())
	return err
}

func (r *UserRepository) Delete(id uuid.UUID) error {
	ctx := context.Background()

	query := `DELETE FROM users WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}
