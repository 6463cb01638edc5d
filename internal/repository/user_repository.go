package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"tchatsouvenir/bookshop/internal/model"
)

const userColumns = `id, email, first_name, last_name, password_hash, role, active,
	reset_token, reset_token_expiry, last_login, created_at`

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.Role, &u.Active,
		&u.ResetToken, &u.ResetTokenExpiry, &u.LastLogin, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	err := r.db.executor(ctx).QueryRow(ctx, `
		INSERT INTO users (id, email, first_name, last_name, password_hash, role, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		u.ID, u.Email, u.FirstName, u.LastName, u.PasswordHash, u.Role, u.Active,
	).Scan(&u.CreatedAt)
	return wrapErr(err, "create user")
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(r.db.executor(ctx).QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
	return u, wrapErr(err, "get user")
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(r.db.executor(ctx).QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE lower(email) = lower($1)", email))
	return u, wrapErr(err, "get user by email")
}

func (r *UserRepository) GetByResetToken(ctx context.Context, token string) (*model.User, error) {
	u, err := scanUser(r.db.executor(ctx).QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE reset_token = $1", token))
	return u, wrapErr(err, "get user by reset token")
}

// Update writes every mutable column of the user.
func (r *UserRepository) Update(ctx context.Context, u *model.User) error {
	tag, err := r.db.executor(ctx).Exec(ctx, `
		UPDATE users SET email = $2, first_name = $3, last_name = $4, password_hash = $5, role = $6,
			active = $7, reset_token = $8, reset_token_expiry = $9, last_login = $10
		WHERE id = $1`,
		u.ID, u.Email, u.FirstName, u.LastName, u.PasswordHash, u.Role,
		u.Active, u.ResetToken, u.ResetTokenExpiry, u.LastLogin,
	)
	return mustAffect(tag, err, "update user")
}
