package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/rahmatfadhil/elearn/database"
)

// ErrUniqueEmail is returned when an insert violates the email
// uniqueness constraint.
var ErrUniqueEmail = errors.New("email is not unique")

func Create(ctx context.Context, db sqlx.ExtContext, usr User) error {
	const q = `
	INSERT INTO users
		(user_id, name, email, role, password_hash, photo_url, photo_id, created_at, updated_at)
	VALUES
		(:user_id, :name, :email, :role, :password_hash, :photo_url, :photo_id, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, usr); err != nil {
		var pqerr *pq.Error
		if errors.As(err, &pqerr) && pqerr.Code.Name() == "unique_violation" {
			return ErrUniqueEmail
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, userID string) (User, error) {
	const q = `SELECT * FROM users WHERE user_id = $1`

	var usr User
	if err := sqlx.GetContext(ctx, db, &usr, q, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, database.ErrNotFound
		}
		return User{}, fmt.Errorf("selecting user: %w", err)
	}

	return usr, nil
}

func FetchByEmail(ctx context.Context, db sqlx.ExtContext, email string) (User, error) {
	const q = `SELECT * FROM users WHERE email = $1`

	var usr User
	if err := sqlx.GetContext(ctx, db, &usr, q, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, database.ErrNotFound
		}
		return User{}, fmt.Errorf("selecting user by email: %w", err)
	}

	return usr, nil
}

func UpdateName(ctx context.Context, db sqlx.ExtContext, userID string, name string) error {
	const q = `UPDATE users SET name = $2, updated_at = now() WHERE user_id = $1`

	if _, err := db.ExecContext(ctx, q, userID, name); err != nil {
		return fmt.Errorf("updating user name: %w", err)
	}

	return nil
}

func UpdatePhoto(ctx context.Context, db sqlx.ExtContext, up PhotoUp) error {
	const q = `
	UPDATE users SET
		photo_url = :photo_url,
		photo_id = :photo_id,
		updated_at = :updated_at
	WHERE user_id = :user_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, up); err != nil {
		return fmt.Errorf("updating user photo: %w", err)
	}

	return nil
}
