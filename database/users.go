package database

import (
	"context"
	"time"

	"github.com/mbolis/uss/model"
)

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO user (username, password_hash, is_staff) VALUES (?, ?, ?)
		RETURNING id`,
		u.Username,
		u.PasswordHash,
		u.IsStaff,
	).Scan(&u.ID)
	if err != nil {
		return translate(err, "db.insert_user")
	}
	return nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (u model.User, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, is_staff FROM user
		WHERE username = ?`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsStaff)
	if err != nil {
		err = translate(err, "db.get_user")
	}
	return
}

func (s *Store) SetStaff(ctx context.Context, username string, staff bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE user SET is_staff = ?
		WHERE username = ?`,
		staff,
		username,
	)
	if err != nil {
		return translate(err, "db.update_user_staff")
	}
	return expectOne(res, "db.update_user_staff")
}

func (s *Store) StoreToken(ctx context.Context, username, tokenID, refreshTokenID string, expiration time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO token (username, token_id, refresh_token_id, expiration)
		VALUES (?, ?, ?, ?)`,
		username,
		tokenID,
		refreshTokenID,
		expiration.UTC(),
	)
	if err != nil {
		return translate(err, "db.insert_token")
	}
	return nil
}

func (s *Store) ConsumeToken(ctx context.Context, username, tokenID, refreshTokenID string) (expiration time.Time, err error) {
	err = s.db.QueryRowContext(ctx, `
		DELETE FROM token
		WHERE username = ?
			AND token_id = ?
			AND refresh_token_id = ?
		RETURNING expiration`,
		username,
		tokenID,
		refreshTokenID,
	).Scan(&expiration)
	if err != nil {
		err = translate(err, "db.consume_token")
	}
	return
}

func (s *Store) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM token WHERE expiration < ?`,
		now.UTC(),
	)
	if err != nil {
		return 0, translate(err, "db.delete_expired_tokens")
	}
	return res.RowsAffected()
}
