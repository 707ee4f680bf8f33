package db

import (
	"context"

	"github.com/gatewarden/gatewarden/internal/twofactor/entity"
)

func (s *DB) GetUserLoginInfo(ctx context.Context, email string) (_ *entity.UserLoginInfo, err error) {
	ctx, span := s.startSpan(ctx, "GetUserLoginInfo")
	defer func() { s.endSpan(span, err) }()

	const query = `
		SELECT id, email, status, password, two_factor_enabled
		FROM users
		WHERE email = $1 AND deleted_at IS NULL
	`

	var out entity.UserLoginInfo
	err = s.conn.QueryRow(ctx, query, email).Scan(
		&out.ID, &out.Email, &out.Status, &out.Password, &out.TwoFactorEnabled,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &out, nil
}

func (s *DB) GetUserCredentialInfo(ctx context.Context, id int64) (_ *entity.UserCredentialInfo, err error) {
	ctx, span := s.startSpan(ctx, "GetUserCredentialInfo")
	defer func() { s.endSpan(span, err) }()

	const query = `
		SELECT id, email, status, password
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`

	var out entity.UserCredentialInfo
	err = s.conn.QueryRow(ctx, query, id).Scan(
		&out.ID, &out.Email, &out.Status, &out.Password,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &out, nil
}

func (s *DB) GetTwoFactorCredential(ctx context.Context, userID int64) (_ *entity.TwoFactorCredential, err error) {
	ctx, span := s.startSpan(ctx, "GetTwoFactorCredential")
	defer func() { s.endSpan(span, err) }()

	const query = `
		SELECT id, COALESCE(two_factor_secret, ''), two_factor_enabled, COALESCE(two_factor_recovery_codes, '')
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`

	var out entity.TwoFactorCredential
	err = s.conn.QueryRow(ctx, query, userID).Scan(
		&out.UserID, &out.SealedSeed, &out.Enabled, &out.SealedRecoveryCodes,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &out, nil
}
