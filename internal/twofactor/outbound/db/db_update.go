package db

import (
	"context"

	"github.com/gatewarden/gatewarden/internal/pkg/goerror"
)

func (s *DB) EnableTwoFactor(ctx context.Context, userID int64, sealedSeed, sealedCodes []byte) (err error) {
	ctx, span := s.startSpan(ctx, "EnableTwoFactor")
	defer func() { s.endSpan(span, err) }()

	const query = `
		UPDATE users
		SET two_factor_secret = $2,
			two_factor_enabled = TRUE,
			two_factor_recovery_codes = $3,
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	tag, err := s.conn.Exec(ctx, query, userID, sealedSeed, sealedCodes)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}

func (s *DB) DisableTwoFactor(ctx context.Context, userID int64) (err error) {
	ctx, span := s.startSpan(ctx, "DisableTwoFactor")
	defer func() { s.endSpan(span, err) }()

	const query = `
		UPDATE users
		SET two_factor_secret = NULL,
			two_factor_enabled = FALSE,
			two_factor_recovery_codes = NULL,
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	tag, err := s.conn.Exec(ctx, query, userID)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}

func (s *DB) ReplaceRecoveryCodes(ctx context.Context, userID int64, sealedCodes []byte) (err error) {
	ctx, span := s.startSpan(ctx, "ReplaceRecoveryCodes")
	defer func() { s.endSpan(span, err) }()

	const query = `
		UPDATE users
		SET two_factor_recovery_codes = $2,
			updated_at = NOW()
		WHERE id = $1 AND two_factor_enabled = TRUE AND deleted_at IS NULL
	`

	tag, err := s.conn.Exec(ctx, query, userID, sealedCodes)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}

// SwapRecoveryCodes replaces the sealed recovery code blob only when the
// stored blob still equals oldSealed. A false return means another request
// changed the blob first, so the caller's consume lost the race.
func (s *DB) SwapRecoveryCodes(ctx context.Context, userID int64, oldSealed, newSealed []byte) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "SwapRecoveryCodes")
	defer func() { s.endSpan(span, err) }()

	const query = `
		UPDATE users
		SET two_factor_recovery_codes = $3,
			updated_at = NOW()
		WHERE id = $1
			AND two_factor_enabled = TRUE
			AND two_factor_recovery_codes = $2
			AND deleted_at IS NULL
	`

	tag, err := s.conn.Exec(ctx, query, userID, oldSealed, newSealed)
	if err != nil {
		return false, s.mapError(err)
	}

	return tag.RowsAffected() == 1, nil
}
