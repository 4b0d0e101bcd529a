package repositories

import (
	"errors"

	"sdp-backend/internal/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// notFound turns pgx.ErrNoRows into apperr.ErrNotFound
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrNotFound
	}
	return err
}

// conflict maps unique violations on identity columns to their domain error
func conflict(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case "accounts_email_key", "admin_accounts_email_key":
		return apperr.ErrEmailTaken
	case "accounts_mobile_key":
		return apperr.ErrMobileTaken
	}
	return err
}
