package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const attendeeEmailUniqConstraint = "attendees_event_email_uniq"

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isAttendeeEmailConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == attendeeEmailUniqConstraint
}
