package aggregates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/okrbridge-backend/internal/domain/aggregates"
)

var (
	// ErrValidation marks malformed caller input.
	ErrValidation = errors.New("okr validation")
	// ErrConflict marks a lost compare-and-set on a versioned row.
	ErrConflict = errors.New("okr conflict")
	// ErrRetryable marks lock contention or a transient store failure.
	ErrRetryable = errors.New("okr retryable")
	// ErrConsistency marks stored state that breaks a cross-row rule, such as a dangling link.
	ErrConsistency = errors.New("okr consistency violation")
)

func tagged(sentinel error, format string, args ...any) error {
	return errors.Join(sentinel, errors.New(strings.TrimSpace(fmt.Sprintf(format, args...))))
}

func ValidationError(msg string) error { return tagged(ErrValidation, "%s", msg) }

func ConflictError(msg string) error { return tagged(ErrConflict, "%s", msg) }

func RetryableError(msg string) error { return tagged(ErrRetryable, "%s", msg) }

func ConsistencyError(format string, args ...any) error {
	return tagged(ErrConsistency, format, args...)
}

var sentinelCodes = []struct {
	err  error
	code domainagg.ErrorCode
}{
	{ErrValidation, domainagg.CodeValidation},
	{ErrConflict, domainagg.CodeConflict},
	{ErrRetryable, domainagg.CodeRetryable},
	{ErrConsistency, domainagg.CodeConsistencyViolation},
	{gorm.ErrRecordNotFound, domainagg.CodeNotFound},
	{gorm.ErrDuplicatedKey, domainagg.CodeConflict},
	{gorm.ErrForeignKeyViolated, domainagg.CodePreconditionFailed},
	{context.Canceled, domainagg.CodeRetryable},
	{context.DeadlineExceeded, domainagg.CodeRetryable},
}

var pgCodes = map[string]domainagg.ErrorCode{
	"23505": domainagg.CodeConflict,           // unique_violation
	"23503": domainagg.CodePreconditionFailed, // foreign_key_violation
	"40001": domainagg.CodeRetryable,          // serialization_failure
	"40P01": domainagg.CodeRetryable,          // deadlock_detected
	"55P03": domainagg.CodeRetryable,          // lock_not_available
}

// MapError classifies a failure from an OKR write into an aggregate error code.
// Errors that already carry a code pass through untouched.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		return err
	}
	for _, sc := range sentinelCodes {
		if errors.Is(err, sc.err) {
			return domainagg.Wrap(sc.code, op, err)
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if code, ok := pgCodes[strings.TrimSpace(pgErr.Code)]; ok {
			return domainagg.Wrap(code, op, err)
		}
	}
	return domainagg.Wrap(classifyMessage(err.Error()), op, err)
}

// classifyMessage covers drivers that only surface text, sqlite among them.
func classifyMessage(raw string) domainagg.ErrorCode {
	msg := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "unique constraint failed"),
		strings.Contains(msg, "already exists"):
		return domainagg.CodeConflict
	case strings.Contains(msg, "foreign key constraint failed"):
		return domainagg.CodePreconditionFailed
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "database table is locked"),
		strings.Contains(msg, "timeout"):
		return domainagg.CodeRetryable
	default:
		return domainagg.CodeInternal
	}
}
