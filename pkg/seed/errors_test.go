package seed

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinelOfItsKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &Error{Kind: KindColumnNotFound, Seeder: "2024_06_01_000000_users", Table: "users", Column: "c"})

	assert.ErrorIs(t, err, ErrColumnNotFound)
	assert.NotErrorIs(t, err, ErrTableNotFound)
	assert.Equal(t, KindColumnNotFound, KindOf(err))
	assert.Equal(t, `column "c" does not exist on table "users" (seeder "2024_06_01_000000_users")`, errors.Unwrap(err).Error())
}

func TestWriteFailureCarriesCause(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := &Error{Kind: KindWriteFailure, Seeder: "s", Table: "t", Err: cause}

	assert.ErrorIs(t, err, ErrWriteFailure)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, `seeder "s": write to table "t" failed: deadlock detected`, err.Error())
	assert.Equal(t, "write_failure", err.Kind.String())
}

func TestAbortError(t *testing.T) {
	err := &AbortError{Problems: []error{
		&Error{Kind: KindTableNotFound, Table: "ghosts"},
		&Error{Kind: KindMalformedDocument, Seeder: "x"},
	}}

	assert.ErrorIs(t, err, ErrPreflightFailed)
	assert.ErrorIs(t, err, ErrTableNotFound)
	assert.ErrorIs(t, err, ErrMalformedDocument)
	assert.Contains(t, err.Error(), "2 seeder(s) rejected")
	assert.Zero(t, KindOf(errors.New("plain")))
}
