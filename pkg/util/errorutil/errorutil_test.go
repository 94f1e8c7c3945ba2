package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestToDomainErrorMapsMissingRows(t *testing.T) {
	err := ToDomainError(fmt.Errorf("lookup: %w", pgx.ErrNoRows))
	assert.Equal(t, CodeNotFound, err.Code)
	assert.Equal(t, http.StatusNotFound, err.HTTPStatus)
}

func TestToDomainErrorKeepsDomainErrors(t *testing.T) {
	conflict := NewConflict("ticket is closed", map[string]any{"ticket_id": 4})
	wrapped := fmt.Errorf("add message: %w", conflict)
	got := ToDomainError(wrapped)
	assert.Equal(t, CodeConflict, got.Code)
	assert.Equal(t, 4, got.Details["ticket_id"])
	assert.True(t, HasCode(wrapped, CodeConflict))
}

func TestToDomainErrorDefaultsToInternal(t *testing.T) {
	got := ToDomainError(errors.New("boom"))
	assert.Equal(t, CodeInternal, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.HTTPStatus)
}

func TestMapErrorNil(t *testing.T) {
	assert.NoError(t, MapError(nil))
	assert.Nil(t, ToDomainError(nil))
}

func TestCollaboratorFailureUnwraps(t *testing.T) {
	cause := errors.New("deadline exceeded")
	err := NewCollaboratorFailure("assistant", cause)
	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodeCollaborator))
}
