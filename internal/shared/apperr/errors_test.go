package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMatchingThroughWrapping(t *testing.T) {
	err := fmt.Errorf("reserve: %w", Conflict("some seats are not available", "s1", "s2"))

	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, []string{"s1", "s2"}, OffendersOf(err))
	assert.Equal(t, "some seats are not available", MessageOf(err))
}

func TestInconsistencyUnwrapsCause(t *testing.T) {
	cause := Conflict("seat is no longer held", "s1")
	err := Inconsistency("reserved seat is no longer held by its reservation", cause, "s1")

	assert.ErrorIs(t, err, ErrInconsistency)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, KindInconsistency, KindOf(err))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Invalid("bad %s", "input"), http.StatusBadRequest},
		{NotFound("missing"), http.StatusNotFound},
		{Forbidden("nope"), http.StatusForbidden},
		{Conflict("taken"), http.StatusConflict},
		{Internal("db down", errors.New("dial tcp")), http.StatusInternalServerError},
		{errors.New("unclassified"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestUnclassifiedErrorsHideTheirMessage(t *testing.T) {
	err := errors.New("pq: connection refused")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal server error", MessageOf(err))
	assert.Nil(t, OffendersOf(err))
}

func TestWithOffenders(t *testing.T) {
	err := Invalid("seats must all belong to the reserved event").WithOffenders("a", "b")

	assert.Equal(t, []string{"a", "b"}, OffendersOf(err))
	assert.Equal(t, "invalid: seats must all belong to the reserved event", err.Error())
}
