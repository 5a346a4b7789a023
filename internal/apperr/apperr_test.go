package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		NotFound:     http.StatusNotFound,
		Unauthorized: http.StatusUnauthorized,
		Forbidden:    http.StatusMethodNotAllowed,
		Conflict:     http.StatusBadRequest,
		InvalidState: http.StatusBadRequest,
		Invalid:      http.StatusUnprocessableEntity,
		Internal:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, Status(kind), kind.String())
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("delete tweet: %w", New(Forbidden, "You can only delete your tweets"))
	assert.Equal(t, Forbidden, KindOf(err))
	assert.True(t, Is(err, Forbidden))
	assert.False(t, Is(nil, Forbidden))
	assert.Equal(t, Internal, KindOf(errors.New("boom")))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil))

	cause := errors.New("connection reset")
	err := Wrap(cause)
	assert.Equal(t, Internal, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "connection reset", err.Error())

	nf := New(NotFound, "Tweet not found")
	assert.Same(t, nf, Wrap(nf))
}
