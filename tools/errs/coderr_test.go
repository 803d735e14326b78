package errs

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestCodeErrorIsThroughWrapping(t *testing.T) {
	err := ErrRecordNotFound.WrapMsg("user", "id", "42")
	wrapped := errors.Wrap(err, "find user")

	assert.True(t, ErrRecordNotFound.Is(wrapped))
	assert.False(t, ErrRecordIsExist.Is(wrapped))

	ce, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, RecordNotFoundError, ce.Code)
	assert.Equal(t, "user, id=42", ce.Detail)
}

func TestAsPlainError(t *testing.T) {
	_, ok := As(errors.New("boom"))
	assert.False(t, ok)
	_, ok = As(nil)
	assert.False(t, ok)
}

func TestWithDetailAppends(t *testing.T) {
	e := ErrArgs.WithDetail("email").WithDetail("password")
	assert.Equal(t, "email, password", e.Detail)
	assert.Equal(t, "1001 ArgsError email, password", e.Error())
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ArgsError))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(TokenInvalidError))
	assert.Equal(t, http.StatusConflict, HTTPStatus(RecordExistError))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(12345))
}

func TestErrPanic(t *testing.T) {
	assert.Nil(t, ErrPanic(nil))
	err := ErrPanic("nil map")
	ce, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, "nil map", ce.Detail)
}
