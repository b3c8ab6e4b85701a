package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("unique violation")

	assert.Equal(t, KindNotFound, KindOf(NotFound("get", 3)))
	assert.Equal(t, KindInvalid, KindOf(Invalid("create", cause)))
	assert.Equal(t, KindInternal, KindOf(Internal("list", cause)))
	assert.Equal(t, KindInternal, KindOf(cause))

	wrapped := fmt.Errorf("handler: %w", NotFound("delete", 9))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsInvalid(wrapped))
	assert.False(t, IsNotFound(nil))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "get: not found (id 3)", NotFound("get", 3).Error())

	err := Invalid("create", errors.New("boom"))
	assert.Equal(t, "create: invalid: boom", err.Error())
	assert.True(t, errors.Is(err, errors.Unwrap(err)))
}
