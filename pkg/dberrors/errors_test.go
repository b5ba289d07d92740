package dberrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorWrapping(t *testing.T) {
	base := errors.New("bucket not found")
	err := New(KindEntityDoesNotExist, "catalog.Entity", base)

	assert.True(t, Is(err, KindEntityDoesNotExist))
	assert.False(t, Is(err, KindValidation))
	assert.ErrorIs(t, err, base)

	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindEntityDoesNotExist, kind)
}

func TestKindOfNonDBError(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestFatalKinds(t *testing.T) {
	assert.True(t, KindDataCorruption.Fatal())
	assert.True(t, KindVersionMismatch.Fatal())
	assert.False(t, KindValidation.Fatal())
}
