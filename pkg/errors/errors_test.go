package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndCode(t *testing.T) {
	err := New(InvalidInput, "bad seed list")
	assert.Equal(t, "bad seed list", err.Error())
	assert.Equal(t, InvalidInput, Code(err))
}

func TestWrapPreservesOriginal(t *testing.T) {
	original := fmt.Errorf("disk full")
	err := Wrap(original, PersistenceFailed, "failed to store version")

	assert.Equal(t, "failed to store version: disk full", err.Error())
	assert.Equal(t, PersistenceFailed, Code(err))
	assert.Equal(t, original, stderrors.Unwrap(err))
}

func TestWrapNilIsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, Unknown, "ignored"))
	assert.Nil(t, WithFields(nil, Fields{"k": "v"}))
}

func TestWithFieldsMergesContext(t *testing.T) {
	err := WithFields(New(ResourceNotFound, "no snapshot"), Fields{"generation": 3})
	err = WithFields(err, Fields{"expert_type": "reviewer"})

	var e *Error
	require.True(t, stderrors.As(err, &e))
	fields := e.Fields()
	assert.Equal(t, 3, fields["generation"])
	assert.Equal(t, "reviewer", fields["expert_type"])
	assert.Equal(t, ResourceNotFound, e.Code())
}

func TestIsMatchesByCode(t *testing.T) {
	err := Wrap(New(InvalidConfig, "elite too large"), InvalidConfig, "config rejected")
	assert.True(t, stderrors.Is(err, New(InvalidConfig, "any message")))
	assert.False(t, stderrors.Is(err, New(InvalidInput, "any message")))
}

func TestCodeOnForeignError(t *testing.T) {
	assert.Equal(t, Unknown, Code(fmt.Errorf("plain error")))
}

func TestCheckContext(t *testing.T) {
	assert.NoError(t, CheckContext(context.Background(), "evolution"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := CheckContext(ctx, "evolution")
	require.Error(t, err)
	assert.Equal(t, Canceled, Code(err))
	assert.Contains(t, err.Error(), "evolution canceled")
}
