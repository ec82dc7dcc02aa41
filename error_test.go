package docharvest_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/fwojciec/docharvest"
	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	t.Parallel()

	t.Run("nil error returns empty code", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, docharvest.ErrorCode(nil))
	})

	t.Run("application error returns its code", func(t *testing.T) {
		t.Parallel()
		err := docharvest.Errorf(docharvest.ENOTFOUND, "source %q not found", "docs")
		assert.Equal(t, docharvest.ENOTFOUND, docharvest.ErrorCode(err))
		assert.Equal(t, `source "docs" not found`, docharvest.ErrorMessage(err))
	})

	t.Run("wrapped application error is unwrapped", func(t *testing.T) {
		t.Parallel()
		err := fmt.Errorf("outer: %w", docharvest.Errorf(docharvest.ERATELIMIT, "slow down"))
		assert.Equal(t, docharvest.ERATELIMIT, docharvest.ErrorCode(err))
	})

	t.Run("foreign error is unknown", func(t *testing.T) {
		t.Parallel()
		err := errors.New("boom")
		assert.Equal(t, docharvest.EUNKNOWN, docharvest.ErrorCode(err))
		assert.Equal(t, "Internal error.", docharvest.ErrorMessage(err))
	})
}

func TestWrapError_KeepsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk full")
	err := docharvest.WrapError(docharvest.ESTORAGE, cause, "write cache")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, docharvest.ESTORAGE, docharvest.ErrorCode(err))
}

func TestHTTPStatusCode(t *testing.T) {
	t.Parallel()

	assert.Empty(t, docharvest.HTTPStatusCode(http.StatusOK))
	assert.Equal(t, docharvest.ERATELIMIT, docharvest.HTTPStatusCode(http.StatusTooManyRequests))
	assert.Equal(t, docharvest.EPERMISSION, docharvest.HTTPStatusCode(http.StatusForbidden))
	assert.Equal(t, docharvest.ENOTFOUND, docharvest.HTTPStatusCode(http.StatusNotFound))
	assert.Equal(t, docharvest.ETIMEOUT, docharvest.HTTPStatusCode(http.StatusGatewayTimeout))
	assert.Equal(t, docharvest.ENETWORK, docharvest.HTTPStatusCode(http.StatusBadGateway))
	assert.Equal(t, docharvest.EEXTERNAL, docharvest.HTTPStatusCode(http.StatusTeapot))
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	t.Run("deadline exceeded becomes timeout", func(t *testing.T) {
		t.Parallel()
		err := docharvest.ClassifyError(context.DeadlineExceeded)
		assert.Equal(t, docharvest.ETIMEOUT, docharvest.ErrorCode(err))
	})

	t.Run("cancellation is passed through", func(t *testing.T) {
		t.Parallel()
		err := docharvest.ClassifyError(context.Canceled)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, docharvest.EUNKNOWN, docharvest.ErrorCode(err))
	})

	t.Run("application errors are unchanged", func(t *testing.T) {
		t.Parallel()
		in := docharvest.Errorf(docharvest.EPARSE, "bad xml")
		assert.Same(t, in, docharvest.ClassifyError(in))
	})
}
