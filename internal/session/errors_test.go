package session

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBrowserClosed(t *testing.T) {
	closed := []error{
		ErrBrowserClosed,
		fmt.Errorf("wrap: %w", ErrBrowserClosed),
		errors.New("Target closed"),
		errors.New("chromedp: frame was detached"),
		errors.New("page load error net::ERR_ABORTED"),
		errors.New("websocket: use of closed network connection"),
	}
	for _, err := range closed {
		assert.True(t, IsBrowserClosed(err), "%v", err)
	}

	open := []error{
		nil,
		errors.New("HTTP 500"),
		errors.New("context deadline exceeded"),
	}
	for _, err := range open {
		assert.False(t, IsBrowserClosed(err), "%v", err)
	}
}

func TestAsBrowserClosed(t *testing.T) {
	assert.NoError(t, AsBrowserClosed(nil))

	err := AsBrowserClosed(errors.New("session closed, cannot send"))
	assert.ErrorIs(t, err, ErrBrowserClosed)

	plain := errors.New("HTTP 429")
	assert.Equal(t, plain, AsBrowserClosed(plain))
}
