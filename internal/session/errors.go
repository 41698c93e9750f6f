package session

import (
	"errors"
	"strings"
)

// ErrBrowserClosed is terminal for the whole job: the operator closed the
// window or the devtools target went away.
var ErrBrowserClosed = errors.New("browser closed")

// ErrLoginAborted means the user cancelled (or the window died) while the
// login prompt was pending.
var ErrLoginAborted = errors.New("login aborted")

// closedSignatures are the CDP/driver message fragments that mean the
// browser target is gone rather than a retriable network hiccup.
var closedSignatures = []string{
	"target closed",
	"page closed",
	"browser closed",
	"frame was detached",
	"session closed",
	"websocket url timeout",
	"net::err_aborted",
	"context canceled while waiting for target",
	"chrome failed to start",
	"broken pipe",
	"use of closed network connection",
}

// IsBrowserClosed classifies an error against the closed-browser signature
// set.
func IsBrowserClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrBrowserClosed) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, sig := range closedSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// AsBrowserClosed translates matching errors into ErrBrowserClosed and
// passes everything else through.
func AsBrowserClosed(err error) error {
	if err == nil {
		return nil
	}
	if IsBrowserClosed(err) {
		return ErrBrowserClosed
	}
	return err
}
