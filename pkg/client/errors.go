package client

import "errors"

// ErrNotConnected is returned by operations that require an active
// connection when none exists.
var ErrNotConnected = errors.New("client: not connected")

// ErrNotRunning is returned by Write/Read/WriteAsync/ReadAsync when Run
// has not been started yet.
var ErrNotRunning = errors.New("client: receive loop not running")

// ErrAborted is delivered to an in-flight transaction's callback when
// the receive loop exits (connection lost or Stop called) before a
// reply arrived.
var ErrAborted = errors.New("client: transaction aborted by shutdown")

// ErrAlreadyRunning is returned by Run if called more than once.
var ErrAlreadyRunning = errors.New("client: already running")
