package transport

import "errors"

// ErrAlreadyConnected is returned by Connect on a Conn that is already
// connected.
var ErrAlreadyConnected = errors.New("transport: already connected")

// ErrNotConnected is returned by SendAll/RecvSome/Shutdown when called
// before a successful Connect or after Disconnect.
var ErrNotConnected = errors.New("transport: not connected")
