package domain

import "errors"

// ErrWSDisconnect marks a connection-level stream failure. Supervisors match
// it with errors.Is to pick the short reconnect backoff.
var ErrWSDisconnect = errors.New("websocket disconnected")
