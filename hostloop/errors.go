package hostloop

import "errors"

// ErrAlreadyRunning is returned by [Loop.Run] when called on a Loop that is
// already inside a Run call.
var ErrAlreadyRunning = errors.New("hostloop: already running")
