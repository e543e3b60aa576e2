package service

import "errors"

// ErrClientOffline marks a reply send that failed because the client socket
// is gone (ECONNREFUSED/ENOENT and friends). The service loop logs and
// continues rather than treating this as fatal.
var ErrClientOffline = errors.New("service: client off-line")

// ErrConfig marks a malformed RESTART/RESTART_FILE payload (bad YAML or a
// validation failure). RESTART replies with the previous config rather than
// propagating this to the caller.
var ErrConfig = errors.New("service: invalid configuration")
