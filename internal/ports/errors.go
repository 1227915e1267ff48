package ports

import "errors"

// ErrSessionNotFound is returned by SnapshotStore.Load for unknown novels
var ErrSessionNotFound = errors.New("session not found")
