package ports

import "context"

// ChangeWatcher reports changes to watched files
type ChangeWatcher interface {
	// Watch calls onChange with the path of every changed file until ctx is
	// done. Bursts of events for one file are coalesced.
	Watch(ctx context.Context, paths []string, onChange func(path string)) error
}
