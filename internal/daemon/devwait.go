package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// devicePollInterval backs up fsnotify while waiting for the device node.
const devicePollInterval = 500 * time.Millisecond

// WaitForPath blocks until path exists, the timeout passes, or ctx is
// cancelled. A non-positive timeout waits until cancellation. Boot order is
// not guaranteed: the daemon can start before the sequencer device node
// exists, so it watches the parent directory for creations and polls as a
// fallback for filesystems that never signal.
func WaitForPath(ctx context.Context, path string, timeout time.Duration) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	var deadlineC <-chan time.Time
	if timeout > 0 {
		deadline := time.NewTimer(timeout)
		defer deadline.Stop()
		deadlineC = deadline.C
	}

	ticker := time.NewTicker(devicePollInterval)
	defer ticker.Stop()

	// Best effort: the parent directory may not exist yet, in which case
	// the ticker alone carries the wait.
	var events chan fsnotify.Event
	var errs chan error
	if watcher, err := fsnotify.NewWatcher(); err == nil {
		defer func() { _ = watcher.Close() }()
		if err := watcher.Add(filepath.Dir(path)); err == nil {
			events = watcher.Events
			errs = watcher.Errors
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-deadlineC:
			return fmt.Errorf("%s did not appear within %s", path, timeout)

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Has(fsnotify.Create) && ev.Name == path {
				return nil
			}

		case _, ok := <-errs:
			if !ok {
				errs = nil
			}

		case <-ticker.C:
			if _, err := os.Stat(path); err == nil {
				return nil
			}
		}
	}
}
