package segment

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watch follows the log at path and calls fn for every command that
// finishes after Watch starts, in order. It returns when ctx is cancelled.
func Watch(ctx context.Context, path string, fn func(Segment)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	segs, err := Scan(path)
	if err != nil {
		return err
	}
	seen := countComplete(segs)

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) {
				continue
			}
			segs, err := Scan(path)
			if err != nil {
				// The log may be mid-rotation; try again on the next event.
				continue
			}
			var complete []Segment
			for _, s := range segs {
				if s.Complete {
					complete = append(complete, s)
				}
			}
			if len(complete) < seen {
				// Truncated underneath us: start counting afresh.
				seen = 0
			}
			for _, s := range complete[seen:] {
				fn(s)
			}
			seen = len(complete)

		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Watcher errors are non-fatal; continue watching.
		}
	}
}

func countComplete(segs []Segment) int {
	n := 0
	for _, s := range segs {
		if s.Complete {
			n++
		}
	}
	return n
}
