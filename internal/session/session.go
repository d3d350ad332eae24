// Package session keeps a registry of running recorded sessions so other
// wtg invocations can find them.
package session

import (
	"errors"
	"syscall"
	"time"
)

// Record describes a running recorded session.
type Record struct {
	ID        string    `json:"id"`
	LogPath   string    `json:"log_path"`
	Shell     string    `json:"shell"`
	PID       int       `json:"pid"` // the recorded shell
	StartTime time.Time `json:"start_time"`
	WorkDir   string    `json:"work_dir"`
	Hooks     bool      `json:"hooks"` // boundaries come from shell hooks, not typed newlines
}

// Alive reports whether the recorded shell is still running. A session
// whose recorder was killed leaves a record behind with a dead PID.
func (r *Record) Alive() bool {
	if r.PID <= 0 {
		return false
	}
	err := syscall.Kill(r.PID, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
