package runtime

import (
	"fmt"
	"sync"

	"github.com/syssam/indexerd"
)

// maxTransientRetries bounds consecutive transient batch failures (a
// single-batch module panic) before the session gives up and stops (§4.5:
// "batch retried up to a small bound, then Stopped").
const maxTransientRetries = 3

// Session is one indexer's execution state machine (§4.5):
//
//	Registered --start--> Running --batch-ok--> Running
//	                        |  `--batch-err(transient)--'
//	                        |--batch-err(fatal)--> Stopped
//	                        `--end-block reached--> Completed
type Session struct {
	mu              sync.Mutex
	status          indexerd.Status
	transientErrors int
}

// NewSession creates a session in the Registered state.
func NewSession() *Session {
	return &Session{status: indexerd.StatusRegistered}
}

// Status returns the current state.
func (s *Session) Status() indexerd.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Start transitions Registered -> Running.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != indexerd.StatusRegistered {
		return fmt.Errorf("runtime: session: cannot start from status %q", s.status)
	}
	s.status = indexerd.StatusRunning
	return nil
}

// BatchOK records a clean batch commit; stays Running.
func (s *Session) BatchOK() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transientErrors = 0
}

// BatchFailed records a batch failure. fatal transitions directly to
// Stopped; transient failures are tolerated up to maxTransientRetries before
// the session also stops.
func (s *Session) BatchFailed(fatal bool) indexerd.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fatal {
		s.status = indexerd.StatusStopped
		return s.status
	}
	s.transientErrors++
	if s.transientErrors > maxTransientRetries {
		s.status = indexerd.StatusStopped
	}
	return s.status
}

// Complete transitions Running -> Completed (the configured end-block was
// reached).
func (s *Session) Complete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != indexerd.StatusRunning {
		return fmt.Errorf("runtime: session: cannot complete from status %q", s.status)
	}
	s.status = indexerd.StatusCompleted
	return nil
}
