package jobs

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrAutomationPaused rejects automated submissions while the automation
// master switch is off. Manual submissions bypass it deliberately.
var ErrAutomationPaused = eris.New("jobs: automation paused")

// ValidationError rejects a submission before any job row is created.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "jobs: invalid submission: " + e.Reason
}

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// AdapterError marks a job-level external-collaborator fault, raised before
// any item was attempted. The eligible lead set is left untouched for retry.
type AdapterError struct {
	Adapter string
	Err     error
}

func (e *AdapterError) Error() string {
	return "jobs: adapter " + e.Adapter + " failed: " + e.Err.Error()
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}
