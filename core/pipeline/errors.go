// ABOUTME: Sentinel errors for the pipeline package
// ABOUTME: ErrSchedulerRunning guards against starting the scheduler twice

package pipeline

import "errors"

// ErrSchedulerRunning is returned when Start is called twice
var ErrSchedulerRunning = errors.New("scheduler already running")
