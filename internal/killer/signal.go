package killer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Termination tiers reported by terminate, matching the strategy label
// spec.md §4.4.3 requires on the resulting KillExecuted event: SIGTERM
// covers every graceful-success path (ESRCH on the initial send,
// stat-unreadable at verify, PID reuse at verify); SIGKILL covers
// escalation.
const (
	tierSIGTERM = "SIGTERM"
	tierSIGKILL = "SIGKILL"
)

// terminate runs the SIGTERM->wait->verify->SIGKILL state machine against
// a single victim, matching original_source's kill_process exactly:
// ESRCH on the initial SIGTERM means the process is already gone (treated
// as success); otherwise wait sigtermWaitMs, then check whether the PID
// still exists and, if it does, whether start_time still matches (a
// mismatch means the PID was reused and the original victim is gone).
// Returns (exited, tier, err): exited is true iff the victim is confirmed
// gone by the time terminate returns, and tier names which signal
// actually finished the job ("SIGTERM" or "SIGKILL").
func (s *Scanner) terminate(ctx context.Context, victim Champion, sigtermWaitMs uint64) (exited bool, tier string, err error) {
	if sendErr := unix.Kill(victim.PID, unix.SIGTERM); sendErr != nil {
		if errors.Is(sendErr, unix.ESRCH) {
			return true, tierSIGTERM, nil
		}
		return false, "", fmt.Errorf("killer: sigterm pid %d: %w", victim.PID, sendErr)
	}

	select {
	case <-ctx.Done():
		return false, "", ctx.Err()
	case <-time.After(time.Duration(sigtermWaitMs) * time.Millisecond):
	}

	stillAlive, startTime, statErr := s.probe(victim.PID)
	if !stillAlive {
		return true, tierSIGTERM, nil
	}
	if statErr == nil && startTime != victim.StartTime {
		// start_time changed: the original PID was reused by a new
		// process; the victim we targeted is already gone.
		return true, tierSIGTERM, nil
	}

	if sendErr := unix.Kill(victim.PID, unix.SIGKILL); sendErr != nil {
		if errors.Is(sendErr, unix.ESRCH) {
			return true, tierSIGKILL, nil
		}
		return false, "", fmt.Errorf("killer: sigkill pid %d: %w", victim.PID, sendErr)
	}
	return true, tierSIGKILL, nil
}

// probe reports whether pid still exists and, if so, its current
// start_time (field 22 of /proc/<pid>/stat), used for the PID-reuse check.
func (s *Scanner) probe(pid int) (alive bool, startTime uint64, err error) {
	st, statErr := readStartTime(s.root, pid)
	if statErr != nil {
		return false, 0, statErr
	}
	return true, st, nil
}
