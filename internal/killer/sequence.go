package killer

import (
	"context"

	"github.com/ramsentinel/ramsentinel/internal/config"
	"github.com/ramsentinel/ramsentinel/internal/events"
)

// KillSequence repeatedly scans and terminates the top-ranked candidate
// until amountNeeded bytes have been freed (nil means "kill exactly one
// and stop", matching a PSI/RAM/swap trigger with no budget) or no
// candidates remain. emit is called once per lifecycle event so the
// caller's logging.Emitter and metrics stay decoupled from the engine.
//
// Grounded on original_source's Killer::kill_sequence: rescan every
// iteration (the world may have changed), pick candidates[0], terminate
// it, and either stop (budget met / no budget) or continue with the
// remaining need.
func (s *Scanner) KillSequence(ctx context.Context, rtCtx *config.RuntimeContext, amountNeeded *uint64, emit func(events.Event)) {
	if amountNeeded != nil && *amountNeeded == 0 {
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}

		candidates, err := s.Scan(rtCtx)
		if err != nil {
			emit(events.Event{Kind: events.KindKillSequenceAborted, Reason: err.Error()})
			return
		}
		if len(candidates) == 0 {
			emit(events.Event{Kind: events.KindKillSequenceAborted, Reason: "no eligible kill candidates found"})
			return
		}

		victim := candidates[0]
		emit(events.Event{
			Kind:        events.KindKillCandidateSel,
			PID:         victim.PID,
			ProcessName: victim.Name,
			Score:       victim.Score,
			RSS:         victim.RSSBytes,
			MatchIndex:  victim.MatchIndex,
		})

		exited, tier, err := s.terminate(ctx, victim, rtCtx.SigtermWaitMs)
		if err != nil || !exited {
			reason := "failed to terminate victim"
			if err != nil {
				reason = err.Error()
			}
			emit(events.Event{Kind: events.KindKillSequenceAborted, Reason: reason})
			return
		}

		emit(events.Event{
			Kind:        events.KindKillExecuted,
			Strategy:    tier,
			ProcessName: victim.Name,
			PID:         victim.PID,
			RSSFreed:    victim.RSSBytes,
		})

		if amountNeeded == nil {
			return
		}
		if victim.RSSBytes >= *amountNeeded {
			return
		}
		remaining := *amountNeeded - victim.RSSBytes
		amountNeeded = &remaining
	}
}
