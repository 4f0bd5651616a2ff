// Package sampler implements the periodic RAM/swap/PSI sampling and
// three-tier (Normal/Warn/Kill) priority evaluation.
//
// Grounded on original_source/src/monitor.rs (Monitor::check, should_kill,
// should_warn, can_warn, PSI pressure-from-counter-delta arithmetic), with
// the evaluation order reordered to RAM -> Swap -> PSI per the distilled
// specification (the original evaluates PSI first). Gauge reads use
// gopsutil/v4/mem the way other_examples' system_resource_protection_script
// sampler does, instead of the teacher's hand-rolled /proc/meminfo parser.
package sampler

import (
	"time"

	"github.com/shirou/gopsutil/v4/mem"

	"github.com/ramsentinel/ramsentinel/internal/config"
	"github.com/ramsentinel/ramsentinel/internal/events"
	"github.com/ramsentinel/ramsentinel/internal/psi"
)

// StatusKind tags a MonitorStatus.
type StatusKind int

const (
	StatusNormal StatusKind = iota
	StatusWarn
	StatusKill
)

// MonitorStatus is the sampler's single return value per spec.md §4.2:
// Normal, or a Warn/Kill carrying the event to emit.
type MonitorStatus struct {
	Kind  StatusKind
	Event events.Event
}

// Snapshot is the latest gauge readings, surfaced for the Monitor debug
// heartbeat event and metrics.
type Snapshot struct {
	MemAvailableBytes  uint64
	MemAvailablePercent float64
	SwapFreeBytes      uint64
	SwapFreePercent    float64
	PsiPressurePercent float64
	HavePsi            bool
}

// Sampler is the single-owner mutable state the main loop polls on each
// tick. It must be driven from exactly one goroutine (spec.md invariant a).
type Sampler struct {
	psi *psi.Reader

	havePsiBaseline bool
	lastPsiTotal    uint64
	lastPsiTime     time.Time

	haveLastWarn bool
	lastWarnTime time.Time

	latest Snapshot
}

// New returns a Sampler reading PSI from the real /proc.
func New() *Sampler { return &Sampler{psi: psi.New()} }

// NewWithPSI returns a Sampler using a caller-supplied PSI reader, for
// tests that point it at a fake procfs tree.
func NewWithPSI(r *psi.Reader) *Sampler { return &Sampler{psi: r} }

// Latest returns the most recent gauge snapshot, valid after the first
// Check call.
func (s *Sampler) Latest() Snapshot { return s.latest }

// Check refreshes RAM/swap/PSI gauges and evaluates the three-tier
// priority engine, returning at most one event this tick.
func (s *Sampler) Check(ctx *config.RuntimeContext) (MonitorStatus, error) {
	now := time.Now()

	vm, err := mem.VirtualMemory()
	if err != nil {
		return MonitorStatus{}, err
	}
	sm, err := mem.SwapMemory()
	if err != nil {
		return MonitorStatus{}, err
	}

	s.latest.MemAvailableBytes = vm.Available
	if vm.Total > 0 {
		s.latest.MemAvailablePercent = float64(vm.Available) / float64(vm.Total) * 100
	}
	s.latest.SwapFreeBytes = sm.Free
	if sm.Total > 0 {
		s.latest.SwapFreePercent = float64(sm.Free) / float64(sm.Total) * 100
	}

	var pendingWarn *events.Event

	if ctx.RAM != nil {
		if st := s.evaluateGauge(ctx, "ram", ctx.RAM, vm.Available, vm.Total, now); st != nil {
			if st.Kind == StatusKill {
				return *st, nil
			}
			pendingWarn = &st.Event
		}
	}

	if ctx.Swap != nil && sm.Total > 0 {
		if st := s.evaluateGauge(ctx, "swap", ctx.Swap, sm.Free, sm.Total, now); st != nil {
			if st.Kind == StatusKill {
				return *st, nil
			}
			if pendingWarn == nil {
				pendingWarn = &st.Event
			}
		}
	}

	if ctx.PSI != nil {
		if st, havePressure, pressure := s.evaluatePSI(ctx, now); st != nil {
			if st.Kind == StatusKill {
				return *st, nil
			}
			if pendingWarn == nil {
				pendingWarn = &st.Event
			}
		} else if havePressure {
			s.latest.PsiPressurePercent = pressure
			s.latest.HavePsi = true
		}
	}

	if pendingWarn != nil && s.canWarn(now, ctx.WarnResetMs) {
		s.lastWarnTime = now
		s.haveLastWarn = true
		return MonitorStatus{Kind: StatusWarn, Event: *pendingWarn}, nil
	}

	return MonitorStatus{Kind: StatusNormal}, nil
}

// canWarn implements the warn-reset cooldown (spec.md §4.2 step 5): a
// pending warn is only emitted once warnResetMs has elapsed since the
// last one (or none has fired yet).
func (s *Sampler) canWarn(now time.Time, warnResetMs uint64) bool {
	if !s.haveLastWarn {
		return true
	}
	return uint64(now.Sub(s.lastWarnTime).Milliseconds()) >= warnResetMs
}

// evaluateGauge implements should_kill/should_warn for one of RAM or swap,
// and the amount-needed computation of spec.md §4 ("Amount-needed
// computation").
func (s *Sampler) evaluateGauge(ctx *config.RuntimeContext, trigger string, th *config.MemoryThresholds, free, total uint64, now time.Time) *MonitorStatus {
	var freePercent float64
	if total > 0 {
		freePercent = float64(free) / float64(total) * 100
	}

	if killTarget, ok := th.KillTarget(total); ok {
		crossed := crossesThreshold(th.KillMinFreeBytes != nil, th.KillMinFreePercent, free, freePercent, killTarget)
		if crossed {
			var amountNeeded uint64
			if killTarget > free {
				amountNeeded = killTarget - free
			}
			if amountNeeded > 0 {
				ev := events.Event{
					Kind:           events.KindKillTriggered,
					Trigger:        killTriggerName(trigger),
					ObservedValue:  float64(free),
					ThresholdValue: float64(killTarget),
					ThresholdType:  "bytes",
					AmountNeeded:   &amountNeeded,
				}
				return &MonitorStatus{Kind: StatusKill, Event: ev}
			}
			// amount_needed == 0: the system already recovered between
			// checks; downgrade silently rather than emit a no-op kill.
		}
	}

	if warnTarget, ok := th.WarnTarget(total); ok {
		crossed := crossesThreshold(th.WarnMinFreeBytes != nil, th.WarnMinFreePercent, free, freePercent, warnTarget)
		if crossed {
			kind := events.KindLowMemoryWarn
			if trigger == "swap" {
				kind = events.KindLowSwapWarn
			}
			ev := events.Event{
				Kind:            kind,
				ObservedBytes:   free,
				ObservedPercent: freePercent,
				ThresholdType:   "bytes",
				ThresholdValue:  float64(warnTarget),
			}
			if th.WarnMinFreeBytes == nil {
				ev.ThresholdType = "percent"
				ev.ThresholdValue = *th.WarnMinFreePercent
			}
			return &MonitorStatus{Kind: StatusWarn, Event: ev}
		}
	}

	return nil
}

// crossesThreshold mirrors should_kill/should_warn: a configured bytes
// threshold dominates the percent threshold at the same tier.
func crossesThreshold(bytesConfigured bool, percent *float64, free uint64, freePercent float64, effectiveTarget uint64) bool {
	if bytesConfigured {
		return free < effectiveTarget
	}
	if percent != nil {
		return freePercent < *percent
	}
	return false
}

func killTriggerName(trigger string) string {
	if trigger == "swap" {
		return "LowSwap"
	}
	return "LowMemory"
}

// evaluatePSI implements the counter-delta pressure computation of
// spec.md §4.2 step 4. It returns (status, havePressure, pressurePercent);
// status is nil when no warn/kill fired this tick, in which case the
// caller should still record pressurePercent if havePressure is true.
func (s *Sampler) evaluatePSI(ctx *config.RuntimeContext, now time.Time) (*MonitorStatus, bool, float64) {
	elapsedSinceLastSample := time.Duration(0)
	if !s.lastPsiTime.IsZero() {
		elapsedSinceLastSample = now.Sub(s.lastPsiTime)
	}
	if s.havePsiBaseline && elapsedSinceLastSample.Milliseconds() < int64(ctx.PSI.CheckIntervalMs) {
		return nil, false, 0
	}

	currTotal, err := s.psi.ReadTotal()
	if err != nil {
		return nil, false, 0
	}
	currTime := now

	if !s.havePsiBaseline {
		s.lastPsiTotal = currTotal
		s.lastPsiTime = currTime
		s.havePsiBaseline = true
		return nil, false, 0
	}

	timeDeltaUs := float64(currTime.Sub(s.lastPsiTime).Microseconds())
	totalDelta := float64(psi.DeltaU64(currTotal, s.lastPsiTotal))
	pressure := psi.SafeDiv(totalDelta, timeDeltaUs) * 100

	s.lastPsiTotal = currTotal
	s.lastPsiTime = currTime

	if ctx.PSI.KillMaxPercent != nil && pressure > *ctx.PSI.KillMaxPercent {
		amount := uint64(ctx.PSI.AmountToFree)
		ev := events.Event{
			Kind:          events.KindKillTriggered,
			Trigger:       "PsiPressure",
			ObservedValue: pressure,
			ThresholdType: "percent",
			ThresholdValue: *ctx.PSI.KillMaxPercent,
			AmountNeeded:  &amount,
		}
		return &MonitorStatus{Kind: StatusKill, Event: ev}, true, pressure
	}

	if ctx.PSI.WarnMaxPercent != nil && pressure > *ctx.PSI.WarnMaxPercent {
		ev := events.Event{
			Kind:         events.KindPsiPressureWarn,
			PressureCurr: pressure,
			Threshold:    *ctx.PSI.WarnMaxPercent,
		}
		return &MonitorStatus{Kind: StatusWarn, Event: ev}, true, pressure
	}

	return nil, true, pressure
}
