// Package events defines ram-sentinel's event taxonomy: the tagged union
// emitted by the sampler and kill engine toward the logging sink.
//
// Grounded on original_source/src/events.rs: the same variant set, the same
// severity mapping, the same Display-style human message per variant.
package events

import "fmt"

// Level is event severity, ordered Error < Warn < Info < Debug (lower is
// more severe), matching original_source's repr(u8) ordering so "greater
// than configured level" filtering composes the same way.
type Level int

const (
	LevelError Level = iota + 1
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "INFO"
	}
}

// ParseLevel parses a CLI/config log-level string.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "error":
		return LevelError, nil
	case "warn":
		return LevelWarn, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	default:
		return 0, fmt.Errorf("events: unknown log level %q", s)
	}
}

// Kind tags which Event variant a value holds.
type Kind string

const (
	KindMessage             Kind = "message"
	KindStartup             Kind = "startup"
	KindMonitor             Kind = "monitor"
	KindLowMemoryWarn       Kind = "low_memory_warn"
	KindLowSwapWarn         Kind = "low_swap_warn"
	KindPsiPressureWarn     Kind = "psi_pressure_warn"
	KindKillTriggered       Kind = "kill_triggered"
	KindKillCandidateSel    Kind = "kill_candidate_selected"
	KindKillExecuted        Kind = "kill_executed"
	KindKillSequenceAborted Kind = "kill_sequence_aborted"
	KindKillCandidateIgnore Kind = "kill_candidate_ignored"
)

// Event is the tagged union emitted by every subsystem. Only the payload
// fields grouped under an event's Kind are meaningful; the logging
// package's fieldsOf picks a subset of them for structured (JSON) output.
type Event struct {
	Kind Kind

	// Message
	Text string

	// Startup
	IntervalMs uint64

	// Monitor (debug heartbeat)
	MemAvailableBytes  *uint64
	MemAvailablePercent *float64
	SwapFreeBytes      *uint64
	SwapFreePercent    *float64
	PsiPressure        *float64

	// LowMemoryWarn / LowSwapWarn
	ObservedBytes   uint64
	ObservedPercent float64
	ThresholdType   string // "bytes" | "percent"
	ThresholdValue  float64

	// PsiPressureWarn
	PressureCurr float64
	Threshold    float64

	// KillTriggered
	Trigger       string
	ObservedValue float64
	AmountNeeded  *uint64

	// KillCandidateSelected
	PID          int
	ProcessName  string
	Score        uint64
	RSS          uint64
	MatchIndex   int // -1 == unmatched (infinite)

	// KillExecuted
	Strategy string
	RSSFreed uint64

	// KillSequenceAborted / KillCandidateIgnored
	Reason string
}

// Severity returns the log level this event is emitted at, matching
// original_source's SentinelEvent::severity mapping exactly:
// Monitor -> debug; Startup and kill-lifecycle (except KillTriggered) ->
// info; *Warn -> warn; KillTriggered -> error.
func (e Event) Severity() Level {
	switch e.Kind {
	case KindMessage:
		return e.messageLevel()
	case KindMonitor:
		return LevelDebug
	case KindStartup, KindKillCandidateSel, KindKillExecuted, KindKillSequenceAborted, KindKillCandidateIgnore:
		return LevelInfo
	case KindLowMemoryWarn, KindLowSwapWarn, KindPsiPressureWarn:
		return LevelWarn
	case KindKillTriggered:
		return LevelError
	default:
		return LevelInfo
	}
}

// messageLevel carries the level a generic Message event was constructed
// with (stored in ThresholdType as a cheap reuse — see NewMessage).
func (e Event) messageLevel() Level {
	lvl, err := ParseLevel(e.ThresholdType)
	if err != nil {
		return LevelInfo
	}
	return lvl
}

// String renders the compact, human Display form of the event.
func (e Event) String() string {
	switch e.Kind {
	case KindMessage:
		return e.Text
	case KindStartup:
		return fmt.Sprintf("ram-sentinel started. Interval: %dms", e.IntervalMs)
	case KindMonitor:
		avail := "N/A"
		if e.MemAvailableBytes != nil {
			avail = fmt.Sprintf("%d B", *e.MemAvailableBytes)
		}
		swap := "N/A"
		if e.SwapFreeBytes != nil {
			swap = fmt.Sprintf("%d B", *e.SwapFreeBytes)
		}
		psi := "N/A"
		if e.PsiPressure != nil {
			psi = fmt.Sprintf("%.2f", *e.PsiPressure)
		}
		return fmt.Sprintf("Memory: %s available, Swap: %s available, PSI: %s", avail, swap, psi)
	case KindLowMemoryWarn:
		return lowResourceString("Low RAM", e)
	case KindLowSwapWarn:
		return lowResourceString("Low Swap", e)
	case KindPsiPressureWarn:
		return fmt.Sprintf("Memory Pressure: %.2f%% (Limit: %.2f%%)", e.PressureCurr, e.Threshold)
	case KindKillTriggered:
		observed := fmt.Sprintf("%.2f%%", e.ObservedValue)
		limit := fmt.Sprintf("%.2f%%", e.ThresholdValue)
		if e.ThresholdType == "bytes" {
			observed = fmt.Sprintf("%d B", uint64(e.ObservedValue))
			limit = fmt.Sprintf("%d B", uint64(e.ThresholdValue))
		}
		return fmt.Sprintf("Kill Triggered: %s - Observed %s vs Limit %s", e.Trigger, observed, limit)
	case KindKillCandidateSel:
		matchStr := "None"
		if e.MatchIndex >= 0 {
			matchStr = fmt.Sprintf("%d", e.MatchIndex)
		}
		return fmt.Sprintf("Selected target: %s (PID %d). Score: %d, RSS: %d B, MatchIndex: %s",
			e.ProcessName, e.PID, e.Score, e.RSS, matchStr)
	case KindKillExecuted:
		return fmt.Sprintf("%s %s (PID %d). Freed: %d B", e.Strategy, e.ProcessName, e.PID, e.RSSFreed)
	case KindKillSequenceAborted:
		return fmt.Sprintf("Kill sequence aborted: %s", e.Reason)
	case KindKillCandidateIgnore:
		return fmt.Sprintf("Ignored candidate PID %d: %s", e.PID, e.Reason)
	default:
		return string(e.Kind)
	}
}

func lowResourceString(label string, e Event) string {
	if e.ThresholdType == "bytes" {
		return fmt.Sprintf("%s: %d B available (Limit: %d B)", label, e.ObservedBytes, uint64(e.ThresholdValue))
	}
	return fmt.Sprintf("%s: %d B (%.2f%%) available (Limit: %.2f%%)", label, e.ObservedBytes, e.ObservedPercent, e.ThresholdValue)
}

// NewMessage constructs a generic Message event at the given level.
func NewMessage(level Level, text string) Event {
	return Event{Kind: KindMessage, Text: text, ThresholdType: level.String2()}
}

// String2 renders the level as the lowercase token ParseLevel accepts,
// used internally to round-trip a Message event's level through the one
// spare string field it carries.
func (l Level) String2() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	default:
		return "info"
	}
}
