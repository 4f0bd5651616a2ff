// Package logging sinks sentinel events to stdout (compact text or JSON)
// and, for warn/kill-class events, to the desktop notification daemon.
//
// Grounded on original_source/src/logging.rs: the same filtering rule
// (skip events less severe than the configured level) and the same
// notification triggers — built on zap the way other_examples' Phoenix
// safety-monitor and octoreflex main wire it, in place of the teacher's
// bare log/slog (reserved here for pre-init bootstrap errors only,
// matching cmd/consumption/main.go).
package logging

import (
	"os"
	"os/exec"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ramsentinel/ramsentinel/internal/events"
)

// Format selects the stdout encoding.
type Format int

const (
	FormatCompact Format = iota
	FormatJSON
)

func ParseFormat(s string) Format {
	if s == "json" {
		return FormatJSON
	}
	return FormatCompact
}

// Emitter filters, formats and dispatches events. The embedded
// zap.AtomicLevel lets --log-level be changed at runtime without
// reconstructing the logger, mirroring the Rust side's AtomicU8 cell.
type Emitter struct {
	level  zap.AtomicLevel
	logger *zap.Logger
	notify bool
}

// New builds an Emitter writing to stdout in the given format at the given
// initial level. notify controls whether warn/kill events also fan out to
// the desktop notification daemon.
func New(format Format, level events.Level, notify bool) *Emitter {
	atomicLevel := zap.NewAtomicLevelAt(toZapLevel(level))

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if format == FormatJSON {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		consoleCfg := encoderCfg
		consoleCfg.ConsoleSeparator = " "
		encoder = zapcore.NewConsoleEncoder(consoleCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), atomicLevel)
	logger := zap.New(core)

	return &Emitter{level: atomicLevel, logger: logger, notify: notify}
}

// SetLevel changes the minimum emitted severity at runtime.
func (e *Emitter) SetLevel(level events.Level) { e.level.SetLevel(toZapLevel(level)) }

// Emit filters ev by the configured level, writes it to stdout, and (for
// applicable kinds) forwards it to the desktop notification side channel.
func (e *Emitter) Emit(ev events.Event) {
	msg := ev.String()
	fields := fieldsOf(ev)

	switch ev.Severity() {
	case events.LevelDebug:
		e.logger.Debug(msg, fields...)
	case events.LevelInfo:
		e.logger.Info(msg, fields...)
	case events.LevelWarn:
		e.logger.Warn(msg, fields...)
	case events.LevelError:
		e.logger.Error(msg, fields...)
	}

	if e.notify {
		notifyFor(ev)
	}
}

// Sync flushes the underlying zap core.
func (e *Emitter) Sync() error { return e.logger.Sync() }

func fieldsOf(ev events.Event) []zap.Field {
	fields := []zap.Field{zap.String("kind", string(ev.Kind))}
	switch ev.Kind {
	case events.KindKillTriggered:
		fields = append(fields, zap.String("trigger", ev.Trigger), zap.Float64("observed", ev.ObservedValue))
	case events.KindKillExecuted:
		fields = append(fields, zap.Int("pid", ev.PID), zap.String("process", ev.ProcessName), zap.Uint64("rss_freed", ev.RSSFreed))
	case events.KindKillCandidateSel:
		fields = append(fields, zap.Int("pid", ev.PID), zap.String("process", ev.ProcessName), zap.Int("match_index", ev.MatchIndex))
	}
	return fields
}

func toZapLevel(l events.Level) zapcore.Level {
	switch l {
	case events.LevelError:
		return zapcore.ErrorLevel
	case events.LevelWarn:
		return zapcore.WarnLevel
	case events.LevelDebug:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// notifyFor mirrors original_source's emit_notification match: only
// warn-class and kill-lifecycle events reach the desktop, each with a
// distinct summary/icon pair. No pack library offers desktop notifications
// (see DESIGN.md), so this shells out to notify-send the way a systemd
// user service's $DISPLAY/$DBUS_SESSION_BUS_ADDRESS environment permits.
func notifyFor(ev events.Event) {
	switch ev.Kind {
	case events.KindLowMemoryWarn, events.KindLowSwapWarn, events.KindPsiPressureWarn:
		sendNotification("Low Memory Warning", ev.String(), "dialog-warning")
	case events.KindKillExecuted:
		sendNotification("System Load Shedding", ev.String(), "process-stop")
	case events.KindKillTriggered:
		sendNotification("Kill Sequence Initiated", ev.String(), "process-stop")
	case events.KindMessage:
		switch ev.Severity() {
		case events.LevelWarn:
			sendNotification("ram-sentinel Warning", ev.Text, "dialog-warning")
		case events.LevelError:
			sendNotification("ram-sentinel Error", ev.Text, "dialog-error")
		}
	}
}

// sendNotification shells out to notify-send and silently ignores failure:
// a headless install with no notification daemon running is expected, not
// an error.
func sendNotification(summary, body, icon string) {
	_ = exec.Command("notify-send", "-i", icon, summary, body).Run()
}
