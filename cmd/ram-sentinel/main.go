// Command ram-sentinel is a userspace OOM-prevention daemon: it samples
// RAM, swap and PSI pressure, and terminates candidate processes before
// the kernel OOM-killer has to.
//
// Grounded on cmd/consumption/main.go's shape (cobra root command,
// signal.NotifyContext shutdown, log/slog for pre-init bootstrap errors)
// generalized from a one-shot sampling CLI to a long-running daemon, per
// original_source/src/main.rs's control flow.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ramsentinel/ramsentinel/internal/config"
	"github.com/ramsentinel/ramsentinel/internal/events"
	"github.com/ramsentinel/ramsentinel/internal/killer"
	"github.com/ramsentinel/ramsentinel/internal/logging"
	"github.com/ramsentinel/ramsentinel/internal/metrics"
	"github.com/ramsentinel/ramsentinel/internal/sampler"
	"github.com/ramsentinel/ramsentinel/internal/unit"
)

type cliOpts struct {
	configPath  string
	logFormat   string
	logLevel    string
	noKill      bool
	printConfig string
	printUnit   string
	metricsAddr string
}

func main() {
	var o cliOpts

	root := &cobra.Command{
		Use:   "ram-sentinel",
		Short: "Userspace out-of-memory prevention daemon",
		Long: `ram-sentinel samples RAM, swap and PSI (Pressure Stall Information)
and terminates candidate processes before the kernel OOM-killer freezes the
session.

Configuration is discovered under $XDG_CONFIG_HOME/ram-sentinel.{yaml,yml,json,toml}
or supplied with --config.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), o)
		},
		SilenceUsage: true,
	}

	root.Flags().StringVar(&o.configPath, "config", "", "path to a config file (overrides discovery)")
	root.Flags().StringVar(&o.logFormat, "log-format", "compact", "log output format: compact|json")
	root.Flags().StringVar(&o.logLevel, "log-level", "info", "minimum log level: error|warn|info|debug")
	root.Flags().BoolVar(&o.noKill, "no-kill", false, "dry run: evaluate the decision engine but never invoke the kill engine")
	root.Flags().StringVar(&o.printConfig, "print-config", "", "print the resolved configuration to a file (or \"-\" for stdout) and exit")
	root.Flags().StringVar(&o.printUnit, "print-systemd-user-unit", "", "print the systemd --user unit to a file (or \"-\" for stdout) and exit")
	root.Flags().StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. 127.0.0.1:9797); disabled if empty")
	root.Flags().Lookup("print-config").NoOptDefVal = "-"
	root.Flags().Lookup("print-systemd-user-unit").NoOptDefVal = "-"

	if err := root.Execute(); err != nil {
		var ce *config.Error
		if errors.As(err, &ce) {
			slog.Error(ce.Error())
			os.Exit(ce.Code)
		}
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, o cliOpts) error {
	if o.printUnit != "" {
		return printSink(o.printUnit, func() (string, error) { return unit.Render() })
	}

	totalRAM := uint64(0)
	if vm, err := mem.VirtualMemory(); err == nil {
		totalRAM = vm.Total
	}

	rtCtx, err := config.Load(o.configPath, totalRAM)
	if err != nil {
		return err
	}

	if o.printConfig != "" {
		return printSink(o.printConfig, func() (string, error) { return renderConfig(rtCtx) })
	}

	level, err := events.ParseLevel(o.logLevel)
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}

	emitter := logging.New(logging.ParseFormat(o.logFormat), level, true)
	defer func() { _ = emitter.Sync() }()

	var reg *metrics.Registry
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if o.metricsAddr != "" {
		reg = metrics.New()
		go func() {
			if err := metrics.Serve(ctx, o.metricsAddr, reg); err != nil {
				emitter.Emit(events.NewMessage(events.LevelWarn, fmt.Sprintf("metrics server stopped: %s", err)))
			}
		}()
	}

	emitter.Emit(events.Event{Kind: events.KindStartup, IntervalMs: rtCtx.CheckIntervalMs})

	samp := sampler.New()
	kill := killer.New()

	ticker := time.NewTicker(time.Duration(rtCtx.CheckIntervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			tick(ctx, rtCtx, samp, kill, emitter, reg, o.noKill)
		}
	}
}

func tick(ctx context.Context, rtCtx *config.RuntimeContext, samp *sampler.Sampler, kill *killer.Scanner, emitter *logging.Emitter, reg *metrics.Registry, noKill bool) {
	if reg != nil {
		reg.Ticks.Inc()
	}

	status, err := samp.Check(rtCtx)
	if err != nil {
		emitter.Emit(events.NewMessage(events.LevelWarn, fmt.Sprintf("sample error: %s", err)))
		return
	}

	snap := samp.Latest()
	emitter.Emit(events.Event{
		Kind:                events.KindMonitor,
		MemAvailableBytes:   &snap.MemAvailableBytes,
		MemAvailablePercent: &snap.MemAvailablePercent,
		SwapFreeBytes:       &snap.SwapFreeBytes,
		SwapFreePercent:     &snap.SwapFreePercent,
		PsiPressure:         psiPointer(snap),
	})
	if reg != nil && snap.HavePsi {
		reg.LastPSI.Set(snap.PsiPressurePercent)
	}

	switch status.Kind {
	case sampler.StatusWarn:
		emitter.Emit(status.Event)
		if reg != nil {
			reg.Warns.WithLabelValues(string(status.Event.Kind)).Inc()
		}
	case sampler.StatusKill:
		emitter.Emit(status.Event)
		if reg != nil {
			reg.KillsTriggered.WithLabelValues(status.Event.Trigger).Inc()
		}
		if noKill {
			emitter.Emit(events.NewMessage(events.LevelInfo, "--no-kill active"))
			return
		}
		kill.KillSequence(ctx, rtCtx, status.Event.AmountNeeded, func(ev events.Event) {
			emitter.Emit(ev)
			if reg != nil && ev.Kind == events.KindKillExecuted {
				reg.KillsExecuted.WithLabelValues(ev.Strategy).Inc()
				reg.RSSFreed.Add(float64(ev.RSSFreed))
			}
		})
	}
}

func psiPointer(s sampler.Snapshot) *float64 {
	if !s.HavePsi {
		return nil
	}
	v := s.PsiPressurePercent
	return &v
}

// renderConfig produces a YAML view of the resolved RuntimeContext for
// --print-config; it is not round-trippable into fileConfig (compiled
// patterns and byte thresholds are already resolved), by design: it shows
// the operator what ram-sentinel actually decided to run with.
func renderConfig(rtCtx *config.RuntimeContext) (string, error) {
	b, err := yaml.Marshal(describeConfig(rtCtx))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func describeConfig(rtCtx *config.RuntimeContext) map[string]interface{} {
	m := map[string]interface{}{
		"checkIntervalMs": rtCtx.CheckIntervalMs,
		"warnResetMs":     rtCtx.WarnResetMs,
		"sigtermWaitMs":   rtCtx.SigtermWaitMs,
		"killStrategy":    rtCtx.KillStrategy.String(),
	}
	if rtCtx.RAM != nil {
		m["ram"] = rtCtx.RAM
	}
	if rtCtx.Swap != nil {
		m["swap"] = rtCtx.Swap
	}
	if rtCtx.PSI != nil {
		m["psi"] = rtCtx.PSI
	}
	names := make([]string, len(rtCtx.IgnoreNames))
	for i, p := range rtCtx.IgnoreNames {
		names[i] = p.String()
	}
	targets := make([]string, len(rtCtx.KillTargets))
	for i, p := range rtCtx.KillTargets {
		targets[i] = p.String()
	}
	m["ignoreNames"] = names
	m["killTargets"] = targets
	return m
}

// printSink writes render()'s output to path, or to stdout when path is
// "-". A write failure here is spec.md's exit code 1 (generic I/O failure
// writing utility output).
func printSink(path string, render func() (string, error)) error {
	text, err := render()
	if err != nil {
		return &config.Error{Code: 1, Err: fmt.Errorf("render: %w", err)}
	}

	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return &config.Error{Code: 1, Err: fmt.Errorf("open %s: %w", path, err)}
		}
		defer f.Close()
		w = f
	}
	if _, err := io.WriteString(w, text); err != nil {
		return &config.Error{Code: 1, Err: fmt.Errorf("write %s: %w", path, err)}
	}
	return nil
}
