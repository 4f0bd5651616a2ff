package config

import (
	"github.com/ramsentinel/ramsentinel/internal/pattern"
	"github.com/ramsentinel/ramsentinel/internal/psi"
	"github.com/ramsentinel/ramsentinel/internal/types"
)

// build validates a raw fileConfig and lowers it into a RuntimeContext,
// returning a *Error carrying the exit code spec.md §6 assigns to the
// first violation encountered.
func build(fc fileConfig, totalRAMBytes uint64) (*RuntimeContext, error) {
	psiEmpty := fc.PSI.empty()
	ramEmpty := fc.RAM.empty()
	swapEmpty := fc.Swap.empty()
	if psiEmpty && ramEmpty && swapEmpty {
		return nil, exitErr(4, "configuration is effectively empty (no metrics enabled)")
	}

	if fc.CheckIntervalMs == 0 {
		fc.CheckIntervalMs = 1000
	}
	if fc.CheckIntervalMs > 300000 {
		return nil, exitErr(5, "checkIntervalMs > 300000: got %d", fc.CheckIntervalMs)
	}
	if fc.CheckIntervalMs < 100 {
		return nil, exitErr(6, "checkIntervalMs < 100: got %d", fc.CheckIntervalMs)
	}
	if fc.WarnResetMs == 0 {
		fc.WarnResetMs = 30000
	}
	if fc.SigtermWaitMs == 0 {
		fc.SigtermWaitMs = 5000
	}

	strategy, err := ParseKillStrategy(fc.KillStrategy)
	if err != nil {
		return nil, exitErr(9, "%s", err)
	}

	killTargets := fc.KillTargets
	if len(killTargets) == 0 {
		killTargets = []string{"type=renderer", "-contentproc"}
	}
	ignorePatterns, err := pattern.CompileAll(fc.IgnoreNames)
	if err != nil {
		return nil, exitErr(9, "invalid regex in ignoreNames: %s", err)
	}
	targetPatterns, err := pattern.CompileAll(killTargets)
	if err != nil {
		return nil, exitErr(9, "invalid regex in killTargets: %s", err)
	}

	ram, err := buildMemoryThresholds(fc.RAM, "ram")
	if err != nil {
		return nil, err
	}
	swap, err := buildMemoryThresholds(fc.Swap, "swap")
	if err != nil {
		return nil, err
	}

	var psiThresholds *PsiThresholds
	if !psiEmpty {
		psiThresholds, err = buildPsiThresholds(fc.PSI, fc.CheckIntervalMs, totalRAMBytes)
		if err != nil {
			return nil, err
		}
		if err := psi.New().CheckAvailable(); err != nil {
			return nil, exitErr(8, "PSI enabled but /proc/pressure/memory is not usable: %s", err)
		}
	}

	return &RuntimeContext{
		PSI:             psiThresholds,
		RAM:             ram,
		Swap:            swap,
		CheckIntervalMs: fc.CheckIntervalMs,
		WarnResetMs:     fc.WarnResetMs,
		SigtermWaitMs:   fc.SigtermWaitMs,
		KillStrategy:    strategy,
		IgnoreNames:     ignorePatterns,
		KillTargets:     targetPatterns,
	}, nil
}

func buildMemoryThresholds(fm *fileMemoryConfig, field string) (*MemoryThresholds, error) {
	if fm.empty() {
		return nil, nil
	}
	for _, p := range []struct {
		name string
		v    *float64
	}{{"warnMinFreePercent", fm.WarnMinFreePercent}, {"killMinFreePercent", fm.KillMinFreePercent}} {
		if p.v != nil && (*p.v < 0 || *p.v > 100) {
			return nil, exitErr(11, "%s.%s out of [0, 100]: got %v", field, p.name, *p.v)
		}
	}

	m := &MemoryThresholds{
		WarnMinFreePercent: fm.WarnMinFreePercent,
		KillMinFreePercent: fm.KillMinFreePercent,
	}
	if fm.WarnMinFreeBytes != "" {
		b, err := types.ParseSize(fm.WarnMinFreeBytes)
		if err != nil {
			return nil, exitErr(10, "invalid size string in %s.warnMinFreeBytes: %q", field, fm.WarnMinFreeBytes)
		}
		m.WarnMinFreeBytes = &b
	}
	if fm.KillMinFreeBytes != "" {
		b, err := types.ParseSize(fm.KillMinFreeBytes)
		if err != nil {
			return nil, exitErr(10, "invalid size string in %s.killMinFreeBytes: %q", field, fm.KillMinFreeBytes)
		}
		m.KillMinFreeBytes = &b
	}
	return m, nil
}

func buildPsiThresholds(fp *filePsiConfig, globalIntervalMs uint64, totalRAMBytes uint64) (*PsiThresholds, error) {
	for _, p := range []struct {
		name string
		v    *float64
	}{{"warnMaxPercent", fp.WarnMaxPercent}, {"killMaxPercent", fp.KillMaxPercent}} {
		if p.v != nil && (*p.v < 0 || *p.v > 100) {
			return nil, exitErr(11, "psi.%s out of [0, 100]: got %v", p.name, *p.v)
		}
	}

	interval := fp.CheckIntervalMs
	if interval == 0 {
		interval = globalIntervalMs * 10
	}
	if interval > 300000 {
		interval = 300000
	}
	if interval < 100 {
		interval = 100
	}

	var amount types.Bytes
	if fp.KillMaxPercent != nil {
		if fp.AmountToFree == "" {
			return nil, exitErr(7, "psi.amountToFree is required when psi.killMaxPercent is set")
		}
		parsed, err := types.ParseSize(fp.AmountToFree)
		if err != nil {
			return nil, exitErr(10, "invalid size string in psi.amountToFree: %q", fp.AmountToFree)
		}
		if parsed == 0 {
			return nil, exitErr(7, "psi.amountToFree must be > 0")
		}
		if totalRAMBytes > 0 && uint64(parsed) > totalRAMBytes/2 {
			return nil, exitErr(7, "psi.amountToFree must be <= 50%% of total RAM: got %s", parsed.Humanized())
		}
		amount = parsed
	} else if fp.AmountToFree != "" {
		parsed, err := types.ParseSize(fp.AmountToFree)
		if err != nil {
			return nil, exitErr(10, "invalid size string in psi.amountToFree: %q", fp.AmountToFree)
		}
		amount = parsed
	}

	return &PsiThresholds{
		WarnMaxPercent:  fp.WarnMaxPercent,
		KillMaxPercent:  fp.KillMaxPercent,
		AmountToFree:    amount,
		CheckIntervalMs: interval,
	}, nil
}
