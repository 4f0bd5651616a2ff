package config

import (
	"github.com/ramsentinel/ramsentinel/internal/pattern"
	"github.com/ramsentinel/ramsentinel/internal/types"
)

// MemoryThresholds holds the parsed (size-string-resolved) warn/kill
// thresholds for one gauge (RAM or swap). A nil *types.Bytes field means
// "not configured"; when both bytes and percent are set at the same tier,
// the bytes threshold dominates (spec.md §3).
type MemoryThresholds struct {
	WarnMinFreeBytes   *types.Bytes
	WarnMinFreePercent *float64
	KillMinFreeBytes   *types.Bytes
	KillMinFreePercent *float64
}

// WarnTarget returns the effective warn-tier threshold in bytes, given the
// gauge's total capacity, and whether a warn threshold is configured at all.
func (m *MemoryThresholds) WarnTarget(total uint64) (uint64, bool) {
	return target(m.WarnMinFreeBytes, m.WarnMinFreePercent, total)
}

// KillTarget returns the effective kill-tier threshold in bytes.
func (m *MemoryThresholds) KillTarget(total uint64) (uint64, bool) {
	return target(m.KillMinFreeBytes, m.KillMinFreePercent, total)
}

func target(bytes *types.Bytes, percent *float64, total uint64) (uint64, bool) {
	if bytes != nil {
		return uint64(*bytes), true
	}
	if percent != nil {
		return uint64(*percent / 100 * float64(total)), true
	}
	return 0, false
}

// PsiThresholds holds the parsed PSI-pressure tier configuration.
type PsiThresholds struct {
	WarnMaxPercent  *float64
	KillMaxPercent  *float64
	AmountToFree    types.Bytes
	CheckIntervalMs uint64
}

// RuntimeContext is the fully validated, immutable configuration the
// sampler and kill engine are built from.
type RuntimeContext struct {
	PSI  *PsiThresholds
	RAM  *MemoryThresholds
	Swap *MemoryThresholds

	CheckIntervalMs uint64
	WarnResetMs     uint64
	SigtermWaitMs   uint64

	KillStrategy KillStrategy

	IgnoreNames []pattern.Pattern
	KillTargets []pattern.Pattern
}
