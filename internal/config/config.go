// Package config discovers, parses and validates ram-sentinel's
// configuration file, producing an immutable RuntimeContext.
//
// Grounded on original_source/src/config.rs and config_error.rs: same
// schema, same camelCase keys, same discovery order, same exit-code
// taxonomy (consolidated per the richest variant, see DESIGN.md).
package config

import "fmt"

// KillStrategy selects which gauge the kill engine ranks candidates by
// when match_index ties.
type KillStrategy int

const (
	HighestOomScore KillStrategy = iota
	LargestRss
)

func (s KillStrategy) String() string {
	switch s {
	case LargestRss:
		return "largestRss"
	default:
		return "highestOomScore"
	}
}

func ParseKillStrategy(s string) (KillStrategy, error) {
	switch s {
	case "", "highestOomScore":
		return HighestOomScore, nil
	case "largestRss":
		return LargestRss, nil
	default:
		return 0, fmt.Errorf("config: unknown killStrategy %q", s)
	}
}

// Error wraps a config-stage failure with the process exit code spec.md §6
// assigns it. cmd/ram-sentinel maps this straight to os.Exit.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

func exitErr(code int, format string, args ...interface{}) error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

// fileConfig is the raw, as-parsed (YAML/JSON/TOML) schema, serde-style
// optional fields as pointers so "absent" is distinguishable from "zero".
type fileConfig struct {
	PSI  *filePsiConfig    `yaml:"psi,omitempty" toml:"psi,omitempty" json:"psi,omitempty"`
	RAM  *fileMemoryConfig `yaml:"ram,omitempty" toml:"ram,omitempty" json:"ram,omitempty"`
	Swap *fileMemoryConfig `yaml:"swap,omitempty" toml:"swap,omitempty" json:"swap,omitempty"`

	CheckIntervalMs uint64 `yaml:"checkIntervalMs,omitempty" toml:"checkIntervalMs,omitempty" json:"checkIntervalMs,omitempty"`
	WarnResetMs     uint64 `yaml:"warnResetMs,omitempty" toml:"warnResetMs,omitempty" json:"warnResetMs,omitempty"`
	SigtermWaitMs   uint64 `yaml:"sigtermWaitMs,omitempty" toml:"sigtermWaitMs,omitempty" json:"sigtermWaitMs,omitempty"`

	IgnoreNames []string `yaml:"ignoreNames,omitempty" toml:"ignoreNames,omitempty" json:"ignoreNames,omitempty"`
	KillTargets []string `yaml:"killTargets,omitempty" toml:"killTargets,omitempty" json:"killTargets,omitempty"`
	KillStrategy string  `yaml:"killStrategy,omitempty" toml:"killStrategy,omitempty" json:"killStrategy,omitempty"`
}

type fileMemoryConfig struct {
	WarnMinFreeBytes   string   `yaml:"warnMinFreeBytes,omitempty" toml:"warnMinFreeBytes,omitempty" json:"warnMinFreeBytes,omitempty"`
	WarnMinFreePercent *float64 `yaml:"warnMinFreePercent,omitempty" toml:"warnMinFreePercent,omitempty" json:"warnMinFreePercent,omitempty"`
	KillMinFreeBytes   string   `yaml:"killMinFreeBytes,omitempty" toml:"killMinFreeBytes,omitempty" json:"killMinFreeBytes,omitempty"`
	KillMinFreePercent *float64 `yaml:"killMinFreePercent,omitempty" toml:"killMinFreePercent,omitempty" json:"killMinFreePercent,omitempty"`
}

func (m *fileMemoryConfig) empty() bool {
	return m == nil || (m.WarnMinFreeBytes == "" && m.WarnMinFreePercent == nil &&
		m.KillMinFreeBytes == "" && m.KillMinFreePercent == nil)
}

type filePsiConfig struct {
	WarnMaxPercent  *float64 `yaml:"warnMaxPercent,omitempty" toml:"warnMaxPercent,omitempty" json:"warnMaxPercent,omitempty"`
	KillMaxPercent  *float64 `yaml:"killMaxPercent,omitempty" toml:"killMaxPercent,omitempty" json:"killMaxPercent,omitempty"`
	AmountToFree    string   `yaml:"amountToFree,omitempty" toml:"amountToFree,omitempty" json:"amountToFree,omitempty"`
	CheckIntervalMs uint64   `yaml:"checkIntervalMs,omitempty" toml:"checkIntervalMs,omitempty" json:"checkIntervalMs,omitempty"`
}

func (p *filePsiConfig) empty() bool {
	if p == nil {
		return true
	}
	return p.WarnMaxPercent == nil && p.KillMaxPercent == nil && p.AmountToFree == "" && p.CheckIntervalMs == 0
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		PSI: &filePsiConfig{},
		RAM: &fileMemoryConfig{
			WarnMinFreePercent: floatPtr(10.0),
			KillMinFreePercent: floatPtr(5.0),
		},
		Swap:            &fileMemoryConfig{},
		CheckIntervalMs: 1000,
		WarnResetMs:     30000,
		SigtermWaitMs:   5000,
		KillTargets:     []string{"type=renderer", "-contentproc"},
		KillStrategy:    "highestOomScore",
	}
}

func floatPtr(f float64) *float64 { return &f }
