// Package pattern implements the three-way matcher used by ram-sentinel's
// ignore-names and kill-targets lists.
package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind tags which matcher a Pattern holds.
type Kind int

const (
	// KindLiteral matches by substring containment.
	KindLiteral Kind = iota
	// KindRegex matches by compiled regular expression.
	KindRegex
	// KindStartsWith matches by prefix.
	KindStartsWith
)

// Pattern is a tagged variant over Literal, Regex and StartsWith matchers,
// compiled once at config-load time and matched repeatedly against process
// command lines during kill-candidate scans.
type Pattern struct {
	kind    Kind
	literal string
	prefix  string
	re      *regexp.Regexp
	raw     string
}

// Matches reports whether s satisfies the pattern.
func (p Pattern) Matches(s string) bool {
	switch p.kind {
	case KindRegex:
		return p.re.MatchString(s)
	case KindStartsWith:
		return strings.HasPrefix(s, p.prefix)
	default:
		return strings.Contains(s, p.literal)
	}
}

// Kind reports which matcher variant this pattern holds.
func (p Pattern) Kind() Kind { return p.kind }

// String returns the original, uncompiled config syntax for this pattern.
func (p Pattern) String() string { return p.raw }

// Compile parses raw config syntax into a Pattern.
//
//	"/re/"  -> Regex(re)
//	"^pfx"  -> StartsWith(pfx)
//	else    -> Literal(s)
func Compile(raw string) (Pattern, error) {
	switch {
	case len(raw) >= 2 && strings.HasPrefix(raw, "/") && strings.HasSuffix(raw, "/"):
		reStr := raw[1 : len(raw)-1]
		re, err := regexp.Compile(reStr)
		if err != nil {
			return Pattern{}, fmt.Errorf("invalid regex %q: %w", raw, err)
		}
		return Pattern{kind: KindRegex, re: re, raw: raw}, nil
	case strings.HasPrefix(raw, "^"):
		return Pattern{kind: KindStartsWith, prefix: raw[1:], raw: raw}, nil
	default:
		return Pattern{kind: KindLiteral, literal: raw, raw: raw}, nil
	}
}

// CompileAll compiles a raw config list in declaration order, stopping (and
// reporting which entry failed) at the first invalid regex.
func CompileAll(raw []string) ([]Pattern, error) {
	out := make([]Pattern, 0, len(raw))
	for i, s := range raw {
		p, err := Compile(s)
		if err != nil {
			return nil, fmt.Errorf("entry %d (%q): %w", i, s, err)
		}
		out = append(out, p)
	}
	return out, nil
}
