// Package killer scans /proc for kill candidates, tracking a single
// running champion by a two-level (match_index, score) key, and executes
// the SIGTERM->wait->verify->SIGKILL sequence with PID-reuse defense.
//
// Grounded on original_source/src/killer.rs (get_ranked_candidates,
// kill_process, kill_sequence) and the teacher's /proc-iteration and
// field-parsing idiom. Signal delivery uses golang.org/x/sys/unix.Kill in
// place of nix::sys::signal, the way other_examples' Phoenix
// safety-monitor sends signals to managed processes.
package killer

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ramsentinel/ramsentinel/internal/config"
)

const (
	// readBufferSize is sized comfortably above the longest realistic
	// /proc/<pid>/cmdline on an interactive desktop, so the hot scan path
	// never allocates to read it.
	readBufferSize = 256 * 1024
	pathBufferSize = 256
)

// noMatch is the match_index sentinel for a candidate that matched no
// configured kill-target pattern, sorting after every matched index.
const noMatch = -1

// Champion is a single candidate surfaced by a /proc scan.
type Champion struct {
	PID        int
	Name       string
	Score      uint64
	RSSBytes   uint64
	MatchIndex int
	StartTime  uint64
}

// Scanner walks /proc once per kill_sequence iteration. cmdline reads go
// through readBuf, which is allocated and pre-faulted once at construction;
// pathBuf is allocated but not used by the readers. Path construction,
// directory listing and the stat/statm/oom_score/comm reads still allocate
// on every scan.
type Scanner struct {
	root       string
	readBuf    []byte
	pathBuf    []byte
	selfPID    int
	selfUID    uint32
	haveOwnUID bool
}

// New returns a Scanner rooted at the real /proc.
func New() *Scanner { return NewWithRoot("/proc") }

// NewWithRoot returns a Scanner rooted at an arbitrary procfs-shaped
// directory, for tests.
func NewWithRoot(root string) *Scanner {
	s := &Scanner{
		root:    root,
		readBuf: make([]byte, readBufferSize),
		pathBuf: make([]byte, 0, pathBufferSize),
		selfPID: os.Getpid(),
	}
	// Pre-fault the read buffer so the first real scan under memory
	// pressure doesn't pay a page-fault tax on brand-new pages.
	for i := range s.readBuf {
		s.readBuf[i] = 0
	}
	if uid, err := readOwnerUID(root, s.selfPID); err == nil {
		s.selfUID = uid
		s.haveOwnUID = true
	}
	return s
}

func procDir(root string, pid int) string {
	return filepath.Join(root, strconv.Itoa(pid))
}

func procPath(root string, pid int, file string) string {
	return filepath.Join(root, strconv.Itoa(pid), file)
}

// Scan walks /proc once, applying the ownership/ignore filters against each
// process's cmdline and tracking a single running champion by the
// (match_index, score) key, per spec.md §4.4.2. It returns a one-element
// slice holding that champion, or nil if no candidate survived, so callers
// (kill_sequence) can keep treating the result as a candidate list.
//
// Candidates in a worse match class are discarded after the cmdline read
// alone. Every other candidate reads its score (statm under LargestRss,
// oom_score otherwise); stat is read only when a candidate replaces the
// current champion, and comm (plus statm under HighestOomScore) only for
// the final champion. Only that single Champion record is kept.
func (s *Scanner) Scan(ctx *config.RuntimeContext) ([]Champion, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("killer: reading %s: %w", s.root, err)
	}

	isRoot := os.Geteuid() == 0

	var champion Champion
	haveChampion := false

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		if pid == s.selfPID {
			continue
		}

		if !isRoot && s.haveOwnUID {
			uid, err := readOwnerUID(s.root, pid)
			if err != nil || uid != s.selfUID {
				continue
			}
		}

		cmdline, err := readCmdline(s.root, pid, s.readBuf)
		if err != nil {
			// Process likely exited between readdir and open; skip rather
			// than abort the whole scan.
			continue
		}

		ignored := false
		for _, pat := range ctx.IgnoreNames {
			if pat.Matches(cmdline) {
				ignored = true
				break
			}
		}
		if ignored {
			continue
		}

		matchIndex := noMatch
		for idx, pat := range ctx.KillTargets {
			if pat.Matches(cmdline) {
				matchIndex = idx
				break
			}
		}

		// Short-circuit: a worse match class never wins, so skip before
		// paying for a statm/oom_score read.
		if haveChampion && normalizedMatch(matchIndex) > normalizedMatch(champion.MatchIndex) {
			continue
		}

		var score, rss uint64
		switch ctx.KillStrategy {
		case config.LargestRss:
			rss, _ = readRSSBytes(s.root, pid)
			score = rss
		default:
			// oom_score ranges [-1000,1000]; shift to non-negative. rss is
			// left 0 here and back-filled for the champion only, below.
			score = uint64(readOOMScore(s.root, pid) + 1000)
		}

		if haveChampion {
			betterClass := normalizedMatch(matchIndex) < normalizedMatch(champion.MatchIndex)
			if !betterClass && score <= champion.Score {
				continue
			}
		}

		startTime, err := readStartTime(s.root, pid)
		if err != nil {
			continue
		}

		champion = Champion{
			PID:        pid,
			Score:      score,
			RSSBytes:   rss,
			MatchIndex: matchIndex,
			StartTime:  startTime,
		}
		haveChampion = true
	}

	if !haveChampion {
		return nil, nil
	}

	// Step 8: fill rss for an OOM-score-ranked champion, and read its name,
	// only once, for the single process that actually matters from here on.
	if champion.RSSBytes == 0 {
		if rss, err := readRSSBytes(s.root, champion.PID); err == nil {
			champion.RSSBytes = rss
		}
	}
	if name, err := readComm(s.root, champion.PID); err == nil {
		champion.Name = name
	}

	return []Champion{champion}, nil
}

func normalizedMatch(idx int) int {
	if idx == noMatch {
		return int(^uint(0) >> 1) // max int, sorts after every real index
	}
	return idx
}
