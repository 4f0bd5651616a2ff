package killer

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramsentinel/ramsentinel/internal/config"
	"github.com/ramsentinel/ramsentinel/internal/pattern"
)

func writeProc(t *testing.T, root string, pid int, comm, statm, oomScore, statLine string) {
	t.Helper()
	dir := filepath.Join(root, strconv.Itoa(pid))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "comm"), []byte(comm+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "statm"), []byte(statm+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "oom_score"), []byte(oomScore+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stat"), []byte(statLine+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cmdline"), []byte(comm+"\x00--flag\x00"), 0o644))
}

// fakeStatLine builds a minimal /proc/<pid>/stat line with starttime
// (field 22) set, matching the ") "-delimited shape procreader.go parses.
func fakeStatLine(pid int, comm string, startTime uint64) string {
	fields := make([]string, 0, 50)
	fields = append(fields, strconv.Itoa(pid), "("+comm+")", "S")
	for len(fields) < 22 {
		fields = append(fields, "0")
	}
	fields[21] = strconv.FormatUint(startTime, 10)
	out := fields[0] + " " + fields[1]
	for _, f := range fields[2:] {
		out += " " + f
	}
	return out
}

func TestScan_RanksByMatchIndexThenScore(t *testing.T) {
	root := t.TempDir()
	// pid 100: no match, high RSS
	writeProc(t, root, 100, "unrelated", "0 5000", "100", fakeStatLine(100, "unrelated", 111))
	// pid 200: matches kill target idx 0 ("chrome"), low RSS
	writeProc(t, root, 200, "chrome", "0 10", "50", fakeStatLine(200, "chrome", 222))
	// pid 300: matches kill target idx 0 too, higher RSS -> should win
	writeProc(t, root, 300, "chrome", "0 9000", "20", fakeStatLine(300, "chrome", 333))

	s := NewWithRoot(root)
	s.selfPID = -1 // none of the fixture pids

	targets, err := pattern.CompileAll([]string{"chrome"})
	require.NoError(t, err)

	ctx := &config.RuntimeContext{KillStrategy: config.LargestRss, KillTargets: targets}
	candidates, err := s.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	assert.Equal(t, 300, candidates[0].PID) // matched, highest RSS among matches
	assert.Equal(t, uint64(9000*os.Getpagesize()), candidates[0].RSSBytes)
}

func TestScan_UnmatchedNeverBeatsAMatch(t *testing.T) {
	root := t.TempDir()
	// pid 100 has no kill-target match but a far larger RSS than pid 200,
	// which does match; the match_index short-circuit must still pick 200.
	writeProc(t, root, 100, "unrelated", "0 999999", "100", fakeStatLine(100, "unrelated", 111))
	writeProc(t, root, 200, "chrome", "0 10", "50", fakeStatLine(200, "chrome", 222))

	s := NewWithRoot(root)
	s.selfPID = -1

	targets, err := pattern.CompileAll([]string{"chrome"})
	require.NoError(t, err)

	ctx := &config.RuntimeContext{KillStrategy: config.LargestRss, KillTargets: targets}
	candidates, err := s.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, 200, candidates[0].PID)
}

func TestScan_HighestOomScoreDefersRSSToChampionOnly(t *testing.T) {
	root := t.TempDir()
	writeProc(t, root, 100, "chrome", "0 10", "10", fakeStatLine(100, "chrome", 111))
	writeProc(t, root, 200, "chrome", "0 20", "500", fakeStatLine(200, "chrome", 222))

	s := NewWithRoot(root)
	s.selfPID = -1

	targets, err := pattern.CompileAll([]string{"chrome"})
	require.NoError(t, err)

	ctx := &config.RuntimeContext{KillStrategy: config.HighestOomScore, KillTargets: targets}
	candidates, err := s.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	assert.Equal(t, 200, candidates[0].PID) // highest oom_score
	assert.Equal(t, uint64(20*os.Getpagesize()), candidates[0].RSSBytes)
}

func TestScan_IgnoreNamesMatchCmdlineNotComm(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "300")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	// comm is truncated to 15 bytes and carries no path/argv text; the
	// ignore pattern only matches the full cmdline.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "comm"), []byte("some-worker\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "statm"), []byte("0 10\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "oom_score"), []byte("0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stat"), []byte(fakeStatLine(300, "some-worker", 1)+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cmdline"), []byte("/usr/bin/some-worker\x00--type=renderer\x00"), 0o644))

	s := NewWithRoot(root)
	s.selfPID = -1

	ignore, err := pattern.CompileAll([]string{"type=renderer"})
	require.NoError(t, err)

	candidates, err := s.Scan(&config.RuntimeContext{IgnoreNames: ignore})
	require.NoError(t, err)
	assert.Empty(t, candidates, "ignore pattern matching cmdline content must filter the process")
}

func TestScan_SelfPIDExcluded(t *testing.T) {
	root := t.TempDir()
	writeProc(t, root, 42, "self", "0 10", "0", fakeStatLine(42, "self", 1))

	s := NewWithRoot(root)
	s.selfPID = 42

	candidates, err := s.Scan(&config.RuntimeContext{})
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestScan_IgnoreNamesFiltersCandidate(t *testing.T) {
	root := t.TempDir()
	writeProc(t, root, 55, "systemd", "0 10", "0", fakeStatLine(55, "systemd", 1))

	s := NewWithRoot(root)
	s.selfPID = -1

	ignore, err := pattern.CompileAll([]string{"systemd"})
	require.NoError(t, err)

	candidates, err := s.Scan(&config.RuntimeContext{IgnoreNames: ignore})
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestNormalizedMatch_NoMatchSortsLast(t *testing.T) {
	assert.Greater(t, normalizedMatch(noMatch), normalizedMatch(0))
	assert.Greater(t, normalizedMatch(noMatch), normalizedMatch(5))
	assert.Less(t, normalizedMatch(0), normalizedMatch(1))
}

func TestTerminate_SIGTERMGracefulExit(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep binary not available")
	}
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	defer func() { _ = cmd.Process.Kill() }()
	// Reap the child concurrently: an unreaped zombie keeps
	// /proc/<pid>/stat readable, which terminate treats as still alive.
	done := make(chan struct{})
	go func() { _ = cmd.Wait(); close(done) }()

	root := "/proc" // terminate/probe read real /proc for the spawned child
	s := NewWithRoot(root)

	startTime, err := readStartTime(root, cmd.Process.Pid)
	if err != nil {
		t.Skipf("cannot read /proc for child pid in this sandbox: %v", err)
	}

	victim := Champion{PID: cmd.Process.Pid, StartTime: startTime}
	exited, tier, err := s.terminate(context.Background(), victim, 200)
	require.NoError(t, err)
	assert.True(t, exited)
	assert.Equal(t, tierSIGTERM, tier)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("child process did not exit after terminate")
	}
}
