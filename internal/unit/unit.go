// Package unit renders the systemd --user unit file used to run
// ram-sentinel as a login-session service.
//
// Grounded on original_source/src/system.rs's get_systemd_unit template
// (same Description, After, Service knobs, Install target), serialized
// through coreos/go-systemd/v22/unit instead of a raw format string so the
// section/key/value triples are structurally validated.
package unit

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/coreos/go-systemd/v22/unit"
)

const fallbackExecPath = "/usr/local/bin/ram-sentinel"

// Render returns the textual systemd user unit, using the running
// binary's own absolute path for ExecStart (falling back to a placeholder
// if it cannot be determined, matching original_source's behavior).
func Render() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		execPath = fallbackExecPath
	}

	opts := []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", "RAM Sentinel - OOM Prevention Daemon"),
		unit.NewUnitOption("Unit", "Documentation", "https://github.com/ramsentinel/ramsentinel"),
		unit.NewUnitOption("Unit", "After", "graphical-session.target"),

		unit.NewUnitOption("Service", "Type", "simple"),
		unit.NewUnitOption("Service", "ExecStart", execPath),
		unit.NewUnitOption("Service", "Restart", "on-failure"),
		unit.NewUnitOption("Service", "RestartSec", "5s"),
		unit.NewUnitOption("Service", "Nice", "-10"),
		unit.NewUnitOption("Service", "OOMScoreAdjust", "-1000"),

		unit.NewUnitOption("Install", "WantedBy", "default.target"),
	}

	r := unit.Serialize(opts)
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", fmt.Errorf("unit: serialize: %w", err)
	}
	return buf.String(), nil
}
