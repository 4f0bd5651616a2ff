package unit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_ContainsExpectedSections(t *testing.T) {
	out, err := Render()
	require.NoError(t, err)

	for _, want := range []string{
		"[Unit]",
		"Description=RAM Sentinel - OOM Prevention Daemon",
		"After=graphical-session.target",
		"[Service]",
		"Type=simple",
		"ExecStart=",
		"Restart=on-failure",
		"RestartSec=5s",
		"Nice=-10",
		"OOMScoreAdjust=-1000",
		"[Install]",
		"WantedBy=default.target",
	} {
		assert.Contains(t, out, want)
	}
}
