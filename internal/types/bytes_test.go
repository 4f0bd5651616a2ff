package types

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytes_Humanized_Boundaries(t *testing.T) {
	cases := []struct {
		in   Bytes
		want string
	}{
		{Bytes(0), "0 B"},
		{Bytes(1), "1 B"},
		{Bytes(1023), "1023 B"},
		{Bytes(1024), "1.00 KB"},
		{Bytes(1024 * 1024), "1.00 MB"},
		{Bytes(1024 * 1024 * 1024), "1.00 GB"},
		{Bytes(1 << 40), "1.00 TB"},
	}
	for i, tc := range cases {
		t.Run(fmt.Sprintf("case_%d_%d", i, uint64(tc.in)), func(t *testing.T) {
			require.Equal(t, tc.want, tc.in.Humanized())
		})
	}
}

func TestBytes_UnitAccessors(t *testing.T) {
	assert.InDelta(t, 1.0, Bytes(1024).KB(), 1e-12)
	assert.InDelta(t, 1.0, Bytes(1<<20).MB(), 1e-12)
	assert.InDelta(t, 1.0, Bytes(1<<30).GB(), 1e-12)
}

func TestParseSize_DecimalAndBinaryUnits(t *testing.T) {
	got, err := ParseSize("500M")
	require.NoError(t, err)
	assert.Equal(t, Bytes(500*1_000_000), got)

	got, err = ParseSize("2GiB")
	require.NoError(t, err)
	assert.Equal(t, Bytes(2*1<<30), got)
}

func TestParseSize_RoundTrip(t *testing.T) {
	// Serialize→parse is identity for the parsed bytes value.
	b := Bytes(1536)
	again, err := ParseSize(fmt.Sprintf("%d", uint64(b)))
	require.NoError(t, err)
	assert.Equal(t, b, again)
}

func TestParseSize_Errors(t *testing.T) {
	_, err := ParseSize("")
	require.Error(t, err)

	_, err = ParseSize("not-a-size")
	require.Error(t, err)
}

func TestParseSize_NotNaN(t *testing.T) {
	_, err := ParseSize(fmt.Sprintf("%v", math.NaN()))
	require.Error(t, err)
}
