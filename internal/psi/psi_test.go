package psi

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePressureFile(t *testing.T, root, content string) {
	t.Helper()
	dir := filepath.Join(root, "pressure")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "memory"), []byte(content), 0o644))
}

func TestReadTotal_OK(t *testing.T) {
	root := t.TempDir()
	writePressureFile(t, root, "some avg10=0.00 avg60=0.00 avg300=0.00 total=123456\nfull avg10=0.00 avg60=0.00 avg300=0.00 total=0\n")

	r := NewWithRoot(root)
	v, err := r.ReadTotal()
	require.NoError(t, err)
	assert.Equal(t, uint64(123456), v)
}

func TestReadTotal_MissingFile(t *testing.T) {
	root := t.TempDir()
	r := NewWithRoot(root)
	_, err := r.ReadTotal()
	require.Error(t, err)
}

func TestReadTotal_NoSomeLine(t *testing.T) {
	root := t.TempDir()
	writePressureFile(t, root, "full avg10=0.00 avg60=0.00 avg300=0.00 total=0\n")
	r := NewWithRoot(root)
	_, err := r.ReadTotal()
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReadTotal_UnparseableValue(t *testing.T) {
	root := t.TempDir()
	writePressureFile(t, root, "some avg10=0.00 total=notanumber\n")
	r := NewWithRoot(root)
	_, err := r.ReadTotal()
	require.Error(t, err)
}

func TestCheckAvailable(t *testing.T) {
	root := t.TempDir()
	writePressureFile(t, root, "some total=1\n")
	r := NewWithRoot(root)
	require.NoError(t, r.CheckAvailable())

	r2 := NewWithRoot(t.TempDir())
	require.Error(t, r2.CheckAvailable())
}

func TestReadTotal_Monotonic(t *testing.T) {
	root := t.TempDir()
	writePressureFile(t, root, "some total=100\n")
	r := NewWithRoot(root)
	v1, err := r.ReadTotal()
	require.NoError(t, err)

	writePressureFile(t, root, "some total=250\n")
	v2, err := r.ReadTotal()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, v2, v1)
}
