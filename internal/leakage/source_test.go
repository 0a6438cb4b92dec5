package leakage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candersoncsiro/process-polcal/internal/leakage"
)

func writeParset(t *testing.T, dir string, beam, channel int, content string) {
	t.Helper()

	path := filepath.Join(dir, leakage.FileName(beam, channel))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestDirSource_Load(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeParset(t, dir, 0, 0, "leakage.d12.0.0 = [0.1, 0.0]\nleakage.d21.0.0 = [0.0, -0.2]\n")

	src := leakage.NewDirSource(dir)

	pair, err := src.Load(context.Background(), leakage.Key{Beam: 0, Channel: 0, Antenna: 0})
	require.NoError(t, err)
	assert.Equal(t, leakage.Found(complex(0.1, 0)), pair.D12)
	assert.Equal(t, leakage.Found(complex(0, -0.2)), pair.D21)

	other, err := src.Load(context.Background(), leakage.Key{Beam: 0, Channel: 0, Antenna: 5})
	require.NoError(t, err)
	assert.True(t, other.Empty())
}

func TestDirSource_MissingFile(t *testing.T) {
	t.Parallel()

	src := leakage.NewDirSource(t.TempDir())

	_, err := src.Load(context.Background(), leakage.Key{Beam: 1, Channel: 3})
	require.ErrorIs(t, err, leakage.ErrFileAccess)

	_, err = leakage.Parse(context.Background(), src.Path(1, 3), 0)
	require.ErrorIs(t, err, leakage.ErrFileAccess)
}

func TestDirSource_ChannelCount(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	for ch := range 4 {
		writeParset(t, dir, 2, ch, "")
	}

	writeParset(t, dir, 12, 0, "")
	writeParset(t, dir, 3, 0, "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, leakage.FileName(2, 99)), 0o750))

	src := leakage.NewDirSource(dir)

	count, err := src.ChannelCount(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	count, err = src.ChannelCount(context.Background(), 5)
	require.NoError(t, err)
	assert.Zero(t, count)
}
