package flagging_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candersoncsiro/process-polcal/internal/channel"
	"github.com/candersoncsiro/process-polcal/internal/flagging"
	"github.com/candersoncsiro/process-polcal/internal/leakage"
	"github.com/candersoncsiro/process-polcal/pkg/table"
)

const (
	testTarget   = "1234"
	testRows     = 2
	testPols     = 4
	testChannels = 3
)

func writeLeakages(t *testing.T, baseDir string, beam int, amps map[int]map[int]float64) {
	t.Helper()

	dir := filepath.Join(baseDir, flagging.LeakageSubdir)
	require.NoError(t, os.MkdirAll(dir, 0o750))

	for ch := range testChannels {
		content := ""
		for ant, amp := range amps[ch] {
			content += fmt.Sprintf("leakage.d12.%d.0 = [%g, 0.0]\nleakage.d21.%d.0 = [0.05, 0.0]\n", ant, amp, ant)
		}

		path := filepath.Join(dir, leakage.FileName(beam, ch))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
}

func createMS(t *testing.T, baseDir string, beam, channels int, antennas ...int32) string {
	t.Helper()

	path := flagging.MSPath(baseDir, "", "", testTarget, beam)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))

	ant1 := table.NewArray[int32](len(antennas))
	copy(ant1.Data, antennas)

	tbl, err := table.Create(path, map[string]table.Column{
		flagging.ColumnFlag:     table.NewArray[bool](testRows, channels*channel.Width, testPols),
		flagging.ColumnAntenna1: ant1,
	})
	require.NoError(t, err)
	require.NoError(t, tbl.Close())

	return path
}

func readFlags(t *testing.T, path string) *table.Array[bool] {
	t.Helper()

	tbl, err := table.Open(path)
	require.NoError(t, err)

	flags, err := tbl.GetBool(flagging.ColumnFlag)
	require.NoError(t, err)

	return flags
}

func flaggedChannels(flags *table.Array[bool]) []int {
	var out []int

	for ch := range testChannels {
		if flags.At(0, ch*channel.Width, 0) && flags.At(testRows-1, ch*channel.Width+channel.Width-1, testPols-1) {
			out = append(out, ch)
		}
	}

	return out
}

func TestParseBeams(t *testing.T) {
	t.Parallel()

	beams, err := flagging.ParseBeams("3")
	require.NoError(t, err)
	assert.Equal(t, []int{3}, beams)

	beams, err = flagging.ParseBeams("0-3")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, beams)

	beams, err = flagging.ParseBeams("90-99")
	require.NoError(t, err)
	assert.Len(t, beams, 10)

	for _, bad := range []string{"", "a", "3-1", "1-", "-2", "1-b", "100", "0-2000000000"} {
		_, err = flagging.ParseBeams(bad)
		require.ErrorIs(t, err, flagging.ErrInvalidBeams, bad)
	}
}

func TestMSPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		filepath.Join("/data", "BPCAL", "1934_SB1234_beam07_apply.ms"),
		flagging.MSPath("/data", "", "", "1234", 7))
	assert.Equal(t,
		filepath.Join("/data", "ms", "1234-b07.ms"),
		flagging.MSPath("/data", "ms", "{target}-b{beam}.ms", "1234", 7))
}

func TestRun_SingleAntenna(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	writeLeakages(t, base, 0, map[int]map[int]float64{
		0: {0: 0.05},
		1: {0: 0.15},
		2: {0: 0.05, 4: 0.5},
	})
	path := createMS(t, base, 0, testChannels, 0, 4)

	results, err := flagging.Run(context.Background(), flagging.RunConfig{
		BaseDir:    base,
		Target:     testTarget,
		Beams:      []int{0},
		Thresholds: flagging.Thresholds{Upper: 0.12},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, testChannels, results[0].Channels)
	assert.Equal(t, []int{1}, results[0].Bad)
	assert.True(t, results[0].Written)
	assert.Equal(t, []int{1}, flaggedChannels(readFlags(t, path)))
}

func TestRun_AnyAntenna(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	writeLeakages(t, base, 1, map[int]map[int]float64{
		0: {0: 0.05, 4: 0.05},
		1: {0: 0.05, 4: 0.05},
		2: {0: 0.05, 4: 0.5},
	})
	path := createMS(t, base, 1, testChannels, 4, 0, 4, 0)

	results, err := flagging.Run(context.Background(), flagging.RunConfig{
		BaseDir:    base,
		Target:     testTarget,
		Beams:      []int{1},
		Thresholds: flagging.Thresholds{Upper: 0.12},
		AnyAntenna: true,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, []int{0, 4}, results[0].Antennas)
	assert.Equal(t, []int{2}, results[0].Bad)
	assert.Equal(t, []int{2}, flaggedChannels(readFlags(t, path)))
}

func TestRun_ShapeMismatchLeavesFlags(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	writeLeakages(t, base, 0, map[int]map[int]float64{1: {0: 0.5}})
	path := createMS(t, base, 0, testChannels+1, 0)

	_, err := flagging.Run(context.Background(), flagging.RunConfig{
		BaseDir:    base,
		Target:     testTarget,
		Beams:      []int{0},
		Thresholds: flagging.Thresholds{Upper: 0.12},
	})
	require.ErrorIs(t, err, flagging.ErrShapeMismatch)
	assert.NotContains(t, readFlags(t, path).Data, true)
}

func TestRun_MissingTable(t *testing.T) {
	t.Parallel()

	_, err := flagging.Run(context.Background(), flagging.RunConfig{
		BaseDir: t.TempDir(),
		Target:  testTarget,
		Beams:   []int{0},
	})
	require.ErrorIs(t, err, table.ErrNoTable)
}
