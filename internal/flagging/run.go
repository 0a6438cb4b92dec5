package flagging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/candersoncsiro/process-polcal/internal/channel"
	"github.com/candersoncsiro/process-polcal/internal/leakage"
	"github.com/candersoncsiro/process-polcal/pkg/observability"
	"github.com/candersoncsiro/process-polcal/pkg/table"
)

// Column names read and written by the flagging pipeline.
const (
	ColumnFlag     = "FLAG"
	ColumnAntenna1 = "ANTENNA1"
)

// Defaults locating the measurement set of a target and beam under the base
// dir. {target} and {beam} (two digits) are substituted in the pattern.
const (
	DefaultMSDir     = "BPCAL"
	DefaultMSPattern = "1934_SB{target}_beam{beam}_apply.ms"
)

// LeakageSubdir is the directory under the base dir holding leakage parsets.
const LeakageSubdir = "script_io"

const beamRangeSep = "-"

// MaxBeam is the highest beam index a two-digit beam name can carry.
const MaxBeam = 99

// ErrInvalidBeams is returned for a malformed beam specifier.
var ErrInvalidBeams = errors.New("beams must be N or N-M with 0 <= N <= M <= 99")

// ParseBeams expands "N" or the inclusive range "N-M".
func ParseBeams(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)

	loStr, hiStr, isRange := strings.Cut(raw, beamRangeSep)
	if !isRange {
		hiStr = loStr
	}

	lo, err := strconv.Atoi(strings.TrimSpace(loStr))
	if err != nil || lo < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBeams, raw)
	}

	hi, err := strconv.Atoi(strings.TrimSpace(hiStr))
	if err != nil || hi < lo || hi > MaxBeam {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBeams, raw)
	}

	beams := make([]int, 0, hi-lo+1)
	for b := lo; b <= hi; b++ {
		beams = append(beams, b)
	}

	return beams, nil
}

// MSPath returns the measurement set path for a target and beam. Empty msDir
// and pattern select the defaults.
func MSPath(baseDir, msDir, pattern, target string, beam int) string {
	if msDir == "" {
		msDir = DefaultMSDir
	}

	if pattern == "" {
		pattern = DefaultMSPattern
	}

	name := strings.NewReplacer(
		"{target}", target,
		"{beam}", fmt.Sprintf("%02d", beam),
	).Replace(pattern)

	return filepath.Join(baseDir, msDir, name)
}

// RunConfig configures the flagging pipeline.
type RunConfig struct {
	BaseDir    string
	Target     string
	Beams      []int
	MSDir      string
	MSPattern  string
	LeakageDir string
	Thresholds Thresholds
	// RotatedAntenna is used unless AnyAntenna is set.
	RotatedAntenna int
	AnyAntenna     bool
	ChannelWidth   int
	Logger         *slog.Logger
	Metrics        *observability.RunMetrics
}

// BeamResult describes the flagging of one beam.
type BeamResult struct {
	Beam     int
	Table    string
	Channels int
	Antennas []int
	Bad      []int
	Written  bool
}

// Run flags every beam in cfg.Beams in order. Any shape mismatch aborts the run.
func Run(ctx context.Context, cfg RunConfig) ([]BeamResult, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
		cfg.Logger = logger
	}

	if cfg.ChannelWidth == 0 {
		cfg.ChannelWidth = channel.Width
	}

	leakDir := cfg.LeakageDir
	if leakDir == "" {
		leakDir = filepath.Join(cfg.BaseDir, LeakageSubdir)
	}

	src := leakage.NewDirSource(leakDir)
	results := make([]BeamResult, 0, len(cfg.Beams))

	for _, beam := range cfg.Beams {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return results, fmt.Errorf("beam %d: %w", beam, ctxErr)
		}

		res, err := flagBeam(ctx, cfg, src, beam)
		if err != nil {
			return results, fmt.Errorf("beam %02d: %w", beam, err)
		}

		results = append(results, res)
	}

	return results, nil
}

func flagBeam(ctx context.Context, cfg RunConfig, src *leakage.DirSource, beam int) (BeamResult, error) {
	logger := cfg.Logger
	start := time.Now()

	msPath := MSPath(cfg.BaseDir, cfg.MSDir, cfg.MSPattern, cfg.Target, beam)
	res := BeamResult{Beam: beam, Table: msPath}

	logger.InfoContext(ctx, "flagging", "table", msPath)

	tbl, err := table.Open(msPath, table.WithWritable())
	if err != nil {
		return res, err
	}

	flags, err := tbl.GetBool(ColumnFlag)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", ColumnFlag, err)
	}

	count, err := src.ChannelCount(ctx, beam)
	if err != nil {
		return res, err
	}

	res.Channels = count

	shapeErr := CheckShape(flags, count, cfg.ChannelWidth)
	if shapeErr != nil {
		return res, shapeErr
	}

	sel, err := selectAntennas(tbl, cfg)
	if err != nil {
		return res, err
	}

	res.Antennas = sel.Antennas()

	bad, err := BadChannels(ctx, src, beam, count, sel, cfg.Thresholds, logger)
	if err != nil {
		return res, err
	}

	res.Bad = bad.Sorted()

	logger.InfoContext(ctx, "flagging 1 MHz channels with bad leakage solutions",
		"table", msPath, "channels", fmt.Sprint(res.Bad))

	applyErr := ApplyFlags(flags, bad, count, cfg.ChannelWidth)
	if applyErr != nil {
		return res, applyErr
	}

	putErr := tbl.PutColumn(ColumnFlag, flags)
	if putErr != nil {
		return res, fmt.Errorf("write %s: %w", ColumnFlag, putErr)
	}

	cfg.Metrics.RecordFlagging(ctx, observability.FlaggingStats{
		Beam:     beam,
		Channels: count,
		Flagged:  len(res.Bad),
		Duration: time.Since(start),
	})

	if !tbl.DataChanged() {
		logger.WarnContext(ctx, "write to flags table failed, leaving table open",
			"table", msPath, "error", table.ErrWriteBack)
		cfg.Metrics.RecordWriteBack(ctx, observability.PipelineFlag, false)

		return res, nil
	}

	flushErr := tbl.Flush()
	if flushErr != nil {
		return res, fmt.Errorf("flush %s: %w", msPath, flushErr)
	}

	closeErr := tbl.Close()
	if closeErr != nil {
		return res, fmt.Errorf("close %s: %w", msPath, closeErr)
	}

	res.Written = true
	cfg.Metrics.RecordWriteBack(ctx, observability.PipelineFlag, true)
	logger.InfoContext(ctx, "flags have been changed and flushed", "table", msPath)

	return res, nil
}

func selectAntennas(tbl *table.Table, cfg RunConfig) (AntennaSelector, error) {
	if !cfg.AnyAntenna {
		return Single(cfg.RotatedAntenna), nil
	}

	ant1, err := tbl.GetInt32(ColumnAntenna1)
	if err != nil {
		return AntennaSelector{}, fmt.Errorf("read %s: %w", ColumnAntenna1, err)
	}

	ants := make([]int, 0, len(ant1.Data))
	for _, a := range ant1.Data {
		ants = append(ants, int(a))
	}

	slices.Sort(ants)

	return AnyOf(slices.Compact(ants)), nil
}
