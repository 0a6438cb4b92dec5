package bandpass

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/candersoncsiro/process-polcal/internal/channel"
	"github.com/candersoncsiro/process-polcal/internal/leakage"
	"github.com/candersoncsiro/process-polcal/pkg/observability"
	"github.com/candersoncsiro/process-polcal/pkg/safeconv"
	"github.com/candersoncsiro/process-polcal/pkg/table"
)

// Column is the bandpass column name.
const Column = "BANDPASS"

// DefaultExtension is appended to the input table name to form the output.
const DefaultExtension = ".xy"

// LeakageSubdir is the directory under the base dir holding leakage parsets.
const LeakageSubdir = "script_io"

// ErrNoTable is returned when no bandpass table name is given.
var ErrNoTable = errors.New("bandpass table name is required")

// RunConfig configures the correction pipeline.
type RunConfig struct {
	BaseDir   string
	Table     string
	Extension string
	// LeakageDir overrides <BaseDir>/script_io.
	LeakageDir string
	Options    Options
	Metrics    *observability.RunMetrics
}

// RunResult describes a completed correction run.
type RunResult struct {
	Input   string
	Output  string
	Result  Result
	Written bool
	Bytes   int64
}

// Paths returns the input table path and the output table path.
func Paths(baseDir, bptab, ext string) (input, output string) {
	bptab = strings.TrimRight(bptab, "/")
	if ext == "" {
		ext = DefaultExtension
	}

	input = filepath.Join(baseDir, bptab)

	return input, input + ext
}

// Run duplicates the input bandpass table, corrects the copy and writes it back.
// The output table is left on disk when a later step fails.
func Run(ctx context.Context, cfg RunConfig) (RunResult, error) {
	logger := cfg.Options.Logger
	if logger == nil {
		logger = slog.Default()
		cfg.Options.Logger = logger
	}

	if cfg.Table == "" {
		return RunResult{}, ErrNoTable
	}

	senseErr := cfg.Options.Sense.Validate()
	if senseErr != nil {
		return RunResult{}, senseErr
	}

	if cfg.Options.ChannelWidth == 0 {
		cfg.Options.ChannelWidth = channel.Width
	}

	input, output := Paths(cfg.BaseDir, cfg.Table, cfg.Extension)
	res := RunResult{Input: input, Output: output}

	logger.InfoContext(ctx, "bandpass tables", "input", input, "output", output)

	copyErr := table.Copy(ctx, input, output)
	if copyErr != nil {
		return res, fmt.Errorf("duplicate bandpass table: %w", copyErr)
	}

	src, err := table.Open(input)
	if err != nil {
		return res, err
	}
	defer src.Close()

	dst, err := table.Open(output, table.WithWritable())
	if err != nil {
		return res, err
	}

	bp, err := src.GetComplex(Column)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", Column, err)
	}

	logger.InfoContext(ctx, "bandpass layout",
		"channels", cfg.Options.Channels,
		"channel_width", cfg.Options.ChannelWidth,
		"expected_length", channel.BandpassLength(cfg.Options.Channels, cfg.Options.ChannelWidth),
		"shape", fmt.Sprint(bp.Shape))

	leakDir := cfg.LeakageDir
	if leakDir == "" {
		leakDir = filepath.Join(cfg.BaseDir, LeakageSubdir)
	}

	start := time.Now()

	result, err := Correct(ctx, bp, leakage.NewDirSource(leakDir), cfg.Options)
	if err != nil {
		return res, err
	}

	res.Result = result
	cfg.Metrics.RecordCorrection(ctx, summarize(result, time.Since(start)))

	putErr := dst.PutColumn(Column, result.Corrected)
	if putErr != nil {
		return res, fmt.Errorf("write %s: %w", Column, putErr)
	}

	if !dst.DataChanged() {
		// Leave the output open: closing it would hide a silent no-op write.
		logger.WarnContext(ctx, "write to table failed, leaving table open",
			"table", output, "error", table.ErrWriteBack)
		cfg.Metrics.RecordWriteBack(ctx, observability.PipelineCorrect, false)

		return res, nil
	}

	flushErr := dst.Flush()
	if flushErr != nil {
		return res, fmt.Errorf("flush %s: %w", output, flushErr)
	}

	closeErr := dst.Close()
	if closeErr != nil {
		return res, fmt.Errorf("close %s: %w", output, closeErr)
	}

	res.Written = true
	cfg.Metrics.RecordWriteBack(ctx, observability.PipelineCorrect, true)

	size, sizeErr := dst.Size(Column)
	if sizeErr == nil {
		res.Bytes = size
	}

	logger.InfoContext(ctx, "data has been changed and flushed to table",
		"table", output, "column_size", humanize.Bytes(safeconv.ClampUint64(res.Bytes)))

	return res, nil
}

func summarize(result Result, elapsed time.Duration) observability.CorrectionStats {
	out := observability.CorrectionStats{
		Beams:    len(result.Beams),
		Duration: elapsed,
	}

	for _, b := range result.Beams {
		derived, held, sentinel := b.Counts()
		out.Derived += int64(derived)
		out.Held += int64(held)
		out.Sentinel += int64(sentinel)

		for _, c := range b.Channels {
			if c.Suspect {
				out.Suspect++
			}
		}
	}

	return out
}
