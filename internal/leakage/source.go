package leakage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
)

const fileNamePrefix = "parset_leakages"

// FileName returns the parset name holding the solutions of one beam and channel.
func FileName(beam, channel int) string {
	return fmt.Sprintf("%s.b%02d_c%d", fileNamePrefix, beam, channel)
}

// beamPrefix is the name prefix shared by all channel files of a beam.
func beamPrefix(beam int) string {
	return fmt.Sprintf("%s.b%02d_c", fileNamePrefix, beam)
}

// Source provides leakage solutions by beam, channel and antenna.
type Source interface {
	// Load returns the pair for one antenna. A file that cannot be read
	// yields an error wrapping ErrFileAccess; a readable file without the
	// antenna yields an empty Pair and no error.
	Load(ctx context.Context, key Key) (Pair, error)
	// LoadAll returns every antenna found in one beam/channel file.
	LoadAll(ctx context.Context, beam, channel int) (map[int]Pair, error)
}

// ParseFile reads a parset file and returns the pairs of every antenna in it.
func ParseFile(ctx context.Context, path string) (map[int]Pair, error) {
	return parseWith(ctx, afs.New(), path)
}

// Parse reads a parset file and returns the pair of one antenna.
func Parse(ctx context.Context, path string, antenna int) (Pair, error) {
	pairs, err := ParseFile(ctx, path)
	if err != nil {
		return Pair{}, err
	}

	return pairs[antenna], nil
}

func parseWith(ctx context.Context, fs afs.Service, path string) (map[int]Pair, error) {
	data, err := fs.DownloadWithURL(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFileAccess, path, err)
	}

	return ParseBytes(data), nil
}

// DirSource reads parset files from a single directory.
type DirSource struct {
	dir string
	fs  afs.Service
}

// NewDirSource creates a source rooted at dir.
func NewDirSource(dir string) *DirSource {
	abs, err := filepath.Abs(dir)
	if err == nil {
		dir = abs
	}

	return &DirSource{dir: dir, fs: afs.New()}
}

// Dir returns the directory the source reads from.
func (s *DirSource) Dir() string {
	return s.dir
}

// Path returns the parset path for a beam and channel.
func (s *DirSource) Path(beam, channel int) string {
	return filepath.Join(s.dir, FileName(beam, channel))
}

// Load implements Source.
func (s *DirSource) Load(ctx context.Context, key Key) (Pair, error) {
	pairs, err := s.LoadAll(ctx, key.Beam, key.Channel)
	if err != nil {
		return Pair{}, err
	}

	return pairs[key.Antenna], nil
}

// LoadAll implements Source.
func (s *DirSource) LoadAll(ctx context.Context, beam, channel int) (map[int]Pair, error) {
	return parseWith(ctx, s.fs, s.Path(beam, channel))
}

// ChannelCount returns how many channel files exist for beam.
func (s *DirSource) ChannelCount(ctx context.Context, beam int) (int, error) {
	objects, err := s.fs.List(ctx, s.dir)
	if err != nil {
		return 0, fmt.Errorf("%w: list %s: %w", ErrFileAccess, s.dir, err)
	}

	prefix := beamPrefix(beam)
	count := 0

	for _, obj := range objects {
		if obj.IsDir() {
			continue
		}

		if strings.HasPrefix(obj.Name(), prefix) {
			count++
		}
	}

	return count, nil
}
