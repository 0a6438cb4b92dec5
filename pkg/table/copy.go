package table

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/viant/afs"
)

// Copy duplicates the table at src into dst, replacing anything already at dst.
// The source is never modified.
func Copy(ctx context.Context, src, dst string) error {
	srcURL, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", src, err)
	}

	dstURL, err := filepath.Abs(dst)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dst, err)
	}

	if srcURL == dstURL {
		return fmt.Errorf("%w: copy onto itself: %s", ErrExists, src)
	}

	fs := afs.New()

	ok, err := fs.Exists(ctx, srcURL)
	if err != nil {
		return fmt.Errorf("check %s: %w", src, err)
	}

	if !ok {
		return fmt.Errorf("open table %s: %w", src, ErrNoTable)
	}

	exists, err := fs.Exists(ctx, dstURL)
	if err != nil {
		return fmt.Errorf("check %s: %w", dst, err)
	}

	if exists {
		deleteErr := fs.Delete(ctx, dstURL)
		if deleteErr != nil {
			return fmt.Errorf("remove previous %s: %w", dst, deleteErr)
		}
	}

	copyErr := fs.Copy(ctx, srcURL, dstURL)
	if copyErr != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, copyErr)
	}

	return nil
}
