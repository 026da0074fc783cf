package extractor

import (
	"context"
	"os"
	"path/filepath"

	"github.com/mholt/archives"
	"github.com/pkg/errors"
)

// Repack writes the contents of dir to a zip archive at out.
func Repack(ctx context.Context, dir string, out string) error {
	files, err := archives.FilesFromDisk(ctx, nil, map[string]string{
		filepath.Clean(dir) + string(os.PathSeparator): "",
	})
	if err != nil {
		return errors.Wrapf(err, "cannot list files in %q", dir)
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := (archives.Zip{}).Archive(ctx, f, files); err != nil {
		return errors.Wrapf(err, "cannot write %q", out)
	}
	return f.Close()
}
