package extractor

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/crazy-max/unpak/pkg/archive"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Client represents an active archive extractor object
type Client struct {
	ctx     context.Context
	archive *archive.Archive
	opts    Options
	logger  zerolog.Logger
}

// Options represents archive extractor options
type Options struct {
	// Includes a subset of files/dirs from the archive
	Includes []string
	// Workers is the number of entries extracted in parallel
	Workers int
	// Dist folder
	Dist string
	// RmDist removes dist folder first
	RmDist bool
	// Logger used for progress
	Logger zerolog.Logger
}

// New creates new archive extractor instance
func New(ctx context.Context, a *archive.Archive, opts Options) (*Client, error) {
	if opts.Dist == "" {
		return nil, errors.New("dist folder is required")
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	var includes []string
	for _, inc := range opts.Includes {
		if p, ok := archive.CleanPath(inc); ok {
			includes = append(includes, p)
		}
	}
	opts.Includes = includes
	return &Client{
		ctx:     ctx,
		archive: a,
		opts:    opts,
		logger:  opts.Logger.With().Str("archive", a.Name()).Logger(),
	}, nil
}

// Extract writes the included entries to the dist folder and returns the
// number of files written.
func (c *Client) Extract() (int, error) {
	if _, err := os.Stat(c.opts.Dist); err == nil && c.opts.RmDist {
		if err := os.RemoveAll(c.opts.Dist); err != nil {
			return 0, errors.Wrapf(err, "failed to remove dist folder %q", c.opts.Dist)
		}
	}
	if err := os.MkdirAll(c.opts.Dist, 0o700); err != nil {
		return 0, errors.Wrapf(err, "failed to create dist folder %q", c.opts.Dist)
	}

	c.logger.Info().Str("driver", c.archive.Driver()).Int("entries", c.archive.Len()).Msg("Extracting archive")

	var count atomic.Int64
	eg, ctx := errgroup.WithContext(c.ctx)
	eg.SetLimit(c.opts.Workers)
	for e := range c.archive.Entries() {
		if !fileIsIncluded(c.opts.Includes, e.Path) {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			c.logger.Debug().Msgf("Extracting %s", e.Path)
			path := filepath.Join(c.opts.Dist, filepath.FromSlash(e.Path))
			if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
				return err
			}
			if err := writeFile(ctx, path, c.archive, e); err != nil {
				return errors.Wrapf(err, "cannot extract %s", e.Path)
			}
			count.Add(1)
			return nil
		})
	}
	err := eg.Wait()
	if err == nil {
		err = c.ctx.Err()
	}
	return int(count.Load()), err
}

func fileIsIncluded(filenameList []string, filename string) bool {
	// include all files if there is no specific list
	if len(filenameList) == 0 {
		return true
	}
	for _, fn := range filenameList {
		// exact matches are of course included
		if filename == fn {
			return true
		}
		// also consider the file included if its parent folder/path is in the list
		if strings.HasPrefix(filename, strings.TrimSuffix(fn, "/")+"/") {
			return true
		}
	}
	return false
}

func writeFile(ctx context.Context, path string, a *archive.Archive, e archive.Entry) error {
	r, err := a.Open(e.Path)
	if err != nil {
		return err
	}
	defer r.Close()

	w, err := os.Create(path)
	if err != nil {
		return err
	}
	defer w.Close()

	_, err = io.Copy(w, readerContext(ctx, r))
	return err
}

type reader struct {
	ctx context.Context
	r   io.Reader
}

func readerContext(ctx context.Context, r io.Reader) io.Reader {
	return reader{ctx, r}
}

func (r reader) Read(p []byte) (int, error) {
	err := r.ctx.Err()
	if err != nil {
		return 0, err
	}
	n, err := r.r.Read(p)
	if err != nil {
		return n, err
	}
	return n, r.ctx.Err()
}
