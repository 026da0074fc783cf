package app

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/crazy-max/unpak/pkg/archive/cpak"
	"github.com/crazy-max/unpak/pkg/archive/hpak"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type packWriter interface {
	Add(name string, data []byte) error
	io.Closer
}

func (c *Unpak) pack() error {
	cmd := c.cli.Pack
	f, err := os.Create(cmd.Out)
	if err != nil {
		return errors.Wrapf(err, "cannot create %q", cmd.Out)
	}
	defer f.Close()

	var w packWriter
	switch cmd.Format {
	case hpak.Name:
		w, err = hpak.NewWriter(f, hpak.WithCompression(!cmd.NoDeflate))
	case cpak.Name:
		var tag cpak.ChunkTag
		if tag, err = cpak.ParseChunkTag(cmd.Codec); err == nil {
			w, err = cpak.NewWriter(f, cpak.WithCodec(tag))
		}
	default:
		err = errors.Errorf("unknown archive format %q", cmd.Format)
	}
	if err != nil {
		return err
	}

	logger := log.With().Str("src", cmd.Src).Str("format", cmd.Format).Logger()
	var count int
	err = filepath.WalkDir(cmd.Src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := c.ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(cmd.Src, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		logger.Debug().Msgf("Packing %s", rel)
		count++
		return w.Add(filepath.ToSlash(rel), data)
	})
	if err != nil {
		return errors.Wrap(err, "cannot pack folder")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "cannot finalize archive")
	}
	logger.Info().Int("files", count).Str("out", cmd.Out).Msg("Archive packed")
	return f.Close()
}
