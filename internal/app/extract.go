package app

import (
	"path/filepath"

	"github.com/crazy-max/unpak/pkg/extractor"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

func (c *Unpak) extract() error {
	cmd := c.cli.Extract
	a, err := c.openArchive(cmd.Archive)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := log.With().Str("src", cmd.Archive).Logger()
	ext, err := extractor.New(c.ctx, a, extractor.Options{
		Includes: cmd.Includes,
		Workers:  cmd.Workers,
		Dist:     cmd.Dist,
		RmDist:   cmd.RmDist,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	n, err := ext.Extract()
	if err != nil {
		return errors.Wrap(err, "cannot extract archive")
	}
	logger.Info().Int("files", n).Str("dist", cmd.Dist).Msg("Archive extracted")

	if cmd.Repack {
		out := filepath.Clean(cmd.Dist) + ".zip"
		if err := extractor.Repack(c.ctx, cmd.Dist, out); err != nil {
			return err
		}
		logger.Info().Str("zip", out).Msg("Dist folder repacked")
	}
	return nil
}
