package app

import (
	"context"
	"strings"

	"github.com/crazy-max/unpak/pkg/archive"
	_ "github.com/crazy-max/unpak/pkg/archive/cpak"
	_ "github.com/crazy-max/unpak/pkg/archive/hpak"
	_ "github.com/crazy-max/unpak/pkg/archive/pk3"
	"github.com/crazy-max/unpak/pkg/asset"
	"github.com/crazy-max/unpak/pkg/config"
	"github.com/crazy-max/unpak/pkg/factory"
	"github.com/crazy-max/unpak/pkg/loader"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Unpak represents an active unpak object
type Unpak struct {
	ctx     context.Context
	cancel  context.CancelFunc
	meta    config.Meta
	cli     config.Cli
	profile *config.Profile
}

// New creates new unpak instance
func New(meta config.Meta, cli config.Cli) (*Unpak, error) {
	profile := &config.Profile{}
	if len(cli.Profile) > 0 {
		p, err := config.LoadProfile(cli.Profile)
		if err != nil {
			return nil, err
		}
		profile = p
		log.Debug().Str("profile", p.Name).Msg("Game profile loaded")
	}

	if err := asset.RegisterDefaults(factory.Default); err != nil {
		return nil, errors.Wrap(err, "cannot register constructors")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Unpak{
		ctx:     ctx,
		cancel:  cancel,
		meta:    meta,
		cli:     cli,
		profile: profile,
	}, nil
}

// Start runs the selected command
func (c *Unpak) Start(command string) error {
	name, _, _ := strings.Cut(command, " ")
	switch name {
	case "list":
		return c.list()
	case "extract":
		return c.extract()
	case "resolve":
		return c.resolve()
	case "inspect":
		return c.inspect()
	case "pack":
		return c.pack()
	default:
		return errors.Errorf("unknown command %q", command)
	}
}

// Close closes unpak
func (c *Unpak) Close() {
	c.cancel()
}

func (c *Unpak) openArchive(filename string) (*archive.Archive, error) {
	logger := log.With().Str("archive", filename).Logger()
	opts := []archive.Option{
		archive.WithLogger(logger),
		archive.WithProfile(c.profile.Name),
	}
	driver := c.cli.Driver
	if len(driver) == 0 {
		driver = c.profile.Driver
	}
	if len(driver) > 0 {
		opts = append(opts, archive.WithDriver(driver))
	}
	a, err := archive.Open(c.ctx, filename, opts...)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("driver", a.Driver()).Int("entries", a.Len()).Msg("Archive opened")
	return a, nil
}

func (c *Unpak) newLoader(a *archive.Archive) *loader.Loader {
	return loader.New(a,
		loader.WithRules(c.profile.Rules),
		loader.WithLogger(log.With().Str("archive", a.Name()).Logger()),
	)
}
