package app

import (
	"fmt"

	"github.com/crazy-max/unpak/pkg/resolve"
)

func (c *Unpak) resolve() error {
	cmd := c.cli.Resolve
	kind, err := resolve.ParseKind(cmd.Kind)
	if err != nil {
		return err
	}
	a, err := c.openArchive(cmd.Archive)
	if err != nil {
		return err
	}
	defer a.Close()

	l := c.newLoader(a)
	res, ok := l.Resolve(cmd.Path, kind)
	for _, p := range l.Candidates(cmd.Path, kind) {
		mark := " "
		if ok && p == res.Path {
			mark = "*"
		}
		fmt.Printf("%s %s\n", mark, p)
	}
	return res.Err()
}
