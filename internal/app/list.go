package app

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/crazy-max/unpak/pkg/archive"
)

func (c *Unpak) list() error {
	a, err := c.openArchive(c.cli.List.Archive)
	if err != nil {
		return err
	}
	defer a.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tSIZE\tSTORED\tCOMPRESSION")
	for e := range a.Entries() {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", e.Path, e.Size, e.StoredSize, compression(e))
	}
	return w.Flush()
}

func compression(e archive.Entry) string {
	if e.Compression == "" {
		return string(archive.CompressionNone)
	}
	return string(e.Compression)
}
