package app

import (
	"os"
	"slices"

	"github.com/crazy-max/unpak/pkg/asset"
	"github.com/crazy-max/unpak/pkg/factory"
	"github.com/crazy-max/unpak/pkg/resolve"
	"github.com/crazy-max/unpak/pkg/transform"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type inspectOutput struct {
	Path        string         `yaml:"path"`
	Size        int64          `yaml:"size"`
	Compression string         `yaml:"compression"`
	Constructor string         `yaml:"constructor"`
	Fallback    bool           `yaml:"fallback,omitempty"`
	Target      string         `yaml:"target,omitempty"`
	Object      map[string]any `yaml:"object"`
}

func (c *Unpak) inspect() error {
	cmd := c.cli.Inspect
	kind, err := resolve.ParseKind(cmd.Kind)
	if err != nil {
		return err
	}
	target := transform.Target(cmd.To)
	if len(target) > 0 && !slices.Contains(transform.Targets, target) {
		return errors.Errorf("unknown transform target %q", cmd.To)
	}

	a, err := c.openArchive(cmd.Archive)
	if err != nil {
		return err
	}
	defer a.Close()

	l := c.newLoader(a)
	loaded, err := l.Load(c.ctx, cmd.Path, kind, factory.Capability(cmd.As))
	if err != nil {
		return err
	}
	obj := loaded.Object
	if len(target) > 0 {
		if obj, err = l.Transform(c.ctx, obj, target); err != nil {
			return err
		}
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(inspectOutput{
		Path:        loaded.Path,
		Size:        loaded.Entry.Size,
		Compression: compression(loaded.Entry),
		Constructor: loaded.Option.Name,
		Fallback:    loaded.Option.Fallback,
		Target:      string(target),
		Object:      describe(obj),
	}); err != nil {
		return err
	}
	return enc.Close()
}

func describe(obj factory.Object) map[string]any {
	switch o := obj.(type) {
	case *asset.Blob:
		return map[string]any{"type": "blob", "size": len(o.Data)}
	case *asset.Texture:
		return map[string]any{
			"type":   "texture",
			"format": o.Format,
			"width":  o.Width,
			"height": o.Height,
			"mips":   o.MipCount,
			"fourcc": o.FourCC,
		}
	case *asset.Mesh:
		return map[string]any{
			"type":      "mesh",
			"name":      o.Name,
			"vertices":  len(o.Vertices),
			"triangles": o.Triangles(),
			"materials": o.Materials(),
		}
	case *asset.Scene:
		return map[string]any{"type": "scene", "name": o.Name, "nodes": o.Nodes}
	case *asset.Records:
		return map[string]any{"type": "records", "rows": o.Rows}
	case *transform.Model:
		nodes := make([]map[string]any, 0, len(o.Nodes))
		for _, n := range o.Nodes {
			node := map[string]any{"name": n.Name}
			if n.Parent != "" {
				node["parent"] = n.Parent
			}
			if n.Mesh != nil {
				node["mesh"] = n.Mesh.Path()
			}
			if n.Material.Textured() {
				node["texture"] = n.Material.Texture.Path()
			}
			nodes = append(nodes, node)
		}
		return map[string]any{"type": "textured-mesh", "name": o.Name, "nodes": nodes}
	case *transform.Table:
		return map[string]any{"type": "table", "columns": o.Columns, "rows": o.Rows}
	case *transform.UnknownFileModel:
		return map[string]any{
			"type":   "unknown-file-model",
			"ext":    o.Ext,
			"object": o.Type,
			"size":   o.Size,
			"digest": o.Digest.String(),
		}
	default:
		return map[string]any{"path": obj.Path()}
	}
}
