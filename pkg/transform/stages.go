package transform

import (
	"context"
	_ "crypto/sha256"
	"fmt"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/crazy-max/unpak/pkg/archive"
	"github.com/crazy-max/unpak/pkg/asset"
	"github.com/crazy-max/unpak/pkg/factory"
	"github.com/crazy-max/unpak/pkg/resolve"
	digest "github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
)

// SceneStage converts a scene document to a Model, loading the mesh and
// texture of each node.
type SceneStage struct{}

func (SceneStage) Name() string { return "scene" }

func (SceneStage) CanTransform(src factory.Object, target Target) bool {
	_, ok := src.(*asset.Scene)
	return ok && target == TargetTexturedMesh
}

func (SceneStage) Transform(ctx context.Context, env Env, src factory.Object, _ Target) (factory.Object, error) {
	scene := src.(*asset.Scene)
	model := &Model{path: scene.Path(), Name: scene.Name}
	for _, n := range scene.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		node := ModelNode{Name: n.Name, Parent: n.Parent}
		if n.Mesh != "" {
			mesh, err := loadMesh(ctx, env, n.Mesh)
			if err != nil {
				return nil, errors.Wrapf(err, "node %s", n.Name)
			}
			node.Mesh = mesh
			refs := []string{mesh.Path()}
			if n.Texture != "" {
				refs = []string{n.Texture}
			}
			if node.Material, err = findTexture(ctx, env, append(refs, mesh.Materials()...)); err != nil {
				return nil, errors.Wrapf(err, "node %s", n.Name)
			}
		} else if n.Texture != "" {
			var err error
			if node.Material, err = findTexture(ctx, env, []string{n.Texture}); err != nil {
				return nil, errors.Wrapf(err, "node %s", n.Name)
			}
		}
		model.Nodes = append(model.Nodes, node)
	}
	return model, nil
}

// MeshStage converts a mesh to a single node Model textured from the mesh
// path or its material names.
type MeshStage struct{}

func (MeshStage) Name() string { return "mesh" }

func (MeshStage) CanTransform(src factory.Object, target Target) bool {
	_, ok := src.(*asset.Mesh)
	return ok && target == TargetTexturedMesh
}

func (MeshStage) Transform(ctx context.Context, env Env, src factory.Object, _ Target) (factory.Object, error) {
	mesh := src.(*asset.Mesh)
	name := mesh.Name
	if name == "" {
		name = strings.TrimSuffix(path.Base(mesh.Path()), path.Ext(mesh.Path()))
	}
	material, err := findTexture(ctx, env, append([]string{mesh.Path()}, mesh.Materials()...))
	if err != nil {
		return nil, err
	}
	return &Model{
		path:  mesh.Path(),
		Name:  name,
		Nodes: []ModelNode{{Name: name, Mesh: mesh, Material: material}},
	}, nil
}

// RecordStage converts records to a Table with the sorted union of keys
// as columns.
type RecordStage struct{}

func (RecordStage) Name() string { return "records" }

func (RecordStage) CanTransform(src factory.Object, target Target) bool {
	_, ok := src.(*asset.Records)
	return ok && target == TargetTable
}

func (RecordStage) Transform(_ context.Context, _ Env, src factory.Object, _ Target) (factory.Object, error) {
	records := src.(*asset.Records)
	keys := map[string]struct{}{}
	for _, row := range records.Rows {
		for k := range row {
			keys[k] = struct{}{}
		}
	}
	table := &Table{path: records.Path(), Columns: make([]string, 0, len(keys))}
	for k := range keys {
		table.Columns = append(table.Columns, k)
	}
	sort.Strings(table.Columns)
	for _, row := range records.Rows {
		cells := make([]string, len(table.Columns))
		for i, col := range table.Columns {
			if v, ok := row[col]; ok && v != nil {
				cells[i] = fmt.Sprint(v)
			}
		}
		table.Rows = append(table.Rows, cells)
	}
	return table, nil
}

// UnknownStage describes any object as an UnknownFileModel.
type UnknownStage struct{}

func (UnknownStage) Name() string { return "unknown" }

func (UnknownStage) CanTransform(src factory.Object, target Target) bool {
	return src != nil && target == TargetUnknownFileModel
}

func (UnknownStage) Transform(_ context.Context, _ Env, src factory.Object, _ Target) (factory.Object, error) {
	u := &UnknownFileModel{
		path: src.Path(),
		Ext:  archive.Ext(src.Path()),
		Type: strings.TrimPrefix(fmt.Sprintf("%T", src), "*"),
		Size: -1,
	}
	if enc, ok := src.(factory.Encoder); ok {
		b := enc.Bytes()
		u.Size = int64(len(b))
		u.Digest = digest.FromBytes(b)
	}
	return u, nil
}

func loadMesh(ctx context.Context, env Env, ref string) (*asset.Mesh, error) {
	obj, err := env.Materialize(ctx, ref, resolve.KindMesh, "")
	if err != nil {
		return nil, err
	}
	mesh, ok := obj.(*asset.Mesh)
	if !ok {
		return nil, errors.Errorf("%s is a %T, not a mesh", obj.Path(), obj)
	}
	return mesh, nil
}

// findTexture returns a material with the first texture found among refs.
// A texture missing from the archive is not an error.
func findTexture(ctx context.Context, env Env, refs []string) (Material, error) {
	var tried []string
	for _, ref := range refs {
		if slices.Contains(tried, ref) {
			continue
		}
		tried = append(tried, ref)
		if err := ctx.Err(); err != nil {
			return Material{}, err
		}
		obj, err := env.Materialize(ctx, ref, resolve.KindTexture, asset.CapTexture)
		if archive.IsNotFound(err) {
			continue
		} else if err != nil {
			return Material{}, errors.Wrapf(err, "texture %s", ref)
		}
		tex, ok := obj.(*asset.Texture)
		if !ok {
			return Material{}, errors.Errorf("%s is a %T, not a texture", obj.Path(), obj)
		}
		return Material{Name: ref, Texture: tex}, nil
	}
	return Material{Name: firstOr(refs, "")}, nil
}

func firstOr(s []string, def string) string {
	if len(s) == 0 {
		return def
	}
	return s[0]
}
