package transform

import (
	"github.com/crazy-max/unpak/pkg/asset"
	digest "github.com/opencontainers/go-digest"
)

// Model is a textured mesh graph.
type Model struct {
	path  string
	Name  string
	Nodes []ModelNode
}

// ModelNode is one node of a Model. Mesh is nil for grouping nodes.
type ModelNode struct {
	Name     string
	Parent   string
	Mesh     *asset.Mesh
	Material Material
}

// Material binds a texture to a node. Texture is nil when none was found.
type Material struct {
	Name    string
	Texture *asset.Texture
}

func (m *Model) Path() string { return m.path }

// Textured reports whether the material has a texture.
func (m Material) Textured() bool { return m.Texture != nil }

// UnknownFileModel describes an object no other stage understands.
type UnknownFileModel struct {
	path   string
	Ext    string
	Type   string
	Size   int64
	Digest digest.Digest
}

func (u *UnknownFileModel) Path() string { return u.path }

// Table is a tabular view of game-content records.
type Table struct {
	path    string
	Columns []string
	Rows    [][]string
}

func (t *Table) Path() string { return t.path }
